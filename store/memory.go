package store

import (
	"sort"
	"strings"
	"sync"
)

// Memory is a process-local store, mostly for tests and scratch work
type Memory struct {
	root *kvGroup
	kv   *memKV
}

type memKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	m := &memKV{data: make(map[string][]byte)}
	root, _ := newRoot(m) // memKV never fails
	return &Memory{root: root, kv: m}
}

func (m *Memory) Root() Group { return m.root }

func (m *Memory) Close() error { return nil }

func (m *memKV) get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memKV) set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
