package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Backend names accepted by Config
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Config selects and configures a store backend
type Config struct {
	Backend    string `yaml:"backend"`     // memory or badger
	Path       string `yaml:"path"`        // badger directory, ignored when InMemory
	InMemory   bool   `yaml:"in_memory"`   // badger without disk files
	SyncWrites bool   `yaml:"sync_writes"` // fsync every write
}

// Validate checks that the configuration names a usable backend
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendBadger:
		if !c.InMemory && c.Path == "" {
			return errors.New("store: badger backend requires a path unless in_memory is set")
		}
		return nil
	default:
		return fmt.Errorf("store: unknown backend %q", c.Backend)
	}
}

// Open returns the store selected by cfg
func Open(cfg Config, logger *zap.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == BackendMemory {
		return NewMemory(), nil
	}
	return OpenBadger(cfg, logger)
}

// Badger is a persistent store on top of BadgerDB. Group paths map onto
// ordered keys, so listing a group is a prefix scan.
type Badger struct {
	db   *badger.DB
	root *kvGroup
}

// badgerLogger adapts zap to BadgerDB's Logger interface
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.sugar.Infof(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }

// OpenBadger opens (or creates) a BadgerDB backed store
func OpenBadger(cfg Config, logger *zap.Logger) (*Badger, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("store: path is required for a persistent badger store")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(badgerLogger{sugar: logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	root, err := newRoot(badgerKV{db: db})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Badger{db: db, root: root}, nil
}

func (b *Badger) Root() Group { return b.root }

func (b *Badger) Close() error { return b.db.Close() }

type badgerKV struct {
	db *badger.DB
}

func (k badgerKV) get(key string) (value []byte, ok bool, err error) {
	err = k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = true
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, ok, err
}

func (k badgerKV) set(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (k badgerKV) keys(prefix string) ([]string, error) {
	var out []string
	err := k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			out = append(out, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return out, err
}
