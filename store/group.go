package store

import (
	"fmt"
	"sort"
	"strings"
)

// Group is a node of a hierarchical store: it holds named sub-groups, named
// datasets and named attributes
type Group interface {
	// Path is the slash separated location of the group, "/" for the root
	Path() string

	// RequireGroup returns the named child, creating it when absent
	RequireGroup(name string) (Group, error)
	// Group returns the named child or ErrNotFound
	Group(name string) (Group, error)
	// Groups lists child group names in sorted order
	Groups() ([]string, error)

	WriteDataset(name string, ds *Dataset) error
	ReadDataset(name string) (*Dataset, error)
	// Datasets lists dataset names in sorted order
	Datasets() ([]string, error)

	SetAttr(key string, ds *Dataset) error
	Attr(key string) (*Dataset, error)
	// Attrs lists attribute keys in sorted order
	Attrs() ([]string, error)
}

// Store owns a root group
type Store interface {
	Root() Group
	Close() error
}

// kv is the flat ordered key space both backends provide
type kv interface {
	get(key string) ([]byte, bool, error)
	set(key string, value []byte) error
	// keys returns every key with the prefix, sorted
	keys(prefix string) ([]string, error)
}

// Key layout:
//
//	g:<path>            group marker, path always ends in '/'
//	d:<path><name>      dataset
//	a:<path><key>       attribute
const (
	groupTag   = "g:"
	datasetTag = "d:"
	attrTag    = "a:"
)

type kvGroup struct {
	db   kv
	path string
}

func newRoot(db kv) (*kvGroup, error) {
	g := &kvGroup{db: db, path: "/"}
	if _, ok, err := db.get(groupTag + g.path); err != nil {
		return nil, err
	} else if !ok {
		if err = db.set(groupTag+g.path, nil); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (g *kvGroup) Path() string { return g.path }

func (g *kvGroup) child(name string) *kvGroup {
	return &kvGroup{db: g.db, path: g.path + name + "/"}
}

func (g *kvGroup) RequireGroup(name string) (Group, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	c := g.child(name)
	_, ok, err := g.db.get(groupTag + c.path)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err = g.db.set(groupTag+c.path, nil); err != nil {
			return nil, fmt.Errorf("create group %s: %w", c.path, err)
		}
	}
	return c, nil
}

func (g *kvGroup) Group(name string) (Group, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	c := g.child(name)
	_, ok, err := g.db.get(groupTag + c.path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("group %s: %w", c.path, ErrNotFound)
	}
	return c, nil
}

// children lists the direct entries below prefix+path, trimming an optional
// trailing slash
func (g *kvGroup) children(tag string, trailingSlash bool) ([]string, error) {
	prefix := tag + g.path
	keys, err := g.db.keys(prefix)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, k := range keys {
		rest := k[len(prefix):]
		if trailingSlash {
			if !strings.HasSuffix(rest, "/") {
				continue
			}
			rest = rest[:len(rest)-1]
		}
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		names = append(names, rest)
	}
	sort.Strings(names)
	return names, nil
}

func (g *kvGroup) Groups() ([]string, error) { return g.children(groupTag, true) }

func (g *kvGroup) Datasets() ([]string, error) { return g.children(datasetTag, false) }

func (g *kvGroup) Attrs() ([]string, error) { return g.children(attrTag, false) }

func (g *kvGroup) put(tag, name string, ds *Dataset) error {
	if err := checkName(name); err != nil {
		return err
	}
	buf, err := encode(ds)
	if err != nil {
		return fmt.Errorf("encode %s%s: %w", g.path, name, err)
	}
	return g.db.set(tag+g.path+name, buf)
}

func (g *kvGroup) fetch(tag, name, what string) (*Dataset, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	buf, ok, err := g.db.get(tag + g.path + name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %s%s: %w", what, g.path, name, ErrNotFound)
	}
	ds, err := decode(buf)
	if err != nil {
		return nil, fmt.Errorf("%s %s%s: %w", what, g.path, name, err)
	}
	return ds, nil
}

func (g *kvGroup) WriteDataset(name string, ds *Dataset) error {
	return g.put(datasetTag, name, ds)
}

func (g *kvGroup) ReadDataset(name string) (*Dataset, error) {
	return g.fetch(datasetTag, name, "dataset")
}

func (g *kvGroup) SetAttr(key string, ds *Dataset) error {
	return g.put(attrTag, key, ds)
}

func (g *kvGroup) Attr(key string) (*Dataset, error) {
	return g.fetch(attrTag, key, "attribute")
}

// SetStringAttr stores a string attribute
func SetStringAttr(g Group, key, value string) error {
	return g.SetAttr(key, NewString(value))
}

// StringAttr reads a string attribute
func StringAttr(g Group, key string) (string, error) {
	ds, err := g.Attr(key)
	if err != nil {
		return "", err
	}
	if ds.DType != String {
		return "", fmt.Errorf("attribute %s%s is %s, not string: %w", g.Path(), key, ds.DType, ErrCorrupt)
	}
	return ds.Text, nil
}

// SetIntsAttr stores a 1-D int64 attribute, used for shapes
func SetIntsAttr(g Group, key string, values []int) error {
	return g.SetAttr(key, NewInts(Int64, append([]int(nil), values...)))
}

// IntsAttr reads an integer attribute of any width
func IntsAttr(g Group, key string) ([]int, error) {
	ds, err := g.Attr(key)
	if err != nil {
		return nil, err
	}
	if !ds.DType.IsInt() {
		return nil, fmt.Errorf("attribute %s%s is %s, not integer: %w", g.Path(), key, ds.DType, ErrCorrupt)
	}
	return ds.Ints, nil
}
