// Package store persists datasets and insights as opaque JSON records keyed by
// a per-kind sequential id. Backings register themselves by name and are
// selected at runtime through Open.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Kind names an entity collection.
type Kind string

const (
	Datasets Kind = "datasets"
	Insights Kind = "insights"
)

// Record is a stored entity body with its id.
type Record struct {
	ID   int64
	Body []byte
}

// BuildFunc produces the record body for a freshly reserved id. When it fails
// the id is released and nothing is stored. It runs while the kind's counter
// is held, so it must not do slow work; use Reserve and Put for that.
type BuildFunc func(id int64) ([]byte, error)

// Store is the entity store contract shared by all backings.
//
// Ids start at 1 per kind, increase by one on every successful Create or
// Reserve and are never reused, including after Delete. List returns records
// in id order.
//
// Reserve consumes the next id without storing anything. Put stores the body
// for an id previously handed out by Reserve; the id stays consumed even if
// Put is never called.
type Store interface {
	Create(ctx context.Context, kind Kind, build BuildFunc) (int64, error)
	Reserve(ctx context.Context, kind Kind) (int64, error)
	Put(ctx context.Context, kind Kind, id int64, body []byte) error
	Get(ctx context.Context, kind Kind, id int64) (Record, bool, error)
	List(ctx context.Context, kind Kind) ([]Record, error)
	Delete(ctx context.Context, kind Kind, id int64) (bool, error)
	Close() error
}

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
	// ErrNotReserved is returned by Put for an id Reserve never handed out.
	ErrNotReserved = errors.New("store: id not reserved")
	// ErrExists is returned by Put when the id already holds a record.
	ErrExists = errors.New("store: record already exists")
)

// Config selects a backing. DSN is backing specific: a file path for "file",
// a sqlite path or a postgres connection string for the SQL backings.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a backing.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backing available under name. It panics on an empty name,
// a nil factory or a duplicate registration.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if name == "" {
		panic("store: Register called with empty name")
	}
	if f == nil {
		panic("store: Register called with nil factory")
	}
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("store: factory already registered for kind=%q", name))
	}
	factories[name] = f
}

// Open constructs the backing named by cfg.Kind.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("store: missing kind")
	}
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unsupported kind %q (registered: %v)", cfg.Kind, Registered())
	}
	return f(ctx, cfg)
}

// Registered lists the registered backing names.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("memory", func(context.Context, Config) (Store, error) { return NewMemory(), nil })
	Register("file", func(_ context.Context, cfg Config) (Store, error) { return OpenFile(cfg.DSN) })
}
