package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type collection struct {
	mu     sync.Mutex
	lastID int64
	ids    []int64
	bodies map[int64][]byte
}

func newCollection() *collection {
	return &collection{bodies: map[int64][]byte{}}
}

// Memory is an in-process Store. Each kind has its own lock, so dataset and
// insight writes do not contend.
type Memory struct {
	mu     sync.Mutex
	colls  map[Kind]*collection
	closed bool
}

func NewMemory() *Memory {
	return &Memory{colls: map[Kind]*collection{
		Datasets: newCollection(),
		Insights: newCollection(),
	}}
}

func (m *Memory) coll(kind Kind) (*collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	c, ok := m.colls[kind]
	if !ok {
		c = newCollection()
		m.colls[kind] = c
	}
	return c, nil
}

func (m *Memory) Create(ctx context.Context, kind Kind, build BuildFunc) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c, err := m.coll(kind)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.lastID + 1
	body, err := build(id)
	if err != nil {
		return 0, err
	}
	c.lastID = id
	c.ids = append(c.ids, id)
	c.bodies[id] = body
	return id, nil
}

func (m *Memory) Reserve(ctx context.Context, kind Kind) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c, err := m.coll(kind)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID++
	return c.lastID, nil
}

func (m *Memory) Put(ctx context.Context, kind Kind, id int64, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := m.coll(kind)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id < 1 || id > c.lastID {
		return fmt.Errorf("put %s/%d: %w", kind, id, ErrNotReserved)
	}
	if _, ok := c.bodies[id]; ok {
		return fmt.Errorf("put %s/%d: %w", kind, id, ErrExists)
	}
	// puts may land out of id order; keep ids sorted
	i := sort.Search(len(c.ids), func(i int) bool { return c.ids[i] > id })
	c.ids = append(c.ids, 0)
	copy(c.ids[i+1:], c.ids[i:])
	c.ids[i] = id
	c.bodies[id] = body
	return nil
}

func (m *Memory) Get(_ context.Context, kind Kind, id int64) (Record, bool, error) {
	c, err := m.coll(kind)
	if err != nil {
		return Record{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	body, ok := c.bodies[id]
	if !ok {
		return Record{}, false, nil
	}
	return Record{ID: id, Body: body}, true, nil
}

func (m *Memory) List(_ context.Context, kind Kind) ([]Record, error) {
	c, err := m.coll(kind)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, Record{ID: id, Body: c.bodies[id]})
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, kind Kind, id int64) (bool, error) {
	c, err := m.coll(kind)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.bodies[id]; !ok {
		return false, nil
	}
	delete(c.bodies, id)
	for i, v := range c.ids {
		if v == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
