package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/KaramelBytes/trendteller/internal/utils"
)

const fileFormatVersion = 1

type fileState struct {
	Version int                      `json:"version"`
	Kinds   map[Kind]*fileCollection `json:"kinds"`
}

type fileCollection struct {
	LastID  int64        `json:"last_id"`
	Records []fileRecord `json:"records"`
}

type fileRecord struct {
	ID   int64           `json:"id"`
	Body json.RawMessage `json:"body"`
}

// File keeps all records in memory and rewrites a JSON snapshot, counters
// included, after every mutation. Bodies must be valid JSON.
type File struct {
	mu     sync.Mutex
	path   string
	state  fileState
	closed bool
}

// OpenFile loads the snapshot at path, or starts empty when it does not exist.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("store: file backing needs a path")
	}
	f := &File{path: path, state: fileState{Version: fileFormatVersion, Kinds: map[Kind]*fileCollection{}}}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	if err := json.Unmarshal(b, &f.state); err != nil {
		return nil, fmt.Errorf("parse store %s: %w", path, err)
	}
	if f.state.Kinds == nil {
		f.state.Kinds = map[Kind]*fileCollection{}
	}
	return f, nil
}

// Path returns the snapshot location.
func (f *File) Path() string { return f.path }

func (f *File) save() error {
	if err := utils.EnsureDir(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(f.state)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(f.path, data)
}

func (f *File) coll(kind Kind) *fileCollection {
	c, ok := f.state.Kinds[kind]
	if !ok {
		c = &fileCollection{}
		f.state.Kinds[kind] = c
	}
	return c
}

func (c *fileCollection) index(id int64) (int, bool) {
	i := sort.Search(len(c.Records), func(i int) bool { return c.Records[i].ID >= id })
	return i, i < len(c.Records) && c.Records[i].ID == id
}

func (f *File) Create(ctx context.Context, kind Kind, build BuildFunc) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	c := f.coll(kind)
	id := c.LastID + 1
	body, err := build(id)
	if err != nil {
		return 0, err
	}
	if !json.Valid(body) {
		return 0, fmt.Errorf("store: record body for %s/%d is not valid JSON", kind, id)
	}
	c.LastID = id
	c.Records = append(c.Records, fileRecord{ID: id, Body: body})
	if err := f.save(); err != nil {
		c.LastID = id - 1
		c.Records = c.Records[:len(c.Records)-1]
		return 0, err
	}
	return id, nil
}

func (f *File) Reserve(ctx context.Context, kind Kind) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	c := f.coll(kind)
	c.LastID++
	if err := f.save(); err != nil {
		c.LastID--
		return 0, err
	}
	return c.LastID, nil
}

func (f *File) Put(ctx context.Context, kind Kind, id int64, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(body) {
		return fmt.Errorf("store: record body for %s/%d is not valid JSON", kind, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	c := f.coll(kind)
	if id < 1 || id > c.LastID {
		return fmt.Errorf("put %s/%d: %w", kind, id, ErrNotReserved)
	}
	i, ok := c.index(id)
	if ok {
		return fmt.Errorf("put %s/%d: %w", kind, id, ErrExists)
	}
	prev := c.Records
	next := make([]fileRecord, 0, len(prev)+1)
	next = append(next, prev[:i]...)
	next = append(next, fileRecord{ID: id, Body: body})
	next = append(next, prev[i:]...)
	c.Records = next
	if err := f.save(); err != nil {
		c.Records = prev
		return err
	}
	return nil
}

func (f *File) Get(_ context.Context, kind Kind, id int64) (Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Record{}, false, ErrClosed
	}
	c := f.coll(kind)
	i, ok := c.index(id)
	if !ok {
		return Record{}, false, nil
	}
	return Record{ID: id, Body: c.Records[i].Body}, true, nil
}

func (f *File) List(_ context.Context, kind Kind) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	c := f.coll(kind)
	out := make([]Record, len(c.Records))
	for i, r := range c.Records {
		out[i] = Record{ID: r.ID, Body: r.Body}
	}
	return out, nil
}

func (f *File) Delete(_ context.Context, kind Kind, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false, ErrClosed
	}
	c := f.coll(kind)
	i, ok := c.index(id)
	if !ok {
		return false, nil
	}
	prev := c.Records
	next := make([]fileRecord, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	c.Records = next
	if err := f.save(); err != nil {
		c.Records = prev
		return false, err
	}
	return true, nil
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
