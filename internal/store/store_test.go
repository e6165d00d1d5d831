package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trendteller/internal/store"
	"github.com/KaramelBytes/trendteller/internal/store/storetest"
)

func TestMemoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s := store.NewMemory()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestFileContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := store.OpenFile(filepath.Join(t.TempDir(), "store.json"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestFileSurvivesReopenWithCounters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	s, err := store.OpenFile(path)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := s.Create(ctx, store.Datasets, func(id int64) ([]byte, error) { return []byte(`{"n":1}`), nil })
		require.NoError(t, err)
	}
	ok, err := s.Delete(ctx, store.Datasets, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Close())

	s2, err := store.OpenFile(path)
	require.NoError(t, err)
	recs, err := s2.List(ctx, store.Datasets)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.JSONEq(t, `{"n":1}`, string(recs[0].Body))

	id, err := s2.Create(ctx, store.Datasets, func(int64) ([]byte, error) { return []byte(`{}`), nil })
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func TestFileReservationSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := store.OpenFile(path)
	require.NoError(t, err)
	id, err := s.Reserve(ctx, store.Insights)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.NoError(t, s.Close())

	s2, err := store.OpenFile(path)
	require.NoError(t, err)
	id, err = s2.Create(ctx, store.Insights, func(int64) ([]byte, error) { return []byte(`{}`), nil })
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.Error(t, s2.Put(ctx, store.Insights, 1, []byte("not json")))
}

func TestFileRejectsNonJSONBody(t *testing.T) {
	s, err := store.OpenFile(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	_, err = s.Create(context.Background(), store.Datasets, func(int64) ([]byte, error) { return []byte("nope"), nil })
	assert.Error(t, err)
}

func TestFileCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := store.OpenFile(path)
	assert.Error(t, err)
}

func TestClosedStore(t *testing.T) {
	s := store.NewMemory()
	require.NoError(t, s.Close())
	_, err := s.List(context.Background(), store.Datasets)
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestOpenRegistry(t *testing.T) {
	ctx := context.Background()
	assert.Contains(t, store.Registered(), "memory")
	assert.Contains(t, store.Registered(), "file")

	s, err := store.Open(ctx, store.Config{Kind: "memory"})
	require.NoError(t, err)
	assert.NoError(t, s.Close())

	_, err = store.Open(ctx, store.Config{Kind: "nope"})
	assert.Error(t, err)
	_, err = store.Open(ctx, store.Config{})
	assert.Error(t, err)

	assert.Panics(t, func() {
		store.Register("memory", func(context.Context, store.Config) (store.Store, error) { return nil, nil })
	})
}
