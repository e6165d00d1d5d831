package sqlstore

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

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		r, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tt.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = r.Close() })
		return r
	})
}

func TestSQLiteReopenKeepsCounters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tt.db")
	body := func(int64) ([]byte, error) { return []byte(`{}`), nil }

	r, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	_, err = r.Create(ctx, store.Insights, body)
	require.NoError(t, err)
	ok, err := r.Delete(ctx, store.Insights, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, r.Close())

	r2, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer r2.Close()
	id, err := r2.Create(ctx, store.Insights, body)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}

func TestRebind(t *testing.T) {
	r := &Repo{placeholder: dollar}
	assert.Equal(t, "a = $1 AND b = $2", r.rebind("a = ? AND b = ?"))
	r.placeholder = question
	assert.Equal(t, "a = ?", r.rebind("a = ?"))
}

func TestPostgresContract(t *testing.T) {
	dsn := os.Getenv("TRENDTELLER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TRENDTELLER_TEST_POSTGRES_DSN not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		r, err := OpenPostgres(context.Background(), dsn)
		require.NoError(t, err)
		_, err = r.db.Exec(`TRUNCATE entities, entity_counters`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = r.Close() })
		return r
	})
}
