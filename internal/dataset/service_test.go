package dataset

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trendteller/internal/domain"
	"github.com/KaramelBytes/trendteller/internal/parser"
	"github.com/KaramelBytes/trendteller/internal/store"
	"github.com/KaramelBytes/trendteller/internal/table"
)

func newService(t *testing.T) *Service {
	t.Helper()
	s := NewService(store.NewMemory(), parser.Options{}, nil)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestIngestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	created, err := s.Ingest(ctx, "mentions", "ana", []byte("Category,Mentions\nA,5\nB,3\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "mentions", got.Name)
	assert.Equal(t, "ana", got.UploadedBy)
	assert.True(t, got.UploadedAt.Equal(created.UploadedAt))
	assert.Equal(t, []table.Column{
		{Name: "Category", Kind: table.KindText},
		{Name: "Mentions", Kind: table.KindNumeric},
	}, got.Columns)
	assert.Equal(t, []table.Row{
		{"Category": "A", "Mentions": int64(5)},
		{"Category": "B", "Mentions": int64(3)},
	}, got.Data)
}

func TestIngestMalformedStoresNothing(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	_, err := s.Ingest(ctx, "bad", "ana", []byte("a,b\n1,2,3\n"))
	var ierr *domain.IngestionError
	require.ErrorAs(t, err, &ierr)

	_, err = s.Ingest(ctx, "empty", "ana", nil)
	require.ErrorAs(t, err, &ierr)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	d, err := s.Ingest(ctx, "good", "ana", []byte("x\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ID)
}

func TestIngestFileAndRecords(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	d1, err := s.IngestFile(ctx, "tsv", "bo", "a.tsv", []byte("x\ty\n1\t2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, d1.Table().Names())

	d2, err := s.IngestFile(ctx, "json", "bo", "a.json", []byte(`[{"v": 1.5}]`))
	require.NoError(t, err)
	assert.Equal(t, 1.5, d2.Data[0]["v"])

	d3, err := s.IngestRecords(ctx, "records", "bo", []table.Row{{"n": 1}, {"n": nil}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), d3.ID)
	assert.Equal(t, table.KindNumeric, d3.Columns[0].Kind)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{list[0].ID, list[1].ID, list[2].ID})
}

func TestGetMissing(t *testing.T) {
	_, err := newService(t).Get(context.Background(), 42)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDeleteNeverReusesID(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	for i := 0; i < 2; i++ {
		_, err := s.Ingest(ctx, "d", "u", []byte("a\n1\n"))
		require.NoError(t, err)
	}
	ok, err := s.Delete(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	d, err := s.Ingest(ctx, "d", "u", []byte("a\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.ID)
}

func TestDatasetsSurviveFileStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	fs, err := store.OpenFile(path)
	require.NoError(t, err)
	s := NewService(fs, parser.Options{}, nil)
	d, err := s.Ingest(ctx, "m", "u", []byte("Mentions\n5\n3\n"))
	require.NoError(t, err)

	fs2, err := store.OpenFile(path)
	require.NoError(t, err)
	got, err := NewService(fs2, parser.Options{}, nil).Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Data[0]["Mentions"])
}

func TestIngestNonFiniteCells(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	d, err := s.Ingest(ctx, "inf", "u", []byte("x\ninf\n1\n-Infinity\n"))
	require.NoError(t, err)
	assert.Equal(t, table.KindText, d.Columns[0].Kind)

	got, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "inf", got.Data[0]["x"])
	assert.Equal(t, int64(1), got.Data[1]["x"])
	assert.Equal(t, "-Infinity", got.Data[2]["x"])

	r, err := s.IngestRecords(ctx, "records", "u", []table.Row{{"v": math.Inf(1)}, {"v": 2.5}})
	require.NoError(t, err)
	assert.Nil(t, r.Data[0]["v"])
	assert.Equal(t, table.KindNumeric, r.Columns[0].Kind)
}
