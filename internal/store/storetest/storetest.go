// Package storetest holds the behavioral checks every store backing must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trendteller/internal/store"
)

// Opener returns a fresh, empty store for a subtest.
type Opener func(t *testing.T) store.Store

func body(id int64) ([]byte, error) {
	return []byte(fmt.Sprintf(`{"id":%d}`, id)), nil
}

// Run exercises the store contract against the backing returned by open.
func Run(t *testing.T, open Opener) {
	ctx := context.Background()

	t.Run("IdsStartAtOnePerKind", func(t *testing.T) {
		s := open(t)
		id, err := s.Create(ctx, store.Datasets, body)
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		id, err = s.Create(ctx, store.Insights, body)
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		id, err = s.Create(ctx, store.Datasets, body)
		require.NoError(t, err)
		assert.Equal(t, int64(2), id)
	})

	t.Run("BuildSeesReservedID", func(t *testing.T) {
		s := open(t)
		id, err := s.Create(ctx, store.Insights, body)
		require.NoError(t, err)
		rec, ok, err := s.Get(ctx, store.Insights, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, fmt.Sprintf(`{"id":%d}`, id), string(rec.Body))
	})

	t.Run("IdsNotReusedAfterDelete", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 3; i++ {
			_, err := s.Create(ctx, store.Datasets, body)
			require.NoError(t, err)
		}
		ok, err := s.Delete(ctx, store.Datasets, 3)
		require.NoError(t, err)
		assert.True(t, ok)
		id, err := s.Create(ctx, store.Datasets, body)
		require.NoError(t, err)
		assert.Equal(t, int64(4), id)
	})

	t.Run("FailedBuildDoesNotConsumeID", func(t *testing.T) {
		s := open(t)
		boom := errors.New("boom")
		_, err := s.Create(ctx, store.Insights, func(int64) ([]byte, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
		id, err := s.Create(ctx, store.Insights, body)
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		recs, err := s.List(ctx, store.Insights)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("ListInIDOrderAfterDelete", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 4; i++ {
			_, err := s.Create(ctx, store.Datasets, body)
			require.NoError(t, err)
		}
		ok, err := s.Delete(ctx, store.Datasets, 2)
		require.NoError(t, err)
		require.True(t, ok)
		recs, err := s.List(ctx, store.Datasets)
		require.NoError(t, err)
		var ids []int64
		for _, r := range recs {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []int64{1, 3, 4}, ids)
	})

	t.Run("MissingRecords", func(t *testing.T) {
		s := open(t)
		_, ok, err := s.Get(ctx, store.Datasets, 99)
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = s.Delete(ctx, store.Datasets, 99)
		require.NoError(t, err)
		assert.False(t, ok)
		recs, err := s.List(ctx, store.Insights)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("ReserveSharesCounterWithCreate", func(t *testing.T) {
		s := open(t)
		id, err := s.Create(ctx, store.Insights, body)
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		id, err = s.Reserve(ctx, store.Insights)
		require.NoError(t, err)
		assert.Equal(t, int64(2), id)
		id, err = s.Create(ctx, store.Insights, body)
		require.NoError(t, err)
		assert.Equal(t, int64(3), id)

		_, ok, err := s.Get(ctx, store.Insights, 2)
		require.NoError(t, err)
		assert.False(t, ok, "reserved id holds no record until Put")
	})

	t.Run("PutOutOfOrderListsInIDOrder", func(t *testing.T) {
		s := open(t)
		a, err := s.Reserve(ctx, store.Insights)
		require.NoError(t, err)
		b, err := s.Reserve(ctx, store.Insights)
		require.NoError(t, err)
		bb, _ := body(b)
		require.NoError(t, s.Put(ctx, store.Insights, b, bb))
		ab, _ := body(a)
		require.NoError(t, s.Put(ctx, store.Insights, a, ab))

		recs, err := s.List(ctx, store.Insights)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, []int64{a, b}, []int64{recs[0].ID, recs[1].ID})
		assert.JSONEq(t, string(ab), string(recs[0].Body))
	})

	t.Run("PutRejectsUnreservedAndDuplicate", func(t *testing.T) {
		s := open(t)
		b, _ := body(1)
		require.ErrorIs(t, s.Put(ctx, store.Datasets, 1, b), store.ErrNotReserved)

		id, err := s.Reserve(ctx, store.Datasets)
		require.NoError(t, err)
		require.NoError(t, s.Put(ctx, store.Datasets, id, b))
		require.ErrorIs(t, s.Put(ctx, store.Datasets, id, b), store.ErrExists)
		require.ErrorIs(t, s.Put(ctx, store.Datasets, id+1, b), store.ErrNotReserved)
	})

	t.Run("UnusedReservationIsNotReused", func(t *testing.T) {
		s := open(t)
		_, err := s.Reserve(ctx, store.Datasets)
		require.NoError(t, err)
		id, err := s.Create(ctx, store.Datasets, body)
		require.NoError(t, err)
		assert.Equal(t, int64(2), id)
	})

	t.Run("ConcurrentCreatesGetDistinctIDs", func(t *testing.T) {
		s := open(t)
		const n = 20
		ids := make([]int64, n)
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id, err := s.Create(ctx, store.Datasets, body)
				if err != nil {
					errs <- err
					return
				}
				ids[i] = id
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		seen := map[int64]bool{}
		for _, id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
			assert.True(t, id >= 1 && id <= n)
		}
	})
}
