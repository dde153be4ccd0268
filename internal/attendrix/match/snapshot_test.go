package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendrix/server/internal/attendrix/store"
	"github.com/attendrix/server/internal/attendrix/store/memory"
)

func TestBuildSnapshot_EstablishesDimensionFromFirstRow(t *testing.T) {
	snap := buildSnapshot([]store.Enrollment{
		{ID: 1, UserID: "alice", Embedding: []float64{1, 2, 3}},
		{ID: 2, UserID: "bob", Embedding: []float64{4, 5, 6}},
	})

	assert.Equal(t, 3, snap.Dim())
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 0, snap.Skipped())
}

func TestBuildSnapshot_SkipsDimensionMismatches(t *testing.T) {
	// A malformed enrollment is skipped and counted, never fatal.
	snap := buildSnapshot([]store.Enrollment{
		{ID: 1, UserID: "alice", Embedding: []float64{1, 2, 3}},
		{ID: 2, UserID: "bob", Embedding: []float64{4, 5}}, // wrong dimension
		{ID: 3, UserID: "cara", Embedding: []float64{7, 8, 9}},
		{ID: 4, UserID: "dave", Embedding: nil}, // empty
	})

	assert.Equal(t, 3, snap.Dim())
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 2, snap.Skipped())
}

func TestBuildSnapshot_Empty(t *testing.T) {
	snap := buildSnapshot(nil)
	assert.Equal(t, 0, snap.Dim())
	assert.Equal(t, 0, snap.Len())
}

func TestIndex_RefreshSwapsSnapshot(t *testing.T) {
	es := memory.NewEmbeddingStore()
	ctx := context.Background()
	index := NewIndex(es)

	// Before any refresh: empty but usable.
	assert.Equal(t, 0, index.Snapshot().Len())

	require.NoError(t, es.Insert(ctx, "alice", []float64{1, 0}, time.Now().UTC()))
	require.NoError(t, index.Refresh(ctx))

	first := index.Snapshot()
	assert.Equal(t, 1, first.Len())

	require.NoError(t, es.Insert(ctx, "bob", []float64{0, 1}, time.Now().UTC()))
	require.NoError(t, index.Refresh(ctx))

	// The old snapshot is untouched; the new one sees both users.
	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 2, index.Snapshot().Len())
}

func TestIndex_DeactivationDropsUserOnRefresh(t *testing.T) {
	es := memory.NewEmbeddingStore()
	ctx := context.Background()
	index := NewIndex(es)

	require.NoError(t, es.Insert(ctx, "alice", []float64{1, 0}, time.Now().UTC()))
	require.NoError(t, index.Refresh(ctx))
	require.Equal(t, 1, index.Snapshot().Len())

	n, err := es.DeactivateForUser(ctx, "alice")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, index.Refresh(ctx))
	assert.Equal(t, 0, index.Snapshot().Len())
}
