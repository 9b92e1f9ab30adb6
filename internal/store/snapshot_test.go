package store

import (
	"context"
	"path/filepath"
	"testing"

	"tradeflow/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	snap, err := OpenSnapshotStore(path)
	require.NoError(t, err)
	defer snap.Close()
	ctx := context.Background()

	src := New()
	idea := src.AddIdea(types.NewIdea("solana", "SOL", 0.02, "momentum", 3))
	src.UpdateIdeaStatus(idea.ID, types.IdeaNeedsReview)
	order := types.NewOrder(idea.ID, "solana", 0.02)
	order.Status = types.OrderScheduled
	src.AddOrder(order)

	require.NoError(t, snap.Save(ctx, src))

	dst := New()
	require.NoError(t, snap.Load(ctx, dst))

	gotIdea, ok := dst.GetIdea(idea.ID)
	require.True(t, ok)
	assert.Equal(t, types.IdeaNeedsReview, gotIdea.Status)
	assert.Equal(t, "SOL", gotIdea.Asset)

	gotOrder, ok := dst.GetOrder(order.ID)
	require.True(t, ok)
	assert.Equal(t, types.OrderScheduled, gotOrder.Status)
	assert.Equal(t, 0.02, gotOrder.Amount)
}

func TestSnapshotSaveReplacesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	snap, err := OpenSnapshotStore(path)
	require.NoError(t, err)
	defer snap.Close()
	ctx := context.Background()

	src := New()
	idea := src.AddIdea(types.NewIdea("solana", "SOL", 0.02, "momentum", 3))
	require.NoError(t, snap.Save(ctx, src))

	src.UpdateIdeaStatus(idea.ID, types.IdeaCancelled)
	require.NoError(t, snap.Save(ctx, src))

	dst := New()
	require.NoError(t, snap.Load(ctx, dst))
	got, ok := dst.GetIdea(idea.ID)
	require.True(t, ok)
	assert.Equal(t, types.IdeaCancelled, got.Status)
	assert.Len(t, dst.ListIdeas(nil, 0), 1, "upsert must not duplicate rows")
}

func TestOpenSnapshotStoreEmptyPath(t *testing.T) {
	_, err := OpenSnapshotStore("")
	assert.Error(t, err)
}
