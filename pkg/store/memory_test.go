package store_test

import (
	"context"
	"testing"

	"github.com/rwa-network/usdyx/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetMissingKey(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	var d doc
	found, err := m.Get(ctx, "nope", &d)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCommitThenGet(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	b := store.NewBatch()
	require.NoError(t, b.Put("account:0xa", &doc{Name: "a", Count: 3}))
	require.NoError(t, m.Commit(ctx, b))

	var d doc
	found, err := m.Get(ctx, "account:0xa", &d)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, d.Count)
}

func TestBatchLastStagingWins(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	b := store.NewBatch()
	require.NoError(t, b.Put("k", &doc{Count: 1}))
	require.NoError(t, b.Put("k", &doc{Count: 2}))
	assert.Equal(t, 1, b.Len())
	require.NoError(t, m.Commit(ctx, b))

	var d doc
	found, err := m.Get(ctx, "k", &d)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, d.Count)
}

func TestAppliedMarks(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	applied, err := m.Applied(ctx, "0xabc-1")
	require.NoError(t, err)
	assert.False(t, applied)

	b := store.NewBatch()
	b.MarkApplied("0xabc-1")
	require.NoError(t, m.Commit(ctx, b))

	applied, err = m.Applied(ctx, "0xabc-1")
	require.NoError(t, err)
	assert.True(t, applied)

	// Marks live in their own namespace, not the document space.
	var d doc
	found, err := m.Get(ctx, "0xabc-1", &d)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBatchEmpty(t *testing.T) {
	b := store.NewBatch()
	assert.True(t, b.Empty())

	b.MarkApplied("id")
	assert.False(t, b.Empty())
	assert.Equal(t, 0, b.Len())
}

func TestPutRejectsUnmarshalable(t *testing.T) {
	b := store.NewBatch()
	assert.Error(t, b.Put("k", make(chan int)))
}
