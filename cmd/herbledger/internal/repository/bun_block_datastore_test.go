package repository

import (
	"context"
	"testing"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/content"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/dbtest"
)

func TestBunBlockDatastore_Basic(t *testing.T) {
	ds := NewBunBlockDatastore(dbtest.New(t))
	ctx := context.Background()
	key := datastore.NewKey("/blocks/abc")

	_, err := ds.Get(ctx, key)
	assert.ErrorIs(t, err, datastore.ErrNotFound)
	_, err = ds.GetSize(ctx, key)
	assert.ErrorIs(t, err, datastore.ErrNotFound)

	require.NoError(t, ds.Put(ctx, key, []byte("one")))
	require.NoError(t, ds.Put(ctx, key, []byte("three")))

	got, err := ds.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), got)

	size, err := ds.GetSize(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 5, size)

	require.NoError(t, ds.Put(ctx, datastore.NewKey("/other/x"), []byte("x")))
	res, err := ds.Query(ctx, query.Query{Prefix: "/blocks", KeysOnly: true})
	require.NoError(t, err)
	entries, err := res.Rest()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/blocks/abc", entries[0].Key)

	require.NoError(t, ds.Delete(ctx, key))
	ok, err := ds.Has(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBunBlockDatastore_BackingBlockStore(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	first, err := content.NewBlockStore(NewBunBlockDatastore(db), 1)
	require.NoError(t, err)
	id, err := first.Put(ctx, []byte("lab report"))
	require.NoError(t, err)

	// A fresh store over the same table sees the block.
	second, err := content.NewBlockStore(NewBunBlockDatastore(db), 1)
	require.NoError(t, err)
	data, err := second.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "lab report", string(data))

	keys, err := second.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, keys)
}
