package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucket(t *testing.T) {
	db, err := Open("")
	require.NoError(t, err)
	defer db.Close()

	a := db.Bucket("a")
	b := db.Bucket("ab")

	require.NoError(t, a.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, a.Put([]byte("k0"), []byte("v0")))
	require.NoError(t, b.Put([]byte("k1"), []byte("other")))

	v, err := a.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	_, err = a.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := b.Has([]byte("k1"))
	require.NoError(t, err)
	require.True(t, ok)

	// buckets do not see each other's keys even when names share a prefix
	var keys []string
	require.NoError(t, a.Iterate(func(k, v []byte) error {
		keys = append(keys, string(k))
		return nil
	}))
	require.Equal(t, []string{"k0", "k1"}, keys)

	require.NoError(t, a.Delete([]byte("k0")))
	ok, err = a.Has([]byte("k0"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBatchAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	db, err := Open(path)
	require.NoError(t, err)

	bt := db.NewBatch()
	bt.Put(db.Bucket("x"), []byte("1"), []byte("one"))
	bt.Put(db.Bucket("y"), []byte("2"), []byte("two"))
	require.NoError(t, bt.Write())
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	v, err := db.Bucket("y").Get([]byte("2"))
	require.NoError(t, err)
	require.Equal(t, []byte("two"), v)
}
