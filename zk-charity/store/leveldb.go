package store

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = errors.New("store: not found")

// DB wraps a LevelDB handle. Callers work through prefixed Buckets.
type DB struct {
	db *leveldb.DB
}

// Open opens (or creates) a database at path. An empty path gives an
// in-memory database that is lost on Close.
func Open(path string) (*DB, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Bucket(name string) *Bucket {
	return &Bucket{db: d.db, prefix: []byte(name + "/")}
}

type Bucket struct {
	db     *leveldb.DB
	prefix []byte
}

func (b *Bucket) key(k []byte) []byte {
	ret := make([]byte, 0, len(b.prefix)+len(k))
	ret = append(ret, b.prefix...)
	return append(ret, k...)
}

func (b *Bucket) Put(k, v []byte) error {
	return b.db.Put(b.key(k), v, nil)
}

func (b *Bucket) Get(k []byte) ([]byte, error) {
	v, err := b.db.Get(b.key(k), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (b *Bucket) Has(k []byte) (bool, error) {
	return b.db.Has(b.key(k), nil)
}

func (b *Bucket) Delete(k []byte) error {
	return b.db.Delete(b.key(k), nil)
}

// Iterate calls fn for every key of the bucket in key order, with the bucket
// prefix stripped. Slices passed to fn are copies.
func (b *Bucket) Iterate(fn func(k, v []byte) error) error {
	iter := b.db.NewIterator(util.BytesPrefix(b.prefix), nil)
	defer iter.Release()

	for iter.Next() {
		k := append([]byte(nil), iter.Key()[len(b.prefix):]...)
		v := append([]byte(nil), iter.Value()...)
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Batch groups writes across buckets into one atomic LevelDB write.
type Batch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (d *DB) NewBatch() *Batch {
	return &Batch{db: d.db, batch: new(leveldb.Batch)}
}

func (bt *Batch) Put(b *Bucket, k, v []byte) {
	bt.batch.Put(b.key(k), v)
}

func (bt *Batch) Write() error {
	return bt.db.Write(bt.batch, nil)
}
