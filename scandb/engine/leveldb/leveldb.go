// Package leveldb implements the storage engine on top of goleveldb.
package leveldb

import (
	"errors"

	"github.com/silentpay/spd/scandb/engine"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// NewDB opens the database at dbPath, creating it if needed.  With create
// set, an existing database is an error.
func NewDB(dbPath string, create bool) (engine.Engine, error) {
	opts := opt.Options{
		ErrorIfExist: create,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	}
	ldb, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, err
	}

	return &DB{DB: ldb}, nil
}

// DB is a goleveldb backed engine.
type DB struct {
	*leveldb.DB
}

// Transaction opens a goleveldb transaction.  Only one may be open at a time;
// a second call blocks until the first is committed or discarded.
func (d *DB) Transaction() (engine.Transaction, error) {
	tx, err := d.DB.OpenTransaction()
	if err != nil {
		return nil, err
	}
	return &Transaction{tx: tx}, nil
}

// Snapshot returns a goleveldb snapshot.
func (d *DB) Snapshot() (engine.Snapshot, error) {
	snap, err := d.DB.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &Snapshot{snap: snap}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.DB.Close()
}

// Transaction adapts a goleveldb transaction.
type Transaction struct {
	tx *leveldb.Transaction
}

func (t *Transaction) Put(key, value []byte) error {
	return t.tx.Put(key, value, nil)
}

func (t *Transaction) Delete(key []byte) error {
	return t.tx.Delete(key, nil)
}

func (t *Transaction) Commit() error {
	return t.tx.Commit()
}

func (t *Transaction) Discard() {
	t.tx.Discard()
}

// Snapshot adapts a goleveldb snapshot.
type Snapshot struct {
	snap *leveldb.Snapshot
}

func (s *Snapshot) Get(key []byte) ([]byte, error) {
	val, err := s.snap.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, engine.ErrNotFound
	}
	return val, err
}

func (s *Snapshot) Has(key []byte) (bool, error) {
	return s.snap.Has(key, nil)
}

// NewIterator returns a goleveldb iterator over r, which already satisfies
// engine.Iterator.
func (s *Snapshot) NewIterator(r *engine.Range) engine.Iterator {
	return s.snap.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)
}

func (s *Snapshot) Release() {
	s.snap.Release()
}
