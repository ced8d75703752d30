// Package pebbledb implements the storage engine on top of pebble.
package pebbledb

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/silentpay/spd/scandb/engine"
)

var (
	ErrDbClosed         = errors.New("pebbledb: closed")
	ErrTxClosed         = errors.New("pebbledb: transaction already closed")
	ErrSnapshotReleased = errors.New("pebbledb: snapshot released")
)

const (
	// DefaultCache is the block cache size in MiB.
	DefaultCache = 16

	// DefaultHandles is the number of open files pebble may keep.
	DefaultHandles = 16
)

// NewDB opens the database at dbPath, creating it if needed.  With create
// set, an existing database is an error.  Zero cache and handles select the
// defaults.
func NewDB(dbPath string, create bool, cache, handles int) (engine.Engine,
	error) {

	if cache <= 0 {
		cache = DefaultCache
	}
	if handles <= 0 {
		handles = DefaultHandles
	}

	blockCache := pebble.NewCache(int64(cache) * 1024 * 1024)
	defer blockCache.Unref()

	// Bloom filters on every level, file size doubling per level.
	levels := make([]pebble.LevelOptions, 7)
	for i := range levels {
		levels[i] = pebble.LevelOptions{
			TargetFileSize: int64(2<<i) * 1024 * 1024,
			FilterPolicy:   bloom.FilterPolicy(10),
		}
	}

	opts := &pebble.Options{
		Cache:                    blockCache,
		ErrorIfExists:            create,
		MaxOpenFiles:             handles,
		MaxConcurrentCompactions: runtime.NumCPU,
		Levels:                   levels,
	}
	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, err
	}

	return &DB{db: db}, nil
}

// DB is a pebble backed engine.
type DB struct {
	db     *pebble.DB
	closed atomic.Bool
}

// Transaction starts a pebble batch.
func (d *DB) Transaction() (engine.Transaction, error) {
	if d.closed.Load() {
		return nil, ErrDbClosed
	}
	return &Transaction{batch: d.db.NewBatch()}, nil
}

// Snapshot returns a pebble snapshot.
func (d *DB) Snapshot() (engine.Snapshot, error) {
	if d.closed.Load() {
		return nil, ErrDbClosed
	}
	return &Snapshot{snap: d.db.NewSnapshot()}, nil
}

// Close closes the database.  A second call returns ErrDbClosed.
func (d *DB) Close() error {
	if d.closed.Swap(true) {
		return ErrDbClosed
	}
	return d.db.Close()
}
