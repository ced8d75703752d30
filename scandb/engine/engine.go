// Package engine defines the ordered key/value storage abstraction the scan
// result store is written against, so that the goleveldb and pebble backends
// can be swapped without touching the store.
package engine

import "errors"

var (
	// ErrNotFound is returned by Snapshot.Get for a missing key.
	ErrNotFound = errors.New("engine: key not found")

	// ErrIterReleased is returned by Iterator.Error once the iterator has
	// been released.
	ErrIterReleased = errors.New("engine: iterator released")
)

// Engine is an ordered key/value store.
type Engine interface {
	// Transaction starts a write batch.  Nothing written through it is
	// visible until Commit.
	Transaction() (Transaction, error)

	// Snapshot returns a consistent read view of the committed data.
	Snapshot() (Snapshot, error)

	// Close releases the store.  Closing twice is an error.
	Close() error
}

// Transaction is an atomic write batch.
type Transaction interface {
	Put(key, value []byte) error
	Delete(key []byte) error

	// Commit applies the batch.  A discarded batch can not be committed.
	Commit() error

	// Discard drops the batch.  It is safe to call more than once and
	// after Commit.
	Discard()
}

// Snapshot is a point-in-time read view.
type Snapshot interface {
	// Get returns a copy of the value stored under key, or ErrNotFound.
	Get(key []byte) ([]byte, error)

	Has(key []byte) (bool, error)

	// NewIterator walks the keys within r in ascending order.
	NewIterator(r *Range) Iterator

	Releaser
}

// Releaser is implemented by values holding engine resources.  Release is
// safe to call more than once.
type Releaser interface {
	Release()
}

// Iterator walks a key range.  A fresh iterator is positioned before the
// first key, so the usual loop is:
//
//	for iter.Next() {
//		use(iter.Key(), iter.Value())
//	}
type Iterator interface {
	// First moves to the first pair and returns whether it exists.
	First() bool

	// Last moves to the last pair and returns whether it exists.
	Last() bool

	// Seek moves to the first pair whose key is >= key.
	Seek(key []byte) bool

	// Next moves to the next pair, returning false once exhausted.
	Next() bool

	// Prev moves to the previous pair, returning false once exhausted.
	Prev() bool

	// Error returns any accumulated error.  Exhausting the range is not an
	// error.
	Error() error

	// Key returns the current key, or nil if done.  The slice is only
	// valid until the iterator moves.
	Key() []byte

	// Value returns the current value, or nil if done.  The slice is only
	// valid until the iterator moves.
	Value() []byte

	Releaser
}

// Range is the key range [Start, Limit).  A nil Start means the first key
// and a nil Limit means past the last key.
type Range struct {
	Start []byte
	Limit []byte
}

// BytesPrefix returns the range of keys beginning with prefix.
func BytesPrefix(prefix []byte) *Range {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] == 0xff {
			continue
		}

		limit = make([]byte, i+1)
		copy(limit, prefix)
		limit[i]++
		break
	}

	return &Range{Start: prefix, Limit: limit}
}
