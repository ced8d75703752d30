package pebbledb

import (
	"errors"

	"github.com/cockroachdb/pebble"
	"github.com/silentpay/spd/scandb/engine"
)

// Snapshot adapts a pebble snapshot.
type Snapshot struct {
	snap     *pebble.Snapshot
	released bool
}

func (s *Snapshot) Get(key []byte) ([]byte, error) {
	if s.released {
		return nil, ErrSnapshotReleased
	}

	val, closer, err := s.snap.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// The returned slice is only valid until closer is closed.
	return append([]byte(nil), val...), nil
}

func (s *Snapshot) Has(key []byte) (bool, error) {
	_, err := s.Get(key)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// NewIterator returns an iterator over r positioned before its first key.
func (s *Snapshot) NewIterator(r *engine.Range) engine.Iterator {
	if s.released {
		return &Iterator{err: ErrSnapshotReleased, released: true}
	}

	iter, err := s.snap.NewIter(&pebble.IterOptions{
		LowerBound: r.Start,
		UpperBound: r.Limit,
	})
	if err != nil {
		return &Iterator{err: err, released: true}
	}

	// pebble iterators start unpositioned; park this one before the lower
	// bound so the first Next lands on the first key.
	iter.SeekLT(r.Start)

	return &Iterator{iter: iter}
}

func (s *Snapshot) Release() {
	if s.released {
		return
	}
	s.released = true
	s.snap.Close()
}
