package pebbledb

import (
	"github.com/cockroachdb/pebble"
	"github.com/silentpay/spd/scandb/engine"
)

// Iterator adapts a pebble iterator.
type Iterator struct {
	iter     *pebble.Iterator
	err      error
	released bool
}

func (i *Iterator) First() bool {
	return !i.released && i.iter.First()
}

func (i *Iterator) Last() bool {
	return !i.released && i.iter.Last()
}

func (i *Iterator) Seek(key []byte) bool {
	return !i.released && i.iter.SeekGE(key)
}

func (i *Iterator) Next() bool {
	return !i.released && i.iter.Next()
}

func (i *Iterator) Prev() bool {
	return !i.released && i.iter.Prev()
}

func (i *Iterator) Key() []byte {
	if i.released || !i.iter.Valid() {
		return nil
	}
	return i.iter.Key()
}

func (i *Iterator) Value() []byte {
	if i.released || !i.iter.Valid() {
		return nil
	}
	return i.iter.Value()
}

func (i *Iterator) Error() error {
	switch {
	case i.err != nil:
		return i.err
	case i.released:
		return engine.ErrIterReleased
	}
	return i.iter.Error()
}

func (i *Iterator) Release() {
	if i.released {
		return
	}
	i.released = true
	i.iter.Close()
}
