package pebbledb

import (
	"github.com/cockroachdb/pebble"
)

// Transaction adapts a pebble batch.  Once committed or discarded the batch
// is closed and every further call fails with ErrTxClosed.
type Transaction struct {
	batch  *pebble.Batch
	closed bool
}

func (t *Transaction) Put(key, value []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	return t.batch.Set(key, value, nil)
}

func (t *Transaction) Delete(key []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	return t.batch.Delete(key, nil)
}

func (t *Transaction) Commit() error {
	if t.closed {
		return ErrTxClosed
	}

	err := t.batch.Commit(pebble.Sync)
	t.Discard()
	return err
}

func (t *Transaction) Discard() {
	if t.closed {
		return
	}
	t.closed = true
	t.batch.Close()
}
