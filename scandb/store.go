// Package scandb persists detected silent payment outputs in an ordered
// key/value store.
package scandb

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/silentpay/spd/scandb/engine"
	"github.com/silentpay/spd/silentpayments"
)

// ResultStore keeps scan results keyed by outpoint.  It is safe for
// concurrent use to the extent the underlying engine is.
type ResultStore struct {
	db engine.Engine
}

// NewResultStore returns a store writing to db.
func NewResultStore(db engine.Engine) *ResultStore {
	return &ResultStore{db: db}
}

// PutResults writes the results in a single transaction, replacing any
// result already stored for the same outpoint.
func (s *ResultStore) PutResults(results []silentpayments.ScanResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.Transaction()
	if err != nil {
		return err
	}
	defer tx.Discard()

	for i := range results {
		r := &results[i]
		op := r.OutPoint()

		value, err := encodeResult(r)
		if err != nil {
			return err
		}
		if err := tx.Put(resultKey(&op), value); err != nil {
			return fmt.Errorf("put result %v: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Debugf("Stored %d scan results", len(results))
	return nil
}

// FetchResult returns the result stored for op, or an ErrResultNotFound
// error.
func (s *ResultStore) FetchResult(op wire.OutPoint) (
	*silentpayments.ScanResult, error) {

	snap, err := s.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	key := resultKey(&op)
	value, err := snap.Get(key)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return nil, makeError(ErrResultNotFound, fmt.Sprintf("no "+
			"result for %v", op))

	case err != nil:
		return nil, err
	}

	return decodeResult(key, value)
}

// ResultsForTx returns the results of one transaction ordered by output
// index.
func (s *ResultStore) ResultsForTx(txHash chainhash.Hash) (
	[]silentpayments.ScanResult, error) {

	var results []silentpayments.ScanResult
	err := s.forEach(engine.BytesPrefix(txPrefix(&txHash)),
		func(r *silentpayments.ScanResult) error {
			results = append(results, *r)
			return nil
		})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// ForEachResult calls fn for every stored result in key order.  Iteration
// stops at the first error returned by fn, which is passed through.
func (s *ResultStore) ForEachResult(
	fn func(*silentpayments.ScanResult) error) error {

	return s.forEach(engine.BytesPrefix([]byte{resultPrefix}), fn)
}

func (s *ResultStore) forEach(r *engine.Range,
	fn func(*silentpayments.ScanResult) error) error {

	snap, err := s.db.Snapshot()
	if err != nil {
		return err
	}
	defer snap.Release()

	iter := snap.NewIterator(r)
	defer iter.Release()

	for iter.Next() {
		result, err := decodeResult(iter.Key(), iter.Value())
		if err != nil {
			return err
		}
		if err := fn(result); err != nil {
			return err
		}
	}

	return iter.Error()
}

// DeleteResult removes the result stored for op.  Deleting a missing result
// is not an error.
func (s *ResultStore) DeleteResult(op wire.OutPoint) error {
	tx, err := s.db.Transaction()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := tx.Delete(resultKey(&op)); err != nil {
		return err
	}

	return tx.Commit()
}

// Close closes the underlying engine.
func (s *ResultStore) Close() error {
	return s.db.Close()
}
