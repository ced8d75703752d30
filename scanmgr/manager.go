// Package scanmgr runs a silent payment scanner over batches of transactions
// and blocks, spreading the work over a bounded set of goroutines.
package scanmgr

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/silentpay/spd/scandb"
	"github.com/silentpay/spd/silentpayments"
	"golang.org/x/sync/errgroup"
)

// DefaultSeenCacheSize is the number of transaction hashes remembered as
// already scanned when Config.SeenCacheSize is zero.
const DefaultSeenCacheSize = 50000

// Candidate is a transaction to scan together with the source of the scripts
// of the outputs it spends.
type Candidate struct {
	Tx    *wire.MsgTx
	Fetch silentpayments.PrevOutFetcher
}

// Config configures a Manager.
type Config struct {
	// Scanner detects the payments.  It is required.
	Scanner *silentpayments.Scanner

	// Store receives the results of every batch.  Optional.
	Store *scandb.ResultStore

	// Workers bounds the number of transactions scanned at once.  The
	// number of CPUs is used when zero.
	Workers int

	// SeenCacheSize bounds the set of transaction hashes that are not
	// scanned again.  DefaultSeenCacheSize is used when zero.
	SeenCacheSize uint

	// Metrics is where the manager's collectors are registered.  Metrics
	// are still collected, but not exported, when nil.
	Metrics prometheus.Registerer
}

// Manager scans batches of transactions concurrently.
type Manager struct {
	cfg     Config
	seen    lru.Cache
	metrics *metrics
}

// New returns a manager for cfg.
func New(cfg *Config) (*Manager, error) {
	if cfg.Scanner == nil {
		return nil, errors.New("scan manager needs a scanner")
	}

	m := &Manager{
		cfg:     *cfg,
		metrics: newMetrics(),
	}
	if m.cfg.Workers <= 0 {
		m.cfg.Workers = runtime.NumCPU()
	}
	if m.cfg.SeenCacheSize == 0 {
		m.cfg.SeenCacheSize = DefaultSeenCacheSize
	}
	m.seen = lru.NewCache(m.cfg.SeenCacheSize)

	if cfg.Metrics != nil {
		if err := m.metrics.register(cfg.Metrics); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return m, nil
}

// ScanBatch scans the candidates and returns their results in candidate
// order.  Transactions scanned by an earlier batch, or repeated within this
// one, are skipped.  The first scan error cancels the batch and nothing is
// stored.
func (m *Manager) ScanBatch(ctx context.Context, candidates []Candidate) (
	[]silentpayments.ScanResult, error) {

	hashes := make([]chainhash.Hash, len(candidates))
	pending := make([]bool, len(candidates))
	inBatch := make(map[chainhash.Hash]struct{}, len(candidates))
	for i, c := range candidates {
		hashes[i] = c.Tx.TxHash()

		_, dup := inBatch[hashes[i]]
		if dup || m.seen.Contains(hashes[i]) {
			log.Tracef("Skipping already seen transaction %v",
				hashes[i])
			m.metrics.skipped.Inc()
			continue
		}
		inBatch[hashes[i]] = struct{}{}
		pending[i] = true
	}

	perTx := make([][]silentpayments.ScanResult, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i := range candidates {
		if !pending[i] {
			continue
		}

		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			results, err := m.cfg.Scanner.ScanTransaction(
				candidates[i].Tx, candidates[i].Fetch,
			)
			if err != nil {
				return fmt.Errorf("scan %v: %w", hashes[i], err)
			}
			m.metrics.observeScan(start, len(results))

			perTx[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []silentpayments.ScanResult
	for i := range candidates {
		results = append(results, perTx[i]...)
	}

	if m.cfg.Store != nil {
		if err := m.cfg.Store.PutResults(results); err != nil {
			return nil, fmt.Errorf("store results: %w", err)
		}
	}

	for i := range candidates {
		if pending[i] {
			m.seen.Add(hashes[i])
		}
	}

	log.Debugf("Scanned %d of %d transactions, found %d outputs",
		len(inBatch), len(candidates), len(results))

	return results, nil
}

// ScanBlock scans every non-coinbase transaction of block.  Outputs created
// earlier in the block are resolved from the block itself; everything else
// comes from fetch.
func (m *Manager) ScanBlock(ctx context.Context, block *wire.MsgBlock,
	fetch silentpayments.PrevOutFetcher) ([]silentpayments.ScanResult,
	error) {

	created := make(map[wire.OutPoint][]byte)
	candidates := make([]Candidate, 0, len(block.Transactions))
	blockFetch := func(op wire.OutPoint) ([]byte, error) {
		if script, ok := created[op]; ok {
			return script, nil
		}
		return fetch(op)
	}

	for _, tx := range block.Transactions {
		txHash := tx.TxHash()
		for idx, txOut := range tx.TxOut {
			op := wire.OutPoint{Hash: txHash, Index: uint32(idx)}
			created[op] = txOut.PkScript
		}

		if isCoinBase(tx) {
			continue
		}
		candidates = append(candidates, Candidate{
			Tx:    tx,
			Fetch: blockFetch,
		})
	}

	results, err := m.ScanBatch(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("block %v: %w", block.BlockHash(), err)
	}

	if len(results) > 0 {
		log.Infof("Found %d outputs in block %v", len(results),
			block.BlockHash())
	}

	return results, nil
}

// isCoinBase reports whether tx has the single null-outpoint input of a
// coinbase transaction.
func isCoinBase(tx *wire.MsgTx) bool {
	if len(tx.TxIn) != 1 {
		return false
	}

	prevOut := &tx.TxIn[0].PreviousOutPoint
	return prevOut.Index == wire.MaxPrevOutIndex &&
		prevOut.Hash == (chainhash.Hash{})
}
