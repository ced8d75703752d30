package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/wire"
	"github.com/silentpay/spd/scanmgr"
)

// txFileEntry is one transaction of a --txfile batch: the raw transaction and
// the scripts of the outputs its inputs spend, in input order.
type txFileEntry struct {
	Hex      string   `json:"hex"`
	Prevouts []string `json:"prevouts"`
}

// readTxFile loads a batch of transactions as scan candidates.
func readTxFile(path string) ([]scanmgr.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []txFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	candidates := make([]scanmgr.Candidate, 0, len(entries))
	for i, entry := range entries {
		candidate, err := entry.candidate()
		if err != nil {
			return nil, fmt.Errorf("transaction %d of %s: %w", i, path,
				err)
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func (e *txFileEntry) candidate() (scanmgr.Candidate, error) {
	rawTx, err := hex.DecodeString(e.Hex)
	if err != nil {
		return scanmgr.Candidate{}, fmt.Errorf("raw transaction is "+
			"not hex: %w", err)
	}

	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(rawTx)); err != nil {
		return scanmgr.Candidate{}, err
	}
	if len(e.Prevouts) != len(tx.TxIn) {
		return scanmgr.Candidate{}, fmt.Errorf("%d prevouts for %d "+
			"inputs", len(e.Prevouts), len(tx.TxIn))
	}

	prevOuts := make(map[wire.OutPoint][]byte, len(tx.TxIn))
	for i, txIn := range tx.TxIn {
		script, err := hex.DecodeString(e.Prevouts[i])
		if err != nil {
			return scanmgr.Candidate{}, fmt.Errorf("prevout %d is "+
				"not hex: %w", i, err)
		}
		prevOuts[txIn.PreviousOutPoint] = script
	}

	return scanmgr.Candidate{
		Tx: &tx,
		Fetch: func(op wire.OutPoint) ([]byte, error) {
			script, ok := prevOuts[op]
			if !ok {
				return nil, fmt.Errorf("no prevout for %v", op)
			}
			return script, nil
		},
	}, nil
}
