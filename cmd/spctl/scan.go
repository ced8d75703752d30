package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/silentpay/spd/internal/log"
	"github.com/silentpay/spd/scanmgr"
	"github.com/silentpay/spd/silentpayments"
)

// scanCmd scans a batch of transactions.
type scanCmd struct {
	ScanKey  string       `long:"scankey" required:"true" description:"Scan private key (hex)"`
	SpendKey string       `long:"spendkey" required:"true" description:"Spend private key (hex), or compressed public key to omit spending keys"`
	Labels   []uint32     `long:"label" description:"Also detect payments to this label; may be repeated"`
	TxFile   string       `long:"txfile" required:"true" description:"JSON file of transactions to scan"`
	Workers  int          `long:"workers" description:"Number of transactions scanned at once (default: number of CPUs)"`
	NoStore  bool         `long:"nostore" description:"Do not write results to the result store"`
	Store    storeOptions `group:"Store Options"`

	cfg *config
}

// resultReply is the printed form of a scan result.
type resultReply struct {
	TxID    string  `json:"txid"`
	Vout    uint32  `json:"vout"`
	Address string  `json:"address"`
	Label   *uint32 `json:"label,omitempty"`
	PubKey  string  `json:"pubkey"`
	Tweak   string  `json:"tweak"`
	PrivKey string  `json:"privkey,omitempty"`

	// Negate is set when the spend key is negated before adding Tweak.
	Negate bool `json:"negate,omitempty"`
}

func newResultReply(r *silentpayments.ScanResult,
	spendKey *btcec.PrivateKey) (resultReply, error) {

	reply := resultReply{
		TxID:    r.TxHash.String(),
		Vout:    r.OutputIndex,
		Address: r.Address,
		Label:   r.Label,
		PubKey:  hex.EncodeToString(r.PubKey[:]),
		Tweak:   hex.EncodeToString(r.PrivKeyTweak[:]),
		Negate:  r.NegateSpendKey,
	}
	if spendKey != nil {
		priv, err := r.SpendingKey(spendKey)
		if err != nil {
			return reply, fmt.Errorf("spending key for %v: %w",
				r.OutPoint(), err)
		}
		reply.PrivKey = privKeyHex(priv)
	}

	return reply, nil
}

func (c *scanCmd) Execute(args []string) error {
	env, err := c.cfg.load()
	if err != nil {
		return err
	}

	scanKey, err := parsePrivKey(c.ScanKey)
	if err != nil {
		return fmt.Errorf("scan key: %w", err)
	}
	spendPriv, spendPub, err := parseKeyPair(c.SpendKey)
	if err != nil {
		return fmt.Errorf("spend key: %w", err)
	}

	scanner, err := silentpayments.NewScanner(&silentpayments.ScannerConfig{
		ScanKey: scanKey,
		Address: silentpayments.NewAddress(env.net, scanKey.PubKey(),
			spendPub),
		Labels: c.Labels,
		Codec:  &env.codec,
	})
	if err != nil {
		return err
	}

	candidates, err := readTxFile(c.TxFile)
	if err != nil {
		return err
	}

	mgrCfg := &scanmgr.Config{
		Scanner: scanner,
		Workers: c.Workers,
	}
	if !c.NoStore {
		store, err := c.Store.open(env.net)
		if err != nil {
			return err
		}
		defer store.Close()
		mgrCfg.Store = store
	}
	mgr, err := scanmgr.New(mgrCfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log.SctlLog.Infof("Scanning %d transactions for %s", len(candidates),
		scanner.Address())

	results, err := mgr.ScanBatch(ctx, candidates)
	if err != nil {
		return err
	}

	replies := make([]resultReply, 0, len(results))
	for i := range results {
		reply, err := newResultReply(&results[i], spendPriv)
		if err != nil {
			return err
		}
		replies = append(replies, reply)
	}

	log.SctlLog.Infof("Found %d %s", len(results),
		log.PickNoun(uint64(len(results)), "output", "outputs"))

	return writeJSON(replies)
}

// resultsCmd lists stored scan results.
type resultsCmd struct {
	TxID     string       `long:"txid" description:"Only list the results of this transaction"`
	SpendKey string       `long:"spendkey" description:"Spend private key (hex) to print spending keys"`
	Store    storeOptions `group:"Store Options"`

	cfg *config
}

func (c *resultsCmd) Execute(args []string) error {
	env, err := c.cfg.load()
	if err != nil {
		return err
	}

	var spendKey *btcec.PrivateKey
	if c.SpendKey != "" {
		spendKey, err = parsePrivKey(c.SpendKey)
		if err != nil {
			return fmt.Errorf("spend key: %w", err)
		}
	}

	store, err := c.Store.open(env.net)
	if err != nil {
		return err
	}
	defer store.Close()

	replies := make([]resultReply, 0)
	collect := func(r *silentpayments.ScanResult) error {
		reply, err := newResultReply(r, spendKey)
		if err != nil {
			return err
		}
		replies = append(replies, reply)
		return nil
	}

	if c.TxID != "" {
		txHash, err := chainhash.NewHashFromStr(c.TxID)
		if err != nil {
			return fmt.Errorf("txid: %w", err)
		}
		results, err := store.ResultsForTx(*txHash)
		if err != nil {
			return err
		}
		for i := range results {
			if err := collect(&results[i]); err != nil {
				return err
			}
		}
	} else if err := store.ForEachResult(collect); err != nil {
		return err
	}

	return writeJSON(replies)
}

// tweakCmd prints the tweak data of a batch of transactions.
type tweakCmd struct {
	TxFile string `long:"txfile" required:"true" description:"JSON file of transactions"`

	cfg *config
}

type tweakReply struct {
	TxID  string `json:"txid"`
	Tweak string `json:"tweak,omitempty"`
}

func (c *tweakCmd) Execute(args []string) error {
	if _, err := c.cfg.load(); err != nil {
		return err
	}

	candidates, err := readTxFile(c.TxFile)
	if err != nil {
		return err
	}

	replies := make([]tweakReply, 0, len(candidates))
	for _, candidate := range candidates {
		tweak, err := silentpayments.TransactionTweakData(
			candidate.Tx, candidate.Fetch,
		)
		if err != nil {
			return err
		}

		reply := tweakReply{TxID: candidate.Tx.TxHash().String()}
		if tweak != nil {
			reply.Tweak = hex.EncodeToString(
				tweak.SerializeCompressed(),
			)
		}
		replies = append(replies, reply)
	}

	return writeJSON(replies)
}
