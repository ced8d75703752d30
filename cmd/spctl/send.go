package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/silentpay/spd/internal/log"
	"github.com/silentpay/spd/silentpayments"
)

// sendCmd derives the outputs paying silent payment addresses.
type sendCmd struct {
	Addresses []string  `long:"address" required:"true" description:"Recipient address; repeat once per amount to pay several recipients"`
	Inputs    []string  `long:"input" required:"true" description:"Spent output as txid:vout:privkey:pkscript, all hex; may be repeated"`
	Amounts   []float64 `long:"amount" required:"true" description:"Amount in BTC; may be repeated"`

	cfg *config
}

type sendOutput struct {
	Recipient int     `json:"recipient"`
	Address   string  `json:"address"`
	K         uint32  `json:"k"`
	PubKey    string  `json:"pubkey"`
	PkScript  string  `json:"pkscript"`
	Amount    float64 `json:"amount"`
}

// parseSpentInput parses a txid:vout:privkey:pkscript input description.
func parseSpentInput(str string) (silentpayments.TransactionInput,
	*btcec.PrivateKey, error) {

	var in silentpayments.TransactionInput

	fields := strings.Split(str, ":")
	if len(fields) != 4 {
		return in, nil, fmt.Errorf("input %q is not "+
			"txid:vout:privkey:pkscript", str)
	}

	txHash, err := chainhash.NewHashFromStr(fields[0])
	if err != nil {
		return in, nil, fmt.Errorf("input txid: %w", err)
	}
	vout, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return in, nil, fmt.Errorf("input vout: %w", err)
	}
	priv, err := parsePrivKey(fields[2])
	if err != nil {
		return in, nil, fmt.Errorf("input key: %w", err)
	}
	pkScript, err := hex.DecodeString(fields[3])
	if err != nil {
		return in, nil, fmt.Errorf("input pkscript: %w", err)
	}

	in.OutPoint = *wire.NewOutPoint(txHash, uint32(vout))
	in.ScriptType = silentpayments.ClassifyScript(pkScript)
	switch in.ScriptType {
	case silentpayments.ScriptTypeUnknown:
		// Only the outpoint takes part, through the input hash.

	case silentpayments.ScriptTypeP2TR:
		in.PubKey, err = schnorr.ParsePubKey(pkScript[2:])
		if err != nil {
			return in, nil, fmt.Errorf("input output key: %w", err)
		}

	default:
		in.PubKey = priv.PubKey()
	}

	return in, priv, nil
}

func (c *sendCmd) Execute(args []string) error {
	env, err := c.cfg.load()
	if err != nil {
		return err
	}

	keys := make(silentpayments.KeyMap, len(c.Inputs))
	inputs := make([]silentpayments.TransactionInput, 0, len(c.Inputs))
	for _, str := range c.Inputs {
		in, priv, err := parseSpentInput(str)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
		keys[in.OutPoint] = priv
	}

	// A single address receives every amount, otherwise addresses and
	// amounts pair up.
	addrStrs := c.Addresses
	if len(addrStrs) == 1 {
		for len(addrStrs) < len(c.Amounts) {
			addrStrs = append(addrStrs, c.Addresses[0])
		}
	}
	if len(addrStrs) != len(c.Amounts) {
		return fmt.Errorf("%d addresses given for %d amounts",
			len(c.Addresses), len(c.Amounts))
	}

	recipients := make([]silentpayments.Recipient, 0, len(addrStrs))
	for i, addrStr := range addrStrs {
		addr, err := env.codec.Decode(addrStr)
		if err != nil {
			return fmt.Errorf("address %d: %w", i, err)
		}
		if err := env.checkNetwork(addr); err != nil {
			return fmt.Errorf("address %d: %w", i, err)
		}
		amount, err := btcutil.NewAmount(c.Amounts[i])
		if err != nil {
			return fmt.Errorf("amount %d: %w", i, err)
		}
		recipients = append(recipients, silentpayments.Recipient{
			Address: addr,
			Amount:  amount,
		})
	}

	gen, err := silentpayments.NewGenerator(keys, nil)
	if err != nil {
		return err
	}
	outputs, err := gen.CreateOutputsMulti(inputs, recipients)
	if err != nil {
		return err
	}

	reply := make([]sendOutput, 0, len(outputs))
	for _, out := range outputs {
		pkScript, err := out.PkScript()
		if err != nil {
			return err
		}
		reply = append(reply, sendOutput{
			Recipient: out.Position,
			Address:   addrStrs[out.Position],
			K:         out.Index,
			PubKey:    hex.EncodeToString(out.PubKey[:]),
			PkScript:  hex.EncodeToString(pkScript),
			Amount:    out.Amount.ToBTC(),
		})
	}

	log.SctlLog.Infof("Derived %d %s from %d %s", len(reply),
		log.PickNoun(uint64(len(reply)), "output", "outputs"),
		len(inputs), log.PickNoun(uint64(len(inputs)), "input", "inputs"))

	return writeJSON(reply)
}
