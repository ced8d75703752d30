package silentpayments

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ScriptType is the kind of output script a transaction input spends.
type ScriptType uint8

const (
	// ScriptTypeUnknown is any script silent payments cannot use.
	ScriptTypeUnknown ScriptType = iota

	// ScriptTypeP2PKH is pay-to-pubkey-hash.
	ScriptTypeP2PKH

	// ScriptTypeP2WPKH is pay-to-witness-pubkey-hash.
	ScriptTypeP2WPKH

	// ScriptTypeP2SHP2WPKH is P2WPKH nested in pay-to-script-hash.
	ScriptTypeP2SHP2WPKH

	// ScriptTypeP2TR is pay-to-taproot.
	ScriptTypeP2TR
)

// String returns the script type name.
func (s ScriptType) String() string {
	switch s {
	case ScriptTypeP2PKH:
		return "p2pkh"
	case ScriptTypeP2WPKH:
		return "p2wpkh"
	case ScriptTypeP2SHP2WPKH:
		return "p2sh-p2wpkh"
	case ScriptTypeP2TR:
		return "p2tr"
	default:
		return "unknown"
	}
}

// ClassifyScript returns the script type of a previous output script.  P2SH
// is reported as ScriptTypeP2SHP2WPKH; whether the redeem script really is a
// P2WPKH program can only be told from the spending input.
func ClassifyScript(pkScript []byte) ScriptType {
	switch {
	case txscript.IsPayToPubKeyHash(pkScript):
		return ScriptTypeP2PKH
	case txscript.IsPayToWitnessPubKeyHash(pkScript):
		return ScriptTypeP2WPKH
	case txscript.IsPayToScriptHash(pkScript):
		return ScriptTypeP2SHP2WPKH
	case txscript.IsPayToTaproot(pkScript):
		return ScriptTypeP2TR
	default:
		return ScriptTypeUnknown
	}
}

// TransactionInput is the silent payment view of a transaction input: the
// outpoint it spends and the public key that takes part in the shared secret.
// For P2TR inputs PubKey is the taproot output key.
type TransactionInput struct {
	// OutPoint is the previous output being spent.
	OutPoint wire.OutPoint

	// PubKey is the input public key, nil if none could be extracted.
	PubKey *btcec.PublicKey

	// ScriptType is the type of the previous output script.
	ScriptType ScriptType
}

// EligibilityFunc reports whether an input takes part in the shared secret.
type EligibilityFunc func(in *TransactionInput) bool

// IsEligible applies the BIP-0352 input rules: the input must carry a public
// key and spend a P2PKH, P2WPKH, P2SH-P2WPKH or P2TR output.
func IsEligible(in *TransactionInput) bool {
	if in == nil || in.PubKey == nil {
		return false
	}

	switch in.ScriptType {
	case ScriptTypeP2PKH, ScriptTypeP2WPKH, ScriptTypeP2SHP2WPKH,
		ScriptTypeP2TR:

		return true

	default:
		return false
	}
}

// AllEligible accepts every input that carries a public key, regardless of
// its script type.
func AllEligible(in *TransactionInput) bool {
	return in != nil && in.PubKey != nil
}

// SerializeOutPoint returns the BIP-0352 outpoint encoding: the txid in
// internal (reversed display) byte order followed by the little-endian
// output index.
func SerializeOutPoint(op *wire.OutPoint) [36]byte {
	var b [36]byte
	copy(b[:32], op.Hash[:])
	binary.LittleEndian.PutUint32(b[32:], op.Index)
	return b
}

// SmallestOutPoint returns the lexicographically smallest serialized outpoint.
func SmallestOutPoint(ops []wire.OutPoint) ([36]byte, error) {
	if len(ops) == 0 {
		return [36]byte{}, makeError(ErrNoEligibleInputs, "no "+
			"outpoints")
	}

	smallest := SerializeOutPoint(&ops[0])
	for i := 1; i < len(ops); i++ {
		candidate := SerializeOutPoint(&ops[i])
		if bytes.Compare(candidate[:], smallest[:]) < 0 {
			smallest = candidate
		}
	}

	return smallest, nil
}

// InputHash returns hash_BIP0352/Inputs(outpoint_L || serP(A)) as a scalar.
func InputHash(smallest [36]byte, sumKey *btcec.PublicKey) (
	*btcec.ModNScalar, error) {

	hash, err := ScalarFromBytes(TaggedHash(
		TagBIP0352Inputs, smallest[:], sumKey.SerializeCompressed(),
	))
	if err != nil {
		return nil, fmt.Errorf("input hash: %w", err)
	}

	return hash, nil
}

// inputSummary is the input-derived data sender and receiver share: the
// eligible inputs, their key sum A and the input hash.
type inputSummary struct {
	eligible  []*TransactionInput
	sumKey    *btcec.PublicKey
	inputHash btcec.ModNScalar
}

// summarizeInputs filters the inputs, sums the eligible keys and computes the
// input hash.  Taproot keys take part with even Y.  The smallest outpoint is
// taken over every input of the transaction, eligible or not.
func summarizeInputs(inputs []TransactionInput,
	eligible EligibilityFunc) (*inputSummary, error) {

	if eligible == nil {
		eligible = IsEligible
	}

	summary := &inputSummary{}
	keys := make([]*btcec.PublicKey, 0, len(inputs))
	ops := make([]wire.OutPoint, 0, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		ops = append(ops, in.OutPoint)

		if !eligible(in) {
			log.Tracef("Skipping ineligible input %v (%v)",
				in.OutPoint, in.ScriptType)
			continue
		}

		key := in.PubKey
		if in.ScriptType == ScriptTypeP2TR {
			key = evenPubKey(key)
		}
		keys = append(keys, key)
		summary.eligible = append(summary.eligible, in)
	}

	if len(keys) == 0 {
		return nil, makeError(ErrNoEligibleInputs, fmt.Sprintf("none "+
			"of %d inputs are eligible", len(inputs)))
	}

	sumKey, err := sumPoints(keys)
	if err != nil {
		return nil, makeError(ErrDegenerateKey, "input public keys sum "+
			"to the point at infinity")
	}
	summary.sumKey = sumKey

	smallest, err := SmallestOutPoint(ops)
	if err != nil {
		return nil, err
	}
	inputHash, err := InputHash(smallest, sumKey)
	if err != nil {
		return nil, err
	}
	summary.inputHash = *inputHash

	return summary, nil
}
