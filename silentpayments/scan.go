package silentpayments

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// DefaultMaxOutputs is the default bound on the output counter k a scanner
// tries per transaction.
const DefaultMaxOutputs = 100

// TaprootOutput is a P2TR output of a candidate transaction.
type TaprootOutput struct {
	// Index is the position of the output in the transaction.
	Index uint32

	// Key is the x-only output key committed to by the script.
	Key [32]byte
}

// TaprootOutputs returns the OP_1 <32-byte key> outputs of tx.
func TaprootOutputs(tx *wire.MsgTx) []TaprootOutput {
	var outputs []TaprootOutput
	for idx, txOut := range tx.TxOut {
		if !txscript.IsPayToTaproot(txOut.PkScript) {
			continue
		}

		out := TaprootOutput{Index: uint32(idx)}
		copy(out.Key[:], txOut.PkScript[2:])
		outputs = append(outputs, out)
	}

	return outputs
}

// ScanResult is an output detected as paying the scanner's address.
type ScanResult struct {
	// TxHash is the hash of the paying transaction.
	TxHash chainhash.Hash

	// OutputIndex is the position of the output in the transaction.
	OutputIndex uint32

	// Address is the silent payment address (labelled, if the output was
	// paid to a label) the output was sent to.
	Address string

	// PrivKeyTweak is the scalar to add to the spend private key to
	// obtain the output's private key.  It includes the label tweak.
	PrivKeyTweak [32]byte

	// NegateSpendKey is set when the sender paid the negation of the
	// receiver's spend key, which only happens with x-only address
	// payloads.  The spend private key must then be negated before
	// PrivKeyTweak is added.
	NegateSpendKey bool

	// PubKey is the x-only output key.
	PubKey [32]byte

	// Label is the label m the output was paid to, if any.
	Label *uint32
}

// OutPoint returns the outpoint of the detected output.
func (r *ScanResult) OutPoint() wire.OutPoint {
	return wire.OutPoint{Hash: r.TxHash, Index: r.OutputIndex}
}

// SpendingKey returns the private key of the detected output given the spend
// private key b_spend.
func (r *ScanResult) SpendingKey(spendKey *btcec.PrivateKey) (
	*btcec.PrivateKey, error) {

	if r.NegateSpendKey {
		negated := spendKey.Key
		negated.Negate()
		spendKey = btcec.PrivKeyFromScalar(&negated)
	}

	return SpendingPrivateKey(spendKey, r.PrivKeyTweak)
}

// SpendingPrivateKey returns (b_spend + tweak) mod n, the private key of a
// detected output.
func SpendingPrivateKey(spendKey *btcec.PrivateKey, tweak [32]byte) (
	*btcec.PrivateKey, error) {

	var t btcec.ModNScalar
	if overflow := t.SetBytes(&tweak); overflow != 0 {
		return nil, makeError(ErrInvalidScalar, "tweak is not below "+
			"the group order")
	}

	d := spendKey.Key
	d.Add(&t)
	if d.IsZero() {
		return nil, makeError(ErrInvalidScalar, "spending key is zero")
	}

	return btcec.PrivKeyFromScalar(&d), nil
}

// ScannerConfig holds the receiver's key material and scan policy.
type ScannerConfig struct {
	// ScanKey is the scan private key b_scan.
	ScanKey *btcec.PrivateKey

	// Address is the receiver's unlabelled address.
	Address *Address

	// Labels are the labels m to detect in addition to the bare address.
	Labels []uint32

	// MaxOutputs bounds the output counter k.  DefaultMaxOutputs is used
	// when zero.
	MaxOutputs uint32

	// Eligible is the input eligibility predicate.  IsEligible is used
	// when nil.
	Eligible EligibilityFunc

	// Codec encodes the addresses reported in scan results.  DefaultCodec
	// is used when nil.  With x-only payloads the scanner looks for the
	// even-Y keys senders recover from the encoding.
	Codec *Codec
}

// spendTarget is a spend key senders pay to: the bare spend key or one of its
// labelled variants, as recovered from the encoded address.  The private key
// of target key + t·G is (±b_spend) + tweak + t.
type spendTarget struct {
	key     *btcec.PublicKey
	tweak   btcec.ModNScalar
	negate  bool
	label   *uint32
	address string
}

// Scanner detects silent payment outputs on the receiving side.  It holds
// only immutable configuration and is safe for concurrent use.
type Scanner struct {
	// ecdhKey is b_scan, negated when senders see the negated scan key.
	ecdhKey btcec.ModNScalar

	// targets holds the bare spend key first, then one entry per label.
	targets []spendTarget

	maxOutputs uint32
	eligible   EligibilityFunc
}

// NewScanner returns a scanner for the configured address.
func NewScanner(cfg *ScannerConfig) (*Scanner, error) {
	if cfg.ScanKey == nil || cfg.Address == nil ||
		cfg.Address.ScanKey == nil || cfg.Address.SpendKey == nil {

		return nil, makeError(ErrMissingKey, "scanner needs a scan key "+
			"and an address")
	}
	if cfg.Address.Label != nil {
		return nil, makeError(ErrLabelledAddress, "scanner address "+
			"must be unlabelled")
	}
	if !cfg.ScanKey.PubKey().IsEqual(cfg.Address.ScanKey) {
		return nil, makeError(ErrKeyMismatch, "scan private key does "+
			"not match the address scan key")
	}

	codec := DefaultCodec
	if cfg.Codec != nil {
		codec = *cfg.Codec
	}
	address, err := codec.Encode(cfg.Address)
	if err != nil {
		return nil, err
	}

	// An x-only payload hands senders the even-Y lift of both keys.
	xOnly := codec.Format == PayloadXOnly
	addr := codec.Normalize(cfg.Address)
	negateSpend := xOnly && hasOddY(cfg.Address.SpendKey)

	s := &Scanner{
		ecdhKey:    cfg.ScanKey.Key,
		maxOutputs: cfg.MaxOutputs,
		eligible:   cfg.Eligible,
	}
	if xOnly && hasOddY(cfg.Address.ScanKey) {
		s.ecdhKey.Negate()
	}
	if s.maxOutputs == 0 {
		s.maxOutputs = DefaultMaxOutputs
	}
	if s.eligible == nil {
		s.eligible = IsEligible
	}

	s.targets = append(s.targets, spendTarget{
		key:     addr.SpendKey,
		negate:  negateSpend,
		address: address,
	})

	for _, m := range cfg.Labels {
		labelled, err := addr.WithLabel(cfg.ScanKey, m)
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", m, err)
		}
		labelAddr, err := codec.Encode(labelled)
		if err != nil {
			return nil, err
		}

		tweak, err := LabelTweak(cfg.ScanKey, m)
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", m, err)
		}

		label := m
		target := spendTarget{
			key:     labelled.SpendKey,
			tweak:   *tweak,
			negate:  negateSpend,
			label:   &label,
			address: labelAddr,
		}
		if xOnly && hasOddY(labelled.SpendKey) {
			// -B_m = -(±b_spend + tweak)·G.
			target.key = evenPubKey(labelled.SpendKey)
			target.tweak.Negate()
			target.negate = !target.negate
		}
		s.targets = append(s.targets, target)
	}

	return s, nil
}

// Address returns the encoded unlabelled address of the scanner.
func (s *Scanner) Address() string {
	return s.targets[0].address
}

// ScanOutputs returns the outputs of a transaction that pay the scanner's
// address.  The inputs are the transaction's inputs as supplied by the
// caller.  A transaction without taproot outputs, without eligible inputs or
// with a degenerate input key sum yields no results.
func (s *Scanner) ScanOutputs(txHash chainhash.Hash, outputs []TaprootOutput,
	inputs []TransactionInput) []ScanResult {

	if len(outputs) == 0 {
		return nil
	}

	summary, err := summarizeInputs(inputs, s.eligible)
	if err != nil {
		log.Debugf("Not scanning %v: %v", txHash, err)
		return nil
	}

	// Let ecdh_shared_secret = input_hash·b_scan·A.
	var tweak btcec.ModNScalar
	tweak.Mul2(&s.ecdhKey, &summary.inputHash)
	sharedSecret, err := ECDH(summary.sumKey, &tweak)
	if err != nil {
		log.Debugf("Not scanning %v: %v", txHash, err)
		return nil
	}

	return s.matchOutputs(txHash, outputs, sharedSecret)
}

// ScanTweak scans outputs using precomputed tweak data input_hash·A, as
// served to light clients by an index.
func (s *Scanner) ScanTweak(txHash chainhash.Hash, tweakData *btcec.PublicKey,
	outputs []TaprootOutput) []ScanResult {

	if len(outputs) == 0 {
		return nil
	}

	sharedSecret, err := ECDH(tweakData, &s.ecdhKey)
	if err != nil {
		log.Debugf("Not scanning %v: %v", txHash, err)
		return nil
	}

	return s.matchOutputs(txHash, outputs, sharedSecret)
}

// ScanTransaction scans a raw transaction.  The fetcher supplies the scripts
// of the outputs the transaction spends; fetch errors are returned, while
// inputs that are merely ineligible are skipped.
func (s *Scanner) ScanTransaction(tx *wire.MsgTx, fetch PrevOutFetcher) (
	[]ScanResult, error) {

	outputs := TaprootOutputs(tx)
	if len(outputs) == 0 {
		return nil, nil
	}

	inputs, err := InputsFromTx(tx, fetch)
	switch {
	case errors.Is(err, ErrIneligibleInput):
		log.Debugf("Not scanning %v: %v", tx.TxHash(), err)
		return nil, nil

	case err != nil:
		return nil, err
	}

	return s.ScanOutputs(tx.TxHash(), outputs, inputs), nil
}

// matchOutputs tries k = 0, 1, ... until an index produces no match or the
// configured bound is reached.  An invalid tweak only skips its own k.
func (s *Scanner) matchOutputs(txHash chainhash.Hash, outputs []TaprootOutput,
	sharedSecret *btcec.PublicKey) []ScanResult {

	matched := make([]bool, len(outputs))
	remaining := len(outputs)

	var results []ScanResult
	for k := uint32(0); k < s.maxOutputs && remaining > 0; k++ {
		t, err := SharedSecretTweak(sharedSecret, k)
		if err != nil {
			log.Debugf("Skipping k=%d of %v: %v", k, txHash, err)
			continue
		}

		result, idx, ok := s.matchIndex(t, outputs, matched)
		if !ok {
			break
		}

		result.TxHash = txHash
		results = append(results, result)
		matched[idx] = true
		remaining--
	}

	return results
}

// matchIndex looks for an unmatched output paying target + t_k·G for one of
// the scanner's spend targets.
func (s *Scanner) matchIndex(t *btcec.ModNScalar, outputs []TaprootOutput,
	matched []bool) (ScanResult, int, bool) {

	candidates := s.candidateKeys(t)
	for idx, out := range outputs {
		if matched[idx] {
			continue
		}

		for i, key := range candidates {
			if key == nil || *key != out.Key {
				continue
			}

			target := &s.targets[i]
			tweak := *t
			tweak.Add(&target.tweak)

			result := ScanResult{
				OutputIndex:    out.Index,
				Address:        target.address,
				PrivKeyTweak:   tweak.Bytes(),
				NegateSpendKey: target.negate,
				PubKey:         out.Key,
			}
			if target.label != nil {
				m := *target.label
				result.Label = &m
			}

			return result, idx, true
		}
	}

	return ScanResult{}, 0, false
}

// candidateKeys returns the x-only key target + t·G for every spend target,
// indexed like s.targets.  A nil entry marks a sum at infinity.
func (s *Scanner) candidateKeys(t *btcec.ModNScalar) []*[32]byte {
	var tG btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(t, &tG)

	candidates := make([]*[32]byte, len(s.targets))
	for i := range s.targets {
		var spend, sum btcec.JacobianPoint
		s.targets[i].key.AsJacobian(&spend)
		btcec.AddNonConst(&spend, &tG, &sum)

		pub, err := affinePubKey(&sum)
		if err != nil {
			continue
		}
		key := XOnly(pub)
		candidates[i] = &key
	}

	return candidates
}

// TransactionTweakData returns input_hash·A for tx, the per-transaction value
// a light client needs to scan it.  Nil is returned for transactions that
// cannot carry silent payments.
func TransactionTweakData(tx *wire.MsgTx, fetch PrevOutFetcher) (
	*btcec.PublicKey, error) {

	if len(TaprootOutputs(tx)) == 0 {
		return nil, nil
	}

	inputs, err := InputsFromTx(tx, fetch)
	switch {
	case errors.Is(err, ErrIneligibleInput):
		return nil, nil

	case err != nil:
		return nil, err
	}

	summary, err := summarizeInputs(inputs, IsEligible)
	if err != nil {
		return nil, nil
	}

	return ECDH(summary.sumKey, &summary.inputHash)
}
