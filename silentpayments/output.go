package silentpayments

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// KeySource gives the generator access to the private keys of the inputs a
// wallet is spending.
type KeySource interface {
	// InputPrivKey returns the private key for the output being spent.
	// For P2TR outputs this is the key of the (tweaked) output key.
	InputPrivKey(op wire.OutPoint) (*btcec.PrivateKey, error)
}

// KeyMap is a KeySource backed by an in-memory map.
type KeyMap map[wire.OutPoint]*btcec.PrivateKey

// InputPrivKey returns the private key stored for op.
func (m KeyMap) InputPrivKey(op wire.OutPoint) (*btcec.PrivateKey, error) {
	key, ok := m[op]
	if !ok {
		return nil, fmt.Errorf("no private key for input %v", op)
	}
	return key, nil
}

// Output is a silent payment output produced for a recipient.
type Output struct {
	// PubKey is the x-only taproot output key.
	PubKey [32]byte

	// OutputKey is the full output key point P_k.
	OutputKey *btcec.PublicKey

	// Amount is the value to send to the output.
	Amount btcutil.Amount

	// Index is the output counter k used to derive the key.
	Index uint32
}

// PkScript returns the P2TR output script paying to the output key.
func (o *Output) PkScript() ([]byte, error) {
	return txscript.PayToTaprootScript(o.OutputKey)
}

// TxOut returns the transaction output for o.
func (o *Output) TxOut() (*wire.TxOut, error) {
	pkScript, err := o.PkScript()
	if err != nil {
		return nil, err
	}
	return wire.NewTxOut(int64(o.Amount), pkScript), nil
}

// Recipient is one payment in a multi-recipient transaction.
type Recipient struct {
	Address *Address
	Amount  btcutil.Amount
}

// RecipientOutput is the output generated for the recipient at Position in
// the list passed to CreateOutputsMulti.
type RecipientOutput struct {
	Output

	Position int
}

// Generator computes silent payment outputs on the sending side.  It holds
// only immutable configuration and is safe for concurrent use.
type Generator struct {
	keys     KeySource
	eligible EligibilityFunc
}

// NewGenerator returns a generator that reads input private keys from keys.
// A nil eligibility predicate selects IsEligible.
func NewGenerator(keys KeySource, eligible EligibilityFunc) (*Generator,
	error) {

	if keys == nil {
		return nil, makeError(ErrMissingKey, "generator needs a key "+
			"source")
	}
	if eligible == nil {
		eligible = IsEligible
	}

	return &Generator{
		keys:     keys,
		eligible: eligible,
	}, nil
}

// CreateOutputs derives one output per amount for the given address.  Output
// k pays amounts[k].  Any degenerate intermediate value fails the whole call.
func (g *Generator) CreateOutputs(addr *Address, inputs []TransactionInput,
	amounts []btcutil.Amount) ([]Output, error) {

	if addr == nil || addr.ScanKey == nil || addr.SpendKey == nil {
		return nil, makeError(ErrAddressFormat, "recipient address is "+
			"missing a key")
	}

	ecdhTweak, err := g.senderTweak(inputs)
	if err != nil {
		return nil, err
	}

	// Let ecdh_shared_secret = input_hash·a·B_scan.
	sharedSecret, err := ECDH(addr.ScanKey, ecdhTweak)
	if err != nil {
		return nil, fmt.Errorf("shared secret: %w", err)
	}

	outputs := make([]Output, 0, len(amounts))
	for k, amount := range amounts {
		outputKey, err := OutputKey(sharedSecret, addr.SpendKey,
			uint32(k))
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", k, err)
		}

		outputs = append(outputs, Output{
			PubKey:    XOnly(outputKey),
			OutputKey: outputKey,
			Amount:    amount,
			Index:     uint32(k),
		})
	}

	return outputs, nil
}

// CreateOutputsMulti derives the outputs for several recipients.  Recipients
// sharing a scan key share one shared secret and count k upwards in the order
// they appear.  The result is ordered like recipients.
func (g *Generator) CreateOutputsMulti(inputs []TransactionInput,
	recipients []Recipient) ([]RecipientOutput, error) {

	ecdhTweak, err := g.senderTweak(inputs)
	if err != nil {
		return nil, err
	}

	type group struct {
		secret *btcec.PublicKey
		next   uint32
	}
	groups := make(map[[33]byte]*group)

	results := make([]RecipientOutput, 0, len(recipients))
	for pos, recipient := range recipients {
		addr := recipient.Address
		if addr == nil || addr.ScanKey == nil || addr.SpendKey == nil {
			return nil, makeError(ErrAddressFormat, fmt.Sprintf(
				"recipient %d is missing a key", pos))
		}

		scanKey := CompressedPointBytes(addr.ScanKey)
		grp, ok := groups[scanKey]
		if !ok {
			secret, err := ECDH(addr.ScanKey, ecdhTweak)
			if err != nil {
				return nil, fmt.Errorf("shared secret for "+
					"recipient %d: %w", pos, err)
			}
			grp = &group{secret: secret}
			groups[scanKey] = grp
		}

		k := grp.next
		outputKey, err := OutputKey(grp.secret, addr.SpendKey, k)
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", pos, err)
		}
		grp.next++

		results = append(results, RecipientOutput{
			Output: Output{
				PubKey:    XOnly(outputKey),
				OutputKey: outputKey,
				Amount:    recipient.Amount,
				Index:     k,
			},
			Position: pos,
		})
	}

	return results, nil
}

// senderTweak returns input_hash·a for the eligible inputs, after checking
// that the private keys supplied by the key source sum to the same point as
// the declared input public keys.
func (g *Generator) senderTweak(inputs []TransactionInput) (
	*btcec.ModNScalar, error) {

	summary, err := summarizeInputs(inputs, g.eligible)
	if err != nil {
		return nil, err
	}

	// Let a = a_1 + a_2 + ... + a_n, where each taproot a_i has been
	// negated if its point has an odd Y coordinate.
	var sumKey btcec.ModNScalar
	for _, in := range summary.eligible {
		priv, err := g.keys.InputPrivKey(in.OutPoint)
		if err != nil {
			return nil, err
		}

		a := priv.Key
		if in.ScriptType == ScriptTypeP2TR && hasOddY(priv.PubKey()) {
			a.Negate()
		}
		sumKey.Add(&a)
	}
	if sumKey.IsZero() {
		return nil, makeError(ErrDegenerateKey, "input private keys "+
			"sum to zero")
	}

	if !btcec.PrivKeyFromScalar(&sumKey).PubKey().IsEqual(summary.sumKey) {
		return nil, makeError(ErrKeyMismatch, "input private keys do "+
			"not match the input public keys")
	}

	var tweak btcec.ModNScalar
	tweak.Mul2(&sumKey, &summary.inputHash)

	return &tweak, nil
}

// SharedSecretTweak returns t_k = hash_BIP0352/SharedSecret(serP(S) ||
// ser32(k)), failing with ErrInvalidScalar if t_k is not a valid scalar.
func SharedSecretTweak(sharedSecret *btcec.PublicKey, k uint32) (
	*btcec.ModNScalar, error) {

	kBytes := SerializeUint32BE(k)
	t, err := ScalarFromBytes(TaggedHash(
		TagBIP0352SharedSecret, sharedSecret.SerializeCompressed(),
		kBytes[:],
	))
	if err != nil {
		return nil, fmt.Errorf("tweak for k=%d: %w", k, err)
	}

	return t, nil
}

// OutputKey returns P_k = B_spend + t_k·G.
func OutputKey(sharedSecret, spendKey *btcec.PublicKey, k uint32) (
	*btcec.PublicKey, error) {

	t, err := SharedSecretTweak(sharedSecret, k)
	if err != nil {
		return nil, err
	}

	return ScalarBaseMultAdd(t, spendKey)
}
