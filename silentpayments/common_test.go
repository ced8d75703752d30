package silentpayments

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// hexToBytes converts the passed hex string into bytes and will panic if there
// is an error.  This is only provided for the hard-coded constants so errors in
// the source code can be detected. It will only (and must only) be called with
// hard-coded values.
func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("invalid hex in source file: " + s)
	}
	return b
}

// hexTo32 is hexToBytes for 32-byte values.
func hexTo32(s string) [32]byte {
	var b [32]byte
	if n := copy(b[:], hexToBytes(s)); n != 32 {
		panic("not 32 bytes: " + s)
	}
	return b
}

func privKeyFromHex(t *testing.T, s string) *btcec.PrivateKey {
	t.Helper()

	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv
}

func newPrivKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

// outPoint returns an outpoint whose txid repeats b.
func outPoint(b byte, index uint32) wire.OutPoint {
	var hash chainhash.Hash
	for i := range hash {
		hash[i] = b
	}
	return wire.OutPoint{Hash: hash, Index: index}
}

// walletInputs describes a set of inputs together with their private keys.
type walletInputs struct {
	inputs []TransactionInput
	keys   KeyMap
}

func (w *walletInputs) add(priv *btcec.PrivateKey, op wire.OutPoint,
	scriptType ScriptType) {

	if w.keys == nil {
		w.keys = make(KeyMap)
	}
	w.inputs = append(w.inputs, TransactionInput{
		OutPoint:   op,
		PubKey:     priv.PubKey(),
		ScriptType: scriptType,
	})
	w.keys[op] = priv
}

// receiver is a silent payment wallet for tests.
type receiver struct {
	scanKey  *btcec.PrivateKey
	spendKey *btcec.PrivateKey
	address  *Address
}

func newReceiver(t *testing.T) *receiver {
	t.Helper()

	scanKey, spendKey, err := GenerateKeys()
	require.NoError(t, err)

	return &receiver{
		scanKey:  scanKey,
		spendKey: spendKey,
		address:  NewAddressFromPrivKeys(MainNet, scanKey, spendKey),
	}
}

func (r *receiver) scanner(t *testing.T, labels ...uint32) *Scanner {
	t.Helper()

	s, err := NewScanner(&ScannerConfig{
		ScanKey: r.scanKey,
		Address: r.address,
		Labels:  labels,
	})
	require.NoError(t, err)
	return s
}

func newGenerator(t require.TestingT, keys KeySource,
	eligible EligibilityFunc) *Generator {

	gen, err := NewGenerator(keys, eligible)
	require.NoError(t, err)
	return gen
}

func amounts(n int) []btcutil.Amount {
	a := make([]btcutil.Amount, n)
	for i := range a {
		a[i] = btcutil.Amount(1000 * (i + 1))
	}
	return a
}

func taprootOutputs(outputs []Output) []TaprootOutput {
	tr := make([]TaprootOutput, len(outputs))
	for i, out := range outputs {
		tr[i] = TaprootOutput{Index: uint32(i), Key: out.PubKey}
	}
	return tr
}

// chainhashFor returns a transaction hash filled with b.
func chainhashFor(b byte) chainhash.Hash {
	return outPoint(b, 0).Hash
}
