package silentpayments

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// dummySig stands in for a DER signature; key extraction never verifies it.
var dummySig = append(make([]byte, 71), byte(txscript.SigHashAll))

// inputScripts holds previous output scripts paying to one key.
type inputScripts struct {
	p2pkh  []byte
	p2wpkh []byte
	p2sh   []byte
	redeem []byte
	p2tr   []byte
}

func newInputScripts(t *testing.T, priv *btcec.PrivateKey) *inputScripts {
	t.Helper()

	params := &chaincfg.MainNetParams
	keyHash := btcutil.Hash160(priv.PubKey().SerializeCompressed())

	pkhAddr, err := btcutil.NewAddressPubKeyHash(keyHash, params)
	require.NoError(t, err)
	p2pkh, err := txscript.PayToAddrScript(pkhAddr)
	require.NoError(t, err)

	wpkhAddr, err := btcutil.NewAddressWitnessPubKeyHash(keyHash, params)
	require.NoError(t, err)
	p2wpkh, err := txscript.PayToAddrScript(wpkhAddr)
	require.NoError(t, err)

	shAddr, err := btcutil.NewAddressScriptHash(p2wpkh, params)
	require.NoError(t, err)
	p2sh, err := txscript.PayToAddrScript(shAddr)
	require.NoError(t, err)

	p2tr, err := txscript.PayToTaprootScript(priv.PubKey())
	require.NoError(t, err)

	return &inputScripts{
		p2pkh:  p2pkh,
		p2wpkh: p2wpkh,
		p2sh:   p2sh,
		redeem: p2wpkh,
		p2tr:   p2tr,
	}
}

func pushData(t *testing.T, items ...[]byte) []byte {
	t.Helper()

	builder := txscript.NewScriptBuilder()
	for _, item := range items {
		builder.AddData(item)
	}
	script, err := builder.Script()
	require.NoError(t, err)
	return script
}

func TestPublicKeyFromInput(t *testing.T) {
	t.Parallel()

	priv := newPrivKey(t)
	pub := priv.PubKey()
	compressed := pub.SerializeCompressed()
	scripts := newInputScripts(t, priv)

	numsControl := append([]byte{0xc0}, BIP0341NUMSPoint...)
	otherControl := append([]byte{0xc0}, make([]byte, 32)...)
	otherControl[32] = 0x01

	uncompressedHash := btcutil.Hash160(pub.SerializeUncompressed())
	uncompressedAddr, err := btcutil.NewAddressPubKeyHash(
		uncompressedHash, &chaincfg.MainNetParams,
	)
	require.NoError(t, err)
	uncompressedP2PKH, err := txscript.PayToAddrScript(uncompressedAddr)
	require.NoError(t, err)

	p2wsh := append([]byte{txscript.OP_0, txscript.OP_DATA_32},
		make([]byte, 32)...)

	tests := []struct {
		name       string
		txIn       *wire.TxIn
		prevOut    []byte
		wantType   ScriptType
		wantKey    *btcec.PublicKey
		ineligible bool
	}{{
		name: "p2pkh",
		txIn: &wire.TxIn{
			SignatureScript: pushData(t, dummySig, compressed),
		},
		prevOut:  scripts.p2pkh,
		wantType: ScriptTypeP2PKH,
		wantKey:  pub,
	}, {
		name: "p2pkh with trailing push",
		txIn: &wire.TxIn{
			SignatureScript: append(
				pushData(t, dummySig, compressed),
				txscript.OP_0,
			),
		},
		prevOut:  scripts.p2pkh,
		wantType: ScriptTypeP2PKH,
		wantKey:  pub,
	}, {
		name: "p2pkh uncompressed",
		txIn: &wire.TxIn{
			SignatureScript: pushData(
				t, dummySig, pub.SerializeUncompressed(),
			),
		},
		prevOut:    uncompressedP2PKH,
		ineligible: true,
	}, {
		name: "p2wpkh",
		txIn: &wire.TxIn{
			Witness: wire.TxWitness{dummySig, compressed},
		},
		prevOut:  scripts.p2wpkh,
		wantType: ScriptTypeP2WPKH,
		wantKey:  pub,
	}, {
		name: "p2wpkh uncompressed",
		txIn: &wire.TxIn{
			Witness: wire.TxWitness{
				dummySig, pub.SerializeUncompressed(),
			},
		},
		prevOut:    scripts.p2wpkh,
		ineligible: true,
	}, {
		name: "p2wpkh bad witness",
		txIn: &wire.TxIn{
			Witness: wire.TxWitness{compressed},
		},
		prevOut:    scripts.p2wpkh,
		ineligible: true,
	}, {
		name: "p2sh-p2wpkh",
		txIn: &wire.TxIn{
			SignatureScript: pushData(t, scripts.redeem),
			Witness:         wire.TxWitness{dummySig, compressed},
		},
		prevOut:  scripts.p2sh,
		wantType: ScriptTypeP2SHP2WPKH,
		wantKey:  pub,
	}, {
		name: "p2sh multisig",
		txIn: &wire.TxIn{
			SignatureScript: pushData(t, dummySig, compressed),
		},
		prevOut:    scripts.p2sh,
		ineligible: true,
	}, {
		name: "p2tr key path",
		txIn: &wire.TxIn{
			Witness: wire.TxWitness{make([]byte, 64)},
		},
		prevOut:  scripts.p2tr,
		wantType: ScriptTypeP2TR,
		wantKey:  evenPubKey(pub),
	}, {
		name: "p2tr key path with annex",
		txIn: &wire.TxIn{
			Witness: wire.TxWitness{
				make([]byte, 64), {annexTag, 0x01},
			},
		},
		prevOut:  scripts.p2tr,
		wantType: ScriptTypeP2TR,
		wantKey:  evenPubKey(pub),
	}, {
		name: "p2tr script path",
		txIn: &wire.TxIn{
			Witness: wire.TxWitness{
				{txscript.OP_TRUE}, otherControl,
			},
		},
		prevOut:  scripts.p2tr,
		wantType: ScriptTypeP2TR,
		wantKey:  evenPubKey(pub),
	}, {
		name: "p2tr script path with nums key",
		txIn: &wire.TxIn{
			Witness: wire.TxWitness{
				{txscript.OP_TRUE}, numsControl,
			},
		},
		prevOut:    scripts.p2tr,
		ineligible: true,
	}, {
		name: "p2tr nums script path with annex",
		txIn: &wire.TxIn{
			Witness: wire.TxWitness{
				{txscript.OP_TRUE}, numsControl, {annexTag},
			},
		},
		prevOut:    scripts.p2tr,
		ineligible: true,
	}, {
		name:       "p2tr empty witness",
		txIn:       &wire.TxIn{},
		prevOut:    scripts.p2tr,
		ineligible: true,
	}, {
		name: "p2wsh",
		txIn: &wire.TxIn{
			Witness: wire.TxWitness{dummySig},
		},
		prevOut:    p2wsh,
		ineligible: true,
	}}

	for _, test := range tests {
		key, scriptType, err := PublicKeyFromInput(test.txIn, test.prevOut)
		if test.ineligible {
			require.ErrorIs(t, err, ErrIneligibleInput, test.name)
			continue
		}

		require.NoError(t, err, test.name)
		require.Equal(t, test.wantType, scriptType, test.name)
		require.True(t, test.wantKey.IsEqual(key), test.name)
	}
}

func TestInputsFromTx(t *testing.T) {
	t.Parallel()

	priv := newPrivKey(t)
	scripts := newInputScripts(t, priv)
	p2wsh := append([]byte{txscript.OP_0, txscript.OP_DATA_32},
		make([]byte, 32)...)

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: outPoint(1, 0),
		Witness: wire.TxWitness{
			dummySig, priv.PubKey().SerializeCompressed(),
		},
	})
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: outPoint(2, 1),
		Witness:          wire.TxWitness{dummySig},
	})

	prevOuts := map[wire.OutPoint][]byte{
		outPoint(1, 0): scripts.p2wpkh,
		outPoint(2, 1): p2wsh,
	}
	fetch := func(op wire.OutPoint) ([]byte, error) {
		script, ok := prevOuts[op]
		if !ok {
			return nil, errors.New("unknown outpoint")
		}
		return script, nil
	}

	inputs, err := InputsFromTx(tx, fetch)
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	require.Equal(t, outPoint(1, 0), inputs[0].OutPoint)
	require.Equal(t, ScriptTypeP2WPKH, inputs[0].ScriptType)
	require.True(t, priv.PubKey().IsEqual(inputs[0].PubKey))

	// The p2wsh input keeps its outpoint but contributes no key.
	require.Equal(t, outPoint(2, 1), inputs[1].OutPoint)
	require.Nil(t, inputs[1].PubKey)
	require.False(t, IsEligible(&inputs[1]))

	// Spending a future segwit version excludes the transaction.
	prevOuts[outPoint(2, 1)] = append(
		[]byte{txscript.OP_2, txscript.OP_DATA_32}, make([]byte, 32)...,
	)
	_, err = InputsFromTx(tx, fetch)
	require.ErrorIs(t, err, ErrIneligibleInput)

	// Fetch failures are returned as is.
	delete(prevOuts, outPoint(2, 1))
	_, err = InputsFromTx(tx, fetch)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrIneligibleInput)
}
