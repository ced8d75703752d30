package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/silentpay/spd/silentpayments"
	"github.com/stretchr/testify/require"
)

const (
	vectorScanPriv  = "0f694e068028a717f8af6b9411f9a133dd3565258714cc226594b34db90c1f2c"
	vectorSpendPriv = "9d6ad855ce3417ef84e836892e5a56392bfba05fa5d97ccea30e266f540e08b3"
)

// runCmd runs spctl with file logging disabled and returns what it printed.
func runCmd(t *testing.T, args ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	stdout = &buf
	defer func() { stdout = os.Stdout }()

	err := run(append([]string{"--nologfile"}, args...))
	require.NoError(t, err, "spctl %v", args)

	return buf.Bytes()
}

func runJSON(t *testing.T, v interface{}, args ...string) {
	t.Helper()

	require.NoError(t, json.Unmarshal(runCmd(t, args...), v))
}

func TestAddressCommand(t *testing.T) {
	var reply addressReply
	runJSON(t, &reply, "address", "--scankey", vectorScanPriv,
		"--spendkey", vectorSpendPriv, "--label", "0", "--label", "1")

	require.Equal(t, "sp1qqgste7k9hx0qftg6qmwlkqtwuy6cycyavzmzj85c6qdfhjdpdjtdgqjuexzk6murw56suy3e0rd2cgqvycxttddwsvgxe2usfpxumr70xc9pkqwv",
		reply.Address)
	require.Equal(t, []labelledAddress{{
		Label:   0,
		Address: "sp1qqgste7k9hx0qftg6qmwlkqtwuy6cycyavzmzj85c6qdfhjdpdjtdgqma6khaxl7yel6xkzewummrwyze6k4grua2g6fvwtvja5eaf6apwgcl3l6s",
	}, {
		Label:   1,
		Address: "sp1qqgste7k9hx0qftg6qmwlkqtwuy6cycyavzmzj85c6qdfhjdpdjtdgqaxww2fnhrx05cghth75n0qcj59e3e2anscr0q9wyknjxtxycg07y3pevyj",
	}}, reply.Labels)

	// Public keys are enough without labels.
	scanPub := hexPubKey(t, vectorScanPriv)
	spendPub := hexPubKey(t, vectorSpendPriv)
	runJSON(t, &reply, "--testnet", "address", "--scankey", scanPub,
		"--spendkey", spendPub)
	require.Equal(t, "tsp1qqgste7k9hx0qftg6qmwlkqtwuy6cycyavzmzj85c6qdfhjdpdjtdgqjuexzk6murw56suy3e0rd2cgqvycxttddwsvgxe2usfpxumr70xc3wk4yh",
		reply.Address)

	runJSON(t, &reply, "--legacyxonly", "address", "--scankey",
		vectorScanPriv, "--spendkey", vectorSpendPriv)
	require.Equal(t, "sp1qyz7043dencz26xsxmhaszmhpxkpxp8tqkc53axxsr2dungtvjm29ejv9d4hcxaf4pcfrj7x64ssqcfsvkk66aqcsdj4eqjzdek8u7dsshrkll",
		reply.Address)

	err := run([]string{"--nologfile", "address", "--scankey", scanPub,
		"--spendkey", spendPub, "--label", "1"})
	require.Error(t, err)
}

func hexPubKey(t *testing.T, privHex string) string {
	t.Helper()

	priv, err := parsePrivKey(privHex)
	require.NoError(t, err)
	return hex.EncodeToString(priv.PubKey().SerializeCompressed())
}

func TestGlobalOptionErrors(t *testing.T) {
	tests := [][]string{
		{"--testnet", "--regtest", "newkeys"},
		{"--network", "signet", "--testnet", "newkeys"},
		{"--network", "moon", "newkeys"},
		{"--hrps", "mainnet", "newkeys"},
		{"--debuglevel", "loud", "newkeys"},
		{"results", "--dbtype", "bogus", "--datadir", t.TempDir()},
	}
	for _, args := range tests {
		err := run(append([]string{"--nologfile"}, args...))
		require.Error(t, err, "spctl %v", args)
	}
}

func TestVersionCommand(t *testing.T) {
	out := runCmd(t, "version")
	require.Contains(t, string(out), "spctl version 0.1.0")
}

func TestLogFile(t *testing.T) {
	logDir := t.TempDir()

	var buf bytes.Buffer
	stdout = &buf
	defer func() { stdout = os.Stdout }()

	err := run([]string{"--logdir", logDir, "--debuglevel", "debug",
		"--regtest", "newkeys"})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(logDir, "regtest", "spctl.log"))
}

// TestSendScanRoundTrip pays a fresh address through the send command, builds
// the transaction and finds the outputs again with scan, results and tweak.
func TestSendScanRoundTrip(t *testing.T) {
	var keys newKeysReply
	runJSON(t, &keys, "--regtest", "newkeys")

	sendScanRoundTrip(t, keys, "pebble", "--regtest")
}

// TestSendScanSharedPrefix runs the round trip on signet with the prefix it
// shares with testnet and x-only payloads, using keys whose public keys both
// have odd Y.
func TestSendScanSharedPrefix(t *testing.T) {
	globals := []string{"--signet", "--bip352hrps", "--legacyxonly"}

	var keys newKeysReply
	for keys.Address == "" {
		var reply newKeysReply
		runJSON(t, &reply, append(globals, "newkeys")...)
		if reply.ScanPubKey[:2] == "03" && reply.SpendPubKey[:2] == "03" {
			keys = reply
		}
	}
	require.Equal(t, "tsp1", keys.Address[:4])

	sendScanRoundTrip(t, keys, "leveldb", globals...)
}

func sendScanRoundTrip(t *testing.T, keys newKeysReply, dbType string,
	globals ...string) {

	t.Helper()

	cmd := func(args ...string) []string {
		return append(append([]string(nil), globals...), args...)
	}

	senderKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	senderPub := senderKey.PubKey().SerializeCompressed()
	prevScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(btcutil.Hash160(senderPub)).
		Script()
	require.NoError(t, err)

	prevOut := wire.OutPoint{Hash: chainhash.Hash{0x42}, Index: 3}
	input := fmt.Sprintf("%v:%d:%x:%x", prevOut.Hash, prevOut.Index,
		senderKey.Serialize(), prevScript)

	var outputs []sendOutput
	runJSON(t, &outputs, cmd("send", "--address", keys.Address,
		"--amount", "0.1", "--amount", "0.2", "--input", input)...)
	require.Len(t, outputs, 2)
	require.EqualValues(t, 0, outputs[0].K)
	require.EqualValues(t, 1, outputs[1].K)

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&prevOut, nil, wire.TxWitness{
		make([]byte, 71), senderPub,
	}))
	for _, out := range outputs {
		pkScript, err := hex.DecodeString(out.PkScript)
		require.NoError(t, err)
		amount, err := btcutil.NewAmount(out.Amount)
		require.NoError(t, err)
		tx.AddTxOut(wire.NewTxOut(int64(amount), pkScript))
	}

	var rawTx bytes.Buffer
	require.NoError(t, tx.Serialize(&rawTx))
	txFile := filepath.Join(t.TempDir(), "txs.json")
	entries := []txFileEntry{{
		Hex:      hex.EncodeToString(rawTx.Bytes()),
		Prevouts: []string{hex.EncodeToString(prevScript)},
	}}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(txFile, data, 0600))

	dataDir := t.TempDir()
	var results []resultReply
	runJSON(t, &results, cmd("scan", "--scankey", keys.ScanKey,
		"--spendkey", keys.SpendKey, "--txfile", txFile, "--datadir",
		dataDir, "--dbtype", dbType)...)
	require.Len(t, results, 2)

	for i, result := range results {
		require.Equal(t, tx.TxHash().String(), result.TxID)
		require.EqualValues(t, i, result.Vout)
		require.Equal(t, outputs[i].PubKey, result.PubKey)
		require.Equal(t, keys.Address, result.Address)

		priv, err := parsePrivKey(result.PrivKey)
		require.NoError(t, err)
		require.Equal(t, result.PubKey, hex.EncodeToString(
			schnorr.SerializePubKey(priv.PubKey()),
		))
	}

	var stored []resultReply
	runJSON(t, &stored, cmd("results", "--datadir", dataDir, "--dbtype",
		dbType, "--txid", tx.TxHash().String(), "--spendkey",
		keys.SpendKey)...)
	require.Equal(t, results, stored)

	var all []resultReply
	runJSON(t, &all, cmd("results", "--datadir", dataDir, "--dbtype",
		dbType)...)
	require.Len(t, all, 2)
	for i := range all {
		require.Empty(t, all[i].PrivKey)
		require.Equal(t, results[i].Tweak, all[i].Tweak)
		require.Equal(t, results[i].Negate, all[i].Negate)
	}

	var tweaks []tweakReply
	runJSON(t, &tweaks, cmd("tweak", "--txfile", txFile)...)
	require.Len(t, tweaks, 1)
	require.Equal(t, tx.TxHash().String(), tweaks[0].TxID)
	require.Len(t, tweaks[0].Tweak, 66)
}

func TestCheckNetwork(t *testing.T) {
	shared := &environment{
		net:   silentpayments.SigNet,
		codec: silentpayments.Codec{HRPs: silentpayments.BIP352HRPTable},
	}
	require.NoError(t, shared.checkNetwork(
		&silentpayments.Address{Network: silentpayments.TestNet},
	))
	require.Error(t, shared.checkNetwork(
		&silentpayments.Address{Network: silentpayments.MainNet},
	))

	distinct := &environment{
		net:   silentpayments.SigNet,
		codec: silentpayments.Codec{HRPs: silentpayments.DefaultHRPTable},
	}
	require.Error(t, distinct.checkNetwork(
		&silentpayments.Address{Network: silentpayments.TestNet},
	))
}

func TestReadTxFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{"},
		{"bad hex", `[{"hex": "zz", "prevouts": []}]`},
		{"bad tx", `[{"hex": "0100", "prevouts": []}]`},
	}
	for _, test := range tests {
		path := filepath.Join(dir, "txs.json")
		require.NoError(t, os.WriteFile(path, []byte(test.content), 0600))

		_, err := readTxFile(path)
		require.Error(t, err, test.name)
	}

	_, err := readTxFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
