package scandb

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestResultKey(t *testing.T) {
	t.Parallel()

	op := wire.OutPoint{Hash: chainhash.Hash{0xab, 0xcd}, Index: 0x01020304}
	key := resultKey(&op)
	require.Len(t, key, resultKeyLen)
	require.Equal(t, byte('r'), key[0])
	require.Equal(t, []byte{1, 2, 3, 4}, key[33:])
	require.Equal(t, txPrefix(&op.Hash), key[:33])

	decoded, err := decodeResultKey(key)
	require.NoError(t, err)
	require.Equal(t, op, decoded)

	_, err = decodeResultKey(key[:10])
	require.ErrorIs(t, err, ErrCorruptRecord)
}

func TestDecodeResultErrors(t *testing.T) {
	t.Parallel()

	label := uint32(3)
	labelled := testResult(1, 1, &label)
	good, err := encodeResult(&labelled)
	require.NoError(t, err)

	op := labelled.OutPoint()
	key := resultKey(&op)

	r, err := decodeResult(key, good)
	require.NoError(t, err)
	require.Equal(t, labelled, *r)

	badFlag := append([]byte(nil), good...)
	badFlag[len(badFlag)-5] = 2

	unknownFlag := append([]byte(nil), good...)
	unknownFlag[len(unknownFlag)-5] |= 0x04

	longAddr := append([]byte(nil), good...)
	longAddr[0], longAddr[1] = 0xff, 0xff

	tests := []struct {
		name  string
		value []byte
	}{
		{"empty", nil},
		{"short", good[:minRecordLen-1]},
		{"address overruns record", longAddr},
		{"truncated label", good[:len(good)-1]},
		{"trailing bytes", append(append([]byte(nil), good...), 0)},
		{"bad flag", badFlag},
		{"unknown flag", unknownFlag},
	}
	for _, test := range tests {
		_, err := decodeResult(key, test.value)
		require.ErrorIs(t, err, ErrCorruptRecord, test.name)
	}
}

func TestNegatedSpendKeyRecord(t *testing.T) {
	t.Parallel()

	label := uint32(9)
	for _, r := range []*uint32{nil, &label} {
		result := testResult(2, 5, r)
		result.NegateSpendKey = true

		value, err := encodeResult(&result)
		require.NoError(t, err)

		op := result.OutPoint()
		decoded, err := decodeResult(resultKey(&op), value)
		require.NoError(t, err)
		require.Equal(t, result, *decoded)
	}

	// Records written before the flag existed decode as not negated.
	plain := testResult(2, 6, nil)
	value, err := encodeResult(&plain)
	require.NoError(t, err)
	require.Zero(t, value[len(value)-1])

	op := plain.OutPoint()
	decoded, err := decodeResult(resultKey(&op), value)
	require.NoError(t, err)
	require.False(t, decoded.NegateSpendKey)
}
