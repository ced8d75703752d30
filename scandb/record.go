package scandb

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/silentpay/spd/silentpayments"
)

// Scan results are stored under
//
//	"r" || txid (32 bytes, internal order) || vout (4 bytes, big endian)
//
// so that the results of one transaction are adjacent and sorted by output
// index.  The value is
//
//	address length (uint16 BE) || address || tweak (32) || x-only key (32) ||
//	flags (1) || [label (uint32 BE)]
//
// where flags bit 0 marks a label and bit 1 a negated spend key.
const (
	resultPrefix = 'r'

	resultKeyLen = 1 + chainhash.HashSize + 4

	// minRecordLen is the size of a record with an empty address and no
	// label.
	minRecordLen = 2 + 32 + 32 + 1

	flagLabel      = 1 << 0
	flagNegateKey  = 1 << 1
	knownFlagsMask = flagLabel | flagNegateKey
)

func resultKey(op *wire.OutPoint) []byte {
	key := make([]byte, resultKeyLen)
	key[0] = resultPrefix
	copy(key[1:], op.Hash[:])
	binary.BigEndian.PutUint32(key[1+chainhash.HashSize:], op.Index)
	return key
}

func txPrefix(txHash *chainhash.Hash) []byte {
	prefix := make([]byte, 1+chainhash.HashSize)
	prefix[0] = resultPrefix
	copy(prefix[1:], txHash[:])
	return prefix
}

func decodeResultKey(key []byte) (wire.OutPoint, error) {
	if len(key) != resultKeyLen || key[0] != resultPrefix {
		return wire.OutPoint{}, makeError(ErrCorruptRecord, fmt.Sprintf(
			"malformed result key %x", key))
	}

	var op wire.OutPoint
	copy(op.Hash[:], key[1:])
	op.Index = binary.BigEndian.Uint32(key[1+chainhash.HashSize:])
	return op, nil
}

func encodeResult(r *silentpayments.ScanResult) ([]byte, error) {
	if len(r.Address) > 0xffff {
		return nil, fmt.Errorf("address of %v too long to store",
			r.OutPoint())
	}

	size := minRecordLen + len(r.Address)
	if r.Label != nil {
		size += 4
	}

	buf := make([]byte, size)
	binary.BigEndian.PutUint16(buf, uint16(len(r.Address)))
	offset := 2
	offset += copy(buf[offset:], r.Address)
	offset += copy(buf[offset:], r.PrivKeyTweak[:])
	offset += copy(buf[offset:], r.PubKey[:])
	if r.NegateSpendKey {
		buf[offset] |= flagNegateKey
	}
	if r.Label != nil {
		buf[offset] |= flagLabel
		binary.BigEndian.PutUint32(buf[offset+1:], *r.Label)
	}

	return buf, nil
}

func decodeResult(key, value []byte) (*silentpayments.ScanResult, error) {
	op, err := decodeResultKey(key)
	if err != nil {
		return nil, err
	}

	corrupt := func(desc string) error {
		return makeError(ErrCorruptRecord, fmt.Sprintf("result %v: %s",
			op, desc))
	}

	if len(value) < minRecordLen {
		return nil, corrupt(fmt.Sprintf("record is %d bytes", len(value)))
	}
	addrLen := int(binary.BigEndian.Uint16(value))
	if len(value) < minRecordLen+addrLen {
		return nil, corrupt(fmt.Sprintf("address length %d exceeds "+
			"record", addrLen))
	}

	r := &silentpayments.ScanResult{
		TxHash:      op.Hash,
		OutputIndex: op.Index,
	}
	offset := 2
	r.Address = string(value[offset : offset+addrLen])
	offset += addrLen
	offset += copy(r.PrivKeyTweak[:], value[offset:])
	offset += copy(r.PubKey[:], value[offset:])

	flags := value[offset]
	r.NegateSpendKey = flags&flagNegateKey != 0

	switch labelled := flags&flagLabel != 0; {
	case flags&^knownFlagsMask != 0:
		return nil, corrupt(fmt.Sprintf("unknown flags %#x", flags))

	case !labelled && len(value) == offset+1:

	case labelled && len(value) == offset+5:
		label := binary.BigEndian.Uint32(value[offset+1:])
		r.Label = &label

	default:
		return nil, corrupt(fmt.Sprintf("bad flags %#x for %d byte "+
			"record", flags, len(value)))
	}

	return r, nil
}
