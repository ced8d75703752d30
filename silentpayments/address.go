package silentpayments

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Version is the silent payment address version.
type Version byte

const (
	// Version0 is the only address version that can be encoded.
	Version0 Version = 0

	// maxDecodableVersion is the highest version a decoder accepts.
	// Version 31 is reserved for a backwards incompatible change.
	maxDecodableVersion Version = 30

	// maxAddressLength is the upper bound on the length of an address
	// string.  BIP-0173's 90 character limit does not apply.
	maxAddressLength = 1023

	// ChangeLabel is the label m = 0, reserved for change outputs.
	ChangeLabel uint32 = 0
)

// PayloadFormat selects how the two public keys are laid out in the address
// payload.
type PayloadFormat uint8

const (
	// PayloadCompressed serializes both keys as 33-byte compressed points
	// and uses a bech32m checksum.  Decoding reproduces the exact keys.
	PayloadCompressed PayloadFormat = iota

	// PayloadXOnly serializes both keys as 32-byte x-only keys and uses a
	// bech32 checksum.  The parity of the keys is lost: decoding lifts
	// every key to its even-Y point.
	PayloadXOnly
)

// String returns the format name.
func (f PayloadFormat) String() string {
	switch f {
	case PayloadCompressed:
		return "compressed"
	case PayloadXOnly:
		return "xonly"
	default:
		return fmt.Sprintf("PayloadFormat(%d)", uint8(f))
	}
}

// keyLength is the number of payload bytes taken by each key.
func (f PayloadFormat) keyLength() int {
	if f == PayloadXOnly {
		return xOnlyLength
	}
	return pubKeyLength
}

// checksumVersion is the bech32 checksum variant used with the format.
func (f PayloadFormat) checksumVersion() bech32.Version {
	if f == PayloadXOnly {
		return bech32.Version0
	}
	return bech32.VersionM
}

// Address is a silent payment address: the receiver's scan and spend public
// keys for a network.  Addresses are immutable.
type Address struct {
	// Network is the network the address is meant for.
	Network Network

	// Version is the address version.
	Version Version

	// ScanKey is the scan public key B_scan.
	ScanKey *btcec.PublicKey

	// SpendKey is the spend public key that is encoded in the address. For
	// a labelled address this is B_m = B_spend + hash_Label(b_scan||m)·G.
	SpendKey *btcec.PublicKey

	// Label is the label m used to derive SpendKey, if any.  It is local
	// metadata and is not carried in the encoded address.
	Label *uint32
}

// NewAddress creates a version 0 address from the given public keys.
func NewAddress(net Network, scanKey, spendKey *btcec.PublicKey) *Address {
	return &Address{
		Network:  net,
		Version:  Version0,
		ScanKey:  scanKey,
		SpendKey: spendKey,
	}
}

// NewAddressFromPrivKeys creates the address belonging to the given scan and
// spend private keys.
func NewAddressFromPrivKeys(net Network, scanKey,
	spendKey *btcec.PrivateKey) *Address {

	return NewAddress(net, scanKey.PubKey(), spendKey.PubKey())
}

// GenerateKeys creates a fresh scan and spend private key pair.
func GenerateKeys() (*btcec.PrivateKey, *btcec.PrivateKey, error) {
	scanKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, nil, err
	}
	spendKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, nil, err
	}

	return scanKey, spendKey, nil
}

// WithLabel returns the labelled address for label m.  The scan private key
// must belong to the address' scan key.
func (a *Address) WithLabel(scanKey *btcec.PrivateKey, m uint32) (*Address,
	error) {

	if a.Label != nil {
		return nil, makeError(ErrLabelledAddress, fmt.Sprintf("address "+
			"already carries label %d", *a.Label))
	}
	if !scanKey.PubKey().IsEqual(a.ScanKey) {
		return nil, makeError(ErrKeyMismatch, "scan private key does "+
			"not match the address scan key")
	}

	tweak, err := LabelTweak(scanKey, m)
	if err != nil {
		return nil, err
	}
	spendKey, err := LabelSpendKey(a.SpendKey, tweak)
	if err != nil {
		return nil, err
	}

	label := m
	return &Address{
		Network:  a.Network,
		Version:  a.Version,
		ScanKey:  a.ScanKey,
		SpendKey: spendKey,
		Label:    &label,
	}, nil
}

// Equal returns whether both addresses encode to the same string.  The local
// Label field is not compared.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}

	return a.Network == other.Network && a.Version == other.Version &&
		a.ScanKey.IsEqual(other.ScanKey) &&
		a.SpendKey.IsEqual(other.SpendKey)
}

// String returns the address encoded with DefaultCodec, or an empty string if
// it cannot be encoded.
func (a *Address) String() string {
	addr, err := DefaultCodec.Encode(a)
	if err != nil {
		return ""
	}
	return addr
}

// LabelTweak returns hash_BIP0352/Label(ser256(b_scan) || ser32(m)).
func LabelTweak(scanKey *btcec.PrivateKey, m uint32) (*btcec.ModNScalar,
	error) {

	scanBytes := scanKey.Key.Bytes()
	mBytes := SerializeUint32BE(m)

	return ScalarFromBytes(
		TaggedHash(TagBIP0352Label, scanBytes[:], mBytes[:]),
	)
}

// LabelSpendKey returns B_spend + tweak·G.
func LabelSpendKey(spendKey *btcec.PublicKey,
	tweak *btcec.ModNScalar) (*btcec.PublicKey, error) {

	return ScalarBaseMultAdd(tweak, spendKey)
}

// Codec converts between Address values and their bech32(m) strings.
type Codec struct {
	// HRPs maps networks to human-readable parts.  DefaultHRPTable is
	// used when nil.
	HRPs HRPTable

	// Format is the payload layout.
	Format PayloadFormat

	// Preferred is the network a decoded address is assigned when its
	// prefix is shared by several networks and Preferred is one of them.
	Preferred Network
}

// DefaultCodec encodes compressed keys with bech32m and the default HRP table.
var DefaultCodec = Codec{HRPs: DefaultHRPTable, Format: PayloadCompressed}

func (c Codec) table() HRPTable {
	if c.HRPs == nil {
		return DefaultHRPTable
	}
	return c.HRPs
}

// Encode returns the string form of the address.
func (c Codec) Encode(a *Address) (string, error) {
	if a == nil || a.ScanKey == nil || a.SpendKey == nil {
		return "", makeError(ErrAddressFormat, "address is missing a "+
			"key")
	}
	if a.Version != Version0 {
		return "", makeError(ErrUnknownVersion, fmt.Sprintf("cannot "+
			"encode address version %d", a.Version))
	}

	hrp, err := c.table().HRP(a.Network)
	if err != nil {
		return "", err
	}

	var payload []byte
	switch c.Format {
	case PayloadXOnly:
		payload = append(payload, schnorr.SerializePubKey(a.ScanKey)...)
		payload = append(payload, schnorr.SerializePubKey(a.SpendKey)...)

	default:
		payload = append(payload, a.ScanKey.SerializeCompressed()...)
		payload = append(payload, a.SpendKey.SerializeCompressed()...)
	}

	// Regroup the payload into 5 bit words and prepend the version word.
	words, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", makeError(ErrAddressFormat, err.Error())
	}
	data := make([]byte, 0, len(words)+1)
	data = append(data, byte(a.Version))
	data = append(data, words...)

	var addr string
	if c.Format.checksumVersion() == bech32.VersionM {
		addr, err = bech32.EncodeM(hrp, data)
	} else {
		addr, err = bech32.Encode(hrp, data)
	}
	if err != nil {
		return "", makeError(ErrAddressFormat, err.Error())
	}

	return addr, nil
}

// Decode parses an address string.  Versions 1 through 30 are accepted and
// only their first two keys are read; version 31 is rejected.
func (c Codec) Decode(addr string) (*Address, error) {
	if len(addr) > maxAddressLength {
		return nil, makeError(ErrAddressFormat, fmt.Sprintf("address "+
			"length %d exceeds %d", len(addr), maxAddressLength))
	}

	hrp, data, checksum, err := bech32.DecodeNoLimitWithVersion(addr)
	if err != nil {
		return nil, makeError(ErrAddressFormat, fmt.Sprintf("invalid "+
			"bech32 string: %v", err))
	}
	if checksum != c.Format.checksumVersion() {
		return nil, makeError(ErrAddressFormat, "wrong checksum "+
			"variant for "+c.Format.String()+" payload")
	}

	net, err := c.table().PreferNetwork(hrp, c.Preferred)
	if err != nil {
		return nil, makeError(ErrAddressFormat, err.Error())
	}

	if len(data) == 0 {
		return nil, makeError(ErrAddressFormat, "missing version")
	}
	version := Version(data[0])
	if version > maxDecodableVersion {
		return nil, makeError(ErrAddressFormat, fmt.Sprintf("address "+
			"version %d is not supported", version))
	}

	payload, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, makeError(ErrAddressFormat, fmt.Sprintf("invalid "+
			"payload: %v", err))
	}

	keyLen := c.Format.keyLength()
	switch {
	case version == Version0 && len(payload) != 2*keyLen:
		return nil, makeError(ErrAddressFormat, fmt.Sprintf("payload "+
			"must be %d bytes, got %d", 2*keyLen, len(payload)))

	case len(payload) < 2*keyLen:
		return nil, makeError(ErrAddressFormat, fmt.Sprintf("payload "+
			"must be at least %d bytes, got %d", 2*keyLen,
			len(payload)))
	}

	scanKey, err := c.parseKey(payload[:keyLen])
	if err != nil {
		return nil, makeError(ErrAddressFormat, fmt.Sprintf("invalid "+
			"scan key: %v", err))
	}
	spendKey, err := c.parseKey(payload[keyLen : 2*keyLen])
	if err != nil {
		return nil, makeError(ErrAddressFormat, fmt.Sprintf("invalid "+
			"spend key: %v", err))
	}

	return &Address{
		Network:  net,
		Version:  version,
		ScanKey:  scanKey,
		SpendKey: spendKey,
	}, nil
}

// Normalize returns a with the spend key a sender recovers from its encoding.
// For x-only payloads that is the even-Y lift, and labels must be derived
// from it to match what senders pay.  The scan key is left alone.  With
// compressed payloads a is returned unchanged.
func (c Codec) Normalize(a *Address) *Address {
	if c.Format != PayloadXOnly || a == nil || a.SpendKey == nil ||
		!hasOddY(a.SpendKey) {

		return a
	}

	normalized := *a
	normalized.SpendKey = evenPubKey(a.SpendKey)
	return &normalized
}

func (c Codec) parseKey(b []byte) (*btcec.PublicKey, error) {
	if c.Format == PayloadXOnly {
		return schnorr.ParsePubKey(b)
	}
	return ParseCompressedPoint(b)
}

// EncodeAddress encodes the address with DefaultCodec.
func EncodeAddress(a *Address) (string, error) {
	return DefaultCodec.Encode(a)
}

// DecodeAddress decodes the address with DefaultCodec.
func DecodeAddress(addr string) (*Address, error) {
	return DefaultCodec.Decode(addr)
}
