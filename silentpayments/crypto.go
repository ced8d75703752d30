package silentpayments

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var (
	// TagBIP0352Inputs is the BIP-0352 tag for the input hash.
	TagBIP0352Inputs = []byte("BIP0352/Inputs")

	// TagBIP0352SharedSecret is the BIP-0352 tag for the per-output tweak
	// derived from the shared secret.
	TagBIP0352SharedSecret = []byte("BIP0352/SharedSecret")

	// TagBIP0352Label is the BIP-0352 tag for a label tweak.
	TagBIP0352Label = []byte("BIP0352/Label")
)

const (
	// pubKeyLength is the length of a compressed public key.
	pubKeyLength = btcec.PubKeyBytesLenCompressed

	// xOnlyLength is the length of a BIP-0340 x-only public key.
	xOnlyLength = schnorr.PubKeyBytesLen

	// scalarLength is the length of a serialized 256-bit scalar.
	scalarLength = 32
)

// TaggedHash computes SHA256(SHA256(tag) || SHA256(tag) || data...) as
// defined in BIP-0340.
func TaggedHash(tag []byte, data ...[]byte) [32]byte {
	return [32]byte(*chainhash.TaggedHash(tag, data...))
}

// IsValidScalar returns whether s, interpreted as a big-endian integer, is a
// valid non-zero scalar, i.e. 0 < s < n.
func IsValidScalar(s [32]byte) bool {
	var scalar btcec.ModNScalar
	overflow := scalar.SetBytes(&s)

	return overflow == 0 && !scalar.IsZero()
}

// ScalarFromBytes interprets s as a big-endian scalar and fails with
// ErrInvalidScalar unless 0 < s < n.
func ScalarFromBytes(s [32]byte) (*btcec.ModNScalar, error) {
	var scalar btcec.ModNScalar
	if overflow := scalar.SetBytes(&s); overflow != 0 {
		return nil, makeError(ErrInvalidScalar, "scalar is not below "+
			"the group order")
	}
	if scalar.IsZero() {
		return nil, makeError(ErrInvalidScalar, "scalar is zero")
	}

	return &scalar, nil
}

// SerializeUint32BE returns the 4-byte big-endian encoding of n (ser32 in
// BIP-0352).
func SerializeUint32BE(n uint32) [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return b
}

// SerializeScalar256 returns b as a 32-byte scalar encoding (ser256 in
// BIP-0352).  The bytes are passed through unchanged after a length check.
func SerializeScalar256(b []byte) ([32]byte, error) {
	var s [32]byte
	if len(b) != scalarLength {
		return s, makeError(ErrInvalidScalar, fmt.Sprintf("scalar "+
			"must be %d bytes, got %d", scalarLength, len(b)))
	}
	copy(s[:], b)

	return s, nil
}

// CompressedPointBytes returns the 33-byte compressed encoding of p (serP in
// BIP-0352).
func CompressedPointBytes(p *btcec.PublicKey) [33]byte {
	var b [33]byte
	copy(b[:], p.SerializeCompressed())
	return b
}

// ParseCompressedPoint parses a 33-byte compressed secp256k1 point.  Any other
// length or encoding fails with ErrCurve.
func ParseCompressedPoint(b []byte) (*btcec.PublicKey, error) {
	if len(b) != pubKeyLength {
		return nil, makeError(ErrCurve, fmt.Sprintf("compressed point "+
			"must be %d bytes, got %d", pubKeyLength, len(b)))
	}

	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, makeError(ErrCurve, fmt.Sprintf("invalid point: "+
			"%v", err))
	}

	return pub, nil
}

// ToXOnly strips the parity prefix of a 33-byte compressed point.
func ToXOnly(p []byte) ([32]byte, error) {
	var x [32]byte
	if len(p) != pubKeyLength {
		return x, makeError(ErrCurve, fmt.Sprintf("compressed point "+
			"must be %d bytes, got %d", pubKeyLength, len(p)))
	}

	switch p[0] {
	case secp.PubKeyFormatCompressedEven, secp.PubKeyFormatCompressedOdd:
	default:
		return x, makeError(ErrCurve, fmt.Sprintf("invalid compressed "+
			"point prefix 0x%02x", p[0]))
	}
	copy(x[:], p[1:])

	return x, nil
}

// XOnly returns the 32-byte x-only encoding of pub.
func XOnly(pub *btcec.PublicKey) [32]byte {
	var x [32]byte
	copy(x[:], schnorr.SerializePubKey(pub))
	return x
}

// ECDH returns scalar·point.  It fails with ErrCurve if the point is missing,
// the scalar is zero, or the product is the point at infinity.
func ECDH(point *btcec.PublicKey, scalar *btcec.ModNScalar) (*btcec.PublicKey,
	error) {

	if point == nil {
		return nil, makeError(ErrCurve, "ecdh: missing point")
	}
	if scalar == nil || scalar.IsZero() {
		return nil, makeError(ErrCurve, "ecdh: zero scalar")
	}

	var p, result btcec.JacobianPoint
	point.AsJacobian(&p)
	btcec.ScalarMultNonConst(scalar, &p, &result)

	return affinePubKey(&result)
}

// PointAdd returns a + b.  It fails with ErrCurve if either point is missing
// or the sum is the point at infinity.
func PointAdd(a, b *btcec.PublicKey) (*btcec.PublicKey, error) {
	if a == nil || b == nil {
		return nil, makeError(ErrCurve, "point add: missing point")
	}

	var aJ, bJ, result btcec.JacobianPoint
	a.AsJacobian(&aJ)
	b.AsJacobian(&bJ)
	btcec.AddNonConst(&aJ, &bJ, &result)

	return affinePubKey(&result)
}

// ScalarBaseMultAdd returns b + t·G.
func ScalarBaseMultAdd(t *btcec.ModNScalar, b *btcec.PublicKey) (
	*btcec.PublicKey, error) {

	if b == nil {
		return nil, makeError(ErrCurve, "missing base point")
	}

	var tG, bJ, result btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(t, &tG)
	b.AsJacobian(&bJ)
	btcec.AddNonConst(&bJ, &tG, &result)

	return affinePubKey(&result)
}

// sumPoints adds all of the given points.  The running sum may pass through
// the point at infinity; only the final result is checked.
func sumPoints(points []*btcec.PublicKey) (*btcec.PublicKey, error) {
	if len(points) == 0 {
		return nil, makeError(ErrCurve, "no points to sum")
	}

	var sum btcec.JacobianPoint
	points[0].AsJacobian(&sum)
	for _, point := range points[1:] {
		var p, result btcec.JacobianPoint
		point.AsJacobian(&p)
		btcec.AddNonConst(&sum, &p, &result)
		sum = result
	}

	return affinePubKey(&sum)
}

// affinePubKey converts j to affine coordinates and returns it as a public
// key, failing if j is the point at infinity.
func affinePubKey(j *btcec.JacobianPoint) (*btcec.PublicKey, error) {
	j.ToAffine()
	if j.X.IsZero() && j.Y.IsZero() {
		return nil, makeError(ErrCurve, "result is the point at "+
			"infinity")
	}

	return btcec.NewPublicKey(&j.X, &j.Y), nil
}

// evenPubKey returns pub, or its negation if pub has an odd Y coordinate.
func evenPubKey(pub *btcec.PublicKey) *btcec.PublicKey {
	if !hasOddY(pub) {
		return pub
	}

	var j btcec.JacobianPoint
	pub.AsJacobian(&j)
	j.Y.Negate(1).Normalize()

	return btcec.NewPublicKey(&j.X, &j.Y)
}

// hasOddY returns whether pub has an odd Y coordinate.
func hasOddY(pub *btcec.PublicKey) bool {
	return pub.SerializeCompressed()[0] == secp.PubKeyFormatCompressedOdd
}
