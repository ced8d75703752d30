package silentpayments

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind
// when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrCurve indicates an elliptic curve operation was handed an invalid
	// point or scalar, or that its result is the point at infinity.
	ErrCurve = ErrorKind("ErrCurve")

	// ErrNoEligibleInputs indicates that none of the given inputs may take
	// part in the shared secret derivation.
	ErrNoEligibleInputs = ErrorKind("ErrNoEligibleInputs")

	// ErrDegenerateKey indicates the sum of the eligible input keys is the
	// point at infinity (or the private key sum is zero).
	ErrDegenerateKey = ErrorKind("ErrDegenerateKey")

	// ErrInvalidScalar indicates a derived hash or tweak is zero or not
	// below the secp256k1 group order.
	ErrInvalidScalar = ErrorKind("ErrInvalidScalar")

	// ErrAddressFormat indicates a silent payment address string could not
	// be decoded, or an address value could not be encoded.
	ErrAddressFormat = ErrorKind("ErrAddressFormat")

	// ErrUnknownVersion indicates an address version this package does not
	// know how to encode.
	ErrUnknownVersion = ErrorKind("ErrUnknownVersion")

	// ErrUnsupportedNetwork indicates a network or human-readable part that
	// has no entry in the active HRP table.
	ErrUnsupportedNetwork = ErrorKind("ErrUnsupportedNetwork")

	// ErrIneligibleInput indicates a transaction input whose public key
	// cannot be used for silent payments.
	ErrIneligibleInput = ErrorKind("ErrIneligibleInput")

	// ErrKeyMismatch indicates private key material that does not belong to
	// the public keys it was supplied for.
	ErrKeyMismatch = ErrorKind("ErrKeyMismatch")

	// ErrMissingKey indicates a scanner or generator was constructed
	// without the key material it needs.
	ErrMissingKey = ErrorKind("ErrMissingKey")

	// ErrLabelledAddress indicates a labelled address was given where an
	// unlabelled one is required.
	ErrLabelledAddress = ErrorKind("ErrLabelledAddress")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies an error related to silent payment key derivation, address
// coding or scanning.  It has full support for errors.Is and errors.As, so the
// caller can ascertain the specific reason for the error by checking the
// underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}
