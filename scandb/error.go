package scandb

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind
// when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrUnknownDBType indicates a database type with no registered driver.
	ErrUnknownDBType = ErrorKind("ErrUnknownDBType")

	// ErrCorruptRecord indicates a stored scan result that can not be
	// decoded.
	ErrCorruptRecord = ErrorKind("ErrCorruptRecord")

	// ErrResultNotFound indicates no scan result is stored for an outpoint.
	ErrResultNotFound = ErrorKind("ErrResultNotFound")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies an error raised by the result store.  It has full support
// for errors.Is and errors.As, so the caller can ascertain the specific reason
// for the error by checking the underlying error.
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

func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}
