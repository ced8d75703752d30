package silentpayments

import (
	"errors"
	"testing"
)

// TestErrorKindStringer tests the stringized output for the ErrorKind type.
func TestErrorKindStringer(t *testing.T) {
	tests := []struct {
		in   ErrorKind
		want string
	}{
		{ErrCurve, "ErrCurve"},
		{ErrNoEligibleInputs, "ErrNoEligibleInputs"},
		{ErrDegenerateKey, "ErrDegenerateKey"},
		{ErrInvalidScalar, "ErrInvalidScalar"},
		{ErrAddressFormat, "ErrAddressFormat"},
		{ErrUnknownVersion, "ErrUnknownVersion"},
		{ErrUnsupportedNetwork, "ErrUnsupportedNetwork"},
		{ErrIneligibleInput, "ErrIneligibleInput"},
		{ErrKeyMismatch, "ErrKeyMismatch"},
		{ErrMissingKey, "ErrMissingKey"},
		{ErrLabelledAddress, "ErrLabelledAddress"},
	}

	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("#%d: got: %s want: %s", i, result, test.want)
			continue
		}
	}
}

// TestError tests the error output for the Error type.
func TestError(t *testing.T) {
	tests := []struct {
		in   Error
		want string
	}{{
		Error{Description: "some error"},
		"some error",
	}, {
		Error{Description: "human-readable error"},
		"human-readable error",
	}}

	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("#%d: got: %s want: %s", i, result, test.want)
			continue
		}
	}
}

// TestErrorKindIsAs ensures both ErrorKind and Error can be identified as
// being a specific error kind via errors.Is and unwrapped via errors.As.
func TestErrorKindIsAs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
		wantAs    ErrorKind
	}{{
		name:      "ErrCurve == ErrCurve",
		err:       ErrCurve,
		target:    ErrCurve,
		wantMatch: true,
		wantAs:    ErrCurve,
	}, {
		name:      "Error.ErrCurve == ErrCurve",
		err:       makeError(ErrCurve, ""),
		target:    ErrCurve,
		wantMatch: true,
		wantAs:    ErrCurve,
	}, {
		name:      "Error.ErrDegenerateKey == Error.ErrDegenerateKey",
		err:       makeError(ErrDegenerateKey, ""),
		target:    makeError(ErrDegenerateKey, ""),
		wantMatch: true,
		wantAs:    ErrDegenerateKey,
	}, {
		name:      "ErrCurve != ErrInvalidScalar",
		err:       ErrCurve,
		target:    ErrInvalidScalar,
		wantMatch: false,
		wantAs:    ErrCurve,
	}, {
		name:      "Error.ErrAddressFormat != ErrUnknownVersion",
		err:       makeError(ErrAddressFormat, ""),
		target:    ErrUnknownVersion,
		wantMatch: false,
		wantAs:    ErrAddressFormat,
	}}

	for _, test := range tests {
		// Ensure the error matches or not depending on the expected result.
		result := errors.Is(test.err, test.target)
		if result != test.wantMatch {
			t.Errorf("%s: incorrect error identification -- got %v, "+
				"want %v", test.name, result, test.wantMatch)
			continue
		}

		// Ensure the underlying error kind can be unwrapped and is the
		// expected code.
		var kind ErrorKind
		if !errors.As(test.err, &kind) {
			t.Errorf("%s: unable to unwrap to error", test.name)
			continue
		}
		if !errors.Is(kind, test.wantAs) {
			t.Errorf("%s: unexpected unwrapped error -- got %v, want "+
				"%v", test.name, kind, test.wantAs)
			continue
		}
	}
}
