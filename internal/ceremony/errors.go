package ceremony

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/photodiary/internal/apiclient"
)

var (
	// ErrMissingUsername indicates a ceremony was requested without a username.
	ErrMissingUsername = errors.New("ceremony: username is required")
	// ErrMalformedOptions indicates the server's options payload lacked required members.
	ErrMalformedOptions = errors.New("ceremony: malformed options")
	// ErrNotIdle indicates Run was called on a ceremony that already started.
	ErrNotIdle = errors.New("ceremony: ceremony is not idle")
	// ErrNotFinished indicates Reset was called while a ceremony was still in flight.
	ErrNotFinished = errors.New("ceremony: ceremony has not finished")

	errMissingClient  = errors.New("ceremony: api client is required")
	errMissingManager = errors.New("ceremony: credential manager is required")
)

// ProtocolError reports a non-success response from the server; its message is
// the server's response text.
type ProtocolError = apiclient.ProtocolError

// DecodeError reports transport text that is not a valid binary encoding.
type DecodeError struct {
	// Field names the payload member, e.g. "publicKey.challenge". Empty for
	// direct DecodeBinary calls.
	Field string
	// Offset is the first offending input byte, or -1 when unknown.
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	prefix := "ceremony: decode"
	if e.Field != "" {
		prefix += " " + e.Field
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: invalid input at offset %d", prefix, e.Offset)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// CredentialError reports that the platform declined or returned no credential.
// Cancellation, unsupported authenticators and origin mismatches all surface
// as this single failure.
type CredentialError struct {
	Operation string
	Err       error
}

func (e *CredentialError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ceremony: %s failed", e.Operation)
	}
	return fmt.Sprintf("ceremony: %s failed: %v", e.Operation, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}
