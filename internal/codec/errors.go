package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognized is returned for payloads whose discriminator is not in the registry.
	ErrUnrecognized = errors.New("unrecognized discriminator")

	// ErrShortPayload is returned when a payload is too short to hold a discriminator.
	ErrShortPayload = errors.New("payload shorter than discriminator")

	// ErrMissingAccounts is returned when an instruction lists fewer accounts than its layout names.
	ErrMissingAccounts = errors.New("missing instruction accounts")
)

// DecodeError reports a malformed or truncated payload.
type DecodeError struct {
	Layout        string
	Discriminator Discriminator
	Field         string
	Offset        int // byte offset from the start of the payload
	Err           error
}

// shortPayload reports a payload that ends inside its discriminator.
// The bytes present are kept as the discriminator prefix.
func shortPayload(data []byte, base int) *DecodeError {
	e := &DecodeError{Field: "discriminator", Offset: base + len(data), Err: ErrShortPayload}
	copy(e.Discriminator[:], data)
	return e
}

func (e *DecodeError) Error() string {
	if e.Layout == "" {
		return fmt.Sprintf("decode %s (%s) at offset %d: %v", e.Field, e.Discriminator, e.Offset, e.Err)
	}
	if e.Field == "" {
		return fmt.Sprintf("decode %s (%s) at offset %d: %v", e.Layout, e.Discriminator, e.Offset, e.Err)
	}
	return fmt.Sprintf("decode %s.%s (%s) at offset %d: %v", e.Layout, e.Field, e.Discriminator, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
