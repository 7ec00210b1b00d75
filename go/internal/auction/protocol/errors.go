package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMalformedMessage = errors.New("malformed message")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidField     = errors.New("invalid field")
)

// DecodeError describes an inbound message rejected at the boundary
type DecodeError struct {
	Type   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode message: %s", e.Reason)
	}
	return fmt.Sprintf("decode %s: %s", e.Type, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }
