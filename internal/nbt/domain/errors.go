package domain

import (
	"errors"
	"fmt"
)

// ErrTruncated reports that a response ended before a required field.
var ErrTruncated = errors.New("truncated node status response")

// TruncatedError describes where decoding stopped. Fields decoded before
// Field are valid; everything after it is left at its zero value.
type TruncatedError struct {
	Field  string
	Offset int
	Need   int
	Have   int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("%s: %s needs %d bytes at offset %d, %d available", ErrTruncated, e.Field, e.Need, e.Offset, e.Have)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncated }

// SendError is returned when the query datagram could not be written.
type SendError struct {
	Dest string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sendto %s: %v", e.Dest, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
