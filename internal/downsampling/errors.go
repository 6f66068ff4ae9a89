package downsampling

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInstant is returned when a value cannot be read as an instant
	ErrInvalidInstant = errors.New("invalid instant")

	// ErrInvertedWindow is returned when a window starts after it ends
	ErrInvertedWindow = errors.New("window start is after window end")

	// ErrWindowTooLong is returned when a window span does not fit in a time.Duration
	ErrWindowTooLong = errors.New("window span exceeds the supported range")
)

// ParseError describes an instant that could not be interpreted.
type ParseError struct {
	Input  interface{}
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid instant %v", e.Input)
	}
	return fmt.Sprintf("invalid instant %v: %s", e.Input, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInstant.
func (e *ParseError) Unwrap() error {
	return ErrInvalidInstant
}

// SampleError is a ParseError tied to a sample position in a series.
type SampleError struct {
	Index int
	Err   error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %d: %v", e.Index, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

// WindowError is returned when a window boundary is unusable.
// Bound is "from", "to" or empty when the window as a whole is invalid.
type WindowError struct {
	Bound string
	Err   error
}

func (e *WindowError) Error() string {
	if e.Bound == "" {
		return fmt.Sprintf("invalid window: %v", e.Err)
	}
	return fmt.Sprintf("invalid window %s: %v", e.Bound, e.Err)
}

func (e *WindowError) Unwrap() error {
	return e.Err
}
