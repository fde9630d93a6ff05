package kg

import (
	"errors"
	"fmt"
)

// Lookup errors.
var (
	ErrUnknownKey = errors.New("unknown natural key")
	ErrOutOfRange = errors.New("entity id out of range")
	ErrInvalid    = errors.New("invalid graph")
)

// UnknownKeyError names the natural key that has no entity.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown natural key: %q", e.Key)
}

// Unwrap lets errors.Is match ErrUnknownKey.
func (e *UnknownKeyError) Unwrap() error { return ErrUnknownKey }

// IndexError reports an entity id outside [0, Len).
type IndexError struct {
	ID  int
	Len int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("entity id %d out of range [0, %d)", e.ID, e.Len)
}

// Unwrap lets errors.Is match ErrOutOfRange.
func (e *IndexError) Unwrap() error { return ErrOutOfRange }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
