package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth is returned when the store password is wrong or missing.
	ErrAuth = errors.New("authentication failed")
	// ErrCorruption marks a store file that cannot be decoded.
	ErrCorruption = errors.New("store file is corrupted")
	// ErrVersion marks a store file written in an unknown format version.
	ErrVersion = fmt.Errorf("%w: unsupported format version", ErrCorruption)
	// ErrNotFound is returned by the store when no file exists yet.
	ErrNotFound = errors.New("store file not found")
	// ErrValidation is the root of every input validation failure.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate rejects an insert whose key already exists.
	ErrDuplicate = fmt.Errorf("%w: already exists", ErrValidation)
	// ErrUnsupported is returned by adapters for capabilities a family does not offer.
	ErrUnsupported = errors.New("unsupported by this chain family")
	// ErrPriceUnavailable means no usable price was found for a token.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// ValidationError describes rejected user input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ChainError wraps a failed or malformed RPC exchange with one network.
type ChainError struct {
	ChainID string
	Method  string
	Err     error
}

func (e *ChainError) Error() string {
	if e.ChainID == "" {
		return fmt.Sprintf("%s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.ChainID, e.Method, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }

// IOError reports a failed disk operation of the store.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
