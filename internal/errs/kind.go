package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that need to map it to a response.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation means missing or malformed input; never retried.
	KindValidation
	// KindNotFound means an unresolvable reference (machine code, alert ref, row id).
	KindNotFound
	// KindInvalidState means a lifecycle transition that is not allowed from the current state.
	KindInvalidState
	// KindIntegrity means a unique key or constraint violation.
	KindIntegrity
	// KindTransient means a connection or transaction failure. The core does not retry.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindIntegrity:
		return "integrity"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// KindError attaches a Kind to an error without hiding it from errors.Is/As.
type KindError struct {
	kind Kind
	err  error
}

func (e *KindError) Error() string { return e.err.Error() }
func (e *KindError) Unwrap() error { return e.err }
func (e *KindError) Kind() Kind    { return e.kind }

// E builds a new error of the given kind.
func E(kind Kind, msg string) error {
	return &KindError{kind: kind, err: errors.New(msg)}
}

// Ef builds a new formatted error of the given kind. %w is honoured.
func Ef(kind Kind, format string, args ...any) error {
	return &KindError{kind: kind, err: fmt.Errorf(format, args...)}
}

// As marks err with kind. A nil err stays nil.
func As(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{kind: kind, err: err}
}

func Validation(format string, args ...any) error {
	return Ef(KindValidation, format, args...)
}

func NotFound(format string, args ...any) error {
	return Ef(KindNotFound, format, args...)
}

// KindOf returns the outermost Kind found in the chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

// Is reports whether err carries kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if ke, ok := e.(*KindError); ok && ke.kind == kind {
			return true
		}
	}
	return false
}
