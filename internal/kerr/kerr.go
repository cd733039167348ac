// Package kerr carries the error kinds the method dispatcher maps to HTTP
// status codes. It replaces the source's tri-state int return convention
// (fatal / constraint / ok) with ordinary Go errors that wrap a kind.
package kerr

import (
	"errors"
	"fmt"
)

// AuthKind distinguishes the ways a Digest authentication attempt can fail.
type AuthKind int

const (
	MissingCreds AuthKind = iota
	BadCreds
	StaleNonce
	Replay
)

// ConflictReason distinguishes the ways a storage mutation can be rejected.
type ConflictReason int

const (
	ExistingResource ConflictReason = iota
	MissingIfMatch
	EtagMismatch
	QuotaExceeded
)

var (
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrBadRequest  = errors.New("bad request")
	ErrUnsupported = errors.New("unsupported")
)

// ParseErr is a diagnostic from the folded-line reader, the iCalendar
// parser, or the CalDAV XML parser: "<where>: <message>".
type ParseErr struct {
	Where   string
	Message string
}

func (e *ParseErr) Error() string {
	return fmt.Sprintf("%s: %s", e.Where, e.Message)
}

func NewParseErr(where, format string, args ...any) error {
	return &ParseErr{Where: where, Message: fmt.Sprintf(format, args...)}
}

// AuthErr is an authentication-layer failure; Kind selects the 401/403
// response shape (stale nonce vs. replay vs. plain bad credentials).
type AuthErr struct {
	Kind AuthKind
}

func (e *AuthErr) Error() string {
	switch e.Kind {
	case MissingCreds:
		return "missing credentials"
	case BadCreds:
		return "bad credentials"
	case StaleNonce:
		return "stale nonce"
	case Replay:
		return "replay"
	default:
		return "auth error"
	}
}

func NewAuthErr(kind AuthKind) error { return &AuthErr{Kind: kind} }

// ConflictErr is a storage constraint failure mapped to 409 or 412.
type ConflictErr struct {
	Reason ConflictReason
}

func (e *ConflictErr) Error() string {
	switch e.Reason {
	case ExistingResource:
		return "resource already exists"
	case MissingIfMatch:
		return "missing If-Match"
	case EtagMismatch:
		return "etag mismatch"
	case QuotaExceeded:
		return "quota exceeded"
	default:
		return "conflict"
	}
}

func NewConflictErr(reason ConflictReason) error { return &ConflictErr{Reason: reason} }

// StorageErr wraps a storage-layer failure. Fatal and non-fatal failures
// both surface as 505, since the core has no lesser "try again" response
// defined.
type StorageErr struct {
	Fatal   bool
	Message string
	Err     error
}

func (e *StorageErr) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("storage: %s", e.Message)
}

func (e *StorageErr) Unwrap() error { return e.Err }

func NewStorageErr(fatal bool, message string, err error) error {
	return &StorageErr{Fatal: fatal, Message: message, Err: err}
}

// As is a thin errors.As wrapper kept for call-site brevity in the
// dispatcher's kind-to-status mapping.
func As[T error](err error, target *T) bool {
	return errors.As(err, target)
}
