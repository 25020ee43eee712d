package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique key collision on insert.
	ErrAlreadyExists = errors.New("already exists")
)

// ErrorKind classifies failures so transports can pick a status code.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindAuthentication   ErrorKind = "authentication"
	KindNotFound         ErrorKind = "not_found"
	KindDuplicate        ErrorKind = "duplicate"
	KindExternalProvider ErrorKind = "external_provider"
	KindPersistence      ErrorKind = "persistence"
	KindNotification     ErrorKind = "notification"
	KindRateLimited      ErrorKind = "rate_limited"
)

// Error carries a kind, a client-safe detail and the underlying cause.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationError(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

func AuthenticationError(detail string, err error) *Error {
	return &Error{Kind: KindAuthentication, Detail: detail, Err: err}
}

func NotFoundError(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail, Err: ErrNotFound}
}

func DuplicateEvent(detail string) *Error {
	return &Error{Kind: KindDuplicate, Detail: detail}
}

func ExternalProviderError(detail string, err error) *Error {
	return &Error{Kind: KindExternalProvider, Detail: detail, Err: err}
}

func PersistenceError(detail string, err error) *Error {
	return &Error{Kind: KindPersistence, Detail: detail, Err: err}
}

func NotificationError(detail string, err error) *Error {
	return &Error{Kind: KindNotification, Detail: detail, Err: err}
}

func RateLimitedError(detail string) *Error {
	return &Error{Kind: KindRateLimited, Detail: detail}
}

// KindOf returns the kind of err, or "" when err is not a *Error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
