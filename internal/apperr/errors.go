// Package apperr defines the error taxonomy shared by services and the HTTP
// layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateEmail
	KindDuplicateCPF
	KindInvalidCredentials
	KindMissingToken
	KindInvalidToken
	KindForbidden
	KindNotFound
	KindAlreadyConfirmed
	KindNoCodeIssued
	KindCodeMismatch
	KindCodeExpired
)

var kindNames = map[Kind]string{
	KindInternal:           "internal",
	KindValidation:         "validation",
	KindDuplicateEmail:     "duplicate_email",
	KindDuplicateCPF:       "duplicate_cpf",
	KindInvalidCredentials: "invalid_credentials",
	KindMissingToken:       "missing_token",
	KindInvalidToken:       "invalid_token",
	KindForbidden:          "forbidden",
	KindNotFound:           "not_found",
	KindAlreadyConfirmed:   "already_confirmed",
	KindNoCodeIssued:       "no_code_issued",
	KindCodeMismatch:       "code_mismatch",
	KindCodeExpired:        "code_expired",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// HTTPStatus maps a kind to its response status
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindDuplicateEmail, KindDuplicateCPF,
		KindAlreadyConfirmed, KindNoCodeIssued, KindCodeMismatch, KindCodeExpired:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindMissingToken, KindInvalidToken:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is an error with a kind and a message that is safe to show clients
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation is a shorthand for a validation failure
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Internal wraps an unexpected failure
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf returns the kind of err, KindInternal when err is not an *Error
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Sentinels for errors.Is comparisons
var (
	ErrValidation         = New(KindValidation, "")
	ErrDuplicateEmail     = New(KindDuplicateEmail, "")
	ErrDuplicateCPF       = New(KindDuplicateCPF, "")
	ErrInvalidCredentials = New(KindInvalidCredentials, "")
	ErrMissingToken       = New(KindMissingToken, "")
	ErrInvalidToken       = New(KindInvalidToken, "")
	ErrForbidden          = New(KindForbidden, "")
	ErrNotFound           = New(KindNotFound, "")
	ErrAlreadyConfirmed   = New(KindAlreadyConfirmed, "")
	ErrNoCodeIssued       = New(KindNoCodeIssued, "")
	ErrCodeMismatch       = New(KindCodeMismatch, "")
	ErrCodeExpired        = New(KindCodeExpired, "")
)
