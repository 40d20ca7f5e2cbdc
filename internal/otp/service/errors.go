package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error; the RPC layer maps each kind to one status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBadRequest
	KindConflict
	KindNotFound
	KindForbidden
	KindExpired
	KindUnauthorized
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindExpired:
		return "expired"
	case KindUnauthorized:
		return "unauthorized"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is a classified failure. Reason is safe to show to callers; Err is not.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind and reason, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Reason == e.Reason
}

var (
	ErrOutstandingRequest = &Error{Kind: KindConflict, Reason: "OutstandingRequest"}
	ErrAccountExists      = &Error{Kind: KindConflict, Reason: "AccountExists"}
	ErrRequestNotFound    = &Error{Kind: KindNotFound, Reason: "Request"}
	ErrAccountNotFound    = &Error{Kind: KindNotFound, Reason: "Account"}
	ErrPhoneMismatch      = &Error{Kind: KindBadRequest, Reason: "PhoneMismatch"}
	ErrCodeMismatch       = &Error{Kind: KindBadRequest, Reason: "CodeMismatch"}
	ErrNotVerified        = &Error{Kind: KindForbidden, Reason: "NotVerified"}
	ErrRequestExpired     = &Error{Kind: KindExpired, Reason: "RequestExpired"}
	ErrPinMismatch        = &Error{Kind: KindUnauthorized, Reason: "PinMismatch"}
	ErrInvalidSession     = &Error{Kind: KindUnauthorized, Reason: "InvalidSession"}
)

func validationError(reason string) error {
	return &Error{Kind: KindValidation, Reason: reason}
}

func upstreamError(err error) error {
	return &Error{Kind: KindUpstream, Reason: "GatewayUnavailable", Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
