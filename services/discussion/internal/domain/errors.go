package domain

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPermissionDenied
	KindRateLimited
	KindConflict
	KindStorageFailure
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindRateLimited:
		return "rate_limited"
	case KindConflict:
		return "conflict"
	case KindStorageFailure:
		return "storage_failure"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error is returned by every engine operation for expected business
// conditions. Message is safe to show to end users; Err is for logs.
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

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) error         { return &Error{Kind: KindNotFound, Message: msg} }
func PermissionDenied(msg string) error { return &Error{Kind: KindPermissionDenied, Message: msg} }
func RateLimited(msg string) error      { return &Error{Kind: KindRateLimited, Message: msg} }
func Conflict(msg string) error         { return &Error{Kind: KindConflict, Message: msg} }
func InvalidArgument(msg string) error  { return &Error{Kind: KindInvalidArgument, Message: msg} }

// StorageFailure hides cause behind a generic message.
func StorageFailure(cause error) error {
	return &Error{Kind: KindStorageFailure, Message: "storage failure", Err: cause}
}

// KindOf reports the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
