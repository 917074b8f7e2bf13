package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ErrorKind is the machine readable category of a service failure.
type ErrorKind string

const (
	KindNotFound             ErrorKind = "not_found"
	KindForbidden            ErrorKind = "forbidden"
	KindAlreadyMember        ErrorKind = "already_member"
	KindGroupFull            ErrorKind = "group_full"
	KindNotMember            ErrorKind = "not_member"
	KindLimitExceeded        ErrorKind = "limit_exceeded"
	KindInvalidState         ErrorKind = "invalid_state"
	KindInappropriateContent ErrorKind = "inappropriate_content"
	KindValidation           ErrorKind = "validation_failed"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindConflict             ErrorKind = "conflict"
	KindTooLarge             ErrorKind = "payload_too_large"
	KindInternal             ErrorKind = "internal"
)

// Error is a categorised service failure. Two errors match under errors.Is when their kinds are equal.
type Error struct {
	Kind    ErrorKind
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

// Is matches by kind so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrForbidden            = &Error{Kind: KindForbidden, Message: "insufficient permissions"}
	ErrAlreadyMember        = &Error{Kind: KindAlreadyMember, Message: "user is already a member of the group"}
	ErrGroupFull            = &Error{Kind: KindGroupFull, Message: "group is full"}
	ErrNotMember            = &Error{Kind: KindNotMember, Message: "user is not a member of the group"}
	ErrLimitExceeded        = &Error{Kind: KindLimitExceeded, Message: "limit exceeded"}
	ErrInvalidState         = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrInappropriateContent = &Error{Kind: KindInappropriateContent, Message: "content is not allowed"}
	ErrValidation           = &Error{Kind: KindValidation, Message: "invalid payload"}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized, Message: "invalid credentials"}
	ErrConflict             = &Error{Kind: KindConflict, Message: "resource already exists"}
	ErrTooLarge             = &Error{Kind: KindTooLarge, Message: "payload too large"}
	ErrInternal             = &Error{Kind: KindInternal, Message: "internal server error"}
)

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind carried by err, or KindInternal for unclassified errors.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// validationError wraps a validator failure so handlers can expose field details.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		return newError(KindValidation, "invalid payload", err)
	}
	return newError(KindValidation, err.Error(), err)
}

// notFoundOr maps a missing row to a not_found error and anything else to internal.
func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(KindNotFound, message, err)
	}
	return newError(KindInternal, "internal server error", err)
}

func internalError(err error) error {
	return newError(KindInternal, "internal server error", err)
}
