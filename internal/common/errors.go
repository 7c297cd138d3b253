package common

import "errors"

type Code string

const (
	CodeValidation   Code = "validation"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeObjectID     Code = "object_id"
	CodeConflict     Code = "conflict"
	CodeRateLimited  Code = "rate_limited"
	CodeInternal     Code = "internal"
)

type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// NewPermissionError marks a caller that is authenticated but not allowed to
// mutate the target. Rendered with incorrectPermissions in the body.
func NewPermissionError(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

func NewObjectIDError() *Error {
	return &Error{Code: CodeObjectID, Message: "Did not received expected id type ObjectId"}
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns CodeInternal for errors that carry no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
