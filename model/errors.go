package model

import "fmt"

type ErrorCode string

const (
	ErrPrefix          ErrorCode = "PREFIX"
	ErrParse           ErrorCode = "PARSE"
	ErrUnderflow       ErrorCode = "UNDERFLOW"
	ErrUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"
	ErrMissingData     ErrorCode = "MISSING_DATA"
	ErrValidation      ErrorCode = "VALIDATION"
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrInternal        ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}
