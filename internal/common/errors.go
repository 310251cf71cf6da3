package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// ErrorKind classifies failures surfaced to the caller of the pipeline.
type ErrorKind string

const (
	KindSchemaMismatch          ErrorKind = "SchemaMismatch"
	KindRowConversion           ErrorKind = "RowConversionError"
	KindUnparsableResponse      ErrorKind = "UnparsableResponse"
	KindNoProviderAvailable     ErrorKind = "NoProviderAvailable"
	KindUnsupportedFileType     ErrorKind = "UnsupportedFileType"
	KindTransientNetworkFailure ErrorKind = "TransientNetworkFailure"
	KindMalformedWorkItem       ErrorKind = "MalformedWorkItem"

	KindProviderError    ErrorKind = "ProviderError"
	KindStorageError     ErrorKind = "StorageError"
	KindPersistenceError ErrorKind = "PersistenceError"
	KindConfigError      ErrorKind = "ConfigError"
	KindInternal         ErrorKind = "Internal"
)

// AppError represents application-specific errors
type AppError struct {
	Code    ErrorKind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// NewAppError builds an AppError of the given kind.
func NewAppError(code ErrorKind, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Errorf builds an AppError without a cause.
func Errorf(code ErrorKind, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the outermost AppError in the chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return KindInternal
}

// IsKind reports whether any AppError in the chain carries kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == kind {
			return true
		}
		err = ae.Cause
	}
	return false
}

// GRPCCode maps an error kind onto the closest gRPC status code.
func GRPCCode(kind ErrorKind) codes.Code {
	switch kind {
	case "":
		return codes.OK
	case KindMalformedWorkItem, KindUnsupportedFileType, KindSchemaMismatch, KindRowConversion:
		return codes.InvalidArgument
	case KindNoProviderAvailable, KindConfigError:
		return codes.FailedPrecondition
	case KindTransientNetworkFailure:
		return codes.Unavailable
	case KindUnparsableResponse, KindProviderError:
		return codes.Aborted
	case KindStorageError, KindPersistenceError:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
