package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes carried by AppError.
const (
	CodeUnsupportedFormat     = "UNSUPPORTED_FORMAT"
	CodeUnknownDocumentType   = "UNKNOWN_DOCUMENT_TYPE"
	CodeModelInvocationFailed = "MODEL_INVOCATION_FAILED"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeConfig                = "CONFIG_ERROR"
	CodeInternal              = "INTERNAL"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
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

// GRPCStatus lets grpc-go surface an AppError with a meaningful status code.
func (e *AppError) GRPCStatus() *status.Status {
	return status.New(grpcCode(e.Code), e.Message)
}

func grpcCode(code string) codes.Code {
	switch code {
	case CodeUnsupportedFormat, CodeInvalidInput:
		return codes.InvalidArgument
	case CodeUnknownDocumentType:
		return codes.Unimplemented
	case CodeModelInvocationFailed:
		return codes.Unavailable
	case CodeConfig:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// Common application errors
var (
	ErrUnsupportedFormat     = errors.New("unsupported format")
	ErrUnknownDocumentType   = errors.New("unknown document type")
	ErrModelInvocationFailed = errors.New("model invocation failed")
	ErrInvalidInput          = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// UnsupportedFormat reports a document whose extension is neither an image nor a PDF.
func UnsupportedFormat(ext string) *AppError {
	return NewAppError(CodeUnsupportedFormat, fmt.Sprintf("unsupported extension %q", ext), ErrUnsupportedFormat)
}

// CodeOf returns the AppError code anywhere in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// StatusCode classifies err as a gRPC status code: the AppError's mapping when there is
// one anywhere in the chain, Canceled or DeadlineExceeded for context errors, and
// Unknown otherwise.
func StatusCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return status.Code(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Code()
	}
	return codes.Unknown
}
