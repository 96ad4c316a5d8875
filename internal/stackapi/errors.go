package stackapi

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	notFoundMessageConstant                 = "record not found"
	unauthorizedMessageConstant             = "request not authorized"
	rateLimitedMessageConstant              = "rate limit exceeded"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	payloadEncodingErrorTemplateConstant    = "%s payload encoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	statusErrorTemplateConstant             = "unexpected status %d: %s"
	statusErrorWithoutBodyTemplateConstant  = "unexpected status %d"
)

// OperationName describes a named knowledge-base API call.
type OperationName string

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New(notFoundMessageConstant)
	// ErrUnauthorized indicates the credentials were rejected.
	ErrUnauthorized = errors.New(unauthorizedMessageConstant)
	// ErrRateLimited indicates the knowledge base throttled the caller.
	ErrRateLimited = errors.New(rateLimitedMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// StatusError reports a non-successful HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error describes the status failure.
func (statusError StatusError) Error() string {
	if len(statusError.Body) == 0 {
		return fmt.Sprintf(statusErrorWithoutBodyTemplateConstant, statusError.StatusCode)
	}
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.StatusCode, statusError.Body)
}

// Is maps well-known statuses onto the package sentinels.
func (statusError StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return statusError.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return statusError.StatusCode == http.StatusUnauthorized || statusError.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return statusError.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// OperationError wraps failures of a knowledge-base operation.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// PayloadEncodingError indicates JSON encoding issues.
type PayloadEncodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the encoding failure.
func (encodingError PayloadEncodingError) Error() string {
	return fmt.Sprintf(payloadEncodingErrorTemplateConstant, encodingError.Operation, encodingError.Cause)
}

// Unwrap exposes the underlying error.
func (encodingError PayloadEncodingError) Unwrap() error {
	return encodingError.Cause
}
