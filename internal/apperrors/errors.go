package apperrors

import (
	"errors"
	"fmt"
)

// RetryableError indicates an error that might be resolved by retrying.
type RetryableError struct {
	Err error
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryable wraps the given error as a RetryableError, adding a message.
// It uses fmt.Errorf with %w to maintain the error chain.
func NewRetryable(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &RetryableError{Err: fmt.Errorf(format, allArgs...)}
}

// FatalError indicates an error that is unlikely to be resolved by retrying.
type FatalError struct {
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatal wraps the given error as a FatalError, adding a message.
// It uses fmt.Errorf with %w to maintain the error chain.
func NewFatal(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &FatalError{Err: fmt.Errorf(format, allArgs...)}
}

// --- Standard Error Definitions ---

// These sentinel errors define common application-level error conditions.
// They can be checked using errors.Is and potentially wrapped by RetryableError
// or FatalError depending on the context where they are handled.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates failure during data validation.
	ErrValidation = errors.New("validation failed")
	// ErrDatabase indicates a general database interaction error.
	ErrDatabase = errors.New("database error")
	// ErrNATS indicates a general NATS communication error.
	ErrNATS = errors.New("nats communication error")
	// ErrDuplicate indicates a conflict due to duplicate data (e.g., unique constraint).
	ErrDuplicate = errors.New("duplicate resource")
	// ErrConflict indicates a general conflict state (e.g., optimistic locking failure).
	ErrConflict = errors.New("resource conflict")
	// ErrBadRequest indicates a malformed or invalid request from the client/caller.
	ErrBadRequest = errors.New("bad request")
	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timeout")
	// ErrCollaborator indicates a failed call to an external collaborator service.
	ErrCollaborator = errors.New("collaborator request failed")
)

// --- Onboarding Pipeline Fault Definitions ---

// Faults below abort the whole post-crawl pipeline when returned from a
// stage. Per-item failures inside stage loops are logged and swallowed
// instead, so they never appear as one of these.
var (
	// ErrNotLinked indicates an operation that requires a linked tenant found none.
	ErrNotLinked = errors.New("onboarding has no tenant linked")
	// ErrCrawlStart indicates the crawler collaborator was unreachable or refused the crawl.
	ErrCrawlStart = errors.New("crawler failed to start")
	// ErrChannelConfig indicates channel app creation/configuration failed or was already done.
	ErrChannelConfig = errors.New("channel configuration failed")
	// ErrFileProcessing indicates the agent platform reported a terminal failure for an uploaded file.
	ErrFileProcessing = errors.New("content file processing failed")
	// ErrDataIntegrity indicates a broken storage invariant (e.g. multiple tenants
	// matching one account id). Never swallowed.
	ErrDataIntegrity = errors.New("data integrity fault")
)

// --- Helper functions for checking ---

// IsRetryable checks if the error is a RetryableError or wraps one.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// IsFatal checks if the error is a FatalError or wraps one.
func IsFatal(err error) bool {
	var target *FatalError
	return errors.As(err, &target)
}

// --- Specific Standard Error Checkers ---

// IsNotFoundError checks if the error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if the error is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDatabaseError checks if the error is or wraps ErrDatabase.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsDuplicateError checks if the error is or wraps ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsBadRequestError checks if the error is or wraps ErrBadRequest.
func IsBadRequestError(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsDataIntegrityError checks if the error is or wraps ErrDataIntegrity.
func IsDataIntegrityError(err error) bool {
	return errors.Is(err, ErrDataIntegrity)
}

// IsCrawlStartError checks if the error is or wraps ErrCrawlStart.
func IsCrawlStartError(err error) bool {
	return errors.Is(err, ErrCrawlStart)
}
