package upload

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ValidationError rejects a malformed request before any external call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StorageError wraps a failed object-store call. Transient failures may be
// retried by the caller; permanent ones (expired session, bad key) must not.
type StorageError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *StorageError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("storage %s: %s error: %v", e.Op, kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CatalogError wraps a relational-store failure.
type CatalogError struct {
	Op  string
	Err error
}

func (e *CatalogError) Error() string { return fmt.Sprintf("catalog %s: %v", e.Op, e.Err) }
func (e *CatalogError) Unwrap() error { return e.Err }

// classifyStorageError tags a store failure as transient or permanent.
// Client-fault API errors (invalid key, unknown upload, expired session)
// are permanent; server faults and plain network errors are transient.
func classifyStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	transient := true
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorFault() {
		case smithy.FaultClient:
			transient = false
		default:
			transient = true
		}
	}
	return &StorageError{Op: op, Transient: transient, Err: err}
}

// IsTransient reports whether err is a storage error worth retrying.
func IsTransient(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Transient
}

// NewTransientError builds a retryable storage error; used by callers that
// observe failures over HTTP rather than through the SDK.
func NewTransientError(op string, err error) error {
	return &StorageError{Op: op, Transient: true, Err: err}
}

// NewPermanentError builds a non-retryable storage error.
func NewPermanentError(op string, err error) error {
	return &StorageError{Op: op, Transient: false, Err: err}
}
