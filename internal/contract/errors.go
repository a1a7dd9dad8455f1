package contract

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: network faults, 5xx
// responses and 429 throttling. After retries are exhausted the adapter
// degrades the affected repository instead of failing the scan.
type TransientError struct {
	Backend string
	Status  int // zero for transport-level failures
	Err     error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s backend transient failure (status %d): %v", e.Backend, e.Status, e.Err)
	}
	return fmt.Sprintf("%s backend transient failure: %v", e.Backend, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NotFoundError marks a resource the backend genuinely does not have (404).
// Not fatal: a repository absent from one backend is recorded as not present.
type NotFoundError struct {
	Backend string
	URL     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s backend has no resource at %s", e.Backend, e.URL)
}

// AuthorizationError marks rejected credentials (401, 403). Always fatal:
// retrying cannot help and every further call would fail the same way.
type AuthorizationError struct {
	Backend string
	Status  int
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s backend rejected credentials (status %d)", e.Backend, e.Status)
}

// ConfigurationError marks invalid or missing configuration detected before
// or during a scan. Always fatal.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration field %q: %s", e.Field, e.Reason)
}

// CheckpointIOError marks a failed checkpoint read or write. Always fatal:
// scanning without durable progress risks double-processing on resume.
type CheckpointIOError struct {
	Op   string // "load", "save" or "clear"
	Path string
	Err  error
}

func (e *CheckpointIOError) Error() string {
	return fmt.Sprintf("checkpoint %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *CheckpointIOError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err (possibly wrapped) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsNotFound reports whether err (possibly wrapped) means the resource is
// absent from its backend.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsFatalScanError reports whether err must abort the scan after the current
// page is checkpointed.
func IsFatalScanError(err error) bool {
	var (
		authErr   *AuthorizationError
		configErr *ConfigurationError
		cpErr     *CheckpointIOError
	)
	return errors.As(err, &authErr) || errors.As(err, &configErr) || errors.As(err, &cpErr)
}
