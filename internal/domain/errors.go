package domain

import "fmt"

// NotFoundError indicates a referenced entity does not exist. Terminal: no
// retry, no next stage enqueue, surfaced as HTTP 404.
type NotFoundError struct {
	Kind string // e.g. "resource", "collection", "subscription"
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }

func NewNotFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

// ValidationError indicates malformed input. Terminal, surfaced as HTTP 422.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// ConflictError indicates a uniqueness violation. Terminal, HTTP 409.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func NewConflict(reason string) error { return &ConflictError{Reason: reason} }

// VirusDetectedError is raised when the antivirus scanner classifies a
// resource's bytes as infected. Terminal; the resource is quarantined and
// the caller posts the quarantine notification to the resource's callback
// URLs directly, without enqueueing a separate notification stage.
type VirusDetectedError struct {
	ResourceID string
}

func (e *VirusDetectedError) Error() string {
	return fmt.Sprintf("virus detected in resource %q", e.ResourceID)
}

func NewVirusDetected(resourceID string) error { return &VirusDetectedError{ResourceID: resourceID} }

// InvalidFormatError is raised when the declared file format does not match
// its content (a failure of detection itself is a TransientError). Terminal;
// the caller posts the rejection notification to the resource's callback
// URLs directly, without enqueueing a separate notification stage.
type InvalidFormatError struct {
	ResourceID string
	Reason     string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid format for resource %q: %s", e.ResourceID, e.Reason)
}

func NewInvalidFormat(resourceID, reason string) error {
	return &InvalidFormatError{ResourceID: resourceID, Reason: reason}
}

// TransientError wraps a failure from a port (network, timeout, 5xx) that
// the dispatcher should retry up to its configured bound before declaring
// the entity Fatal.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("%s: %v (transient)", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

func NewTransient(op string, err error) error { return &TransientError{Op: op, Err: err} }

// InternalError indicates a broken invariant or programming error. Never
// retried, surfaced as HTTP 500.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string { return fmt.Sprintf("internal error: %s", e.Reason) }

func NewInternal(reason string) error { return &InternalError{Reason: reason} }
