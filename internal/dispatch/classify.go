package dispatch

import (
	"errors"

	"knowledgeservice/internal/domain"
)

// RetryClass tells the consumer loop what to do with a stage handler's error.
type RetryClass int

const (
	// ClassTerminal means the entity has reached a definitive end state
	// (quarantined, invalid format, not found, validation failure) and the
	// message should be acknowledged without retry or dead-lettering.
	ClassTerminal RetryClass = iota
	// ClassRetry means the error is believed transient (network, timeout,
	// backend unavailable) and the message should be retried with backoff
	// up to the configured attempt limit.
	ClassRetry
	// ClassFatal means retries are exhausted or the error is a programming
	// error; the message is dead-lettered. The entity's stored status is
	// not changed: it stays at the status the failing stage found it in.
	ClassFatal
)

// Classify maps a use-case error onto a retry disposition. Unrecognized
// errors are treated as Fatal rather than retried indefinitely.
func Classify(err error) RetryClass {
	if err == nil {
		return ClassTerminal
	}
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var virus *domain.VirusDetectedError
	var invalidFormat *domain.InvalidFormatError
	var transient *domain.TransientError
	switch {
	case errors.As(err, &notFound), errors.As(err, &validation), errors.As(err, &conflict),
		errors.As(err, &virus), errors.As(err, &invalidFormat):
		return ClassTerminal
	case errors.As(err, &transient):
		return ClassRetry
	default:
		return ClassFatal
	}
}
