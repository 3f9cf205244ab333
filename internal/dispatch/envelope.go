// Package dispatch hands pipeline stages off between the HTTP façade, the
// worker, and itself, the way the teacher's internal/tools/kafka package
// wraps kafka-go, generalized from a single orchestrator-commands topic to
// the ingest and search stage topics.
package dispatch

import "time"

// Envelope is the wire message produced for every stage hand-off. Stage is
// the use case to invoke next; EntityID is a resource ID or search ID
// depending on which topic it travels on. Attempt starts at 0 and is
// incremented by the consumer on each retry so a dead-lettered message
// carries its own history.
type Envelope struct {
	CorrelationID string    `json:"correlation_id"`
	Stage         string    `json:"stage"`
	EntityID      string    `json:"entity_id"`
	Attempt       int       `json:"attempt"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}
