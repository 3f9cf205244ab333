package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the dispatcher needs, narrowed the
// way the teacher's kafka tool narrows its producer dependency to
// WriteMessages so it can be faked in tests.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaDispatch implements ports.TaskDispatch over two kafka-go writers, one
// per topic, since kafka.Writer is bound to a single topic for its lifetime.
type KafkaDispatch struct {
	ingest Writer
	search Writer
}

func NewKafkaDispatch(ingest, search Writer) *KafkaDispatch {
	return &KafkaDispatch{ingest: ingest, search: search}
}

// Enqueue hands a resource off to the next ingest-pipeline stage.
func (d *KafkaDispatch) Enqueue(ctx context.Context, stage string, resourceID string) error {
	return send(ctx, d.ingest, stage, resourceID)
}

// EnqueueSearchStage hands a search request off to the next query-pipeline stage.
func (d *KafkaDispatch) EnqueueSearchStage(ctx context.Context, stage string, searchID string) error {
	return send(ctx, d.search, stage, searchID)
}

func send(ctx context.Context, w Writer, stage, entityID string) error {
	env := Envelope{
		CorrelationID: uuid.New().String(),
		Stage:         stage,
		EntityID:      entityID,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(entityID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "stage", Value: []byte(stage)},
		},
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message for stage %q: %w", stage, err)
	}
	return nil
}
