package dispatch

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Reader is the subset of *kafka.Reader the consumer loop needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Handler executes one pipeline stage for the entity named in an envelope.
type Handler func(ctx context.Context, stage, entityID string) error

// Consumer drains one topic, dispatching each envelope to handler and
// retrying transient failures with backoff before dead-lettering, the way
// worker.py's Celery tasks retried with `self.retry` before routing to the
// original's failure path.
type Consumer struct {
	reader     Reader
	deadLetter Writer
	retryWrite Writer // same writer as the topic being consumed, for requeued retries
	retryLimit int
	backoff    func(attempt int) time.Duration
	handler    Handler
	dedup      Deduper
	dedupTTL   time.Duration
}

func NewConsumer(reader Reader, retryWrite, deadLetter Writer, retryLimit int, handler Handler) *Consumer {
	return &Consumer{
		reader:     reader,
		deadLetter: deadLetter,
		retryWrite: retryWrite,
		retryLimit: retryLimit,
		handler:    handler,
		dedupTTL:   10 * time.Minute,
		backoff: func(attempt int) time.Duration {
			d := time.Duration(1<<attempt) * time.Second
			if d > 30*time.Second {
				d = 30 * time.Second
			}
			return d
		},
	}
}

// WithDeduper attaches a Deduper that makes redelivered envelopes a no-op
// instead of re-running a stage. Optional: a nil Deduper (the default)
// leaves idempotency entirely to each stage's UpdateIfStatus guard.
func (c *Consumer) WithDeduper(d Deduper) *Consumer {
	c.dedup = d
	return c
}

// Run drains the topic until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		log.Error().Err(err).Msg("dispatch: malformed envelope, dropping")
		_ = c.reader.CommitMessages(ctx, msg)
		return
	}

	logger := log.With().Str("stage", env.Stage).Str("entity_id", env.EntityID).Int("attempt", env.Attempt).Logger()

	if c.dedup != nil {
		// Keyed per attempt: a requeued retry keeps its CorrelationID and must
		// not be mistaken for a redelivery of the attempt that failed.
		seen, dedupErr := c.dedup.SeenRecently(ctx, env.CorrelationID+":"+strconv.Itoa(env.Attempt), c.dedupTTL)
		if dedupErr != nil {
			logger.Warn().Err(dedupErr).Msg("dispatch: dedup check failed, processing anyway")
		} else if seen {
			logger.Debug().Msg("dispatch: duplicate delivery skipped")
			_ = c.reader.CommitMessages(ctx, msg)
			return
		}
	}

	err := c.handler(ctx, env.Stage, env.EntityID)
	switch {
	case err == nil:
		logger.Debug().Msg("dispatch: stage completed")
	case Classify(err) == ClassTerminal:
		logger.Info().Err(err).Msg("dispatch: stage reached terminal state")
	case Classify(err) == ClassRetry && env.Attempt < c.retryLimit:
		logger.Warn().Err(err).Msg("dispatch: transient failure, requeueing")
		c.requeue(ctx, env)
	default:
		logger.Error().Err(err).Msg("dispatch: fatal failure, dead-lettering")
		c.sendDeadLetter(ctx, env, err)
	}

	if commitErr := c.reader.CommitMessages(ctx, msg); commitErr != nil {
		log.Error().Err(commitErr).Msg("dispatch: commit failed")
	}
}

func (c *Consumer) requeue(ctx context.Context, env Envelope) {
	time.Sleep(c.backoff(env.Attempt))
	env.Attempt++
	payload, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("dispatch: marshal retry envelope")
		return
	}
	if err := c.retryWrite.WriteMessages(ctx, kafka.Message{Key: []byte(env.EntityID), Value: payload}); err != nil {
		log.Error().Err(err).Msg("dispatch: requeue write failed")
	}
}

func (c *Consumer) sendDeadLetter(ctx context.Context, env Envelope, cause error) {
	payload, err := json.Marshal(struct {
		Envelope
		Error string `json:"error"`
	}{env, cause.Error()})
	if err != nil {
		log.Error().Err(err).Msg("dispatch: marshal dead-letter envelope")
		return
	}
	if c.deadLetter == nil {
		return
	}
	if err := c.deadLetter.WriteMessages(ctx, kafka.Message{Key: []byte(env.EntityID), Value: payload}); err != nil {
		log.Error().Err(err).Msg("dispatch: dead-letter write failed")
	}
}
