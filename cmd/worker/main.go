// Command worker drains the ingest and search Kafka topics, invoking one
// pipeline stage per message and requeuing or dead-lettering failures,
// grounded on the teacher's agentd task-loop shape generalized from a
// single task queue to the two-topic ingest/search split dispatch.Consumer
// formalizes.
package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"knowledgeservice/internal/bootstrap"
	"knowledgeservice/internal/config"
	"knowledgeservice/internal/dispatch"
	"knowledgeservice/internal/observability"
	"knowledgeservice/internal/registry"
	"knowledgeservice/internal/usecases"
)

// stageHandlers maps every stage name to the use-case function it invokes,
// the worker's equivalent of worker.py's Celery task registry.
var stageHandlers = map[string]func(context.Context, *registry.Registry, string) error{
	usecases.StageInitiateProcessing:      usecases.InitiateProcessing,
	usecases.StageInitialiseResourceGraph: usecases.InitialiseResourceGraph,
	usecases.StageExtractPlainText:        usecases.ExtractPlainText,
	usecases.StageChunkResourceText:       usecases.ChunkResourceText,
	usecases.StageUpdateChunkEmbeddings:   usecases.UpdateChunksWithEmbeddings,
	usecases.StageVentilateResource:       usecases.VentilateResourceProcessing,

	usecases.StageInitiateSearchRequest:  usecases.InitiateSearchRequest,
	usecases.StageVectoriseSearchQuery:   usecases.VectoriseSearchQuery,
	usecases.StageIdentifyRelatedContent: usecases.IdentifyRelatedContent,
	usecases.StageExecuteRagPrompt:       usecases.ExecuteRagPrompt,
	usecases.StageIssueCredentials:       usecases.IssueCredentials,
	usecases.StageVentilateSearch:        usecases.VentilateSearchResults,
}

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.InitOTel(ctx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without tracing")
	} else {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	runtime, _, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("worker: bootstrap failed")
	}
	defer runtime.Close()

	handler := func(ctx context.Context, stage, entityID string) error {
		fn, ok := stageHandlers[stage]
		if !ok {
			log.Error().Str("stage", stage).Msg("worker: no handler registered for stage")
			return nil
		}
		if cfg.StageTimeoutSeconds > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.StageTimeoutSeconds)*time.Second)
			defer cancel()
		}
		start := time.Now()
		err := fn(ctx, runtime.Registry, entityID)
		outcome := "ok"
		if err != nil {
			outcome = string(classifyOutcome(err))
		}
		if runtime.Metrics != nil {
			runtime.Metrics.StageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
			runtime.Metrics.StageOutcomes.WithLabelValues(stage, outcome).Inc()
		}
		return err
	}

	deadLetterWriter := &kafka.Writer{
		Addr:     kafka.TCP(splitBrokers(cfg.Kafka.Brokers)...),
		Topic:    cfg.Kafka.DeadLetterTopic,
		Balancer: &kafka.LeastBytes{},
	}
	ingestRetryWriter := &kafka.Writer{
		Addr:     kafka.TCP(splitBrokers(cfg.Kafka.Brokers)...),
		Topic:    cfg.Kafka.IngestTopic,
		Balancer: &kafka.LeastBytes{},
	}
	searchRetryWriter := &kafka.Writer{
		Addr:     kafka.TCP(splitBrokers(cfg.Kafka.Brokers)...),
		Topic:    cfg.Kafka.SearchTopic,
		Balancer: &kafka.LeastBytes{},
	}
	defer deadLetterWriter.Close()
	defer ingestRetryWriter.Close()
	defer searchRetryWriter.Close()

	ingestConsumer := dispatch.NewConsumer(runtime.IngestReader, ingestRetryWriter, deadLetterWriter, cfg.IngestRetryLimit, handler).WithDeduper(runtime.Deduper)
	searchConsumer := dispatch.NewConsumer(runtime.SearchReader, searchRetryWriter, deadLetterWriter, cfg.IngestRetryLimit, handler).WithDeduper(runtime.Deduper)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := ingestConsumer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("worker: ingest consumer stopped")
		}
	}()
	go func() {
		defer wg.Done()
		if err := searchConsumer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("worker: search consumer stopped")
		}
	}()

	log.Info().Msg("worker: consuming ingest and search topics")
	wg.Wait()
}

type outcome string

func classifyOutcome(err error) outcome {
	switch dispatch.Classify(err) {
	case dispatch.ClassTerminal:
		return "terminal"
	case dispatch.ClassRetry:
		return "retry"
	default:
		return "fatal"
	}
}

func splitBrokers(brokers string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(brokers); i++ {
		if i == len(brokers) || brokers[i] == ',' {
			if i > start {
				out = append(out, brokers[start:i])
			}
			start = i + 1
		}
	}
	return out
}
