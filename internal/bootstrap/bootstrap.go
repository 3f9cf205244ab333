// Package bootstrap wires configuration into a live *registry.Registry plus
// the Kafka writers, readers, and connection pools the server and worker
// entrypoints both need, grounded on the teacher's
// persistence/databases/factory.go NewManager pattern, generalized from a
// backend-selection switch to the knowledge service's fixed capability set.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/segmentio/kafka-go"

	"knowledgeservice/internal/adapters/antivirus"
	"knowledgeservice/internal/adapters/chunker"
	"knowledgeservice/internal/adapters/filemanager"
	"knowledgeservice/internal/adapters/graph"
	llmfactory "knowledgeservice/internal/adapters/llm"
	"knowledgeservice/internal/adapters/postgres"
	"knowledgeservice/internal/adapters/quarantine"
	"knowledgeservice/internal/adapters/vectorindex"
	"knowledgeservice/internal/config"
	"knowledgeservice/internal/dispatch"
	"knowledgeservice/internal/observability"
	"knowledgeservice/internal/ports"
	"knowledgeservice/internal/registry"
	"knowledgeservice/internal/webhook"
)

// Runtime holds everything bootstrap constructed that the caller is
// responsible for closing or driving: the registry use cases run against,
// the Kafka readers a worker consumes, and a Close func releasing pooled
// connections.
type Runtime struct {
	Registry     *registry.Registry
	IngestReader *kafka.Reader
	SearchReader *kafka.Reader
	Deduper      dispatch.Deduper
	Metrics      *Metrics
	Close        func()
}

// Metrics is re-exported so callers don't need a second import for the
// handler returned alongside it.
type Metrics = observability.Metrics

// Build constructs every adapter cfg names and assembles them into a
// Registry. It is the single place server and worker entrypoints call into
// so the two processes can never drift in how they interpret config.
func Build(ctx context.Context, cfg config.Config) (*Runtime, http.Handler, error) {
	pgPool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := postgres.Bootstrap(ctx, pgPool); err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("bootstrap: postgres schema: %w", err)
	}

	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URI, neo4j.BasicAuth(cfg.Neo4j.Username, cfg.Neo4j.Password, ""))
	if err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("bootstrap: connect neo4j: %w", err)
	}

	var vectorIdx *vectorindex.Index
	if cfg.Qdrant.DSN != "" {
		vectorIdx, err = vectorindex.New(cfg.Qdrant.DSN, cfg.Qdrant.Collection, cfg.Qdrant.Dimensions, cfg.Qdrant.Metric)
		if err != nil {
			// Qdrant is an optional accelerator (spec's "alternate similarity
			// backend"); its absence falls back to the graph store's own
			// in-process cosine scan rather than failing startup.
			vectorIdx = nil
		}
	}
	graphStore := graph.NewStore(neo4jDriver, "", vectorIdx)

	ingestWriter := &kafka.Writer{Addr: kafka.TCP(splitBrokers(cfg.Kafka.Brokers)...), Topic: cfg.Kafka.IngestTopic, Balancer: &kafka.LeastBytes{}}
	searchWriter := &kafka.Writer{Addr: kafka.TCP(splitBrokers(cfg.Kafka.Brokers)...), Topic: cfg.Kafka.SearchTopic, Balancer: &kafka.LeastBytes{}}
	kafkaDispatch := dispatch.NewKafkaDispatch(ingestWriter, searchWriter)

	ingestReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: splitBrokers(cfg.Kafka.Brokers),
		Topic:   cfg.Kafka.IngestTopic,
		GroupID: cfg.Kafka.ConsumerGroupID,
	})
	searchReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: splitBrokers(cfg.Kafka.Brokers),
		Topic:   cfg.Kafka.SearchTopic,
		GroupID: cfg.Kafka.ConsumerGroupID,
	})

	var deduper dispatch.Deduper
	var closeDeduper func()
	if cfg.Redis.Addr != "" {
		redisDeduper, err := dispatch.NewRedisDeduper(cfg.Redis.Addr)
		if err != nil {
			// Dedup is a best-effort guard against duplicate delivery; each
			// stage's UpdateIfStatus already makes redelivery safe, so a
			// Redis outage shouldn't block startup.
			redisDeduper = nil
		} else {
			deduper = redisDeduper
			closeDeduper = func() { _ = redisDeduper.Close() }
		}
	}

	var antivirusScanner ports.AntivirusScanner = antivirus.NewStub()
	if cfg.Antivirus.Backend == "clamav" {
		antivirusScanner = antivirus.NewClamAV(cfg.Antivirus.Addr)
	}

	s3Quarantine, err := quarantine.New(ctx, cfg.S3)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: quarantine store: %w", err)
	}

	httpClient := observability.NewHTTPClient(&http.Client{Timeout: 60 * time.Second})
	languageModel, err := llmfactory.Build(cfg.LLM, httpClient)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: language model: %w", err)
	}

	webhookClient := webhook.NewClient(
		observability.NewHTTPClient(&http.Client{Timeout: time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second}),
		cfg.Webhook.MaxConcurrency,
		time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second,
		cfg.Webhook.Retries,
	)

	metrics, metricsHandler := observability.NewMetrics()

	reg := registry.New(
		kafkaDispatch,
		postgres.NewSubscriptionStore(pgPool),
		postgres.NewCollectionStore(pgPool),
		postgres.NewResourceTypeStore(pgPool),
		postgres.NewResourceStore(pgPool),
		postgres.NewSearchStore(pgPool),
		graphStore,
		filemanager.New(""),
		antivirusScanner,
		s3Quarantine,
		languageModel,
		chunker.New(),
		webhookClient,
	)

	closeFn := func() {
		pgPool.Close()
		_ = neo4jDriver.Close(context.Background())
		_ = ingestWriter.Close()
		_ = searchWriter.Close()
		_ = ingestReader.Close()
		_ = searchReader.Close()
		if closeDeduper != nil {
			closeDeduper()
		}
	}

	return &Runtime{
		Registry:     reg,
		IngestReader: ingestReader,
		SearchReader: searchReader,
		Deduper:      deduper,
		Metrics:      metrics,
		Close:        closeFn,
	}, metricsHandler, nil
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
