package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables, optionally overlaid
// by a local .env file the way the teacher's loader does.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{}

	cfg.LogPath = strings.TrimSpace(os.Getenv("LOG_PATH"))
	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))

	cfg.Postgres.DSN = firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("POSTGRES_DSN"))

	cfg.Neo4j.URI = strings.TrimSpace(os.Getenv("NEO4J_URI"))
	cfg.Neo4j.Username = strings.TrimSpace(os.Getenv("NEO4J_USERNAME"))
	cfg.Neo4j.Password = strings.TrimSpace(os.Getenv("NEO4J_PASSWORD"))

	cfg.Qdrant.DSN = strings.TrimSpace(os.Getenv("QDRANT_DSN"))
	cfg.Qdrant.Collection = strings.TrimSpace(os.Getenv("QDRANT_COLLECTION"))
	cfg.Qdrant.Dimensions = intFromEnv("QDRANT_DIMENSIONS", 0)
	cfg.Qdrant.Metric = strings.TrimSpace(os.Getenv("QDRANT_METRIC"))

	cfg.Kafka.Brokers = firstNonEmpty(os.Getenv("KAFKA_BROKERS"), os.Getenv("KAFKA_BOOTSTRAP_SERVERS"))
	cfg.Kafka.IngestTopic = strings.TrimSpace(os.Getenv("KAFKA_INGEST_TOPIC"))
	cfg.Kafka.SearchTopic = strings.TrimSpace(os.Getenv("KAFKA_SEARCH_TOPIC"))
	cfg.Kafka.DeadLetterTopic = strings.TrimSpace(os.Getenv("KAFKA_DEAD_LETTER_TOPIC"))
	cfg.Kafka.ConsumerGroupID = strings.TrimSpace(os.Getenv("KAFKA_CONSUMER_GROUP"))

	cfg.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.Redis.Password = strings.TrimSpace(os.Getenv("REDIS_PASSWORD"))
	cfg.Redis.DB = intFromEnv("REDIS_DB", 0)

	cfg.S3.Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	cfg.S3.Region = strings.TrimSpace(os.Getenv("S3_REGION"))
	cfg.S3.Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET"))
	cfg.S3.AccessKey = strings.TrimSpace(os.Getenv("S3_ACCESS_KEY"))
	cfg.S3.SecretKey = strings.TrimSpace(os.Getenv("S3_SECRET_KEY"))
	if v := strings.TrimSpace(os.Getenv("S3_USE_PATH_STYLE")); v != "" {
		cfg.S3.UsePathStyle = truthy(v)
	}

	cfg.Antivirus.Backend = strings.TrimSpace(os.Getenv("ANTIVIRUS_BACKEND"))
	cfg.Antivirus.Addr = strings.TrimSpace(os.Getenv("ANTIVIRUS_ADDR"))

	cfg.LLM.Provider = strings.TrimSpace(os.Getenv("LLM_PROVIDER"))
	cfg.LLM.Model = strings.TrimSpace(os.Getenv("LLM_MODEL"))
	cfg.LLM.EmbeddingModel = strings.TrimSpace(os.Getenv("LLM_EMBEDDING_MODEL"))
	cfg.LLM.APIKey = firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("OPENAI_API_KEY"), os.Getenv("GOOGLE_LLM_API_KEY"))
	cfg.LLM.BaseURL = strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	cfg.LLM.EmbeddingBaseURL = firstNonEmpty(os.Getenv("LLM_EMBEDDING_BASE_URL"), "https://api.openai.com/v1")
	cfg.LLM.CredentialSigningKey = strings.TrimSpace(os.Getenv("CREDENTIAL_SIGNING_KEY"))
	cfg.LLM.CredentialTTLSeconds = intFromEnv("CREDENTIAL_TTL_SECONDS", 0)

	cfg.Webhook.MaxConcurrency = intFromEnv("WEBHOOK_MAX_CONCURRENCY", 0)
	cfg.Webhook.TimeoutSeconds = intFromEnv("WEBHOOK_TIMEOUT_SECONDS", 0)
	cfg.Webhook.Retries = intFromEnv("WEBHOOK_RETRIES", 0)

	cfg.Obs.ServiceName = strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME"))
	cfg.Obs.ServiceVersion = strings.TrimSpace(os.Getenv("SERVICE_VERSION"))
	cfg.Obs.Environment = strings.TrimSpace(os.Getenv("ENVIRONMENT"))
	cfg.Obs.OTLPEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	cfg.Obs.MetricsAddr = strings.TrimSpace(os.Getenv("METRICS_ADDR"))

	cfg.IngestRetryLimit = intFromEnv("INGEST_RETRY_LIMIT", 5)
	cfg.StageTimeoutSeconds = intFromEnv("STAGE_TIMEOUT_SECONDS", 30)

	applyDefaults(&cfg)

	if cfg.Postgres.DSN == "" {
		return Config{}, errors.New("DATABASE_URL is required (set in .env or environment)")
	}
	if cfg.Kafka.Brokers == "" {
		return Config{}, errors.New("KAFKA_BROKERS is required (set in .env or environment)")
	}
	if cfg.LLM.APIKey == "" {
		return Config{}, errors.New("LLM_API_KEY (or a provider-specific key) is required")
	}
	if cfg.LLM.CredentialSigningKey == "" {
		return Config{}, errors.New("CREDENTIAL_SIGNING_KEY is required")
	}
	switch cfg.LLM.Provider {
	case "anthropic", "openai", "google":
	default:
		return Config{}, fmt.Errorf("LLM_PROVIDER must be one of anthropic, openai, google (got %q)", cfg.LLM.Provider)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Kafka.IngestTopic == "" {
		cfg.Kafka.IngestTopic = "knowledgeservice.ingest"
	}
	if cfg.Kafka.SearchTopic == "" {
		cfg.Kafka.SearchTopic = "knowledgeservice.search"
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = "knowledgeservice.deadletter"
	}
	if cfg.Kafka.ConsumerGroupID == "" {
		cfg.Kafka.ConsumerGroupID = "knowledgeservice-worker"
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "resource_chunks"
	}
	if cfg.Qdrant.Dimensions == 0 {
		cfg.Qdrant.Dimensions = 1536
	}
	if cfg.Qdrant.Metric == "" {
		cfg.Qdrant.Metric = "cosine"
	}
	if cfg.Antivirus.Backend == "" {
		cfg.Antivirus.Backend = "stub"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "claude-sonnet-4-5"
	}
	if cfg.LLM.EmbeddingModel == "" {
		cfg.LLM.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.LLM.CredentialTTLSeconds == 0 {
		cfg.LLM.CredentialTTLSeconds = 900
	}
	if cfg.Webhook.MaxConcurrency == 0 {
		cfg.Webhook.MaxConcurrency = 8
	}
	if cfg.Webhook.TimeoutSeconds == 0 {
		cfg.Webhook.TimeoutSeconds = 10
	}
	if cfg.Webhook.Retries == 0 {
		cfg.Webhook.Retries = 3
	}
	if cfg.Obs.ServiceName == "" {
		cfg.Obs.ServiceName = "knowledgeservice"
	}
	if cfg.Obs.Environment == "" {
		cfg.Obs.Environment = "dev"
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func truthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
