// Package config loads runtime configuration for the server, worker, and
// operator CLI from environment variables, the way the teacher's
// internal/config package does, minus the YAML specialist-agent layer this
// service has no use for.
package config

// Config is the fully resolved, validated runtime configuration. It is built
// once by Load and passed by value into every command's startup path;
// nothing downstream mutates it.
type Config struct {
	LogPath  string
	LogLevel string

	HTTPAddr string

	Postgres  PostgresConfig
	Neo4j     Neo4jConfig
	Qdrant    QdrantConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	S3        S3Config
	Antivirus AntivirusConfig
	LLM       LLMConfig
	Webhook   WebhookConfig
	Obs       ObsConfig

	// IngestRetryLimit bounds how many times the dispatcher retries a
	// transient failure before dead-lettering the message. The resource or
	// search status is left as it was; nothing marks it Failed.
	IngestRetryLimit int
	// StageTimeoutSeconds bounds a single use-case invocation.
	StageTimeoutSeconds int
}

type PostgresConfig struct {
	DSN string
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
}

// QdrantConfig configures the optional Qdrant-backed similarity path the
// graph store delegates to when a DSN is set; without it the graph store
// scores chunks with an in-process cosine scan (spec's "alternate
// similarity backend").
type QdrantConfig struct {
	DSN        string
	Collection string
	Dimensions int
	Metric     string
}

type KafkaConfig struct {
	Brokers         string
	IngestTopic     string
	SearchTopic     string
	DeadLetterTopic string
	ConsumerGroupID string
}

// RedisConfig backs the idempotency/dedup layer guarding duplicate stage
// delivery. Duplicate webhook URLs within one fan-out are deduplicated in
// memory by the webhook package and do not use Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// AntivirusConfig selects the scanning backend; "stub" always returns Clean
// and exists for local development and tests.
type AntivirusConfig struct {
	Backend string
	Addr    string
}

type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string

	// EmbeddingModel and EmbeddingBaseURL target an OpenAI-compatible
	// /embeddings endpoint for the anthropic backend, which has no
	// embeddings API of its own. The openai backend ignores EmbeddingBaseURL
	// and embeds against its own BaseURL; the google backend ignores it too
	// and calls Gemini's native EmbedContent API with EmbeddingModel instead.
	EmbeddingModel   string
	EmbeddingBaseURL string

	CredentialSigningKey string
	CredentialTTLSeconds int
}

type WebhookConfig struct {
	MaxConcurrency int
	TimeoutSeconds int
	Retries        int
}

type ObsConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	MetricsAddr    string
}
