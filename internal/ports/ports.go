// Package ports declares the capability contracts the use-case layer
// consumes. Every external system (relational store, graph store,
// language model, antivirus scanner, object store, HTTP callbacks, task
// dispatch) is reached only through one of these interfaces; the core
// never depends on a concrete implementation.
package ports

import (
	"context"

	"knowledgeservice/internal/domain"
)

// TaskDispatch enqueues the next pipeline stage for a resource or search.
// Delivery is at-least-once; ordering per (stage, id) is not guaranteed.
type TaskDispatch interface {
	Enqueue(ctx context.Context, stage string, resourceID string) error
	EnqueueSearchStage(ctx context.Context, stage string, searchID string) error
}

// SubscriptionStore is the relational CRUD surface for subscriptions.
type SubscriptionStore interface {
	Create(ctx context.Context, s domain.Subscription) (domain.Subscription, error)
	Get(ctx context.Context, id string) (domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// CollectionStore is the relational CRUD surface for collections.
type CollectionStore interface {
	Create(ctx context.Context, c domain.Collection) (domain.Collection, error)
	Get(ctx context.Context, id string) (domain.Collection, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.Collection, error)
	ExistsByName(ctx context.Context, subscriptionID, name string) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteBySubscription(ctx context.Context, subscriptionID string) error
}

// ResourceTypeStore is the relational CRUD surface for resource types.
type ResourceTypeStore interface {
	Create(ctx context.Context, rt domain.ResourceType) (domain.ResourceType, error)
	Get(ctx context.Context, id string) (domain.ResourceType, error)
	List(ctx context.Context) ([]domain.ResourceType, error)
}

// ResourceStore is the relational CRUD surface for resources, plus the
// pipeline-facing helpers the use cases need.
type ResourceStore interface {
	Create(ctx context.Context, r domain.Resource) (domain.Resource, error)
	Get(ctx context.Context, id string) (domain.Resource, error)
	ListByCollection(ctx context.Context, collectionID string) ([]domain.Resource, error)
	CountByCollection(ctx context.Context, collectionID string) (int, error)
	SetFileType(ctx context.Context, id, fileType string) error
	// UpdateIfStatus writes the resource's mutable fields back, but only when the
	// current stored status equals expectedStatus — this is the
	// read-modify-write guard stages use to tolerate duplicate delivery.
	UpdateIfStatus(ctx context.Context, r domain.Resource, expectedStatus domain.ResourceStatus) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteByCollection(ctx context.Context, collectionID string) error
}

// SearchStore is the relational CRUD surface for search requests/results.
type SearchStore interface {
	Save(ctx context.Context, s domain.SearchRequest) (domain.SearchRequest, error)
	Get(ctx context.Context, id string) (domain.SearchRequest, error)
	UpdateIfStatus(ctx context.Context, s domain.SearchRequest, expectedStatus domain.SearchStatus) (bool, error)
	SaveResults(ctx context.Context, results []domain.SearchResult) error
	Results(ctx context.Context, searchID string) ([]domain.SearchResult, error)
}

// GraphNode is a minimal representation of a persisted graph node.
type GraphNode struct {
	ID     string
	Labels []string
	Props  map[string]any
}

// ChunkCandidate is a candidate chunk returned by the graph store's
// similarity search, already scored against a query embedding.
type ChunkCandidate struct {
	ChunkID    string
	ResourceID string
	Sequence   int
	Extract    string
	Score      float64
}

// GraphStore upserts the subscription/collection/resource/chunk node
// chain, computes similarity, and persists search provenance.
type GraphStore interface {
	UpsertSubscriptionNode(ctx context.Context, s domain.Subscription) error
	UpsertCollectionNode(ctx context.Context, c domain.Collection) error
	UpsertResourceNode(ctx context.Context, r domain.Resource) error
	SoftDeleteResourceNode(ctx context.Context, resourceID string) error

	CreateChunkNodes(ctx context.Context, resourceID string, chunks []domain.ResourceChunk) error
	ChunksMissingEmbeddings(ctx context.Context, resourceID string) ([]domain.ResourceChunk, error)
	UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error

	SaveSearchNode(ctx context.Context, s domain.SearchRequest) error
	StoreSearchEmbedding(ctx context.Context, searchID string, embedding []float32) error
	// RelatedChunks returns candidate chunks for a search honoring filters
	// and an optional resourceIDs scope, each already scored by cosine
	// similarity against the search's embedding.
	RelatedChunks(ctx context.Context, collectionID string, resourceIDs []string, filters map[string]string, queryEmbedding []float32, topK int) ([]ChunkCandidate, error)
	SaveSearchResults(ctx context.Context, searchID string, results []domain.SearchResult) error
	SaveSearchResponse(ctx context.Context, searchID string, prompt, response, credentialURL string) error
}

// FileManager abstracts MIME detection, format validation, and markdown
// extraction — delegated because file-format-specific extraction
// algorithms are explicitly out of scope (spec.md §1 Non-goals).
type FileManager interface {
	SupportedMIMETypes(ctx context.Context) ([]string, error)
	DetectMIME(ctx context.Context, fileName string, content []byte) (string, error)
	ValidateFormat(ctx context.Context, declaredMIME string, content []byte) (bool, error)
	ExtractMarkdown(ctx context.Context, mimeType string, content []byte) (string, error)
}

// ScanVerdict is the result of an antivirus scan.
type ScanVerdict string

const (
	ScanClean     ScanVerdict = "CLEAN"
	ScanInfected  ScanVerdict = "INFECTED"
	ScanError     ScanVerdict = "ERROR"
)

// AntivirusScanner scans a resource's raw bytes.
type AntivirusScanner interface {
	Scan(ctx context.Context, content []byte) (ScanVerdict, error)
}

// Quarantine moves a resource's bytes out of normal circulation.
type Quarantine interface {
	Quarantine(ctx context.Context, resourceID string, content []byte) error
	IsQuarantined(ctx context.Context, resourceID string) (bool, error)
}

// LanguageModel is the embedding, generation, and credential-issuance port.
type LanguageModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GenerateRAG(ctx context.Context, prompt string, contextChunks []string) (string, error)
	IssueCredential(ctx context.Context, searchID string) (string, error)
}

// Chunker splits a resource's extracted markdown into ordered chunks,
// strategy selected by the resource type.
type Chunker interface {
	Chunk(ctx context.Context, resourceType domain.ResourceType, resource domain.Resource) ([]domain.ResourceChunk, error)
}

// WebhookClient fans a JSON payload out to a set of callback URLs,
// deduplicating identical URLs within one invocation.
type WebhookClient interface {
	Fanout(ctx context.Context, urls []string, payload any) error
}
