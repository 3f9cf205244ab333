// Package testhelpers provides in-memory fakes for every port in
// internal/ports, grounded on the teacher's in-memory store style
// (objectstore.MemoryStore, playground's memory run store) generalized to
// the knowledge service's capability set so use-case and façade tests never
// need a real Postgres/Neo4j/LLM backend.
package testhelpers

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/ports"
)

// --- relational stores -----------------------------------------------------

// SubscriptionStore is an in-memory ports.SubscriptionStore.
type SubscriptionStore struct {
	mu   sync.Mutex
	rows map[string]domain.Subscription
}

func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{rows: map[string]domain.Subscription{}}
}

func (s *SubscriptionStore) Create(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[sub.ID] = sub
	return sub, nil
}

func (s *SubscriptionStore) Get(ctx context.Context, id string) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[id]
	if !ok {
		return domain.Subscription{}, domain.NewNotFound("subscription", id)
	}
	return sub, nil
}

func (s *SubscriptionStore) List(ctx context.Context) ([]domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Subscription, 0, len(s.rows))
	for _, sub := range s.rows {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *SubscriptionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return domain.NewNotFound("subscription", id)
	}
	delete(s.rows, id)
	return nil
}

// CollectionStore is an in-memory ports.CollectionStore.
type CollectionStore struct {
	mu   sync.Mutex
	rows map[string]domain.Collection
}

func NewCollectionStore() *CollectionStore {
	return &CollectionStore{rows: map[string]domain.Collection{}}
}

func (s *CollectionStore) Create(ctx context.Context, c domain.Collection) (domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[c.ID] = c
	return c, nil
}

func (s *CollectionStore) Get(ctx context.Context, id string) (domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return domain.Collection{}, domain.NewNotFound("collection", id)
	}
	return c, nil
}

func (s *CollectionStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Collection
	for _, c := range s.rows {
		if c.SubscriptionID == subscriptionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *CollectionStore) ExistsByName(ctx context.Context, subscriptionID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.rows {
		if c.SubscriptionID == subscriptionID && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *CollectionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *CollectionStore) DeleteBySubscription(ctx context.Context, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.rows {
		if c.SubscriptionID == subscriptionID {
			delete(s.rows, id)
		}
	}
	return nil
}

// ResourceTypeStore is an in-memory ports.ResourceTypeStore.
type ResourceTypeStore struct {
	mu   sync.Mutex
	rows map[string]domain.ResourceType
}

func NewResourceTypeStore() *ResourceTypeStore {
	return &ResourceTypeStore{rows: map[string]domain.ResourceType{}}
}

func (s *ResourceTypeStore) Create(ctx context.Context, rt domain.ResourceType) (domain.ResourceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rt.ID] = rt
	return rt, nil
}

func (s *ResourceTypeStore) Get(ctx context.Context, id string) (domain.ResourceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.rows[id]
	if !ok {
		return domain.ResourceType{}, domain.NewNotFound("resource_type", id)
	}
	return rt, nil
}

func (s *ResourceTypeStore) List(ctx context.Context) ([]domain.ResourceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ResourceType, 0, len(s.rows))
	for _, rt := range s.rows {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ResourceStore is an in-memory ports.ResourceStore.
type ResourceStore struct {
	mu   sync.Mutex
	rows map[string]domain.Resource
}

func NewResourceStore() *ResourceStore {
	return &ResourceStore{rows: map[string]domain.Resource{}}
}

func (s *ResourceStore) Create(ctx context.Context, r domain.Resource) (domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.ID] = r
	return r, nil
}

func (s *ResourceStore) Get(ctx context.Context, id string) (domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return domain.Resource{}, domain.NewNotFound("resource", id)
	}
	return r, nil
}

func (s *ResourceStore) ListByCollection(ctx context.Context, collectionID string) ([]domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Resource
	for _, r := range s.rows {
		if r.CollectionID == collectionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ResourceStore) CountByCollection(ctx context.Context, collectionID string) (int, error) {
	resources, _ := s.ListByCollection(ctx, collectionID)
	return len(resources), nil
}

func (s *ResourceStore) SetFileType(ctx context.Context, id, fileType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return domain.NewNotFound("resource", id)
	}
	r.FileType = fileType
	s.rows[id] = r
	return nil
}

func (s *ResourceStore) UpdateIfStatus(ctx context.Context, r domain.Resource, expectedStatus domain.ResourceStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rows[r.ID]
	if !ok {
		return false, domain.NewNotFound("resource", r.ID)
	}
	if current.Status != expectedStatus {
		return false, nil
	}
	s.rows[r.ID] = r
	return true, nil
}

func (s *ResourceStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *ResourceStore) DeleteByCollection(ctx context.Context, collectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.rows {
		if r.CollectionID == collectionID {
			delete(s.rows, id)
		}
	}
	return nil
}

// SearchStore is an in-memory ports.SearchStore.
type SearchStore struct {
	mu      sync.Mutex
	rows    map[string]domain.SearchRequest
	results map[string][]domain.SearchResult
}

func NewSearchStore() *SearchStore {
	return &SearchStore{rows: map[string]domain.SearchRequest{}, results: map[string][]domain.SearchResult{}}
}

func (s *SearchStore) Save(ctx context.Context, req domain.SearchRequest) (domain.SearchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[req.ID] = req
	return req, nil
}

func (s *SearchStore) Get(ctx context.Context, id string) (domain.SearchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return domain.SearchRequest{}, domain.NewNotFound("search", id)
	}
	return r, nil
}

func (s *SearchStore) UpdateIfStatus(ctx context.Context, req domain.SearchRequest, expectedStatus domain.SearchStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rows[req.ID]
	if !ok {
		return false, domain.NewNotFound("search", req.ID)
	}
	if current.Status != expectedStatus {
		return false, nil
	}
	s.rows[req.ID] = req
	return true, nil
}

func (s *SearchStore) SaveResults(ctx context.Context, results []domain.SearchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		s.results[r.SearchID] = append(s.results[r.SearchID], r)
	}
	return nil
}

func (s *SearchStore) Results(ctx context.Context, searchID string) ([]domain.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SearchResult(nil), s.results[searchID]...), nil
}

// --- graph store -------------------------------------------------------

// GraphStore is an in-memory ports.GraphStore that also stands in for the
// similarity backend: RelatedChunks computes cosine similarity directly
// over whatever chunks CreateChunkNodes was given, mirroring
// graph.Store.relatedChunksViaScan without a Neo4j dependency.
type GraphStore struct {
	mu             sync.Mutex
	deletedResource map[string]bool
	chunksByResource map[string][]domain.ResourceChunk
	searchEmbedding map[string][]float32
	searchResults   map[string][]domain.SearchResult
	searchResponse  map[string]struct{ Prompt, Response, CredentialURL string }
}

func NewGraphStore() *GraphStore {
	return &GraphStore{
		deletedResource:  map[string]bool{},
		chunksByResource: map[string][]domain.ResourceChunk{},
		searchEmbedding:  map[string][]float32{},
		searchResults:    map[string][]domain.SearchResult{},
		searchResponse:   map[string]struct{ Prompt, Response, CredentialURL string }{},
	}
}

func (g *GraphStore) UpsertSubscriptionNode(ctx context.Context, s domain.Subscription) error { return nil }
func (g *GraphStore) UpsertCollectionNode(ctx context.Context, c domain.Collection) error      { return nil }
func (g *GraphStore) UpsertResourceNode(ctx context.Context, r domain.Resource) error           { return nil }

func (g *GraphStore) SoftDeleteResourceNode(ctx context.Context, resourceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletedResource[resourceID] = true
	return nil
}

func (g *GraphStore) IsResourceDeleted(resourceID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deletedResource[resourceID]
}

func (g *GraphStore) CreateChunkNodes(ctx context.Context, resourceID string, chunks []domain.ResourceChunk) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.chunksByResource[resourceID]; exists {
		return nil // idempotent: chunking already ran for this resource
	}
	stored := make([]domain.ResourceChunk, len(chunks))
	copy(stored, chunks)
	g.chunksByResource[resourceID] = stored
	return nil
}

func (g *GraphStore) ChunksMissingEmbeddings(ctx context.Context, resourceID string) ([]domain.ResourceChunk, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []domain.ResourceChunk
	for _, c := range g.chunksByResource[resourceID] {
		if c.Embedding == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (g *GraphStore) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for resourceID, chunks := range g.chunksByResource {
		for i, c := range chunks {
			if c.ID == chunkID {
				chunks[i].Embedding = embedding
				g.chunksByResource[resourceID] = chunks
				return nil
			}
		}
	}
	return fmt.Errorf("chunk %s not found", chunkID)
}

func (g *GraphStore) SaveSearchNode(ctx context.Context, s domain.SearchRequest) error { return nil }

func (g *GraphStore) StoreSearchEmbedding(ctx context.Context, searchID string, embedding []float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchEmbedding[searchID] = embedding
	return nil
}

func (g *GraphStore) RelatedChunks(ctx context.Context, collectionID string, resourceIDs []string, filters map[string]string, queryEmbedding []float32, topK int) ([]ports.ChunkCandidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	allowed := make(map[string]struct{}, len(resourceIDs))
	for _, id := range resourceIDs {
		allowed[id] = struct{}{}
	}
	var out []ports.ChunkCandidate
	for resourceID, chunks := range g.chunksByResource {
		if g.deletedResource[resourceID] {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[resourceID]; !ok {
				continue
			}
		}
		for _, c := range chunks {
			if c.Embedding == nil {
				continue
			}
			if !matchesFilters(c.Metadata, filters) {
				continue
			}
			out = append(out, ports.ChunkCandidate{
				ChunkID:    c.ID,
				ResourceID: resourceID,
				Sequence:   c.Sequence,
				Extract:    c.Extract,
				Score:      cosine(queryEmbedding, c.Embedding),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ResourceID < out[j].ResourceID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func matchesFilters(metadata map[string]string, filters map[string]string) bool {
	for k, v := range filters {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func (g *GraphStore) SaveSearchResults(ctx context.Context, searchID string, results []domain.SearchResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchResults[searchID] = results
	return nil
}

func (g *GraphStore) SaveSearchResponse(ctx context.Context, searchID string, prompt, response, credentialURL string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchResponse[searchID] = struct{ Prompt, Response, CredentialURL string }{prompt, response, credentialURL}
	return nil
}

// --- peripheral ports --------------------------------------------------

// FileManager is an in-memory ports.FileManager: MIME detection keys off
// a file_name suffix and extraction returns the content verbatim as
// markdown, which is enough to drive chunking/embedding in tests without a
// real PDF/HTML pipeline.
type FileManager struct{}

func NewFileManager() FileManager { return FileManager{} }

func (FileManager) SupportedMIMETypes(ctx context.Context) ([]string, error) {
	return []string{"text/markdown", "text/plain"}, nil
}

func (FileManager) DetectMIME(ctx context.Context, fileName string, content []byte) (string, error) {
	if strings.HasSuffix(fileName, ".md") {
		return "text/markdown", nil
	}
	return "text/plain", nil
}

func (FileManager) ValidateFormat(ctx context.Context, declaredMIME string, content []byte) (bool, error) {
	return true, nil
}

func (FileManager) ExtractMarkdown(ctx context.Context, mimeType string, content []byte) (string, error) {
	return string(content), nil
}

// AntivirusScanner is an in-memory ports.AntivirusScanner. Content
// containing the literal "VIRUS" marker is reported infected, matching
// spec.md §8's seed scenario 2 fixture convention.
type AntivirusScanner struct{}

func NewAntivirusScanner() AntivirusScanner { return AntivirusScanner{} }

func (AntivirusScanner) Scan(ctx context.Context, content []byte) (ports.ScanVerdict, error) {
	if strings.Contains(string(content), "VIRUS") {
		return ports.ScanInfected, nil
	}
	return ports.ScanClean, nil
}

// Quarantine is an in-memory ports.Quarantine.
type Quarantine struct {
	mu   sync.Mutex
	held map[string][]byte
}

func NewQuarantine() *Quarantine { return &Quarantine{held: map[string][]byte{}} }

func (q *Quarantine) Quarantine(ctx context.Context, resourceID string, content []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.held[resourceID] = content
	return nil
}

func (q *Quarantine) IsQuarantined(ctx context.Context, resourceID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.held[resourceID]
	return ok, nil
}

// LanguageModel is an in-memory ports.LanguageModel. Embed is a
// deterministic hash-based vector (so repeated calls on the same text
// produce the same embedding, the determinism contract spec.md §8's
// re-issue law relies on); GenerateRAG echoes the prompt and the number of
// context chunks it was given, not the chunks' text.
type LanguageModel struct {
	mu          sync.Mutex
	credentials map[string]string
	nextCredID  int
}

func NewLanguageModel() *LanguageModel {
	return &LanguageModel{credentials: map[string]string{}}
}

func (m *LanguageModel) Embed(ctx context.Context, text string) ([]float32, error) {
	return hashEmbedding(text), nil
}

func (m *LanguageModel) GenerateRAG(ctx context.Context, prompt string, contextChunks []string) (string, error) {
	return "answer to " + prompt + " using " + fmt.Sprint(len(contextChunks)) + " chunks", nil
}

func (m *LanguageModel) IssueCredential(ctx context.Context, searchID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if url, ok := m.credentials[searchID]; ok {
		return url, nil
	}
	m.nextCredID++
	url := fmt.Sprintf("https://credentials.test/%d", m.nextCredID)
	m.credentials[searchID] = url
	return url, nil
}

// hashEmbedding derives a small deterministic vector from text so cosine
// similarity produces stable, distinguishable scores in tests without a
// real embedding model.
func hashEmbedding(text string) []float32 {
	const dims = 8
	vec := make([]float32, dims)
	for i, r := range text {
		vec[i%dims] += float32(r)
	}
	return vec
}

// Chunker is an in-memory ports.Chunker: one chunk per non-empty line,
// sequenced in document order.
type Chunker struct{}

func NewChunker() Chunker { return Chunker{} }

func (Chunker) Chunk(ctx context.Context, resourceType domain.ResourceType, resource domain.Resource) ([]domain.ResourceChunk, error) {
	lines := strings.Split(resource.MarkdownContent, "\n")
	var out []domain.ResourceChunk
	seq := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		out = append(out, domain.ResourceChunk{
			ID:         fmt.Sprintf("%s-chunk-%d", resource.ID, seq),
			ResourceID: resource.ID,
			Sequence:   seq,
			Text:       trimmed,
			Extract:    trimmed,
		})
		seq++
	}
	return out, nil
}

// WebhookClient is an in-memory ports.WebhookClient recording every
// delivered (url, payload) pair so tests can assert on fan-out dedup.
type WebhookClient struct {
	mu         sync.Mutex
	Deliveries []WebhookDelivery
}

type WebhookDelivery struct {
	URL     string
	Payload any
}

func NewWebhookClient() *WebhookClient { return &WebhookClient{} }

func (w *WebhookClient) Fanout(ctx context.Context, urls []string, payload any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		w.Deliveries = append(w.Deliveries, WebhookDelivery{URL: u, Payload: payload})
	}
	return nil
}

func (w *WebhookClient) DeliveriesFor(url string) []WebhookDelivery {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []WebhookDelivery
	for _, d := range w.Deliveries {
		if d.URL == url {
			out = append(out, d)
		}
	}
	return out
}
