// Package graph implements ports.GraphStore against Neo4j, the property
// graph spec.md centers the ingest and query pipelines around. Chunk
// similarity is delegated to an optional vectorindex.Index (Qdrant); when
// none is configured, RelatedChunks falls back to computing cosine
// similarity over every embedded chunk in the collection in process.
package graph

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"knowledgeservice/internal/adapters/vectorindex"
	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/ports"
)

// Store is a Neo4j-backed ports.GraphStore.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	index    *vectorindex.Index // nil when no vector-index acceleration is configured
}

// NewStore wraps an already-open Neo4j driver. index may be nil.
func NewStore(driver neo4j.DriverWithContext, database string, index *vectorindex.Index) *Store {
	return &Store{driver: driver, database: database, index: index}
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func (s *Store) write(ctx context.Context, cypher string, params map[string]any) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, params)
	})
	return err
}

func (s *Store) UpsertSubscriptionNode(ctx context.Context, sub domain.Subscription) error {
	return s.write(ctx, `
MERGE (n:Subscription {id: $id})
SET n.name = $name, n.isActive = $isActive, n.organisationId = $organisationId
`, map[string]any{
		"id": sub.ID, "name": sub.Name, "isActive": sub.IsActive, "organisationId": sub.OrganisationID,
	})
}

func (s *Store) UpsertCollectionNode(ctx context.Context, c domain.Collection) error {
	return s.write(ctx, `
MATCH (sub:Subscription {id: $subscriptionId})
MERGE (col:Collection {id: $id})
SET col.name = $name, col.description = $description
MERGE (sub)-[:HAS_COLLECTION]->(col)
`, map[string]any{
		"subscriptionId": c.SubscriptionID, "id": c.ID, "name": c.Name, "description": c.Description,
	})
}

func (s *Store) UpsertResourceNode(ctx context.Context, r domain.Resource) error {
	return s.write(ctx, `
MATCH (col:Collection {id: $collectionId})
MERGE (res:Resource {id: $id})
SET res.name = $name, res.resourceTypeId = $resourceTypeId, res.fileType = $fileType,
    res.status = $status, res.deleted = coalesce(res.deleted, false)
MERGE (col)-[:HAS_RESOURCE]->(res)
`, map[string]any{
		"collectionId": r.CollectionID, "id": r.ID, "name": r.Name,
		"resourceTypeId": r.ResourceTypeID, "fileType": r.FileType, "status": string(r.Status),
	})
}

func (s *Store) SoftDeleteResourceNode(ctx context.Context, resourceID string) error {
	return s.write(ctx, `
MATCH (res:Resource {id: $id})
SET res.deleted = true, res.deletedAt = timestamp()
`, map[string]any{"id": resourceID})
}

func (s *Store) CreateChunkNodes(ctx context.Context, resourceID string, chunks []domain.ResourceChunk) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, c := range chunks {
			metadataJSON, err := json.Marshal(c.Metadata)
			if err != nil {
				return nil, err
			}
			if _, err := tx.Run(ctx, `
MATCH (res:Resource {id: $resourceId})
MERGE (ch:Chunk {id: $id})
SET ch.sequence = $sequence, ch.text = $text, ch.extract = $extract,
    ch.preamble = $preamble, ch.postamble = $postamble, ch.metadataJSON = $metadataJSON
MERGE (res)-[:HAS_CHUNK]->(ch)
`, map[string]any{
				"resourceId": resourceID, "id": c.ID, "sequence": c.Sequence, "text": c.Text,
				"extract": c.Extract, "preamble": c.Preamble, "postamble": c.Postamble,
				"metadataJSON": string(metadataJSON),
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *Store) ChunksMissingEmbeddings(ctx context.Context, resourceID string) ([]domain.ResourceChunk, error) {
	session := s.session(ctx)
	defer session.Close(ctx)
	result, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (res:Resource {id: $resourceId})-[:HAS_CHUNK]->(ch:Chunk)
WHERE ch.embedding IS NULL
RETURN ch.id AS id, ch.sequence AS sequence, ch.text AS text, ch.extract AS extract,
       ch.preamble AS preamble, ch.postamble AS postamble, ch.metadataJSON AS metadataJSON
ORDER BY ch.sequence
`, map[string]any{"resourceId": resourceID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]domain.ResourceChunk, 0, len(records))
		for _, rec := range records {
			out = append(out, chunkFromRecord(rec, resourceID))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.ResourceChunk), nil
}

func (s *Store) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	result, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (col:Collection)-[:HAS_RESOURCE]->(res:Resource)-[:HAS_CHUNK]->(ch:Chunk {id: $id})
SET ch.embedding = $embedding
RETURN res.id AS resourceId, col.id AS collectionId, ch.sequence AS sequence
`, map[string]any{"id": chunkID, "embedding": float32SliceToFloat64(embedding)})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return rec, nil
	})
	if err != nil {
		return err
	}
	if s.index == nil {
		return nil
	}
	rec := result.(*neo4j.Record)
	resourceID, _ := rec.Get("resourceId")
	collectionID, _ := rec.Get("collectionId")
	sequence, _ := rec.Get("sequence")
	return s.index.Upsert(ctx, chunkID, embedding, map[string]string{
		"resource_id":   toString(resourceID),
		"collection_id": toString(collectionID),
		"sequence":      toString(sequence),
	})
}

func (s *Store) SaveSearchNode(ctx context.Context, search domain.SearchRequest) error {
	return s.write(ctx, `
MERGE (s:Search {id: $id})
SET s.collectionId = $collectionId, s.query = $query, s.status = $status
`, map[string]any{"id": search.ID, "collectionId": search.CollectionID, "query": search.Query, "status": string(search.Status)})
}

func (s *Store) StoreSearchEmbedding(ctx context.Context, searchID string, embedding []float32) error {
	return s.write(ctx, `
MATCH (s:Search {id: $id})
SET s.embedding = $embedding
`, map[string]any{"id": searchID, "embedding": float32SliceToFloat64(embedding)})
}

// RelatedChunks scores candidate chunks against queryEmbedding, preferring
// the vector index when one is configured and falling back to an in-process
// cosine scan over the collection's embedded chunks otherwise.
func (s *Store) RelatedChunks(ctx context.Context, collectionID string, resourceIDs []string, filters map[string]string, queryEmbedding []float32, topK int) ([]ports.ChunkCandidate, error) {
	if s.index != nil {
		return s.relatedChunksViaIndex(ctx, collectionID, resourceIDs, filters, queryEmbedding, topK)
	}
	return s.relatedChunksViaScan(ctx, collectionID, resourceIDs, filters, queryEmbedding, topK)
}

func (s *Store) relatedChunksViaIndex(ctx context.Context, collectionID string, resourceIDs []string, filters map[string]string, queryEmbedding []float32, topK int) ([]ports.ChunkCandidate, error) {
	overfetch := topK * 4
	if overfetch < topK {
		overfetch = topK
	}
	hits, err := s.index.Search(ctx, queryEmbedding, overfetch, map[string]string{"collection_id": collectionID})
	if err != nil {
		return nil, err
	}
	resourceSet := toSet(resourceIDs)
	out := make([]ports.ChunkCandidate, 0, len(hits))
	for _, hit := range hits {
		if len(resourceSet) > 0 {
			if _, ok := resourceSet[hit.Metadata["resource_id"]]; !ok {
				continue
			}
		}
		if !matchesFilters(hit.Metadata, filters) {
			continue
		}
		seq, _ := strconv.Atoi(hit.Metadata["sequence"])
		out = append(out, ports.ChunkCandidate{
			ChunkID:    hit.ID,
			ResourceID: hit.Metadata["resource_id"],
			Sequence:   seq,
			Score:      hit.Score,
		})
		if len(out) >= topK {
			break
		}
	}
	return s.hydrateExtracts(ctx, out)
}

func (s *Store) relatedChunksViaScan(ctx context.Context, collectionID string, resourceIDs []string, filters map[string]string, queryEmbedding []float32, topK int) ([]ports.ChunkCandidate, error) {
	session := s.session(ctx)
	defer session.Close(ctx)
	result, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (col:Collection {id: $collectionId})-[:HAS_RESOURCE]->(res:Resource)-[:HAS_CHUNK]->(ch:Chunk)
WHERE ch.embedding IS NOT NULL AND coalesce(res.deleted, false) = false
  AND ($resourceIds = [] OR res.id IN $resourceIds)
RETURN res.id AS resourceId, ch.id AS id, ch.sequence AS sequence, ch.extract AS extract,
       ch.embedding AS embedding, ch.metadataJSON AS metadataJSON
`, map[string]any{"collectionId": collectionID, "resourceIds": resourceIDs})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records := result.([]*neo4j.Record)

	candidates := make([]ports.ChunkCandidate, 0, len(records))
	for _, rec := range records {
		metadataJSON, _ := rec.Get("metadataJSON")
		if !matchesFilters(decodeMetadata(toString(metadataJSON)), filters) {
			continue
		}
		embeddingRaw, _ := rec.Get("embedding")
		embedding := float64SliceToFloat32(embeddingRaw)
		seq, _ := rec.Get("sequence")
		extract, _ := rec.Get("extract")
		id, _ := rec.Get("id")
		resourceID, _ := rec.Get("resourceId")
		candidates = append(candidates, ports.ChunkCandidate{
			ChunkID:    toString(id),
			ResourceID: toString(resourceID),
			Sequence:   toInt(seq),
			Extract:    toString(extract),
			Score:      cosineSimilarity(queryEmbedding, embedding),
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// hydrateExtracts fills in each candidate's Extract text, which the vector
// index itself does not carry as payload.
func (s *Store) hydrateExtracts(ctx context.Context, candidates []ports.ChunkCandidate) ([]ports.ChunkCandidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ChunkID
	}
	session := s.session(ctx)
	defer session.Close(ctx)
	result, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (ch:Chunk) WHERE ch.id IN $ids
RETURN ch.id AS id, ch.extract AS extract
`, map[string]any{"ids": ids})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	extracts := make(map[string]string, len(candidates))
	for _, rec := range result.([]*neo4j.Record) {
		id, _ := rec.Get("id")
		extract, _ := rec.Get("extract")
		extracts[toString(id)] = toString(extract)
	}
	for i := range candidates {
		candidates[i].Extract = extracts[candidates[i].ChunkID]
	}
	return candidates, nil
}

func (s *Store) SaveSearchResults(ctx context.Context, searchID string, results []domain.SearchResult) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, r := range results {
			if _, err := tx.Run(ctx, `
MATCH (s:Search {id: $searchId})
MATCH (ch:Chunk {id: $chunkId})
MERGE (sr:SearchResult {id: $id})
SET sr.content = $content, sr.score = $score
MERGE (s)-[:HAS_RESULT]->(sr)
MERGE (sr)-[:FROM_CHUNK]->(ch)
`, map[string]any{
				"searchId": searchID, "chunkId": r.ChunkID, "id": r.SearchID + ":" + r.ChunkID,
				"content": r.Content, "score": r.Score,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *Store) SaveSearchResponse(ctx context.Context, searchID, prompt, response, credentialURL string) error {
	return s.write(ctx, `
MATCH (s:Search {id: $id})
SET s.prompt = $prompt, s.response = $response,
    s.credentialUrl = CASE WHEN $credentialUrl <> '' THEN $credentialUrl ELSE s.credentialUrl END
`, map[string]any{"id": searchID, "prompt": prompt, "response": response, "credentialUrl": credentialURL})
}
