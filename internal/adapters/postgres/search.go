package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"knowledgeservice/internal/domain"
)

type searchStore struct{ pool *pgxpool.Pool }

// NewSearchStore returns a Postgres-backed ports.SearchStore.
func NewSearchStore(pool *pgxpool.Pool) *searchStore {
	return &searchStore{pool: pool}
}

func (s *searchStore) Save(ctx context.Context, req domain.SearchRequest) (domain.SearchRequest, error) {
	_, err := s.pool.Exec(ctx, `
INSERT INTO search_requests(id, collection_id, query, resource_ids, filters, callback_urls, status, embedding, prompt, response, credential_url, error, deadline)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`, req.ID, req.CollectionID, req.Query, req.ResourceIDs, req.Filters, req.CallbackURLs, string(req.Status), embeddingJSON(req.Embedding), req.Prompt, req.Response, req.CredentialURL, req.Error, nullableTime(req.Deadline))
	if err != nil {
		return domain.SearchRequest{}, err
	}
	return s.Get(ctx, req.ID)
}

func (s *searchStore) Get(ctx context.Context, id string) (domain.SearchRequest, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, collection_id, query, resource_ids, filters, callback_urls, status, embedding, prompt, response, credential_url, error, created_at
FROM search_requests WHERE id=$1
`, id)
	var req domain.SearchRequest
	var status string
	var embedding []float32
	err := row.Scan(&req.ID, &req.CollectionID, &req.Query, &req.ResourceIDs, &req.Filters, &req.CallbackURLs, &status, &embedding, &req.Prompt, &req.Response, &req.CredentialURL, &req.Error, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SearchRequest{}, domain.NewNotFound("search", id)
	}
	if err != nil {
		return domain.SearchRequest{}, err
	}
	req.Status = domain.SearchStatus(status)
	req.Embedding = embedding
	return req, nil
}

func (s *searchStore) UpdateIfStatus(ctx context.Context, req domain.SearchRequest, expectedStatus domain.SearchStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE search_requests SET
  status=$3, embedding=$4, prompt=$5, response=$6, credential_url=$7, error=$8
WHERE id=$1 AND status=$2
`, req.ID, string(expectedStatus), string(req.Status), embeddingJSON(req.Embedding), req.Prompt, req.Response, req.CredentialURL, req.Error)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *searchStore) SaveResults(ctx context.Context, results []domain.SearchResult) error {
	for _, r := range results {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := s.pool.Exec(ctx, `
INSERT INTO search_results(id, search_id, chunk_id, content, score) VALUES ($1,$2,$3,$4,$5)
`, id, r.SearchID, r.ChunkID, r.Content, r.Score); err != nil {
			return err
		}
	}
	return nil
}

func (s *searchStore) Results(ctx context.Context, searchID string) ([]domain.SearchResult, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, search_id, chunk_id, content, score, created_at
FROM search_results WHERE search_id=$1 ORDER BY score DESC
`, searchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.ID, &r.SearchID, &r.ChunkID, &r.Content, &r.Score, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// embeddingJSON normalizes a nil embedding to an empty slice so the JSONB
// NOT NULL column is never handed a SQL NULL.
func embeddingJSON(e []float32) []float32 {
	if e == nil {
		return []float32{}
	}
	return e
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
