package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"knowledgeservice/internal/domain"
)

type resourceStore struct{ pool *pgxpool.Pool }

// NewResourceStore returns a Postgres-backed ports.ResourceStore.
func NewResourceStore(pool *pgxpool.Pool) *resourceStore {
	return &resourceStore{pool: pool}
}

func (s *resourceStore) Create(ctx context.Context, r domain.Resource) (domain.Resource, error) {
	_, err := s.pool.Exec(ctx, `
INSERT INTO resources(id, collection_id, resource_type_id, name, file_name, file_type, file, markdown_content, callback_urls, status, error)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, r.ID, r.CollectionID, r.ResourceTypeID, r.Name, r.FileName, r.FileType, r.File, r.MarkdownContent, r.CallbackURLs, string(r.Status), r.Error)
	if err != nil {
		return domain.Resource{}, err
	}
	return s.Get(ctx, r.ID)
}

func (s *resourceStore) Get(ctx context.Context, id string) (domain.Resource, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, collection_id, resource_type_id, name, file_name, file_type, file, markdown_content, callback_urls, status, error, created_at, updated_at
FROM resources WHERE id=$1
`, id)
	r, err := scanResource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Resource{}, domain.NewNotFound("resource", id)
	}
	return r, err
}

func (s *resourceStore) ListByCollection(ctx context.Context, collectionID string) ([]domain.Resource, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, collection_id, resource_type_id, name, file_name, file_type, file, markdown_content, callback_urls, status, error, created_at, updated_at
FROM resources WHERE collection_id=$1 ORDER BY created_at
`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *resourceStore) CountByCollection(ctx context.Context, collectionID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM resources WHERE collection_id=$1`, collectionID).Scan(&count)
	return count, err
}

func (s *resourceStore) SetFileType(ctx context.Context, id, fileType string) error {
	_, err := s.pool.Exec(ctx, `UPDATE resources SET file_type=$2, updated_at=NOW() WHERE id=$1`, id, fileType)
	return err
}

func (s *resourceStore) UpdateIfStatus(ctx context.Context, r domain.Resource, expectedStatus domain.ResourceStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE resources SET
  file_type=$3, file=$4, markdown_content=$5, status=$6, error=$7, updated_at=NOW()
WHERE id=$1 AND status=$2
`, r.ID, string(expectedStatus), r.FileType, r.File, r.MarkdownContent, string(r.Status), r.Error)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *resourceStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM resources WHERE id=$1`, id)
	return err
}

func (s *resourceStore) DeleteByCollection(ctx context.Context, collectionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM resources WHERE collection_id=$1`, collectionID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (domain.Resource, error) {
	var r domain.Resource
	var status string
	err := row.Scan(&r.ID, &r.CollectionID, &r.ResourceTypeID, &r.Name, &r.FileName, &r.FileType, &r.File, &r.MarkdownContent, &r.CallbackURLs, &status, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	r.Status = domain.ResourceStatus(status)
	return r, err
}
