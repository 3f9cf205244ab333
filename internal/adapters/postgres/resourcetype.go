package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"knowledgeservice/internal/domain"
)

type resourceTypeStore struct{ pool *pgxpool.Pool }

// NewResourceTypeStore returns a Postgres-backed ports.ResourceTypeStore.
func NewResourceTypeStore(pool *pgxpool.Pool) *resourceTypeStore {
	return &resourceTypeStore{pool: pool}
}

func (s *resourceTypeStore) Create(ctx context.Context, rt domain.ResourceType) (domain.ResourceType, error) {
	_, err := s.pool.Exec(ctx, `
INSERT INTO resource_types(id, name, tooltip) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, tooltip=EXCLUDED.tooltip
`, rt.ID, rt.Name, rt.Tooltip)
	if err != nil {
		return domain.ResourceType{}, err
	}
	return rt, nil
}

func (s *resourceTypeStore) Get(ctx context.Context, id string) (domain.ResourceType, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, name, tooltip FROM resource_types WHERE id=$1`, id)
	var rt domain.ResourceType
	err := row.Scan(&rt.ID, &rt.Name, &rt.Tooltip)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ResourceType{}, domain.NewNotFound("resource_type", id)
	}
	if err != nil {
		return domain.ResourceType{}, err
	}
	return rt, nil
}

func (s *resourceTypeStore) List(ctx context.Context) ([]domain.ResourceType, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, tooltip FROM resource_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ResourceType
	for rows.Next() {
		var rt domain.ResourceType
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.Tooltip); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}
