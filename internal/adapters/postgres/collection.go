package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"knowledgeservice/internal/domain"
)

type collectionStore struct{ pool *pgxpool.Pool }

// NewCollectionStore returns a Postgres-backed ports.CollectionStore.
func NewCollectionStore(pool *pgxpool.Pool) *collectionStore {
	return &collectionStore{pool: pool}
}

func (s *collectionStore) Create(ctx context.Context, c domain.Collection) (domain.Collection, error) {
	_, err := s.pool.Exec(ctx, `
INSERT INTO collections(id, subscription_id, name, description, resource_type_ids)
VALUES ($1,$2,$3,$4,$5)
`, c.ID, c.SubscriptionID, c.Name, c.Description, c.ResourceTypeIDs)
	if err != nil {
		return domain.Collection{}, err
	}
	return s.Get(ctx, c.ID)
}

func (s *collectionStore) Get(ctx context.Context, id string) (domain.Collection, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, subscription_id, name, description, resource_type_ids, created_at, updated_at
FROM collections WHERE id=$1
`, id)
	var c domain.Collection
	err := row.Scan(&c.ID, &c.SubscriptionID, &c.Name, &c.Description, &c.ResourceTypeIDs, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Collection{}, domain.NewNotFound("collection", id)
	}
	if err != nil {
		return domain.Collection{}, err
	}
	return c, nil
}

func (s *collectionStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.Collection, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, subscription_id, name, description, resource_type_ids, created_at, updated_at
FROM collections WHERE subscription_id=$1 ORDER BY created_at
`, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.SubscriptionID, &c.Name, &c.Description, &c.ResourceTypeIDs, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *collectionStore) ExistsByName(ctx context.Context, subscriptionID, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM collections WHERE subscription_id=$1 AND name=$2)
`, subscriptionID, name).Scan(&exists)
	return exists, err
}

func (s *collectionStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM collections WHERE id=$1`, id)
	return err
}

func (s *collectionStore) DeleteBySubscription(ctx context.Context, subscriptionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM collections WHERE subscription_id=$1`, subscriptionID)
	return err
}
