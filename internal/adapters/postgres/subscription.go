package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"knowledgeservice/internal/domain"
)

type subscriptionStore struct{ pool *pgxpool.Pool }

// NewSubscriptionStore returns a Postgres-backed ports.SubscriptionStore.
func NewSubscriptionStore(pool *pgxpool.Pool) *subscriptionStore {
	return &subscriptionStore{pool: pool}
}

func (s *subscriptionStore) Create(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	_, err := s.pool.Exec(ctx, `
INSERT INTO subscriptions(id, name, is_active, resource_type_ids, organisation_id, user_id)
VALUES ($1,$2,$3,$4,$5,$6)
`, sub.ID, sub.Name, sub.IsActive, sub.ResourceTypeIDs, sub.OrganisationID, sub.UserID)
	if err != nil {
		return domain.Subscription{}, err
	}
	return s.Get(ctx, sub.ID)
}

func (s *subscriptionStore) Get(ctx context.Context, id string) (domain.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, name, is_active, resource_type_ids, organisation_id, user_id, created_at, updated_at
FROM subscriptions WHERE id=$1
`, id)
	var sub domain.Subscription
	err := row.Scan(&sub.ID, &sub.Name, &sub.IsActive, &sub.ResourceTypeIDs, &sub.OrganisationID, &sub.UserID, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Subscription{}, domain.NewNotFound("subscription", id)
	}
	if err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

func (s *subscriptionStore) List(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, name, is_active, resource_type_ids, organisation_id, user_id, created_at, updated_at
FROM subscriptions ORDER BY created_at
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.IsActive, &sub.ResourceTypeIDs, &sub.OrganisationID, &sub.UserID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *subscriptionStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	return err
}
