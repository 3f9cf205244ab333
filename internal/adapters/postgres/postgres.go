// Package postgres implements the relational-store ports against
// PostgreSQL via pgx, grounded on the teacher's persistence/databases
// bootstrap-DDL style (CREATE TABLE IF NOT EXISTS executed once at
// construction rather than through a migration tool).
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Bootstrap creates every table the relational stores need, idempotently.
// It is called once at startup after the pool is opened.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  resource_type_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
  organisation_id TEXT NOT NULL DEFAULT '',
  user_id TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS resource_types (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  tooltip TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS collections (
  id TEXT PRIMARY KEY,
  subscription_id TEXT NOT NULL REFERENCES subscriptions(id),
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  resource_type_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS collections_subscription_idx ON collections(subscription_id);
CREATE UNIQUE INDEX IF NOT EXISTS collections_subscription_name_idx ON collections(subscription_id, name);

CREATE TABLE IF NOT EXISTS resources (
  id TEXT PRIMARY KEY,
  collection_id TEXT NOT NULL REFERENCES collections(id),
  resource_type_id TEXT NOT NULL,
  name TEXT NOT NULL,
  file_name TEXT NOT NULL DEFAULT '',
  file_type TEXT NOT NULL DEFAULT '',
  file BYTEA,
  markdown_content TEXT NOT NULL DEFAULT '',
  callback_urls JSONB NOT NULL DEFAULT '[]'::jsonb,
  status TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS resources_collection_idx ON resources(collection_id);

CREATE TABLE IF NOT EXISTS search_requests (
  id TEXT PRIMARY KEY,
  collection_id TEXT NOT NULL,
  query TEXT NOT NULL,
  resource_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
  filters JSONB NOT NULL DEFAULT '{}'::jsonb,
  callback_urls JSONB NOT NULL DEFAULT '[]'::jsonb,
  status TEXT NOT NULL,
  embedding JSONB NOT NULL DEFAULT '[]'::jsonb,
  prompt TEXT NOT NULL DEFAULT '',
  response TEXT NOT NULL DEFAULT '',
  credential_url TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  deadline TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS search_results (
  id TEXT PRIMARY KEY,
  search_id TEXT NOT NULL REFERENCES search_requests(id),
  chunk_id TEXT NOT NULL,
  content TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS search_results_search_idx ON search_results(search_id);
`)
	return err
}
