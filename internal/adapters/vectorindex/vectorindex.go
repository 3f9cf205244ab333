// Package vectorindex wraps a Qdrant collection as an optional similarity
// accelerator for the graph store, grounded on the teacher's
// persistence/databases/qdrant_vector.go adapter. Qdrant only accepts UUID
// or integer point IDs, so non-UUID chunk IDs are mapped to a deterministic
// UUIDv5 and the original ID is carried in the point's payload.
package vectorindex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const payloadIDField = "_original_id"

// Result is a scored hit from a similarity query.
type Result struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Index is a Qdrant-backed approximate nearest-neighbor index over chunk
// embeddings, keyed by chunk ID.
type Index struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     string
}

// New dials Qdrant over its gRPC port and ensures the target collection
// exists with the configured vector size and distance metric.
func New(dsn, collection string, dimensions int, metric string) (*Index, error) {
	if collection == "" {
		return nil, fmt.Errorf("vectorindex: collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: parse dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: invalid port: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: create client: %w", err)
	}
	idx := &Index{client: client, collection: collection, dimension: dimensions, metric: strings.ToLower(strings.TrimSpace(metric))}
	if err := idx.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) ensureCollection(ctx context.Context) error {
	exists, err := i.client.CollectionExists(ctx, i.collection)
	if err != nil {
		return fmt.Errorf("vectorindex: check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	var distance qdrant.Distance
	switch i.metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	case "manhattan":
		distance = qdrant.Distance_Manhattan
	default:
		distance = qdrant.Distance_Cosine
	}
	if i.dimension <= 0 {
		return fmt.Errorf("vectorindex: dimensions must be > 0")
	}
	return i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: i.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(i.dimension),
			Distance: distance,
		}),
	})
}

func pointID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

// Upsert indexes a chunk's embedding along with its filterable metadata.
func (i *Index) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	uuidStr := pointID(id)
	payload := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		payload[k] = v
	}
	if uuidStr != id {
		payload[payloadIDField] = id
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

// Search returns the k nearest points to vector, optionally constrained to
// an exact-match metadata filter. Callers scope beyond a single equality
// constraint (e.g. a set of allowed resource IDs) by over-fetching and
// filtering the results themselves.
func (i *Index) Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	var qf *qdrant.Filter
	if len(filter) > 0 {
		must := make([]*qdrant.Condition, 0, len(filter))
		for k, v := range filter {
			must = append(must, qdrant.NewMatch(k, v))
		}
		qf = &qdrant.Filter{Must: must}
	}
	limit := uint64(k)
	hits, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         qf,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(hits))
	for _, hit := range hits {
		uuidStr := hit.Id.GetUuid()
		metadata := make(map[string]string)
		var originalID string
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				if k == payloadIDField {
					originalID = v.GetStringValue()
					continue
				}
				metadata[k] = v.GetStringValue()
			}
		}
		id := originalID
		if id == "" {
			id = uuidStr
		}
		out = append(out, Result{ID: id, Score: float64(hit.Score), Metadata: metadata})
	}
	return out, nil
}

// Close releases the underlying gRPC connection.
func (i *Index) Close() error { return i.client.Close() }
