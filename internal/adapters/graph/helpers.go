package graph

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"knowledgeservice/internal/domain"
)

// Neo4j has no native float32 list type; embeddings travel as []float64 on
// the wire and are narrowed back to float32 on the way out.
func float32SliceToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func float64SliceToFloat32(raw any) []float32 {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, len(list))
	for i, v := range list {
		if f, ok := v.(float64); ok {
			out[i] = float32(f)
		}
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func decodeMetadata(metadataJSON string) map[string]string {
	if metadataJSON == "" {
		return nil
	}
	var m map[string]string
	_ = json.Unmarshal([]byte(metadataJSON), &m)
	return m
}

// matchesFilters reports whether every key in filters is present in
// metadata with an equal value. A nil or empty filters set always matches.
func matchesFilters(metadata, filters map[string]string) bool {
	for k, v := range filters {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func chunkFromRecord(rec *neo4j.Record, resourceID string) domain.ResourceChunk {
	id, _ := rec.Get("id")
	sequence, _ := rec.Get("sequence")
	text, _ := rec.Get("text")
	extract, _ := rec.Get("extract")
	preamble, _ := rec.Get("preamble")
	postamble, _ := rec.Get("postamble")
	metadataJSON, _ := rec.Get("metadataJSON")
	return domain.ResourceChunk{
		ID:         toString(id),
		ResourceID: resourceID,
		Sequence:   toInt(sequence),
		Text:       toString(text),
		Extract:    toString(extract),
		Preamble:   toString(preamble),
		Postamble:  toString(postamble),
		Metadata:   decodeMetadata(toString(metadataJSON)),
	}
}
