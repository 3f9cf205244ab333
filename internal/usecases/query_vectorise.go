package usecases

import (
	"context"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// VectoriseSearchQuery embeds the search request's query text and stores the
// vector as a property of its graph node, grounded on
// VectoriseTheSearchQuery.execute.
func VectoriseSearchQuery(ctx context.Context, reg *registry.Registry, searchID string) error {
	search, err := reg.Search.Get(ctx, searchID)
	if err != nil {
		return err
	}
	if search.Status.AtLeast(domain.SearchVectorised) {
		return nil
	}
	if search.Status != domain.SearchPending {
		return nil
	}

	embedding, err := reg.LLM.Embed(ctx, search.Query)
	if err != nil {
		return domain.NewTransient("embed query", err)
	}
	if err := reg.Graph.StoreSearchEmbedding(ctx, searchID, embedding); err != nil {
		return domain.NewTransient("store search embedding", err)
	}

	search.Embedding = embedding
	search.Status = domain.SearchVectorised
	ok, err := reg.Search.UpdateIfStatus(ctx, search, domain.SearchPending)
	if err != nil {
		return domain.NewTransient("persist vectorised status", err)
	}
	if !ok {
		return nil
	}
	if err := reg.Dispatch.EnqueueSearchStage(ctx, StageIdentifyRelatedContent, searchID); err != nil {
		return domain.NewTransient("enqueue identify-related-content stage", err)
	}
	return nil
}
