package usecases

import (
	"context"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// InitiateSearchRequest loads the search request "as received" into the
// graph database, where the remaining query-pipeline stages operate,
// grounded on InitiateSearchRequest.execute.
func InitiateSearchRequest(ctx context.Context, reg *registry.Registry, searchID string) error {
	search, err := reg.Search.Get(ctx, searchID)
	if err != nil {
		return err
	}
	if search.Status != domain.SearchPending {
		return nil
	}

	if err := reg.Graph.SaveSearchNode(ctx, search); err != nil {
		return domain.NewTransient("save search node", err)
	}
	if err := reg.Dispatch.EnqueueSearchStage(ctx, StageVectoriseSearchQuery, searchID); err != nil {
		return domain.NewTransient("enqueue vectorise stage", err)
	}
	return nil
}
