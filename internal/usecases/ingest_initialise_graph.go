package usecases

import (
	"context"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// InitialiseResourceGraph creates the resource's node in the graph store,
// linking it to its collection and subscription, grounded on
// InitialiseResourceGraph.execute.
func InitialiseResourceGraph(ctx context.Context, reg *registry.Registry, resourceID string) error {
	resource, err := reg.Resource.Get(ctx, resourceID)
	if err != nil {
		return err
	}
	if resource.Status.AtLeast(domain.ResourceGraphed) {
		return nil
	}
	if resource.Status != domain.ResourceScanning {
		return nil
	}

	collection, err := reg.Collection.Get(ctx, resource.CollectionID)
	if err != nil {
		return err
	}
	if _, err := reg.Subscription.Get(ctx, collection.SubscriptionID); err != nil {
		return err
	}

	if err := reg.Graph.UpsertResourceNode(ctx, resource); err != nil {
		return domain.NewTransient("upsert resource node", err)
	}

	resource.Status = domain.ResourceGraphed
	ok, err := reg.Resource.UpdateIfStatus(ctx, resource, domain.ResourceScanning)
	if err != nil {
		return domain.NewTransient("persist graphed status", err)
	}
	if !ok {
		return nil
	}
	if err := reg.Dispatch.Enqueue(ctx, StageExtractPlainText, resourceID); err != nil {
		return domain.NewTransient("enqueue extract stage", err)
	}
	return nil
}
