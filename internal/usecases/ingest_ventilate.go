package usecases

import (
	"context"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// VentilateResourceProcessing marks the resource Ready and posts a callback
// to each of its webhook URLs, grounded on
// VentilateResourceProcessing.execute. Fan-out deduplicates identical URLs
// within the invocation, matching the original's note that a repeated
// identical callback should not be sent twice.
func VentilateResourceProcessing(ctx context.Context, reg *registry.Registry, resourceID string) error {
	resource, err := reg.Resource.Get(ctx, resourceID)
	if err != nil {
		return err
	}
	if resource.Status.IsTerminal() {
		return nil
	}
	if resource.Status != domain.ResourceEmbedded {
		return nil
	}

	resource.Status = domain.ResourceReady
	ok, err := reg.Resource.UpdateIfStatus(ctx, resource, domain.ResourceEmbedded)
	if err != nil {
		return domain.NewTransient("persist ready status", err)
	}
	if !ok {
		return nil
	}

	notifyResource(ctx, reg, resource, "resource processed, ready to query")
	return nil
}
