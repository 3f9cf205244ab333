package usecases

import (
	"context"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// ChunkResourceText splits the resource's extracted markdown into ordered
// chunks using the strategy its resource type selects, grounded on
// ChunkResourceText.execute.
func ChunkResourceText(ctx context.Context, reg *registry.Registry, resourceID string) error {
	resource, err := reg.Resource.Get(ctx, resourceID)
	if err != nil {
		return err
	}
	if resource.Status.AtLeast(domain.ResourceChunked) {
		return nil
	}
	if resource.Status != domain.ResourceExtracted || resource.MarkdownContent == "" {
		return domain.NewValidation("markdown_content", "resource has no extracted content to chunk")
	}

	resourceType, err := reg.ResourceType.Get(ctx, resource.ResourceTypeID)
	if err != nil {
		return err
	}

	chunks, err := reg.Chunker.Chunk(ctx, resourceType, resource)
	if err != nil {
		return domain.NewTransient("chunk resource", err)
	}

	if err := reg.Graph.CreateChunkNodes(ctx, resourceID, chunks); err != nil {
		return domain.NewTransient("create chunk nodes", err)
	}

	resource.Status = domain.ResourceChunked
	ok, err := reg.Resource.UpdateIfStatus(ctx, resource, domain.ResourceExtracted)
	if err != nil {
		return domain.NewTransient("persist chunked status", err)
	}
	if !ok {
		return nil
	}
	if err := reg.Dispatch.Enqueue(ctx, StageUpdateChunkEmbeddings, resourceID); err != nil {
		return domain.NewTransient("enqueue embeddings stage", err)
	}
	return nil
}
