package usecases

import (
	"context"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// UpdateChunksWithEmbeddings generates embeddings for any of the resource's
// chunks that don't yet have one, grounded on
// UpdateChunksWithEmbeddings.execute. It only ever operates on chunks
// missing an embedding, so it is safe to re-run after partial failure.
func UpdateChunksWithEmbeddings(ctx context.Context, reg *registry.Registry, resourceID string) error {
	resource, err := reg.Resource.Get(ctx, resourceID)
	if err != nil {
		return err
	}
	if resource.Status.AtLeast(domain.ResourceEmbedded) {
		return nil
	}
	if resource.Status != domain.ResourceChunked {
		return nil
	}

	chunks, err := reg.Graph.ChunksMissingEmbeddings(ctx, resourceID)
	if err != nil {
		return domain.NewTransient("list chunks missing embeddings", err)
	}
	for _, chunk := range chunks {
		embedding, err := reg.LLM.Embed(ctx, chunk.Extract)
		if err != nil {
			return domain.NewTransient("embed chunk", err)
		}
		if err := reg.Graph.UpdateChunkEmbedding(ctx, chunk.ID, embedding); err != nil {
			return domain.NewTransient("update chunk embedding", err)
		}
	}

	resource.Status = domain.ResourceEmbedded
	ok, err := reg.Resource.UpdateIfStatus(ctx, resource, domain.ResourceChunked)
	if err != nil {
		return domain.NewTransient("persist embedded status", err)
	}
	if !ok {
		return nil
	}
	if err := reg.Dispatch.Enqueue(ctx, StageVentilateResource, resourceID); err != nil {
		return domain.NewTransient("enqueue ventilate stage", err)
	}
	return nil
}
