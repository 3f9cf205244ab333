package usecases

import (
	"context"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// ExtractPlainText generates a markdown rendering of the resource's raw
// bytes (PDF, HTML, audio transcript, etc.), grounded on
// ExtractPlainTextOfResource.execute. Already-extracted resources skip
// straight to dispatch, matching the original's idempotent re-run check.
func ExtractPlainText(ctx context.Context, reg *registry.Registry, resourceID string) error {
	resource, err := reg.Resource.Get(ctx, resourceID)
	if err != nil {
		return err
	}
	if resource.Status.AtLeast(domain.ResourceExtracted) {
		return nil
	}
	if resource.Status != domain.ResourceGraphed {
		return nil
	}

	if resource.MarkdownContent == "" {
		if resource.FileType == "" {
			return domain.NewValidation("file_type", "not determined for resource "+resourceID)
		}
		markdown, err := reg.FileManager.ExtractMarkdown(ctx, resource.FileType, resource.File)
		if err != nil {
			return domain.NewTransient("extract markdown", err)
		}
		resource.MarkdownContent = markdown
	}

	resource.Status = domain.ResourceExtracted
	ok, err := reg.Resource.UpdateIfStatus(ctx, resource, domain.ResourceGraphed)
	if err != nil {
		return domain.NewTransient("persist extracted status", err)
	}
	if !ok {
		return nil
	}
	if err := reg.Dispatch.Enqueue(ctx, StageChunkResourceText, resourceID); err != nil {
		return domain.NewTransient("enqueue chunk stage", err)
	}
	return nil
}
