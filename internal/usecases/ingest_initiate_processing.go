package usecases

import (
	"context"
	"fmt"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/ports"
	"knowledgeservice/internal/registry"
)

// InitiateProcessing performs the initial safety validation of a newly
// uploaded resource: virus scan, then MIME detection or format validation,
// grounded on InitiateProcessingOfNewResource.execute. A detected virus or
// an invalid format halts the pipeline at a terminal status; everything
// else advances to graph registration.
func InitiateProcessing(ctx context.Context, reg *registry.Registry, resourceID string) error {
	resource, err := reg.Resource.Get(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("initiate processing: %w", err)
	}
	if resource.Status != domain.ResourcePending {
		return nil // already advanced past this stage; tolerate redelivery
	}
	if len(resource.File) == 0 {
		return domain.NewValidation("file", "resource has no content to scan")
	}

	verdict, err := reg.Antivirus.Scan(ctx, resource.File)
	if err != nil {
		return domain.NewTransient("antivirus scan", err)
	}
	if verdict == ports.ScanInfected {
		if err := reg.Quarantine.Quarantine(ctx, resourceID, resource.File); err != nil {
			return domain.NewTransient("quarantine resource", err)
		}
		resource.File = nil
		resource.Status = domain.ResourceQuarantined
		resource.Error = "virus detected"
		if _, err := reg.Resource.UpdateIfStatus(ctx, resource, domain.ResourcePending); err != nil {
			return domain.NewTransient("persist quarantine", err)
		}
		notifyResource(ctx, reg, resource, "resource quarantined: virus detected")
		return domain.NewVirusDetected(resourceID)
	}

	if resource.FileType == "" {
		mimeType, err := reg.FileManager.DetectMIME(ctx, resource.FileName, resource.File)
		if err != nil {
			return domain.NewTransient("detect mime", err)
		}
		if err := reg.Resource.SetFileType(ctx, resourceID, mimeType); err != nil {
			return domain.NewTransient("set file type", err)
		}
		resource.FileType = mimeType
	} else {
		ok, err := reg.FileManager.ValidateFormat(ctx, resource.FileType, resource.File)
		if err != nil {
			return domain.NewTransient("validate format", err)
		}
		if !ok {
			resource.Status = domain.ResourceInvalidFormat
			resource.Error = fmt.Sprintf("declared type %q does not match content", resource.FileType)
			if _, err := reg.Resource.UpdateIfStatus(ctx, resource, domain.ResourcePending); err != nil {
				return domain.NewTransient("persist invalid format", err)
			}
			notifyResource(ctx, reg, resource, "resource rejected: invalid format")
			return domain.NewInvalidFormat(resourceID, resource.Error)
		}
	}

	resource.Status = domain.ResourceScanning
	ok, err := reg.Resource.UpdateIfStatus(ctx, resource, domain.ResourcePending)
	if err != nil {
		return domain.NewTransient("persist scanning status", err)
	}
	if !ok {
		return nil // concurrent delivery already advanced this resource
	}
	if err := reg.Dispatch.Enqueue(ctx, StageInitialiseResourceGraph, resourceID); err != nil {
		return domain.NewTransient("enqueue graph stage", err)
	}
	return nil
}

func notifyResource(ctx context.Context, reg *registry.Registry, resource domain.Resource, message string) {
	if len(resource.CallbackURLs) == 0 {
		return
	}
	payload := resourcePayload(resource, message)
	if err := reg.Webhook.Fanout(ctx, resource.CallbackURLs, payload); err != nil {
		// Best-effort: a failed notification must not re-run the pipeline stage.
		_ = err
	}
}
