package usecases

import (
	"context"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// IssueCredentials issues a verifiable credential for a generated search
// request through the language-model port and stores its URL on the
// search, grounded on IssueCredentials.execute. The port is given only the
// search ID; the prompt, response and evidence chunks are not passed to it.
func IssueCredentials(ctx context.Context, reg *registry.Registry, searchID string) error {
	search, err := reg.Search.Get(ctx, searchID)
	if err != nil {
		return err
	}
	if search.Status.AtLeast(domain.SearchCredentialled) {
		return nil
	}
	if search.Status != domain.SearchGenerated {
		return nil
	}

	credentialURL, err := reg.LLM.IssueCredential(ctx, searchID)
	if err != nil {
		return domain.NewTransient("issue credential", err)
	}

	search.CredentialURL = credentialURL
	search.Status = domain.SearchCredentialled
	ok, err := reg.Search.UpdateIfStatus(ctx, search, domain.SearchGenerated)
	if err != nil {
		return domain.NewTransient("persist credentialled status", err)
	}
	if !ok {
		return nil
	}
	if err := reg.Graph.SaveSearchResponse(ctx, searchID, search.Prompt, search.Response, credentialURL); err != nil {
		return domain.NewTransient("save credential reference", err)
	}
	if err := reg.Dispatch.EnqueueSearchStage(ctx, StageVentilateSearch, searchID); err != nil {
		return domain.NewTransient("enqueue ventilate-search stage", err)
	}
	return nil
}
