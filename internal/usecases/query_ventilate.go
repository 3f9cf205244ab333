package usecases

import (
	"context"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// VentilateSearchResults marks the search request Ready and posts a callback
// to each of its webhook URLs, grounded on VentilateSearchResults.execute.
func VentilateSearchResults(ctx context.Context, reg *registry.Registry, searchID string) error {
	search, err := reg.Search.Get(ctx, searchID)
	if err != nil {
		return err
	}
	if search.Status.IsTerminal() {
		return nil
	}
	if search.Status != domain.SearchCredentialled {
		return nil
	}

	search.Status = domain.SearchReady
	ok, err := reg.Search.UpdateIfStatus(ctx, search, domain.SearchCredentialled)
	if err != nil {
		return domain.NewTransient("persist ready status", err)
	}
	if !ok {
		return nil
	}

	notifySearch(ctx, reg, search, "search ready")
	return nil
}

func notifySearch(ctx context.Context, reg *registry.Registry, search domain.SearchRequest, message string) {
	if len(search.CallbackURLs) == 0 {
		return
	}
	payload := searchPayload(search, message)
	if err := reg.Webhook.Fanout(ctx, search.CallbackURLs, payload); err != nil {
		// Best-effort: a failed notification must not re-run the pipeline stage.
		_ = err
	}
}
