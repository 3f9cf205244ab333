package usecases

import (
	"context"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// ExecuteRagPrompt renders a prompt from the search request's query and its
// matched chunks, then asks the language model for a generative response,
// grounded on ExecuteTheRagPrompt.execute.
func ExecuteRagPrompt(ctx context.Context, reg *registry.Registry, searchID string) error {
	search, err := reg.Search.Get(ctx, searchID)
	if err != nil {
		return err
	}
	if search.Status.AtLeast(domain.SearchGenerated) {
		return nil
	}
	if search.Status != domain.SearchMatched {
		return nil
	}

	results, err := reg.Search.Results(ctx, searchID)
	if err != nil {
		return domain.NewTransient("load search results", err)
	}
	if len(results) == 0 {
		// IdentifyRelatedContent routes empty-result searches straight to
		// ready rather than enqueueing this stage; reaching here with no
		// results on a redelivered message is a no-op, not a failure.
		return nil
	}

	contextChunks := make([]string, 0, len(results))
	for _, r := range results {
		contextChunks = append(contextChunks, r.Content)
	}

	response, err := reg.LLM.GenerateRAG(ctx, search.Query, contextChunks)
	if err != nil {
		return domain.NewTransient("generate rag response", err)
	}

	search.Prompt = renderPrompt(search.Query, contextChunks)
	search.Response = response
	search.Status = domain.SearchGenerated
	ok, err := reg.Search.UpdateIfStatus(ctx, search, domain.SearchMatched)
	if err != nil {
		return domain.NewTransient("persist generated status", err)
	}
	if !ok {
		return nil
	}
	if err := reg.Graph.SaveSearchResponse(ctx, searchID, search.Prompt, search.Response, ""); err != nil {
		return domain.NewTransient("save search response to graph", err)
	}
	if err := reg.Dispatch.EnqueueSearchStage(ctx, StageIssueCredentials, searchID); err != nil {
		return domain.NewTransient("enqueue credentials stage", err)
	}
	return nil
}

func renderPrompt(query string, contextChunks []string) string {
	prompt := "Query: " + query + "\nContext:\n"
	for i, c := range contextChunks {
		if i > 0 {
			prompt += "\n"
		}
		prompt += c
	}
	return prompt
}
