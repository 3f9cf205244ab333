package usecases

import (
	"context"
	"sort"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/ports"
	"knowledgeservice/internal/registry"
)

// IdentifyRelatedContent compares the search request's query embedding
// against the candidate chunks its filters admit, ordering ties the way
// fusion.go's deterministic sort does: descending score, then ascending
// chunk sequence, then ascending resource ID, grounded on
// IdentifyRelatedContent.execute.
func IdentifyRelatedContent(ctx context.Context, reg *registry.Registry, searchID string) error {
	search, err := reg.Search.Get(ctx, searchID)
	if err != nil {
		return err
	}
	if search.Status.AtLeast(domain.SearchMatched) {
		return nil
	}
	if search.Status != domain.SearchVectorised {
		return nil
	}

	topK := search.MaxResults
	if topK <= 0 {
		topK = DefaultTopK
	}
	candidates, err := reg.Graph.RelatedChunks(ctx, search.CollectionID, search.ResourceIDs, search.Filters, search.Embedding, topK)
	if err != nil {
		return domain.NewTransient("related chunks", err)
	}

	sortCandidates(candidates)

	results := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, domain.SearchResult{
			SearchID: searchID,
			ChunkID:  c.ChunkID,
			Content:  c.Extract,
			Score:    c.Score,
		})
	}

	if err := reg.Graph.SaveSearchResults(ctx, searchID, results); err != nil {
		return domain.NewTransient("save search results to graph", err)
	}
	if err := reg.Search.SaveResults(ctx, results); err != nil {
		return domain.NewTransient("save search results", err)
	}

	// No candidate chunks is not an error: the search terminates as ready
	// with an empty result list rather than attempting to render a prompt
	// with no context (spec.md §8 boundary behaviors).
	if len(results) == 0 {
		search.Status = domain.SearchReady
		ok, err := reg.Search.UpdateIfStatus(ctx, search, domain.SearchVectorised)
		if err != nil {
			return domain.NewTransient("persist ready status", err)
		}
		if !ok {
			return nil
		}
		notifySearch(ctx, reg, search, "search ready: no relevant content found")
		return nil
	}

	search.Status = domain.SearchMatched
	ok, err := reg.Search.UpdateIfStatus(ctx, search, domain.SearchVectorised)
	if err != nil {
		return domain.NewTransient("persist matched status", err)
	}
	if !ok {
		return nil
	}
	if err := reg.Dispatch.EnqueueSearchStage(ctx, StageExecuteRagPrompt, searchID); err != nil {
		return domain.NewTransient("enqueue rag-prompt stage", err)
	}
	return nil
}

// DefaultTopK is the fallback result cap used when a search request does
// not specify QueryParameters.max_results (spec.md §4.2 tie-breaks).
const DefaultTopK = 16

func sortCandidates(candidates []ports.ChunkCandidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Sequence != candidates[j].Sequence {
			return candidates[i].Sequence < candidates[j].Sequence
		}
		return candidates[i].ResourceID < candidates[j].ResourceID
	})
}
