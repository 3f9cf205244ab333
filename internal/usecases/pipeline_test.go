package usecases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
	"knowledgeservice/internal/testhelpers"
	"knowledgeservice/internal/usecases"
)

// testEnv bundles a registry wired entirely to in-memory fakes plus the
// fakes whose state tests need to assert against directly.
type testEnv struct {
	reg        *registry.Registry
	dispatch   *testhelpers.SynchronousDispatch
	resources  *testhelpers.ResourceStore
	searches   *testhelpers.SearchStore
	graph      *testhelpers.GraphStore
	quarantine *testhelpers.Quarantine
	webhook    *testhelpers.WebhookClient
}

func newTestEnv() *testEnv {
	dispatch := testhelpers.NewSynchronousDispatch()
	resources := testhelpers.NewResourceStore()
	searches := testhelpers.NewSearchStore()
	graph := testhelpers.NewGraphStore()
	quarantine := testhelpers.NewQuarantine()
	webhook := testhelpers.NewWebhookClient()

	reg := registry.New(
		dispatch,
		testhelpers.NewSubscriptionStore(),
		testhelpers.NewCollectionStore(),
		testhelpers.NewResourceTypeStore(),
		resources,
		searches,
		graph,
		testhelpers.NewFileManager(),
		testhelpers.NewAntivirusScanner(),
		quarantine,
		testhelpers.NewLanguageModel(),
		testhelpers.NewChunker(),
		webhook,
	)

	return &testEnv{
		reg:        reg,
		dispatch:   dispatch,
		resources:  resources,
		searches:   searches,
		graph:      graph,
		quarantine: quarantine,
		webhook:    webhook,
	}
}

// handle dispatches one queued task to the matching use-case stage function,
// the test equivalent of the worker's stage-name lookup table.
func (e *testEnv) handle(t *testing.T, task testhelpers.Task) error {
	t.Helper()
	ctx := context.Background()
	if task.Kind == testhelpers.ResourceTask {
		switch task.Stage {
		case usecases.StageInitiateProcessing:
			return usecases.InitiateProcessing(ctx, e.reg, task.ID)
		case usecases.StageInitialiseResourceGraph:
			return usecases.InitialiseResourceGraph(ctx, e.reg, task.ID)
		case usecases.StageExtractPlainText:
			return usecases.ExtractPlainText(ctx, e.reg, task.ID)
		case usecases.StageChunkResourceText:
			return usecases.ChunkResourceText(ctx, e.reg, task.ID)
		case usecases.StageUpdateChunkEmbeddings:
			return usecases.UpdateChunksWithEmbeddings(ctx, e.reg, task.ID)
		case usecases.StageVentilateResource:
			return usecases.VentilateResourceProcessing(ctx, e.reg, task.ID)
		}
		t.Fatalf("unhandled resource stage %q", task.Stage)
	}
	switch task.Stage {
	case usecases.StageInitiateSearchRequest:
		return usecases.InitiateSearchRequest(ctx, e.reg, task.ID)
	case usecases.StageVectoriseSearchQuery:
		return usecases.VectoriseSearchQuery(ctx, e.reg, task.ID)
	case usecases.StageIdentifyRelatedContent:
		return usecases.IdentifyRelatedContent(ctx, e.reg, task.ID)
	case usecases.StageExecuteRagPrompt:
		return usecases.ExecuteRagPrompt(ctx, e.reg, task.ID)
	case usecases.StageIssueCredentials:
		return usecases.IssueCredentials(ctx, e.reg, task.ID)
	case usecases.StageVentilateSearch:
		return usecases.VentilateSearchResults(ctx, e.reg, task.ID)
	}
	t.Fatalf("unhandled search stage %q", task.Stage)
	return nil
}

func (e *testEnv) drainAll(t *testing.T) {
	t.Helper()
	_, err := e.dispatch.Drain(func(task testhelpers.Task) error {
		return e.handle(t, task)
	}, 100)
	require.NoError(t, err)
}

// seedCollection creates a subscription, a resource type the subscription
// allows, and a collection under it, returning their IDs.
func seedCollection(t *testing.T, e *testEnv) (subscriptionID, resourceTypeID, collectionID string) {
	t.Helper()
	ctx := context.Background()

	rt, err := e.reg.ResourceType.Create(ctx, domain.ResourceType{ID: "rt-doc", Name: "document"})
	require.NoError(t, err)

	sub, err := usecases.CreateSubscription(ctx, e.reg, "acme", []string{rt.ID})
	require.NoError(t, err)

	col, err := usecases.CreateCollection(ctx, e.reg, sub.ID, "handbook", "employee handbook", []string{rt.ID})
	require.NoError(t, err)

	return sub.ID, rt.ID, col.ID
}

func TestIngestHappyPath(t *testing.T) {
	e := newTestEnv()
	_, rtID, colID := seedCollection(t, e)
	ctx := context.Background()

	resource, err := usecases.CreateResource(ctx, e.reg, colID, rtID, "vacation policy", "vacation.md",
		[]byte("# Vacation\ntake time off\n"), []string{"https://hooks.test/a"})
	require.NoError(t, err)

	e.drainAll(t)

	final, err := e.reg.Resource.Get(ctx, resource.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceReady, final.Status)

	chunks, err := e.graph.ChunksMissingEmbeddings(ctx, resource.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks, "every chunk should have received an embedding")

	deliveries := e.webhook.DeliveriesFor("https://hooks.test/a")
	require.Len(t, deliveries, 1, "exactly one callback for the terminal ready status")
}

func TestIngestVirusQuarantine(t *testing.T) {
	e := newTestEnv()
	_, rtID, colID := seedCollection(t, e)
	ctx := context.Background()

	resource, err := usecases.CreateResource(ctx, e.reg, colID, rtID, "infected", "bad.md",
		[]byte("contains VIRUS marker"), []string{"https://hooks.test/q"})
	require.NoError(t, err)

	_, err = e.dispatch.Drain(func(task testhelpers.Task) error {
		return e.handle(t, task)
	}, 100)
	var virus *domain.VirusDetectedError
	require.ErrorAs(t, err, &virus, "the scan stage surfaces VirusDetected")

	final, err := e.reg.Resource.Get(ctx, resource.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceQuarantined, final.Status)
	assert.Nil(t, final.File, "quarantined resource bytes must be cleared")

	held, err := e.quarantine.IsQuarantined(ctx, resource.ID)
	require.NoError(t, err)
	assert.True(t, held)

	deliveries := e.webhook.DeliveriesFor("https://hooks.test/q")
	require.Len(t, deliveries, 1)
	assert.Equal(t, 0, e.dispatch.Len(), "no further stages enqueued after quarantine")
}

func TestChunkResourceTextIsIdempotent(t *testing.T) {
	e := newTestEnv()
	_, rtID, colID := seedCollection(t, e)
	ctx := context.Background()

	resource, err := usecases.CreateResource(ctx, e.reg, colID, rtID, "doc", "doc.md",
		[]byte("# Title\nline one\nline two\n"), nil)
	require.NoError(t, err)
	e.drainAll(t)

	before, err := e.graph.ChunksMissingEmbeddings(ctx, resource.ID)
	require.NoError(t, err)
	assert.Empty(t, before)

	// Re-running the chunk stage directly against an already-chunked resource
	// must not duplicate chunk nodes.
	require.NoError(t, usecases.ChunkResourceText(ctx, e.reg, resource.ID))
}

func TestSearchResultOrderingTieBreak(t *testing.T) {
	e := newTestEnv()
	_, rtID, colID := seedCollection(t, e)
	ctx := context.Background()

	resource, err := usecases.CreateResource(ctx, e.reg, colID, rtID, "doc", "doc.md",
		[]byte("alpha\nbravo\ncharlie\n"), nil)
	require.NoError(t, err)
	e.drainAll(t)

	search, err := usecases.CreateSearch(ctx, e.reg, colID, "alpha bravo charlie", nil, nil, nil, 0)
	require.NoError(t, err)
	e.drainAll(t)

	_, results, err := usecases.GetSearchResults(ctx, e.reg, search.ID)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score,
			"results must be ordered by descending score")
		if results[i-1].Score == results[i].Score {
			assert.Less(t, results[i-1].ChunkID, results[i].ChunkID,
				"equal scores must be ordered by ascending chunk sequence")
		}
	}

	final, err := usecases.GetSearchMetadata(ctx, e.reg, search.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SearchReady, final.Status)
	_ = resource
}

func TestSearchWithNoMatchingContentTerminatesReady(t *testing.T) {
	e := newTestEnv()
	_, _, colID := seedCollection(t, e)
	ctx := context.Background()

	search, err := usecases.CreateSearch(ctx, e.reg, colID, "anything", nil, nil, []string{"https://hooks.test/s"}, 0)
	require.NoError(t, err)
	e.drainAll(t)

	final, err := usecases.GetSearchMetadata(ctx, e.reg, search.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SearchReady, final.Status, "no candidate chunks terminates as ready, not failed")

	_, results, err := usecases.GetSearchResults(ctx, e.reg, search.ID)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.Len(t, e.webhook.DeliveriesFor("https://hooks.test/s"), 1)
}

func TestCreateSearchRejectsResourceOutsideCollection(t *testing.T) {
	e := newTestEnv()
	_, rtID, colID := seedCollection(t, e)
	ctx := context.Background()

	otherSub, err := usecases.CreateSubscription(ctx, e.reg, "other", []string{rtID})
	require.NoError(t, err)
	otherCol, err := usecases.CreateCollection(ctx, e.reg, otherSub.ID, "other-col", "", []string{rtID})
	require.NoError(t, err)
	foreignResource, err := usecases.CreateResource(ctx, e.reg, otherCol.ID, rtID, "foreign", "f.md", []byte("x"), nil)
	require.NoError(t, err)
	e.dispatch.Drain(func(testhelpers.Task) error { return nil }, 100) // drop its ingest tasks, irrelevant here

	_, err = usecases.CreateSearch(ctx, e.reg, colID, "query", []string{foreignResource.ID}, nil, nil, 0)
	require.Error(t, err)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestDeleteSubscriptionCascades(t *testing.T) {
	e := newTestEnv()
	subID, rtID, colID := seedCollection(t, e)
	ctx := context.Background()

	resource, err := usecases.CreateResource(ctx, e.reg, colID, rtID, "doc", "doc.md", []byte("x"), nil)
	require.NoError(t, err)
	e.dispatch.Drain(func(testhelpers.Task) error { return nil }, 100)

	require.NoError(t, usecases.DeleteSubscription(ctx, e.reg, subID))

	_, err = e.reg.Resource.Get(ctx, resource.ID)
	assert.Error(t, err)
	_, err = e.reg.Collection.Get(ctx, colID)
	assert.Error(t, err)
	assert.True(t, e.graph.IsResourceDeleted(resource.ID))
}

func TestWebhookFanoutDedupesRepeatedURL(t *testing.T) {
	e := newTestEnv()
	_, rtID, colID := seedCollection(t, e)
	ctx := context.Background()

	_, err := usecases.CreateResource(ctx, e.reg, colID, rtID, "doc", "doc.md", []byte("content"),
		[]string{"https://hooks.test/a", "https://hooks.test/b", "https://hooks.test/a"})
	require.NoError(t, err)
	e.drainAll(t)

	assert.Len(t, e.webhook.DeliveriesFor("https://hooks.test/a"), 1)
	assert.Len(t, e.webhook.DeliveriesFor("https://hooks.test/b"), 1)
}
