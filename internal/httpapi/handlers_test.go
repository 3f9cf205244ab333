package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/httpapi"
	"knowledgeservice/internal/registry"
	"knowledgeservice/internal/testhelpers"
)

func newTestServer(t *testing.T) (*httpapi.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New(
		testhelpers.NewSynchronousDispatch(),
		testhelpers.NewSubscriptionStore(),
		testhelpers.NewCollectionStore(),
		testhelpers.NewResourceTypeStore(),
		testhelpers.NewResourceStore(),
		testhelpers.NewSearchStore(),
		testhelpers.NewGraphStore(),
		testhelpers.NewFileManager(),
		testhelpers.NewAntivirusScanner(),
		testhelpers.NewQuarantine(),
		testhelpers.NewLanguageModel(),
		testhelpers.NewChunker(),
		testhelpers.NewWebhookClient(),
	)
	return httpapi.NewServer(reg), reg
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target))
}

func TestCreateAndGetSubscription(t *testing.T) {
	srv, reg := newTestServer(t)
	ctx := context.Background()
	_, err := reg.ResourceType.Create(ctx, domain.ResourceType{ID: "rt-doc", Name: "document"})
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]any{"name": "acme", "resource_type_ids": []string{"rt-doc"}})
	req := httptest.NewRequest(http.MethodPost, "/subscriptions/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var sub domain.Subscription
	decodeJSON(t, rec, &sub)
	assert.NotEmpty(t, sub.ID)

	getReq := httptest.NewRequest(http.MethodGet, "/subscriptions/"+sub.ID, nil)
	getRec := httptest.NewRecorder()
	srv.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
}

func TestGetUnknownSubscriptionReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/subscriptions/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCollectionRejectsDisallowedResourceType(t *testing.T) {
	srv, reg := newTestServer(t)
	ctx := context.Background()
	_, err := reg.ResourceType.Create(ctx, domain.ResourceType{ID: "rt-doc", Name: "document"})
	require.NoError(t, err)
	_, err = reg.ResourceType.Create(ctx, domain.ResourceType{ID: "rt-code", Name: "code"})
	require.NoError(t, err)

	sub, err := reg.Subscription.Create(ctx, domain.Subscription{ID: "sub-1", Name: "acme", ResourceTypeIDs: []string{"rt-doc"}})
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]any{"name": "handbook", "resource_type_ids": []string{"rt-code"}})
	req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+sub.ID+"/collections", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUploadResourceAndListResources(t *testing.T) {
	srv, reg := newTestServer(t)
	ctx := context.Background()
	rt, err := reg.ResourceType.Create(ctx, domain.ResourceType{ID: "rt-doc", Name: "document"})
	require.NoError(t, err)
	sub, err := reg.Subscription.Create(ctx, domain.Subscription{ID: "sub-1", Name: "acme", ResourceTypeIDs: []string{rt.ID}})
	require.NoError(t, err)
	col, err := reg.Collection.Create(ctx, domain.Collection{ID: "col-1", SubscriptionID: sub.ID, Name: "handbook", ResourceTypeIDs: []string{rt.ID}})
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("new_resource", "vacation.md")
	require.NoError(t, err)
	_, err = part.Write([]byte("# Vacation\ntake time off\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("webhooks", "https://hooks.test/a"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/collections/"+col.ID+"/"+rt.ID, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/collections/"+col.ID+"/resources", nil)
	listRec := httptest.NewRecorder()
	srv.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var resources []domain.Resource
	decodeJSON(t, listRec, &resources)
	require.Len(t, resources, 1)
	assert.Equal(t, "vacation.md", resources[0].FileName)
}

func TestUploadResourceWithoutFileIsRejected(t *testing.T) {
	srv, reg := newTestServer(t)
	ctx := context.Background()
	rt, err := reg.ResourceType.Create(ctx, domain.ResourceType{ID: "rt-doc", Name: "document"})
	require.NoError(t, err)
	sub, err := reg.Subscription.Create(ctx, domain.Subscription{ID: "sub-1", Name: "acme", ResourceTypeIDs: []string{rt.ID}})
	require.NoError(t, err)
	col, err := reg.Collection.Create(ctx, domain.Collection{ID: "col-1", SubscriptionID: sub.ID, Name: "handbook", ResourceTypeIDs: []string{rt.ID}})
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/collections/"+col.ID+"/"+rt.ID, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestQueryResourceDefaultsScopeToItself(t *testing.T) {
	srv, reg := newTestServer(t)
	ctx := context.Background()
	rt, err := reg.ResourceType.Create(ctx, domain.ResourceType{ID: "rt-doc", Name: "document"})
	require.NoError(t, err)
	sub, err := reg.Subscription.Create(ctx, domain.Subscription{ID: "sub-1", Name: "acme", ResourceTypeIDs: []string{rt.ID}})
	require.NoError(t, err)
	col, err := reg.Collection.Create(ctx, domain.Collection{ID: "col-1", SubscriptionID: sub.ID, Name: "handbook", ResourceTypeIDs: []string{rt.ID}})
	require.NoError(t, err)
	resource, err := reg.Resource.Create(ctx, domain.Resource{ID: "res-1", CollectionID: col.ID, ResourceTypeID: rt.ID, Status: domain.ResourceReady})
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]any{"prompt": "what is the policy?"})
	req := httptest.NewRequest(http.MethodPost, "/resource/"+resource.ID+"/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SearchURL string `json:"search_url"`
	}
	decodeJSON(t, rec, &resp)
	assert.NotEmpty(t, resp.SearchURL)

	search, err := reg.Search.Get(ctx, strings.TrimPrefix(resp.SearchURL, "/query-results/"))
	require.NoError(t, err)
	assert.Equal(t, []string{resource.ID}, search.ResourceIDs)
}

func TestDeleteCollectionReturns404ForUnknown(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/collections/nope", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
