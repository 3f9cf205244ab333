package webhook_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgeservice/internal/webhook"
)

func TestFanoutDedupesURLs(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := webhook.NewClient(server.Client(), 4, time.Second, 1)
	err := client.Fanout(context.Background(), []string{server.URL, server.URL, server.URL}, webhook.ResourcePayload{ResourceID: "r1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt64(&hits))
}

func TestFanoutRetriesFailingURL(t *testing.T) {
	var attempts int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := webhook.NewClient(server.Client(), 4, time.Second, 3)
	err := client.Fanout(context.Background(), []string{server.URL}, webhook.SearchPayload{SearchID: "s1"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt64(&attempts), "should succeed on the third attempt")
}

func TestFanoutFailsOnlyWhenEveryURLFails(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer good.Close()

	client := webhook.NewClient(bad.Client(), 4, 100*time.Millisecond, 1)
	err := client.Fanout(context.Background(), []string{bad.URL, good.URL}, webhook.ResourcePayload{ResourceID: "r2"})
	assert.NoError(t, err, "partial failure must not fail the whole fan-out")

	allBadClient := webhook.NewClient(bad.Client(), 4, 100*time.Millisecond, 1)
	err = allBadClient.Fanout(context.Background(), []string{bad.URL}, webhook.ResourcePayload{ResourceID: "r3"})
	assert.Error(t, err)
}

func TestFanoutEmptyURLsIsNoop(t *testing.T) {
	client := webhook.NewClient(http.DefaultClient, 4, time.Second, 1)
	err := client.Fanout(context.Background(), nil, webhook.ResourcePayload{})
	require.NoError(t, err)
}
