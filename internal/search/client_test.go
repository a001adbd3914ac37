package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-journal-assistant/internal/config"
)

// setupTestServer creates a test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	c := NewClient(&config.Search{APIKey: "test_api_key", BaseURL: server.URL, Timeout: 5 * time.Second}, zap.NewNop())
	return c, server
}

func TestClient_Search(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "test_api_key", r.Header.Get("x-api-key"))

		var body searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gold outlook market news analysis", body.Query)
		assert.Equal(t, 5, body.NumResults)
		assert.Equal(t, []string{"reuters.com"}, body.IncludeDomains)
		assert.Equal(t, "2025-06-15T12:00:00Z", body.StartPublishedDate)
		assert.Equal(t, "2025-06-16T12:00:00Z", body.EndPublishedDate)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"id":"r1","title":"Gold climbs","url":"https://reuters.com/1","publishedDate":"2025-06-16T08:00:00.000Z","author":"Jane"},
			{"id":"r2","title":"Dollar slips","url":"https://reuters.com/2","publishedDate":null,"author":""}
		]}`))
	})
	c, server := setupTestServer(handler)
	defer server.Close()

	end := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	hits, err := c.Search(context.Background(), Query{
		Text:       "gold outlook market news analysis",
		NumResults: 5,
		Domains:    []string{"reuters.com"},
		Start:      end.Add(-24 * time.Hour),
		End:        end,
	})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "r1", hits[0].ID)
	require.NotNil(t, hits[0].PublishedAt)
	assert.Equal(t, time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC), *hits[0].PublishedAt)
	assert.Equal(t, "Jane", *hits[0].Author)
	assert.Nil(t, hits[1].PublishedAt)
	assert.Nil(t, hits[1].Author)
}

func TestClient_Contents(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/contents", r.URL.Path)
			var body contentsRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"r1"}, body.IDs)
			assert.True(t, body.Text)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"results":[{"id":"r1","text":"Gold rose 1%."}]}`))
		})
		c, server := setupTestServer(handler)
		defer server.Close()

		got, err := c.Contents(context.Background(), []string{"r1"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"r1": "Gold rose 1%."}, got)
	})

	t.Run("APIError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid key"}`))
		})
		c, server := setupTestServer(handler)
		defer server.Close()

		_, err := c.Contents(context.Background(), []string{"r1"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get contents")
		assert.Contains(t, err.Error(), "401")
	})
}
