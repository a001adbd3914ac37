package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-journal-assistant/internal/config"
)

type fakeProvider struct {
	mu        sync.Mutex
	hits      []Hit
	searchErr error
	texts     map[string]string
	failIDs   map[string]bool
	lastQuery Query
	requested [][]string
}

func (f *fakeProvider) Search(_ context.Context, q Query) ([]Hit, error) {
	f.lastQuery = q
	return f.hits, f.searchErr
}

func (f *fakeProvider) Contents(_ context.Context, ids []string) (map[string]string, error) {
	f.mu.Lock()
	f.requested = append(f.requested, ids)
	f.mu.Unlock()

	out := map[string]string{}
	for _, id := range ids {
		if f.failIDs[id] {
			return nil, errors.New("timeout")
		}
		out[id] = f.texts[id]
	}
	return out, nil
}

func newTestEnricher(p Provider) *Enricher {
	e := NewEnricher(p, &config.Search{
		Keywords: "market news analysis",
		Domains:  []string{"reuters.com", "cnbc.com"},
	}, zap.NewNop())
	e.now = func() time.Time { return time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestEnrich_QueryShape(t *testing.T) {
	p := &fakeProvider{}
	newTestEnricher(p).Enrich(context.Background(), "  gold outlook ")

	q := p.lastQuery
	assert.Equal(t, "gold outlook market news analysis", q.Text)
	assert.Equal(t, 5, q.NumResults)
	assert.Equal(t, []string{"reuters.com", "cnbc.com"}, q.Domains)
	assert.Equal(t, 24*time.Hour, q.End.Sub(q.Start))
	assert.Equal(t, time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC), q.End)
}

func TestEnrich_PartialContentFailure(t *testing.T) {
	p := &fakeProvider{
		hits: []Hit{
			{ID: "a", Title: "A", URL: "https://reuters.com/a"},
			{ID: "b", Title: "B", URL: "https://reuters.com/b"},
			{ID: "c", Title: "C", URL: "https://reuters.com/c"},
		},
		texts:   map[string]string{"a": "text a", "c": "text c"},
		failIDs: map[string]bool{"b": true},
	}

	results := newTestEnricher(p).Enrich(context.Background(), "bitcoin")

	require.Len(t, results, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{results[0].Title, results[1].Title, results[2].Title})
	require.NotNil(t, results[0].Content)
	assert.Equal(t, "text a", *results[0].Content)
	assert.Nil(t, results[1].Content)
	require.NotNil(t, results[2].Content)
	assert.Equal(t, "text c", *results[2].Content)

	assert.Len(t, p.requested, 3, "one content request per result")
}

func TestEnrich_SearchFailure(t *testing.T) {
	p := &fakeProvider{searchErr: errors.New("503")}

	results := newTestEnricher(p).Enrich(context.Background(), "bitcoin")

	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Empty(t, p.requested)
}

func TestEnrich_EmptyQuery(t *testing.T) {
	p := &fakeProvider{}
	results := newTestEnricher(p).Enrich(context.Background(), "   ")

	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Empty(t, p.lastQuery.Text)
}

// barrierProvider answers Contents only once every expected request is in flight.
type barrierProvider struct {
	hits    []Hit
	arrived sync.WaitGroup
}

func (b *barrierProvider) Search(context.Context, Query) ([]Hit, error) { return b.hits, nil }

func (b *barrierProvider) Contents(_ context.Context, ids []string) (map[string]string, error) {
	b.arrived.Done()
	done := make(chan struct{})
	go func() {
		b.arrived.Wait()
		close(done)
	}()
	select {
	case <-done:
		return map[string]string{ids[0]: "text " + ids[0]}, nil
	case <-time.After(2 * time.Second):
		return nil, errors.New("content requests did not overlap")
	}
}

func TestEnrich_ContentFetchesOverlap(t *testing.T) {
	p := &barrierProvider{hits: []Hit{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}}
	p.arrived.Add(len(p.hits))

	results := newTestEnricher(p).Enrich(context.Background(), "gold")

	require.Len(t, results, 5)
	for i, r := range results {
		require.NotNil(t, r.Content, "result %d", i)
		assert.Equal(t, "text "+p.hits[i].ID, *r.Content)
	}
}
