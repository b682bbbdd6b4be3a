package serpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prospect-hand/config"
)

func newTestFetcher(baseURL string) *Fetcher {
	return NewFetcher(&config.Config{
		SerpAPIBaseURL: baseURL,
		SerpAPIKey:     "test-key",
		SerpAPIEngine:  "google",
		SerpAPINum:     10,
		SerpAPIRegion:  "us",
		SerpAPILang:    "en",
	}, zap.NewNop())
}

func TestSearchMapsOrganicResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, `"Acme Corp" pricing plans cost`, r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "google", r.URL.Query().Get("engine"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"organic_results":[
			{"title":"Acme Pricing","link":"https://acme.example.com/pricing","snippet":"Plans start at $29 per month."},
			{"title":"Acme Review","link":"https://review.example.com/acme","snippet":"A detailed look at Acme's pricing tiers."}
		]}`))
	}))
	defer srv.Close()

	rs, err := newTestFetcher(srv.URL).Search(`"Acme Corp" pricing plans cost`)
	require.NoError(t, err)
	require.Len(t, rs.Results, 2)
	assert.Equal(t, "Acme Pricing", rs.Results[0].Title)
	assert.Equal(t, "https://acme.example.com/pricing", rs.Results[0].Link)
	assert.Equal(t, "Plans start at $29 per month.", rs.Results[0].Snippet)
}

func TestSearchDegradedExtractionOnEmptyOrganics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"organic_results":[],
			"answer_box":{"title":"Acme Corp","link":"https://acme.example.com","answer":"Acme Corp is a developer tooling company."},
			"knowledge_graph":{"title":"Acme Corp","website":"https://acme.example.com","description":"Software company founded in 2019."}
		}`))
	}))
	defer srv.Close()

	rs, err := newTestFetcher(srv.URL).Search("Acme Corp overview")
	require.NoError(t, err)
	require.Len(t, rs.Results, 2)
	assert.Equal(t, "Acme Corp is a developer tooling company.", rs.Results[0].Snippet)
	assert.Equal(t, "Software company founded in 2019.", rs.Results[1].Snippet)
}

func TestSearchProviderErrorWithoutAuxiliaryBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"Your searches have run out."}`))
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).Search("Acme Corp overview")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your searches have run out.")
}

func TestSearchProviderErrorFallsBackToAnswerBox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"error":"Partial outage",
			"answer_box":{"title":"Acme Corp","link":"https://acme.example.com","snippet":"Acme builds tooling."}
		}`))
	}))
	defer srv.Close()

	rs, err := newTestFetcher(srv.URL).Search("Acme Corp overview")
	require.NoError(t, err)
	require.Len(t, rs.Results, 1)
	assert.Equal(t, "Acme builds tooling.", rs.Results[0].Snippet)
}

func TestProbeAcceptsValidAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"account_id":"abc123"}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestFetcher(srv.URL).Probe(context.Background()))
}

func TestProbeRejectsInvalidKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"Invalid API key"}`))
	}))
	defer srv.Close()

	err := newTestFetcher(srv.URL).Probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}
