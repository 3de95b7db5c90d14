package serpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "preciso de site (site:instagram.com)", q.Get("q"))
		assert.Equal(t, "10", q.Get("num"))
		assert.Equal(t, "google.com.br", q.Get("google_domain"))
		assert.Equal(t, "br", q.Get("gl"))
		assert.Equal(t, "pt", q.Get("hl"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			OrganicResults: []OrganicResult{
				{Position: 1, Title: "Doceria da Ana", Link: "https://www.instagram.com/doceriadaana", Snippet: "Alguém indica quem faça site?"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), SearchRequest{Query: "preciso de site (site:instagram.com)"})

	require.NoError(t, err)
	require.Len(t, resp.OrganicResults, 1)
	assert.Equal(t, "Doceria da Ana", resp.OrganicResults[0].Title)
	assert.Equal(t, "https://www.instagram.com/doceriadaana", resp.OrganicResults[0].Link)
}

func TestSearch_Overrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "20", q.Get("num"))
		assert.Equal(t, "google.com", q.Get("google_domain"))
		assert.Equal(t, "us", q.Get("gl"))
		assert.Equal(t, "en", q.Get("hl"))
		_, _ = w.Write([]byte(`{"organic_results":[]}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), SearchRequest{
		Query: "x", Num: 20, Domain: "google.com", Country: "us", Language: "en",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.OrganicResults)
}

func TestSearch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid API key."}`))
	}))
	defer srv.Close()

	_, err := NewClient("bad", WithBaseURL(srv.URL)).Search(context.Background(), SearchRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 401")
}

func TestSearch_ErrorInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Your account has run out of searches."}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), SearchRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run out of searches")
}

func TestSearch_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), SearchRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
