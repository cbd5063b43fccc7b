package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/submit", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pl", req["language"])
		assert.Equal(t, true, req["process"])

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"job_uuid": "u-1", "status": "processing"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Submit(context.Background(), []models.ItemSpec{{Type: "text", Content: "tekst"}}, "pl", true, nil)
	require.NoError(t, err)
	assert.Equal(t, "u-1", result.JobUUID)
	assert.Equal(t, "processing", result.Status)
}

func TestServerErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "item content cannot be empty"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Submit(context.Background(), nil, "en", false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item content cannot be empty")
	assert.Contains(t, err.Error(), "400")
}

func TestGetJobNodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/jobs/u-1/nodes", r.URL.Path)
		require.Equal(t, "prediction", r.URL.Query().Get("type"))
		json.NewEncoder(w).Encode([]models.Node{{Kind: models.NodeKindPrediction, Value: "growth"}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	nodes, err := c.GetJobNodes(context.Background(), "u-1", models.NodeKindPrediction)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "growth", nodes[0].Value)
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search", r.URL.Path)
		require.Equal(t, "defence budget", r.URL.Query().Get("q"))
		require.Equal(t, "3", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(SearchResult{
			Query: "defence budget",
			Matches: []db.CorpusMatch{
				{CorpusFact: models.CorpusFact{Text: "Defence spending rose"}, Similarity: 0.9},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Search(context.Background(), "defence budget", 3)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "Defence spending rose", result.Matches[0].Text)
	assert.InDelta(t, 0.9, result.Matches[0].Similarity, 0.001)
}

func TestGetReportNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "report not generated for this job"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetReport(context.Background(), "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report not generated")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL).Health(context.Background()))
}
