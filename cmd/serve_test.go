//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/store"
)

func newServeDocs(t *testing.T) *store.Documents {
	t.Helper()
	b, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	docs := store.NewDocuments(b)

	matches := model.NewMatchIndex()
	matches.Matches["brex"] = model.Match{EntityName: "Brex Inc.", CIK: "1699136", Confidence: model.ConfidenceHigh}
	results := model.NewResultIndex()
	results.Companies["brex"] = model.FundingResult{FundingFound: ptr(1e8), Source: model.SourceFormD}

	require.NoError(t, docs.SaveSnapshot(context.Background(), store.Snapshot{
		Companies: []model.Company{{Slug: "brex", Name: "Brex"}},
		Matches:   matches,
		Results:   results,
	}))
	return docs
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBuildRouter_Health(t *testing.T) {
	rr := get(t, buildRouter(newServeDocs(t)), "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBuildRouter_Status(t *testing.T) {
	rr := get(t, buildRouter(newServeDocs(t)), "/status")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1.0, body["companies"])
	assert.Equal(t, 1.0, body["matched"])
}

func TestBuildRouter_Match(t *testing.T) {
	h := buildRouter(newServeDocs(t))

	rr := get(t, h, "/matches/brex")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Slug   string               `json:"slug"`
		Match  model.Match          `json:"match"`
		Result *model.FundingResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "1699136", body.Match.CIK)
	require.NotNil(t, body.Result)
	assert.Equal(t, 1e8, *body.Result.FundingFound)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/matches/nobody").Code)
}

func TestBuildRouter_Review(t *testing.T) {
	docs := newServeDocs(t)
	h := buildRouter(docs)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/review").Code)

	require.NoError(t, docs.SaveSnapshot(context.Background(), store.Snapshot{
		Review: &model.ReviewQueue{Summary: model.ReviewSummary{Total: 0}, Companies: []model.ReviewEntry{}},
	}))
	assert.Equal(t, http.StatusOK, get(t, h, "/review").Code)
}

func TestBuildRouter_CORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/status", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	buildRouter(newServeDocs(t)).ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rr := httptest.NewRecorder()
	buildRouter(newServeDocs(t)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
