package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkondo/postlens/internal/batch"
	"github.com/mkondo/postlens/internal/pipeline"
	"github.com/mkondo/postlens/internal/store"
)

type stubAnalyzer struct {
	outcome pipeline.Outcome
	err     error
}

func (s *stubAnalyzer) Analyze(context.Context, string) (pipeline.Outcome, error) {
	if s.err != nil {
		return pipeline.OutcomeFailed, s.err
	}
	return s.outcome, nil
}

func newTestServer(t *testing.T, a batch.Analyzer) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	s := store.New(filepath.Join(dir, "records.json"))
	cfg := batch.Config{MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	h := NewHandler(a, batch.New(a, cfg, nil), s, filepath.Join(dir, "images"), nil)
	return New(h), s
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t, &stubAnalyzer{outcome: pipeline.OutcomeSuccess})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPostsNewestFirst(t *testing.T) {
	r, s := newTestServer(t, &stubAnalyzer{outcome: pipeline.OutcomeSuccess})
	require.NoError(t, s.Upsert(store.PostRecord{ID: "1"}))
	require.NoError(t, s.Upsert(store.PostRecord{ID: "2"}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Posts []store.PostRecord `json:"posts"`
		Total int                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, "2", body.Posts[0].ID)
	assert.Equal(t, "1", body.Posts[1].ID)
}

func TestAnalyzeEndpoint(t *testing.T) {
	r, _ := newTestServer(t, &stubAnalyzer{outcome: pipeline.OutcomeSuccess})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		strings.NewReader(`{"url":"https://x.com/a/status/1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "success")
}

func TestAnalyzeEndpointMissingURL(t *testing.T) {
	r, _ := newTestServer(t, &stubAnalyzer{outcome: pipeline.OutcomeSuccess})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeEndpointFailure(t *testing.T) {
	r, _ := newTestServer(t, &stubAnalyzer{err: errors.New("extraction failed")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		strings.NewReader(`{"url":"https://x.com/a/status/1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBatchLifecycle(t *testing.T) {
	r, _ := newTestServer(t, &stubAnalyzer{outcome: pipeline.OutcomeSuccess})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batch",
		strings.NewReader(`{"urls":["https://x.com/a/status/1","https://x.com/a/status/2"]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	var started struct {
		JobID string `json:"job_id"`
		Total int    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.Equal(t, 2, started.Total)

	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/batch/"+started.JobID, nil))
		if w.Code != http.StatusOK {
			return false
		}
		var p batch.Progress
		if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
			return false
		}
		return !p.Running && p.Done == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBatchUnknownJob(t *testing.T) {
	r, _ := newTestServer(t, &stubAnalyzer{outcome: pipeline.OutcomeSuccess})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/batch/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchFromCSVUpload(t *testing.T) {
	r, _ := newTestServer(t, &stubAnalyzer{outcome: pipeline.OutcomeSuccess})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "posts.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("url\nhttps://x.com/a/status/1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batch", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestReset(t *testing.T) {
	r, s := newTestServer(t, &stubAnalyzer{outcome: pipeline.OutcomeSuccess})
	require.NoError(t, s.Upsert(store.PostRecord{ID: "1"}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reset", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	records, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}
