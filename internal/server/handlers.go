package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mkondo/postlens/internal/batch"
	"github.com/mkondo/postlens/internal/logging"
	"github.com/mkondo/postlens/internal/stats"
	"github.com/mkondo/postlens/internal/store"
)

// Handler holds the dependencies shared by all API endpoints.
type Handler struct {
	analyzer      batch.Analyzer
	runner        *batch.Runner
	store         *store.Store
	imageDir      string
	watchKeywords []string
}

// NewHandler creates the API handler set.
func NewHandler(a batch.Analyzer, r *batch.Runner, s *store.Store, imageDir string, watchKeywords []string) *Handler {
	return &Handler{
		analyzer:      a,
		runner:        r,
		store:         s,
		imageDir:      imageDir,
		watchKeywords: watchKeywords,
	}
}

// ListPosts returns all stored records, newest analysis first.
func (h *Handler) ListPosts(c *gin.Context) {
	records, err := h.store.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The store appends in analysis order; reverse for display.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	c.JSON(http.StatusOK, gin.H{"posts": records, "total": len(records)})
}

// Stats returns the aggregated report over all stored records.
func (h *Handler) Stats(c *gin.Context) {
	records, err := h.store.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats.Summarize(records, h.watchKeywords))
}

type analyzeRequest struct {
	URL string `json:"url" binding:"required"`
}

// Analyze runs one post through the pipeline synchronously.
func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.analyzer.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"outcome": outcome, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

// StartBatch launches a batch job from either an uploaded url-list file or a
// JSON body. Only one batch may run at a time.
func (h *Handler) StartBatch(c *gin.Context) {
	urls, err := h.batchURLs(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.runner.Start(urls)
	if err != nil {
		if errors.Is(err, batch.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "total": job.Total})
}

func (h *Handler) batchURLs(c *gin.Context) ([]string, error) {
	if fileHeader, err := c.FormFile("file"); err == nil {
		f, err := fileHeader.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return batch.ParseURLList(f, fileHeader.Filename)
	}

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	if len(req.URLs) == 0 {
		return nil, errors.New("urls list is empty")
	}
	return req.URLs, nil
}

// BatchProgress reports a job's counters.
func (h *Handler) BatchProgress(c *gin.Context) {
	job, ok := h.runner.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job id"})
		return
	}
	c.JSON(http.StatusOK, job.Progress())
}

// CancelBatch requests a running job stop after the in-flight post.
func (h *Handler) CancelBatch(c *gin.Context) {
	job, ok := h.runner.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job id"})
		return
	}
	job.Cancel()
	c.JSON(http.StatusAccepted, job.Progress())
}

// Reset wipes the record store and downloaded images.
func (h *Handler) Reset(c *gin.Context) {
	if err := h.store.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entries, err := os.ReadDir(h.imageDir)
	if err == nil {
		for _, entry := range entries {
			if err := os.Remove(filepath.Join(h.imageDir, entry.Name())); err != nil {
				logging.Log.Warnf("failed to remove image %s: %v", entry.Name(), err)
			}
		}
	}

	c.Status(http.StatusNoContent)
}
