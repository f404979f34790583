package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/fioreale/PaperFlow/internal/api/dto"
	"github.com/fioreale/PaperFlow/internal/jobs"
	"github.com/fioreale/PaperFlow/internal/pipeline"
)

// Convert handles POST /api/v1/convert
// Creates a conversion job and processes it in the background. Poll
// GET /status/:job_id for the outcome.
func (h *ConversionHandler) Convert(c *gin.Context) {
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	// Validate before creating anything: malformed input never leaves a
	// job behind.
	if err := validateArticleURL(req.URL); err != nil {
		h.logger.Error("Invalid article URL",
			slog.String("url", req.URL),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	job := h.store.Create(req.URL, req.Title, req.Upload())
	h.runner.Start(job)

	h.logger.Info("Conversion job created",
		slog.String("job_id", job.ID),
		slog.String("url", job.URL),
	)

	c.JSON(http.StatusAccepted, dto.ConvertResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Message:   "Conversion job created successfully",
		CreatedAt: job.CreatedAt,
	})
}

// ConvertSync handles POST /api/v1/convert-sync
// Runs the pipeline inline and responds with the terminal job snapshot.
func (h *ConversionHandler) ConvertSync(c *gin.Context) {
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if err := validateArticleURL(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	job := h.store.Create(req.URL, req.Title, req.Upload())
	runErr := h.runner.Run(c.Request.Context(), job)

	snapshot, err := h.store.Get(job.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Job record lost during conversion",
		})
		return
	}

	switch {
	case runErr == nil:
		c.JSON(http.StatusOK, snapshot)
	case errors.Is(runErr, pipeline.ErrJobInFlight), errors.Is(runErr, pipeline.ErrJobAlreadyTerminal):
		c.JSON(http.StatusConflict, gin.H{
			"error": runErr.Error(),
		})
	default:
		// The failure is recorded on the job; the snapshot carries the
		// error message.
		c.JSON(http.StatusInternalServerError, snapshot)
	}
}

// GetStatus handles GET /api/v1/status/:job_id
func (h *ConversionHandler) GetStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.store.Get(jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf("Job %s not found", jobID),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
// Returns a snapshot of every tracked job, for diagnostics.
func (h *ConversionHandler) ListJobs(c *gin.Context) {
	snapshot := h.store.Snapshot()
	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:  snapshot,
		Count: len(snapshot),
	})
}

// DeleteJob handles DELETE /api/v1/jobs/:job_id
// Removal is idempotent: deleting an unknown id still returns 204.
func (h *ConversionHandler) DeleteJob(c *gin.Context) {
	jobID := c.Param("job_id")
	h.store.Delete(jobID)

	h.logger.Info("Job deleted", slog.String("job_id", jobID))
	c.Status(http.StatusNoContent)
}

// validateArticleURL checks that the submitted URL is an absolute
// http(s) URL.
func validateArticleURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("url is not well-formed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}
