package handler

import (
	"errors"
	"net/http"

	"github.com/calvey/hauntex/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// JobHandler serves batch job status and outcome logs.
type JobHandler struct {
	jobs *repository.JobRepository
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobs *repository.JobRepository) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GetJob handles GET /api/v1/jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	id := c.Param("id")

	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found: " + id,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load job: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetOutcomes handles GET /api/v1/jobs/:id/outcomes: the job's per-item
// outcome log in sequence order.
func (h *JobHandler) GetOutcomes(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.jobs.Get(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found: " + id,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load job: " + err.Error(),
		})
		return
	}

	outcomes, err := h.jobs.ListOutcomes(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load outcomes: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":   id,
		"outcomes": outcomes,
		"total":    len(outcomes),
	})
}
