package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/calvey/hauntex/internal/api/middleware"
	"github.com/calvey/hauntex/internal/domain"
	"github.com/calvey/hauntex/internal/feature"
	"github.com/calvey/hauntex/internal/index"
	"github.com/calvey/hauntex/internal/repository"
	"github.com/gin-gonic/gin"
)

const defaultTopK = 5

// SearchHandler answers nearest-neighbor queries over the descriptor index.
type SearchHandler struct {
	idx     index.Index
	records *repository.RecordRepository
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(idx index.Index, records *repository.RecordRepository) *SearchHandler {
	return &SearchHandler{
		idx:     idx,
		records: records,
	}
}

// SimilarRequest is the JSON body for descriptor-based similarity search.
type SimilarRequest struct {
	Descriptor []float32 `json:"descriptor" binding:"required"`
	TopK       int       `json:"top_k"`
}

// SearchResult is one neighbor enriched with its stored record fields.
type SearchResult struct {
	ID       string                 `json:"id"`
	Distance float64                `json:"distance"`
	Path     string                 `json:"path,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Similar handles POST /api/v1/search/similar: k nearest descriptors to
// the one given in the request body.
func (h *SearchHandler) Similar(c *gin.Context) {
	var req SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}

	h.query(c, req.Descriptor, req.TopK)
}

// SimilarImage handles POST /api/v1/search/image: the uploaded image is
// processed exactly like ingested ones, then its descriptor is queried.
func (h *SearchHandler) SimilarImage(c *gin.Context) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Form file 'image' is required",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read upload: " + err.Error(),
		})
		return
	}

	ext, err := feature.Extract(data)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, feature.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	topK := defaultTopK
	if k := c.Query("top_k"); k != "" {
		if n, err := strconv.Atoi(k); err == nil && n > 0 {
			topK = n
		}
	}

	h.query(c, ext.Descriptor, topK)
}

func (h *SearchHandler) query(c *gin.Context, descriptor []float32, topK int) {
	neighbors, err := h.idx.Query(c.Request.Context(), descriptor, topK)
	if err != nil {
		if errors.Is(err, index.ErrDimensionMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.GetLogger(c).WithError(err).Error("Similarity query failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Search failed: " + err.Error(),
		})
		return
	}

	results := make([]SearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		result := SearchResult{ID: n.ID, Distance: n.Distance}
		if rec, err := h.records.GetImage(c.Request.Context(), n.ID); err == nil {
			result.Path = rec.Path
			result.Metadata = rec.Metadata
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}

// GetStats handles GET /api/v1/stats.
func (h *SearchHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	processed, err := h.records.CountByStatus(ctx, domain.RecordStatusProcessed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats: " + err.Error(),
		})
		return
	}
	failed, err := h.records.CountByStatus(ctx, domain.RecordStatusFailed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processed_records": processed,
		"failed_records":    failed,
		"index_size":        h.idx.Len(),
	})
}
