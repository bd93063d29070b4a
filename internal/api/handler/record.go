package handler

import (
	"errors"
	"net/http"

	"github.com/calvey/hauntex/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RecordHandler serves stored evidence records.
type RecordHandler struct {
	records *repository.RecordRepository
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(records *repository.RecordRepository) *RecordHandler {
	return &RecordHandler{records: records}
}

// GetRecord handles GET /api/v1/records/:id. Image records and text
// records share one identifier space (content hashes), so both tables
// are consulted.
func (h *RecordHandler) GetRecord(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if rec, err := h.records.GetImage(ctx, id); err == nil {
		c.JSON(http.StatusOK, rec)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load record: " + err.Error(),
		})
		return
	}

	if rec, err := h.records.GetText(ctx, id); err == nil {
		c.JSON(http.StatusOK, rec)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load record: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{
		"error": "Record not found: " + id,
	})
}
