package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/framegrab/server/core/ccc/logging"
	"github.com/yeti47/framegrab/server/core/history"
	"github.com/yeti47/framegrab/server/core/stats"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// StatsHandler exposes request statistics and the extraction journal
type StatsHandler struct {
	logger  logging.Logger
	counter *stats.InFlightCounter
	journal history.Repository
}

// NewStatsHandler creates a new stats handler. journal may be nil.
func NewStatsHandler(logger logging.Logger, counter *stats.InFlightCounter, journal history.Repository) *StatsHandler {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &StatsHandler{
		logger:  logger,
		counter: counter,
		journal: journal,
	}
}

// GetConcurrent handles GET /api/concurrent
func (h *StatsHandler) GetConcurrent(c *gin.Context) {
	current := h.counter.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"current_requests": current,
		"message":          fmt.Sprintf("Currently processing %d concurrent requests", current),
	})
}

// ListExtractions handles GET /api/extractions
func (h *StatsHandler) ListExtractions(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Extraction journal is disabled"})
		return
	}

	limit, err := parseBoundedInt(c.Query("limit"), defaultHistoryLimit, 1, maxHistoryLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit: " + err.Error()})
		return
	}
	offset, err := parseBoundedInt(c.Query("offset"), 0, 0, -1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	records, total, err := h.journal.Query(ctx, history.RecordQuery{
		Operation: c.Query("operation"),
		Status:    c.Query("status"),
		Limit:     &limit,
		Offset:    &offset,
	})
	if err != nil {
		h.logger.Error("Failed to query extraction journal", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query extraction journal"})
		return
	}

	counts, err := h.journal.CountByStatus(ctx)
	if err != nil {
		h.logger.Error("Failed to count extraction journal", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query extraction journal"})
		return
	}

	if records == nil {
		records = []*history.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"extractions": records,
		"total":       total,
		"counts":      counts,
	})
}

// parseBoundedInt parses s or returns def when s is empty. max < 0 means no upper bound.
func parseBoundedInt(s string, def, min, max int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < min || (max >= 0 && v > max) {
		return 0, fmt.Errorf("%d is out of range", v)
	}
	return v, nil
}
