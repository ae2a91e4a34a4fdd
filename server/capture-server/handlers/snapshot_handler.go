package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/framegrab/server/capture-server/utils"
	"github.com/yeti47/framegrab/server/core/ccc/logging"
	"github.com/yeti47/framegrab/server/core/extraction"
	"github.com/yeti47/framegrab/server/core/media"
)

// SnapshotHandler handles single frame capture requests
type SnapshotHandler struct {
	logger  logging.Logger
	service extraction.Service
	// errorImage makes failed captures answer with a placeholder PNG instead of JSON
	errorImage bool
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(logger logging.Logger, service extraction.Service, errorImage bool) *SnapshotHandler {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &SnapshotHandler{
		logger:     logger,
		service:    service,
		errorImage: errorImage,
	}
}

// SnapshotRequest is the JSON body of POST /api/snapshot
type SnapshotRequest struct {
	URL       string   `json:"url" binding:"required"`
	Timestamp *float64 `json:"timestamp"`
}

// TakeSnapshot handles POST /api/snapshot
func (h *SnapshotHandler) TakeSnapshot(c *gin.Context) {
	var req SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid snapshot request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	h.logger.Info("Received snapshot request", "url", req.URL)

	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.service.Capture(ctx, extraction.CaptureRequest{
		URL:       req.URL,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		status := statusForError(err)
		if h.errorImage && !media.IsValidationError(err) {
			c.Header("X-Extraction-Error", media.KindOf(err).String())
			c.Data(status, "image/png", utils.PlaceholderPNG())
			return
		}
		c.JSON(status, errorBody(err))
		return
	}

	c.Data(http.StatusOK, result.MimeType, result.Image)
}
