package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/framegrab/server/capture-server/utils"
	"github.com/yeti47/framegrab/server/core/ccc/logging"
	"github.com/yeti47/framegrab/server/core/extraction"
)

const defaultClipsBaseURL = "/clips/"

// ClipHandler handles clip extraction requests
type ClipHandler struct {
	logger  logging.Logger
	service extraction.Service
	baseURL string
}

// NewClipHandler creates a new clip handler. baseURL is the prefix under
// which an external file server exposes the clip directory; this server
// does not serve clips itself.
func NewClipHandler(logger logging.Logger, service extraction.Service, baseURL string) *ClipHandler {
	if logger == nil {
		logger = logging.NopLogger
	}
	if baseURL == "" {
		baseURL = defaultClipsBaseURL
	}

	return &ClipHandler{
		logger:  logger,
		service: service,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
	}
}

// ClipRequest is the JSON body of POST /api/clip
type ClipRequest struct {
	URL       string   `json:"url" binding:"required"`
	Start     *float64 `json:"start"`
	Duration  *float64 `json:"duration" binding:"required"`
	ReturnURL *bool    `json:"return_url"`
}

// CreateClip handles POST /api/clip
func (h *ClipHandler) CreateClip(c *gin.Context) {
	var req ClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid clip request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	h.logger.Info("Received clip request", "url", req.URL, "duration", *req.Duration)

	// the process timeout bounds the work, a client disconnect does not cancel it
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.service.Clip(ctx, extraction.ClipRequest{
		URL:      req.URL,
		Start:    req.Start,
		Duration: *req.Duration,
	})
	if err != nil {
		c.JSON(statusForError(err), errorBody(err))
		return
	}

	if req.ReturnURL == nil || *req.ReturnURL {
		response := gin.H{
			"video_url": h.baseURL + result.Filename,
			"filename":  result.Filename,
			"size":      result.Size,
		}
		if result.Metadata != nil {
			response["metadata"] = result.Metadata
		}
		c.JSON(http.StatusOK, response)
		return
	}

	data, err := h.service.ReadClip(result.Filename)
	if err != nil {
		h.logger.Error("Failed to read clip", "filename", result.Filename, "error", err)
		c.JSON(statusForError(err), errorBody(err))
		return
	}

	mimeType, _ := utils.DetectVideoMimeType(data)
	c.Data(http.StatusOK, mimeType, data)
}
