package extraction

import (
	"github.com/yeti47/framegrab/server/core/clips"
	"github.com/yeti47/framegrab/server/core/media"
)

// CaptureRequest asks for a single frame. A nil Timestamp means the start of the source.
type CaptureRequest struct {
	URL       string
	Timestamp *float64
}

// CaptureResult carries the captured frame.
type CaptureResult struct {
	Image    []byte
	MimeType string
	Protocol media.Protocol
}

// ClipRequest asks for Duration seconds of video starting at Start (default 0).
type ClipRequest struct {
	URL      string
	Start    *float64
	Duration float64
}

// ClipResult describes a clip written to the clip directory.
type ClipResult struct {
	Filename     string
	Path         string
	Size         int64
	Protocol     media.Protocol
	FallbackUsed bool
	// Metadata is nil when probing the finished clip failed
	Metadata *clips.Metadata
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
