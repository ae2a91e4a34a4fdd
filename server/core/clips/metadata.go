package clips

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xfrr/goffmpeg/transcoder"
	"github.com/yeti47/framegrab/server/core/ccc/logging"
)

// Metadata describes a produced clip file.
type Metadata struct {
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Duration   time.Duration `json:"duration"`
	VideoCodec string        `json:"video_codec"`
	MimeType   string        `json:"mime_type"`
}

// MetadataExtractor reads stream information from a clip on disk.
type MetadataExtractor interface {
	ExtractMetadata(path string) (*Metadata, error)
}

// FFprobeMetadataExtractor implements MetadataExtractor with goffmpeg, which
// shells out to ffprobe.
type FFprobeMetadataExtractor struct {
	logger logging.Logger
}

// NewFFprobeMetadataExtractor creates a new ffprobe based metadata extractor
func NewFFprobeMetadataExtractor(logger logging.Logger) *FFprobeMetadataExtractor {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &FFprobeMetadataExtractor{logger: logger}
}

func (e *FFprobeMetadataExtractor) ExtractMetadata(path string) (*Metadata, error) {
	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(path, ""); err != nil {
		return nil, fmt.Errorf("failed to probe clip: %w", err)
	}

	probed := trans.MediaFile().Metadata()

	result := &Metadata{
		Duration: parseSeconds(probed.Format.Duration),
		MimeType: mimeTypeForFormat(probed.Format.FormatName),
	}
	for _, stream := range probed.Streams {
		if stream.CodecType == "video" {
			result.Width = stream.Width
			result.Height = stream.Height
			result.VideoCodec = stream.CodecName
			break
		}
	}

	if result.Width == 0 || result.Height == 0 {
		return nil, fmt.Errorf("could not extract video dimensions from %s", path)
	}

	e.logger.Debug("Extracted clip metadata", "path", path, "width", result.Width, "height", result.Height, "duration", result.Duration)
	return result, nil
}

// parseSeconds converts the ffprobe duration string, e.g. "10.010000"
func parseSeconds(s string) time.Duration {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func mimeTypeForFormat(formatName string) string {
	switch {
	case strings.Contains(formatName, "webm"):
		return "video/webm"
	case strings.Contains(formatName, "avi"):
		return "video/avi"
	case strings.Contains(formatName, "matroska"):
		return "video/x-matroska"
	default:
		return "video/mp4"
	}
}
