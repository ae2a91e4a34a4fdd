package media

import (
	"os"
	"strings"
)

// Protocol identifies the transport family of a video source.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolRTSP
	ProtocolRTMP
	ProtocolHLS
	ProtocolHTTP
	ProtocolFile
)

// String returns the lowercase protocol name used in logs, metrics and the journal
func (p Protocol) String() string {
	switch p {
	case ProtocolRTSP:
		return "rtsp"
	case ProtocolRTMP:
		return "rtmp"
	case ProtocolHLS:
		return "hls"
	case ProtocolHTTP:
		return "http"
	case ProtocolFile:
		return "file"
	default:
		return "unknown"
	}
}

// IsRealtime reports whether the protocol carries a live stream
func (p Protocol) IsRealtime() bool {
	return p == ProtocolRTSP || p == ProtocolRTMP || p == ProtocolHLS
}

// cameraOverrideMarker is the path segment Dahua style cameras use for their live RTSP endpoint.
const cameraOverrideMarker = "realmonitor"

// Classify maps a source URL to a Protocol. Rules are evaluated in order
// and the first match wins. Only rule 5 touches the filesystem.
func Classify(url string) Protocol {
	switch {
	case strings.HasPrefix(url, "rtsp://"):
		return ProtocolRTSP
	case strings.HasPrefix(url, "rtmp://"):
		return ProtocolRTMP
	case strings.Contains(url, ".m3u8") || strings.HasPrefix(url, "hls://"):
		return ProtocolHLS
	case strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://"):
		return ProtocolHTTP
	case strings.HasPrefix(url, "file://"):
		return ProtocolFile
	case !strings.Contains(url, "://") && pathExists(url):
		return ProtocolFile
	default:
		return ProtocolUnknown
	}
}

// IsCameraOverride reports whether url targets an RTSP camera that needs the
// vendor specific argument set instead of the generic RTSP one.
func IsCameraOverride(url string) bool {
	return strings.HasPrefix(url, "rtsp://") && strings.Contains(url, cameraOverrideMarker)
}

func pathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
