package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassify(t *testing.T) {
	tempDir := t.TempDir()
	existing := filepath.Join(tempDir, "sample.mp4")
	if err := os.WriteFile(existing, []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tests := []struct {
		name string
		url  string
		want Protocol
	}{
		{"rtsp", "rtsp://cam.local/stream", ProtocolRTSP},
		{"rtsp with m3u8 in path", "rtsp://cam.local/live.m3u8", ProtocolRTSP},
		{"rtmp", "rtmp://live.example/app/key", ProtocolRTMP},
		{"hls over https", "https://cdn.example/live/index.m3u8", ProtocolHLS},
		{"hls scheme", "hls://cdn.example/live", ProtocolHLS},
		{"m3u8 without scheme", "playlist.m3u8", ProtocolHLS},
		{"http", "http://example.com/video.mp4", ProtocolHTTP},
		{"https", "https://example.com/video.mp4", ProtocolHTTP},
		{"file scheme", "file:///does/not/need/to/exist.mp4", ProtocolFile},
		{"existing bare path", existing, ProtocolFile},
		{"missing bare path", filepath.Join(tempDir, "missing.mp4"), ProtocolUnknown},
		{"empty", "", ProtocolUnknown},
		{"unsupported scheme", "udp://239.0.0.1:1234", ProtocolUnknown},
		{"uppercase scheme is not matched", "RTSP://cam.local/stream", ProtocolUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.url)
			if got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.want)
			}
			if again := Classify(tt.url); again != got {
				t.Errorf("Classify(%q) is not idempotent: %s then %s", tt.url, got, again)
			}
		})
	}
}

func TestIsCameraOverride(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"rtsp://admin:pw@10.0.0.5:554/cam/realmonitor?channel=1&subtype=0", true},
		{"rtsp://10.0.0.5/stream1", false},
		{"http://10.0.0.5/cam/realmonitor", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsCameraOverride(tt.url); got != tt.want {
			t.Errorf("IsCameraOverride(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestProtocolString(t *testing.T) {
	expected := map[Protocol]string{
		ProtocolRTSP:    "rtsp",
		ProtocolRTMP:    "rtmp",
		ProtocolHLS:     "hls",
		ProtocolHTTP:    "http",
		ProtocolFile:    "file",
		ProtocolUnknown: "unknown",
	}
	for protocol, name := range expected {
		if protocol.String() != name {
			t.Errorf("Expected %q, got %q", name, protocol.String())
		}
	}

	if !ProtocolHLS.IsRealtime() || ProtocolFile.IsRealtime() || ProtocolHTTP.IsRealtime() {
		t.Error("IsRealtime returned an unexpected result")
	}
}
