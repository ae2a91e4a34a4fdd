package utils

import (
	"bytes"
	"image/png"
	"testing"
)

func TestDetectVideoMimeType(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		mime  string
		known bool
	}{
		{"mp4", []byte{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}, "video/mp4", true},
		{"mkv", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}, "video/x-matroska", true},
		{"flv", []byte("FLV\x01\x05"), "video/x-flv", true},
		{"avi", []byte("RIFF\x00\x00\x00\x00AVI "), "video/avi", true},
		{"unknown", []byte("hello world"), "application/octet-stream", false},
		{"empty", nil, "application/octet-stream", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, known := DetectVideoMimeType(tt.data)
			if mime != tt.mime || known != tt.known {
				t.Errorf("Expected (%s, %v), got (%s, %v)", tt.mime, tt.known, mime, known)
			}
		})
	}
}

func TestPlaceholderPNG(t *testing.T) {
	data := PlaceholderPNG()
	if !IsPNG(data) {
		t.Fatal("Expected PNG signature")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode placeholder: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 400 || bounds.Dy() != 200 {
		t.Errorf("Expected 400x200, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 255 || g>>8 != 200 || b>>8 != 200 {
		t.Errorf("Unexpected pixel color (%d, %d, %d)", r>>8, g>>8, b>>8)
	}
}

func TestIsPNG(t *testing.T) {
	if IsPNG([]byte("GIF89a")) {
		t.Error("GIF must not be detected as PNG")
	}
}
