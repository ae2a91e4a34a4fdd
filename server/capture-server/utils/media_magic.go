package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// containerSignatures maps leading bytes to a MIME type. MP4 is handled
// separately because its signature sits at offset 4.
var containerSignatures = []struct {
	magic    []byte
	mimeType string
}{
	{[]byte{0x1A, 0x45, 0xDF, 0xA3}, "video/x-matroska"},
	{[]byte("FLV"), "video/x-flv"},
	{[]byte("RIFF"), "video/avi"},
}

// IsPNG reports whether data starts with the PNG file signature
func IsPNG(data []byte) bool {
	return bytes.HasPrefix(data, pngSignature)
}

// DetectVideoMimeType guesses the MIME type of a clip from its leading bytes.
// The second return value is false when no known container was recognized.
func DetectVideoMimeType(data []byte) (string, bool) {
	if len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")) {
		return "video/mp4", true
	}
	for _, sig := range containerSignatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.mimeType, true
		}
	}
	return "application/octet-stream", false
}

const (
	placeholderWidth  = 400
	placeholderHeight = 200
)

var placeholderColor = color.RGBA{R: 255, G: 200, B: 200, A: 255}

// PlaceholderPNG renders the plain pink image returned in place of a frame
// when a capture fails
func PlaceholderPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	for y := 0; y < placeholderHeight; y++ {
		for x := 0; x < placeholderWidth; x++ {
			img.SetRGBA(x, y, placeholderColor)
		}
	}

	var buf bytes.Buffer
	// encoding an in-memory RGBA image cannot fail
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
