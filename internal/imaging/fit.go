package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	_ "golang.org/x/image/webp"
)

// AllowedExtensions lists the upload types the workflow accepts.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "webp"}

// Allowed reports whether filename carries one of AllowedExtensions.
func Allowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Size returns the pixel dimensions of an encoded image.
func Size(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Fit center-crops data to the target aspect ratio and scales it to exactly
// width x height, returning PNG bytes. Images already at the target size are
// returned unchanged.
func Fit(data []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return data, nil
	}

	crop := coverRect(bounds, width, height)
	dc := gg.NewContext(width, height)
	dc.Push()
	dc.Scale(float64(width)/float64(crop.Dx()), float64(height)/float64(crop.Dy()))
	dc.DrawImage(src, -crop.Min.X, -crop.Min.Y)
	dc.Pop()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	slog.Debug("image fitted",
		"source_format", format,
		"source_width", bounds.Dx(),
		"source_height", bounds.Dy(),
		"width", width,
		"height", height,
	)

	return buf.Bytes(), nil
}

// FitOrOriginal is Fit that falls back to the input when it cannot be decoded.
func FitOrOriginal(data []byte, width, height int) []byte {
	fitted, err := Fit(data, width, height)
	if err != nil {
		slog.Warn("could not resize image, keeping original", "error", err, "width", width, "height", height)
		return data
	}
	return fitted
}

// coverRect returns the largest centered rectangle inside bounds with the
// width:height aspect ratio.
func coverRect(bounds image.Rectangle, width, height int) image.Rectangle {
	srcW, srcH := bounds.Dx(), bounds.Dy()

	cropW, cropH := srcW, srcH
	if srcW*height > srcH*width {
		cropW = srcH * width / height
	} else {
		cropH = srcW * height / width
	}
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}

	x0 := bounds.Min.X + (srcW-cropW)/2
	y0 := bounds.Min.Y + (srcH-cropH)/2
	return image.Rect(x0, y0, x0+cropW, y0+cropH)
}

// DetectMIME sniffs the content type of media bytes, defaulting to fallback
// when the sniffer cannot tell.
func DetectMIME(data []byte, fallback string) string {
	mime := http.DetectContentType(data)
	if mime == "application/octet-stream" || strings.HasPrefix(mime, "text/plain") {
		return fallback
	}
	return mime
}
