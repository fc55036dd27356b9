// Package creative wraps the generative image and video providers behind one
// interface so the workflow can run with or without provider credentials.
package creative

import (
	"context"
	"errors"
	"log/slog"
)

// ErrUnsupported is returned by generators that cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported by creative generator")

// ImageEdit asks for a restyled version of Image.
type ImageEdit struct {
	Image       []byte
	Prompt      string
	Context     string
	AspectRatio string
}

// VideoRequest asks for a short clip animated from Image.
type VideoRequest struct {
	Prompt          string
	Image           []byte
	DurationSeconds int
	AspectRatio     string
	Resolution      string
}

// Generator is implemented by each creative provider adapter.
type Generator interface {
	Name() string
	EditImage(ctx context.Context, req ImageEdit) ([]byte, error)
	GenerateVideo(ctx context.Context, req VideoRequest) ([]byte, error)
}

// New picks the Gemini adapter when an API key is configured and the
// passthrough adapter otherwise.
func New(cfg GeminiConfig) Generator {
	if cfg.APIKey == "" {
		slog.Warn("no Gemini API key configured, image edits will return the original image")
		return NewPassthrough()
	}
	return NewGemini(cfg)
}

const defaultBrandContext = "You are a senior brand designer creating high-performing visuals for affiliate marketing."

func buildInstruction(req ImageEdit) string {
	instruction := defaultBrandContext
	if req.Context != "" {
		instruction += "\nContext: " + req.Context
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = "Enhance the uploaded photo with vibrant lighting and platform-friendly framing."
	}
	return instruction + "\n\n" + prompt
}
