package creative

import (
	"context"
	"fmt"
)

// Passthrough returns the source image untouched and cannot make videos.
type Passthrough struct{}

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Name() string {
	return "passthrough"
}

func (p *Passthrough) EditImage(ctx context.Context, req ImageEdit) ([]byte, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("edit image: empty source image")
	}
	out := make([]byte, len(req.Image))
	copy(out, req.Image)
	return out, nil
}

func (p *Passthrough) GenerateVideo(ctx context.Context, req VideoRequest) ([]byte, error) {
	return nil, fmt.Errorf("generate video: %w", ErrUnsupported)
}
