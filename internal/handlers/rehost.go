package handlers

import (
	"context"
	"net/url"
	"strings"

	"github.com/kaymio/productcast/internal/media"
	"github.com/kaymio/productcast/internal/platforms/instagram"
)

// MediaUploader publishes a local file and returns its public URL.
type MediaUploader interface {
	UploadMedia(ctx context.Context, path string) (string, error)
}

// NewMediaRehoster returns a resolver that re-hosts URLs pointing at this
// server's /media/ route through uploader, so that Instagram can fetch
// them. Any other URL is returned unchanged.
func NewMediaRehoster(store *media.Store, uploader MediaUploader) instagram.PublicURLResolver {
	return func(ctx context.Context, imageURL string) (string, error) {
		rel, ok := localMediaPath(imageURL)
		if !ok {
			return imageURL, nil
		}
		abs, ok := store.Resolve(rel)
		if !ok {
			return imageURL, nil
		}
		return uploader.UploadMedia(ctx, abs)
	}
}

// localMediaPath extracts the storage relative path from a /media/ URL.
func localMediaPath(imageURL string) (string, bool) {
	if imageURL == "" {
		return "", false
	}
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", false
	}
	_, rel, found := strings.Cut(u.Path, mediaPrefix)
	if !found || rel == "" {
		return "", false
	}
	return rel, true
}
