package importer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// MaxConcurrentDownloads bounds parallel image fetches per lookup.
const MaxConcurrentDownloads = 4

var ErrNoImages = errors.New("no images downloaded")

// ImageDownloader downloads product images into memory.
type ImageDownloader struct {
	client *HTTPClient
}

// DownloadedImage is a fetched image and the extension it should be stored under.
type DownloadedImage struct {
	OriginalURL string
	Ext         string
	Data        []byte
}

func NewImageDownloader(client *HTTPClient) *ImageDownloader {
	if client == nil {
		client = NewHTTPClient(0, 0)
	}
	return &ImageDownloader{client: client}
}

// DownloadImages fetches up to limit of imageURLs concurrently. Failed
// downloads are logged and skipped; results keep the input order.
// ErrNoImages is returned only when nothing could be fetched.
func (d *ImageDownloader) DownloadImages(ctx context.Context, imageURLs []string, limit int) ([]DownloadedImage, error) {
	urls := make([]string, 0, len(imageURLs))
	for _, u := range imageURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	if len(urls) == 0 {
		return nil, ErrNoImages
	}

	results := make([]*DownloadedImage, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentDownloads)

	for i, imageURL := range urls {
		g.Go(func() error {
			data, contentType, err := d.client.Get(gctx, imageURL)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				slog.Error("failed to download image", "error", err, "url", imageURL)
				return nil
			}
			results[i] = &DownloadedImage{
				OriginalURL: imageURL,
				Ext:         extension(imageURL, contentType),
				Data:        data,
			}
			slog.Debug("downloaded image", "url", imageURL, "bytes", len(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var downloaded []DownloadedImage
	for _, img := range results {
		if img != nil {
			downloaded = append(downloaded, *img)
		}
	}
	if len(downloaded) == 0 {
		return nil, ErrNoImages
	}
	return downloaded, nil
}

// extension prefers the Content-Type and falls back to the URL.
func extension(url, contentType string) string {
	switch {
	case strings.Contains(contentType, "jpeg") || strings.Contains(contentType, "jpg"):
		return ".jpg"
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	}

	urlLower := strings.ToLower(url)
	if i := strings.IndexAny(urlLower, "?#"); i >= 0 {
		urlLower = urlLower[:i]
	}
	switch {
	case strings.HasSuffix(urlLower, ".jpg") || strings.HasSuffix(urlLower, ".jpeg"):
		return ".jpg"
	case strings.HasSuffix(urlLower, ".png"):
		return ".png"
	case strings.HasSuffix(urlLower, ".webp"):
		return ".webp"
	case strings.HasSuffix(urlLower, ".gif"):
		return ".gif"
	}

	return ".jpg"
}
