// Package youtube uploads Shorts through the YouTube Data API.
package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kaymio/productcast/internal/platforms"
	"github.com/kaymio/productcast/internal/social"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

const (
	defaultTimeout = 120 * time.Second

	maxTitle       = 100
	maxDescription = 5000
	maxTagLength   = 30

	categoryPeopleBlogs = "22"
	defaultTitle        = "Untitled Short"
	defaultPrivacy      = "public"

	provider = "youtube"
)

type Config struct {
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	RedirectURI     string
	AccessTokenFile string
	// Endpoint and TokenURL override Google's defaults.
	Endpoint string
	TokenURL string
	AuthURL  string
	Timeout  time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Short is a vertical video plus its metadata.
type Short struct {
	Video         []byte
	Title         string
	Description   string
	Tags          []string
	PrivacyStatus string
}

type ShortResult struct {
	Status  string
	VideoID string
	URL     string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsConfigured reports whether UploadShort has any way to authenticate.
func (c *Client) IsConfigured() bool {
	return c.hasRefreshToken() || c.storedAccessToken() != ""
}

func (c *Client) hasRefreshToken() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != "" && c.cfg.RefreshToken != ""
}

// UploadShort inserts the video with snippet and status parts.
func (c *Client) UploadShort(ctx context.Context, short Short) (*ShortResult, error) {
	if len(short.Video) == 0 {
		return nil, fmt.Errorf("youtube upload: empty video")
	}
	ts, err := c.tokenSource(ctx)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(c.baseContext(ctx), ts))}
	if c.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.cfg.Endpoint))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}

	video := &yt.Video{
		Snippet: buildSnippet(short),
		Status: &yt.VideoStatus{
			PrivacyStatus:           social.FirstNonEmpty(short.PrivacyStatus, defaultPrivacy),
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	uploaded, err := svc.Videos.
		Insert([]string{"snippet", "status"}, video).
		Media(bytes.NewReader(short.Video), googleapi.ContentType("video/mp4")).
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			slog.Error("youtube upload failed", "status", gerr.Code, "message", gerr.Message)
			return nil, &platforms.APIError{
				Provider:   provider,
				Operation:  "upload short",
				StatusCode: gerr.Code,
				Body:       social.FirstNonEmpty(gerr.Message, gerr.Body),
			}
		}
		return nil, fmt.Errorf("youtube upload: %w", err)
	}

	result := &ShortResult{Status: "uploaded", VideoID: uploaded.Id}
	if uploaded.Status != nil && uploaded.Status.UploadStatus != "" {
		result.Status = uploaded.Status.UploadStatus
	}
	if uploaded.Id != "" {
		result.URL = "https://youtube.com/watch?v=" + uploaded.Id
	}

	slog.Info("youtube short uploaded", "video_id", result.VideoID, "status", result.Status)
	return result, nil
}

func buildSnippet(short Short) *yt.VideoSnippet {
	title := social.Clip(short.Title, maxTitle)
	if title == "" {
		title = defaultTitle
	}
	snippet := &yt.VideoSnippet{
		Title:       title,
		Description: social.Clip(short.Description, maxDescription),
		CategoryId:  categoryPeopleBlogs,
	}
	for _, tag := range short.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			snippet.Tags = append(snippet.Tags, social.Clip(tag, maxTagLength))
		}
	}
	return snippet
}

func (c *Client) baseContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// tokenSource prefers the refresh token, which survives access token
// expiry, and falls back to a previously stored access token.
func (c *Client) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if c.hasRefreshToken() {
		expired := &oauth2.Token{RefreshToken: c.cfg.RefreshToken, Expiry: time.Now().Add(-time.Hour)}
		src := c.oauthConfig().TokenSource(c.baseContext(ctx), expired)
		return &persistingSource{src: src, path: c.cfg.AccessTokenFile}, nil
	}
	if token := c.storedAccessToken(); token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), nil
	}
	return nil, platforms.NotConfigured(provider, "YOUTUBE_CLIENT_ID", "YOUTUBE_CLIENT_SECRET", "YOUTUBE_REFRESH_TOKEN")
}

func (c *Client) storedAccessToken() string {
	if c.cfg.AccessTokenFile == "" {
		return ""
	}
	raw, err := os.ReadFile(c.cfg.AccessTokenFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// persistingSource writes each newly minted access token to path.
type persistingSource struct {
	src  oauth2.TokenSource
	path string
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	token, err := p.src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh youtube access token: %w", err)
	}
	if p.path != "" && token.AccessToken != p.last {
		if err := writeToken(p.path, token.AccessToken); err != nil {
			slog.Warn("failed to persist youtube access token", "path", p.path, "error", err)
		}
		p.last = token.AccessToken
	}
	return token, nil
}
