// Package instagram publishes feed posts and stories through the Instagram Graph API.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kaymio/productcast/internal/platforms"
	"github.com/kaymio/productcast/internal/social"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v21.0"
	defaultTimeout = 30 * time.Second

	maxCaption = 2200

	provider = "instagram"

	mediaTypeStories = "STORIES"
)

type Config struct {
	AccessToken string
	UserID      string
	TokenFile   string
	AppID       string
	AppSecret   string
	RedirectURI string
	BaseURL     string
	DialogURL   string
	Timeout     time.Duration
}

// PublicURLResolver turns an image URL the Graph API cannot fetch (for
// example one served by this app on localhost) into a public one.
type PublicURLResolver func(ctx context.Context, imageURL string) (string, error)

type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	resolver   PublicURLResolver
}

// Post is an image plus optional caption and story link.
type Post struct {
	ImageURL  string
	Caption   string
	ShareLink string
}

type PublishResult struct {
	ID         string
	CreationID string
	ImageURL   string
}

// Credentials is the layout of the token file.
type Credentials struct {
	AccessToken    string `json:"INSTAGRAM_ACCESS_TOKEN"`
	UserID         string `json:"INSTAGRAM_USER_ID"`
	LongLivedToken string `json:"FB_LONG_LIVED_USER_ACCESS_TOKEN,omitempty"`
	PageID         string `json:"FB_PAGE_ID,omitempty"`
	ExpiresIn      any    `json:"EXPIRES_IN,omitempty"`
}

type idResponse struct {
	ID string `json:"id"`
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetResolver installs the hook used to re-host local media URLs.
func (c *Client) SetResolver(r PublicURLResolver) {
	c.resolver = r
}

func (c *Client) IsConfigured() bool {
	_, _, err := c.Credentials()
	return err == nil
}

// Credentials returns the configured token and user id, filling gaps from the token file.
func (c *Client) Credentials() (token, userID string, err error) {
	token, userID = c.cfg.AccessToken, c.cfg.UserID
	if token == "" || userID == "" {
		stored := c.readTokenFile()
		token = social.FirstNonEmpty(token, stored.AccessToken)
		userID = social.FirstNonEmpty(userID, stored.UserID)
	}
	if token == "" || userID == "" {
		return "", "", platforms.NotConfigured(provider, "INSTAGRAM_ACCESS_TOKEN", "INSTAGRAM_USER_ID")
	}
	return token, userID, nil
}

func (c *Client) readTokenFile() Credentials {
	var creds Credentials
	if c.cfg.TokenFile == "" {
		return creds
	}
	raw, err := os.ReadFile(c.cfg.TokenFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read instagram token file", "path", c.cfg.TokenFile, "error", err)
		}
		return creds
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		slog.Warn("invalid JSON in instagram token file", "path", c.cfg.TokenFile, "error", err)
		return Credentials{}
	}
	return creds
}

// PublishPost publishes a feed post.
func (c *Client) PublishPost(ctx context.Context, post Post) (*PublishResult, error) {
	return c.publish(ctx, post, "")
}

// PublishStory publishes a story.
func (c *Client) PublishStory(ctx context.Context, post Post) (*PublishResult, error) {
	return c.publish(ctx, post, mediaTypeStories)
}

func (c *Client) publish(ctx context.Context, post Post, mediaType string) (*PublishResult, error) {
	token, userID, err := c.Credentials()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(post.ImageURL) == "" {
		return nil, fmt.Errorf("instagram publish: image url is required")
	}

	imageURL := c.publicURL(ctx, post.ImageURL)

	form := url.Values{}
	form.Set("access_token", token)
	form.Set("image_url", imageURL)
	if post.Caption != "" {
		form.Set("caption", social.Clip(post.Caption, maxCaption))
	}
	if post.ShareLink != "" {
		form.Set("share_to_story_link", post.ShareLink)
	}
	if mediaType != "" {
		form.Set("media_type", mediaType)
	}

	var container idResponse
	if err := c.postForm(ctx, "/"+userID+"/media", "create media container", form, &container); err != nil {
		return nil, err
	}
	if container.ID == "" {
		return nil, platforms.Malformed(provider, "media container has no id")
	}

	publishForm := url.Values{}
	publishForm.Set("creation_id", container.ID)
	publishForm.Set("access_token", token)

	var published idResponse
	if err := c.postForm(ctx, "/"+userID+"/media_publish", "publish media", publishForm, &published); err != nil {
		return nil, err
	}

	slog.Info("instagram media published", "media_id", published.ID, "creation_id", container.ID, "story", mediaType != "")
	return &PublishResult{ID: published.ID, CreationID: container.ID, ImageURL: imageURL}, nil
}

func (c *Client) publicURL(ctx context.Context, imageURL string) string {
	if c.resolver == nil {
		return imageURL
	}
	resolved, err := c.resolver(ctx, imageURL)
	if err != nil {
		slog.Error("unable to re-host instagram media, using original url", "url", imageURL, "error", err)
		return imageURL
	}
	if resolved == "" {
		return imageURL
	}
	return resolved
}

func (c *Client) postForm(ctx context.Context, path, operation string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("instagram %s: %w", operation, err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		apiErr := platforms.NewAPIError(provider, operation, resp)
		slog.Error("instagram API error", "operation", operation, "status", apiErr.StatusCode, "body", apiErr.Body)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
