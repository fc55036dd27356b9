// Package tiktok publishes videos through the TikTok direct post flow.
package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kaymio/productcast/internal/platforms"
	"github.com/kaymio/productcast/internal/social"
)

const (
	defaultBaseURL       = "https://open.tiktokapis.com/v2/post/publish"
	defaultTimeout       = 30 * time.Second
	defaultUploadTimeout = 120 * time.Second

	maxCaption = 2200

	provider = "tiktok"

	PrivacyPublic = "PUBLIC"
)

type Config struct {
	AccessToken   string
	OpenID        string
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
}

type Client struct {
	cfg          Config
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client
}

type postInfo struct {
	Caption        string `json:"caption"`
	PrivacyLevel   string `json:"privacy_level"`
	DisableDuet    bool   `json:"disable_duet"`
	DisableComment bool   `json:"disable_comment"`
}

type initRequest struct {
	SourceInfo struct {
		Source string `json:"source"`
	} `json:"source_info"`
	OpenID   string   `json:"open_id"`
	PostInfo postInfo `json:"post_info"`
}

type initResponse struct {
	Data struct {
		UploadURL string `json:"upload_url"`
		PublishID string `json:"publish_id"`
	} `json:"data"`
}

type publishRequest struct {
	PublishID string `json:"publish_id"`
	OpenID    string `json:"open_id"`
}

type publishResponse struct {
	Data map[string]any `json:"data"`
}

// PublishResult carries the publish id plus whatever status data TikTok returned.
type PublishResult struct {
	PublishID string
	Data      map[string]any
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
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout == 0 {
		uploadTimeout = defaultUploadTimeout
	}
	return &Client{
		cfg:          cfg,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		uploadClient: &http.Client{Timeout: uploadTimeout},
	}
}

func (c *Client) IsConfigured() bool {
	return c.cfg.AccessToken != "" && c.cfg.OpenID != ""
}

// PublishVideo initializes an upload, PUTs the video bytes and publishes the post.
// An empty privacy level means PUBLIC.
func (c *Client) PublishVideo(ctx context.Context, video []byte, caption, privacy string) (*PublishResult, error) {
	if !c.IsConfigured() {
		return nil, platforms.NotConfigured(provider, "TIKTOK_ACCESS_TOKEN", "TIKTOK_USER_ID")
	}
	if len(video) == 0 {
		return nil, fmt.Errorf("tiktok publish: empty video")
	}
	if privacy == "" {
		privacy = PrivacyPublic
	}

	initReq := initRequest{
		OpenID: c.cfg.OpenID,
		PostInfo: postInfo{
			Caption:      social.Clip(caption, maxCaption),
			PrivacyLevel: privacy,
		},
	}
	initReq.SourceInfo.Source = "FILE_UPLOAD"

	var initResp initResponse
	if err := c.postJSON(ctx, "/video/init/", "init upload", initReq, &initResp); err != nil {
		return nil, err
	}
	uploadURL, publishID := initResp.Data.UploadURL, initResp.Data.PublishID
	if uploadURL == "" || publishID == "" {
		return nil, platforms.Malformed(provider, "init upload missing upload_url/publish_id")
	}

	if err := c.upload(ctx, uploadURL, video); err != nil {
		return nil, err
	}

	var pubResp publishResponse
	if err := c.postJSON(ctx, "/", "publish", publishRequest{PublishID: publishID, OpenID: c.cfg.OpenID}, &pubResp); err != nil {
		return nil, err
	}
	if pubResp.Data == nil {
		pubResp.Data = map[string]any{}
	}

	slog.Info("tiktok video published", "publish_id", publishID, "bytes", len(video))
	return &PublishResult{PublishID: publishID, Data: pubResp.Data}, nil
}

func (c *Client) upload(ctx context.Context, uploadURL string, video []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(video))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "video/mp4")

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("tiktok upload: %w", err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		apiErr := platforms.NewAPIError(provider, "upload video", resp)
		slog.Error("tiktok video upload failed", "status", apiErr.StatusCode, "body", apiErr.Body)
		return apiErr
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path, operation string, payload, out any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tiktok %s: %w", operation, err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		apiErr := platforms.NewAPIError(provider, operation, resp)
		slog.Error("tiktok API error", "operation", operation, "status", apiErr.StatusCode, "body", apiErr.Body)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
