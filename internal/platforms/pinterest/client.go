package pinterest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kaymio/productcast/internal/imaging"
	"github.com/kaymio/productcast/internal/platforms"
	"github.com/kaymio/productcast/internal/social"
)

const (
	defaultBaseURL = "https://api.pinterest.com/v5"
	defaultTimeout = 30 * time.Second

	maxTitle       = 100
	maxDescription = 500
	maxNote        = 250

	provider = "pinterest"

	StatusCreated = "created"
	StatusSkipped = "skipped"
)

type Config struct {
	AccessToken string
	TokenFile   string
	BoardID     string
	AppID       string
	AppSecret   string
	RedirectURI string
	BaseURL     string
	AuthURL     string
	Timeout     time.Duration
}

type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// Pin is the content of a new pin.
type Pin struct {
	Image       []byte
	Title       string
	Description string
	Link        string
	Tags        []string
}

type PinResult struct {
	Status string
	ID     string
	URL    string
}

type mediaSource struct {
	SourceType  string `json:"source_type"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type createPinRequest struct {
	BoardID     string      `json:"board_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Link        string      `json:"link,omitempty"`
	AltText     string      `json:"alt_text"`
	Note        string      `json:"note,omitempty"`
	MediaSource mediaSource `json:"media_source"`
}

type createPinResponse struct {
	ID    string `json:"id"`
	PinID string `json:"pin_id"`
	Link  string `json:"link"`
	URL   string `json:"url"`
}

type boardsResponse struct {
	Items []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"items"`
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

func (c *Client) IsConfigured() bool {
	return c.AccessToken() != ""
}

// AccessToken prefers the configured token and falls back to the token file.
func (c *Client) AccessToken() string {
	if c.cfg.AccessToken != "" {
		return c.cfg.AccessToken
	}
	if c.cfg.TokenFile == "" {
		return ""
	}
	raw, err := os.ReadFile(c.cfg.TokenFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read pinterest token file", "path", c.cfg.TokenFile, "error", err)
		}
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// CreatePin publishes a pin. Without a token or board the call is skipped
// rather than failed so the rest of the workflow can continue.
func (c *Client) CreatePin(ctx context.Context, pin Pin) (*PinResult, error) {
	token := c.AccessToken()
	if token == "" {
		slog.Warn("pinterest credentials missing, skipping pin")
		return &PinResult{Status: StatusSkipped}, nil
	}

	boardID := c.cfg.BoardID
	if boardID == "" {
		var err error
		boardID, err = c.DefaultBoard(ctx)
		if err != nil {
			slog.Warn("could not look up default pinterest board", "error", err)
		}
	}
	if boardID == "" {
		slog.Warn("pinterest board missing, skipping pin")
		return &PinResult{Status: StatusSkipped}, nil
	}

	tags := social.CleanTags(pin.Tags, 0)
	description := social.Clip(social.PinterestDescription(pin.Description, tags), maxDescription)

	reqBody := createPinRequest{
		BoardID:     boardID,
		Title:       social.Clip(pin.Title, maxTitle),
		Description: description,
		Link:        pin.Link,
		AltText:     description,
		MediaSource: mediaSource{
			SourceType:  "image_base64",
			ContentType: imaging.DetectMIME(pin.Image, "image/jpeg"),
			Data:        base64.StdEncoding.EncodeToString(pin.Image),
		},
	}
	if len(tags) > 0 {
		reqBody.Note = social.Clip(strings.Join(tags, ", "), maxNote)
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pins", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create pin: %w", err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		apiErr := platforms.NewAPIError(provider, "create pin", resp)
		slog.Error("pinterest API error", "status", apiErr.StatusCode, "body", apiErr.Body)
		return nil, apiErr
	}

	var parsed createPinResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode pin response: %w", err)
	}

	id := social.FirstNonEmpty(parsed.ID, parsed.PinID)
	if id == "" {
		return nil, platforms.Malformed(provider, "pin response has no id")
	}

	result := &PinResult{
		Status: StatusCreated,
		ID:     id,
		URL:    social.FirstNonEmpty(parsed.Link, parsed.URL),
	}
	slog.Info("pinterest pin created", "pin_id", result.ID, "board_id", boardID)
	return result, nil
}

// DefaultBoard returns the id of the first board on the account.
func (c *Client) DefaultBoard(ctx context.Context) (string, error) {
	token := c.AccessToken()
	if token == "" {
		return "", platforms.NotConfigured(provider, "PINTEREST_ACCESS_TOKEN")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/boards", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("list boards: %w", err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		return "", platforms.NewAPIError(provider, "list boards", resp)
	}

	var boards boardsResponse
	if err := json.NewDecoder(resp.Body).Decode(&boards); err != nil {
		return "", fmt.Errorf("decode boards: %w", err)
	}
	if len(boards.Items) == 0 {
		return "", nil
	}
	return boards.Items[0].ID, nil
}
