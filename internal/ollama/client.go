// Package ollama generates product copy with a local Ollama server. It is
// the text backend when no OpenAI key is configured.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kaymio/productcast/internal/openai"
	"github.com/kaymio/productcast/internal/platforms"
)

const (
	defaultModel   = "mistral:7b"
	defaultTimeout = 120 * time.Second

	provider = "ollama"
)

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type generateRequest struct {
	Model   string          `json:"model"`
	System  string          `json:"system,omitempty"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Model         string `json:"model"`
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration"`
	EvalCount     int    `json:"eval_count"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewClient returns a client for cfg. An empty BaseURL leaves it
// unconfigured.
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.baseURL != ""
}

// IsAvailable reports whether the server answers and has the model pulled.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if !c.IsConfigured() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("ollama not available", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if m.Name == c.model || strings.HasPrefix(m.Name, c.model+":") {
			return true
		}
	}

	slog.Warn("ollama available but model not found", "model", c.model, "available_models", len(tags.Models))
	return false
}

// GenerateText runs prompt through /api/generate without streaming.
func (c *Client) GenerateText(ctx context.Context, prompt openai.Prompt) (string, error) {
	if !c.IsConfigured() {
		return "", platforms.NotConfigured(provider, "OLLAMA_URL")
	}

	jsonBody, err := json.Marshal(generateRequest{
		Model:  c.model,
		System: prompt.System,
		Prompt: prompt.User,
		Options: generateOptions{
			Temperature: prompt.Temperature,
			NumPredict:  prompt.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	slog.Debug("calling ollama", "model", c.model, "prompt_length", len(prompt.User))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		return "", platforms.NewAPIError(provider, "generate text", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	text := strings.TrimSpace(parsed.Response)
	if text == "" {
		return "", platforms.Malformed(provider, "empty response")
	}

	slog.Debug("ollama text generated",
		"model", parsed.Model,
		"eval_count", parsed.EvalCount,
		"length", len(text),
	)
	return text, nil
}
