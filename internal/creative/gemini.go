package creative

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kaymio/productcast/internal/imaging"
	"github.com/kaymio/productcast/internal/platforms"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultImageModel    = "gemini-2.5-flash-image"
	defaultVideoModel    = "veo-3.0-fast-generate-001"
	defaultGeminiTimeout = 120 * time.Second
	defaultPollInterval  = 10 * time.Second
	defaultVideoDeadline = 10 * time.Minute

	geminiProvider = "gemini"
)

type GeminiConfig struct {
	APIKey        string
	ImageModel    string
	VideoModel    string
	BaseURL       string
	Timeout       time.Duration
	PollInterval  time.Duration
	VideoDeadline time.Duration
}

// Gemini edits images with generateContent and animates them with Veo.
type Gemini struct {
	apiKey        string
	baseURL       string
	imageModel    string
	videoModel    string
	pollInterval  time.Duration
	videoDeadline time.Duration
	httpClient    *http.Client
}

func NewGemini(cfg GeminiConfig) *Gemini {
	g := &Gemini{
		apiKey:        cfg.APIKey,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		imageModel:    cfg.ImageModel,
		videoModel:    cfg.VideoModel,
		pollInterval:  cfg.PollInterval,
		videoDeadline: cfg.VideoDeadline,
	}
	if g.baseURL == "" {
		g.baseURL = defaultGeminiBaseURL
	}
	if g.imageModel == "" {
		g.imageModel = defaultImageModel
	}
	if g.videoModel == "" {
		g.videoModel = defaultVideoModel
	}
	if g.pollInterval == 0 {
		g.pollInterval = defaultPollInterval
	}
	if g.videoDeadline == 0 {
		g.videoDeadline = defaultVideoDeadline
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultGeminiTimeout
	}
	g.httpClient = &http.Client{Timeout: timeout}
	return g
}

func (g *Gemini) Name() string {
	return "gemini:" + g.imageModel
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text,omitempty"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (g *Gemini) EditImage(ctx context.Context, req ImageEdit) ([]byte, error) {
	if g.apiKey == "" {
		return nil, platforms.NotConfigured(geminiProvider, "GEMINI_API_KEY")
	}
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("edit image: empty source image")
	}

	body := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: buildInstruction(req)},
				{InlineData: &inlineData{
					MimeType: imaging.DetectMIME(req.Image, "image/png"),
					Data:     base64.StdEncoding.EncodeToString(req.Image),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if req.AspectRatio != "" {
		body.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: req.AspectRatio}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.imageModel)
	respBody, err := g.post(ctx, endpoint, "edit image", body)
	if err != nil {
		return nil, err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("gemini API error: %s", parsed.Error.Message)
	}

	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				imageData, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("decode image: %w", err)
				}
				slog.Debug("gemini image edited", "model", g.imageModel, "aspect_ratio", req.AspectRatio, "bytes", len(imageData))
				return imageData, nil
			}
		}
	}

	return nil, platforms.Malformed(geminiProvider, "no image in response")
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *videoImage `json:"image,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type predictRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type operation struct {
	Name     string    `json:"name"`
	Done     bool      `json:"done"`
	Error    *apiError `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// GenerateVideo starts a Veo long-running prediction, polls it to completion
// and downloads the first generated sample.
func (g *Gemini) GenerateVideo(ctx context.Context, req VideoRequest) ([]byte, error) {
	if g.apiKey == "" {
		return nil, platforms.NotConfigured(geminiProvider, "GEMINI_API_KEY")
	}

	instance := videoInstance{Prompt: req.Prompt}
	if len(req.Image) > 0 {
		instance.Image = &videoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image),
			MimeType:           imaging.DetectMIME(req.Image, "image/png"),
		}
	}
	body := predictRequest{
		Instances: []videoInstance{instance},
		Parameters: videoParameters{
			AspectRatio:     req.AspectRatio,
			Resolution:      req.Resolution,
			DurationSeconds: req.DurationSeconds,
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:predictLongRunning", g.baseURL, g.videoModel)
	respBody, err := g.post(ctx, endpoint, "start video", body)
	if err != nil {
		return nil, err
	}

	var op operation
	if err := json.Unmarshal(respBody, &op); err != nil {
		return nil, fmt.Errorf("unmarshal operation: %w", err)
	}
	if op.Name == "" {
		return nil, platforms.Malformed(geminiProvider, "missing operation name")
	}

	slog.Info("video generation started", "model", g.videoModel, "operation", op.Name, "duration_seconds", req.DurationSeconds)

	ctx, cancel := context.WithTimeout(ctx, g.videoDeadline)
	defer cancel()

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for video %s: %w", op.Name, ctx.Err())
		case <-ticker.C:
		}

		name := op.Name
		polled, err := g.getOperation(ctx, name)
		if err != nil {
			return nil, err
		}
		op = *polled
		if op.Name == "" {
			op.Name = name
		}
	}

	if op.Error != nil {
		return nil, fmt.Errorf("video generation failed: %s", op.Error.Message)
	}
	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		return nil, platforms.Malformed(geminiProvider, "no generated video samples")
	}
	uri := op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	if uri == "" {
		return nil, platforms.Malformed(geminiProvider, "generated video has no uri")
	}

	return g.download(ctx, uri)
}

func (g *Gemini) getOperation(ctx context.Context, name string) (*operation, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/"+strings.TrimPrefix(name, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("poll operation: %w", err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		return nil, platforms.NewAPIError(geminiProvider, "poll video", resp)
	}

	var op operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}
	slog.Debug("polled video operation", "operation", name, "done", op.Done)
	return &op, nil
}

func (g *Gemini) download(ctx context.Context, uri string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		return nil, platforms.NewAPIError(geminiProvider, "download video", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read video: %w", err)
	}
	if len(data) == 0 {
		return nil, platforms.Malformed(geminiProvider, "empty video download")
	}
	return data, nil
}

func (g *Gemini) post(ctx context.Context, endpoint, action string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		return nil, platforms.NewAPIError(geminiProvider, action, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
