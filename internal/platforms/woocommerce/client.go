// Package woocommerce creates external (affiliate) products on the storefront
// and uploads media to the WordPress library behind it.
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kaymio/productcast/internal/imaging"
	"github.com/kaymio/productcast/internal/platforms"
)

const (
	defaultTimeout = 30 * time.Second

	productType = "external"
	buttonText  = "Buy Product"
	perPage     = 100

	provider = "woocommerce"
)

type Config struct {
	// BaseURL is the WordPress site root, e.g. https://shop.example.com.
	BaseURL        string
	Username       string
	Password       string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
}

type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client

	mu         sync.Mutex
	categories []Category
}

type ExternalProduct struct {
	Name          string
	Description   string
	Price         string
	Images        []string
	Tags          []string
	AffiliateLink string
	CategoryID    int
}

type Category struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Parent int    `json:"parent"`
}

type imageRef struct {
	Src string `json:"src"`
}

type tagRef struct {
	Name string `json:"name"`
}

type categoryRef struct {
	ID int `json:"id"`
}

type productRequest struct {
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	RegularPrice string        `json:"regular_price"`
	Description  string        `json:"description"`
	Images       []imageRef    `json:"images"`
	Tags         []tagRef      `json:"tags"`
	Categories   []categoryRef `json:"categories"`
	ExternalURL  string        `json:"external_url"`
	ButtonText   string        `json:"button_text"`
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsConfigured reports whether products can be created.
func (c *Client) IsConfigured() bool {
	return c.storeCredentials() == nil
}

func (c *Client) storeCredentials() error {
	var missing []string
	if c.baseURL == "" {
		missing = append(missing, "WORDPRESS_API_URL")
	}
	if c.cfg.ConsumerKey == "" {
		missing = append(missing, "WC_CONSUMER_KEY")
	}
	if c.cfg.ConsumerSecret == "" {
		missing = append(missing, "WC_CONSUMER_SECRET")
	}
	if len(missing) > 0 {
		return platforms.NotConfigured(provider, missing...)
	}
	return nil
}

func (c *Client) mediaCredentials() error {
	var missing []string
	if c.baseURL == "" {
		missing = append(missing, "WORDPRESS_API_URL")
	}
	if c.cfg.Username == "" {
		missing = append(missing, "WORDPRESS_USERNAME")
	}
	if c.cfg.Password == "" {
		missing = append(missing, "WORDPRESS_PASSWORD")
	}
	if len(missing) > 0 {
		return platforms.NotConfigured(provider, missing...)
	}
	return nil
}

// CreateExternalProduct creates an affiliate product and returns its permalink.
func (c *Client) CreateExternalProduct(ctx context.Context, p ExternalProduct) (string, error) {
	if err := c.storeCredentials(); err != nil {
		return "", err
	}

	reqBody := productRequest{
		Name:         p.Name,
		Type:         productType,
		RegularPrice: p.Price,
		Description:  p.Description,
		Images:       []imageRef{},
		Tags:         []tagRef{},
		Categories:   []categoryRef{},
		ExternalURL:  p.AffiliateLink,
		ButtonText:   buttonText,
	}
	for _, src := range p.Images {
		if src != "" {
			reqBody.Images = append(reqBody.Images, imageRef{Src: src})
		}
	}
	for _, tag := range p.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			reqBody.Tags = append(reqBody.Tags, tagRef{Name: tag})
		}
	}
	if p.CategoryID > 0 {
		reqBody.Categories = append(reqBody.Categories, categoryRef{ID: p.CategoryID})
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wp-json/wc/v3/products", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		apiErr := platforms.NewAPIError(provider, "create product", resp)
		slog.Error("woocommerce API error", "status", apiErr.StatusCode, "body", apiErr.Body)
		return "", apiErr
	}

	var created struct {
		ID        int    `json:"id"`
		Permalink string `json:"permalink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode product response: %w", err)
	}
	if created.Permalink == "" {
		return "", platforms.Malformed(provider, "product response has no permalink")
	}

	slog.Info("woocommerce product created", "product_id", created.ID, "permalink", created.Permalink)
	return created.Permalink, nil
}

// UploadMedia uploads the file at path to the WordPress media library and
// returns its public source URL.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read media: %w", err)
	}
	return c.UploadMediaBytes(ctx, filepath.Base(path), data)
}

func (c *Client) UploadMediaBytes(ctx context.Context, filename string, data []byte) (string, error) {
	if err := c.mediaCredentials(); err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", imaging.DetectMIME(data, "image/png"))
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/media", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		apiErr := platforms.NewAPIError(provider, "upload media", resp)
		slog.Error("wordpress media upload failed", "status", apiErr.StatusCode, "body", apiErr.Body)
		return "", apiErr
	}

	var uploaded struct {
		SourceURL string `json:"source_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("decode media response: %w", err)
	}
	if uploaded.SourceURL == "" {
		return "", platforms.Malformed(provider, "media response has no source_url")
	}
	return uploaded.SourceURL, nil
}

// Categories lists every product category. The first successful listing is cached.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.categories != nil {
		return c.categories, nil
	}
	if err := c.storeCredentials(); err != nil {
		return nil, err
	}

	all := []Category{}
	for page := 1; ; page++ {
		batch, err := c.categoryPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
	}

	c.categories = all
	slog.Debug("woocommerce categories loaded", "count", len(all))
	return all, nil
}

func (c *Client) categoryPage(ctx context.Context, page int) ([]Category, error) {
	endpoint := c.baseURL + "/wp-json/wc/v3/products/categories?page=" + strconv.Itoa(page) + "&per_page=" + strconv.Itoa(perPage)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		return nil, platforms.NewAPIError(provider, "list categories", resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	var batch []Category
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return batch, nil
}
