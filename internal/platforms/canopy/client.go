// Package canopy looks up Amazon product details through the Canopy REST API.
package canopy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kaymio/productcast/internal/platforms"
	"github.com/kaymio/productcast/internal/social"
)

const (
	defaultBaseURL = "https://rest.canopyapi.co/api/amazon/product"
	defaultTimeout = 30 * time.Second
	defaultCountry = "US"

	provider = "canopy"
)

var ErrNoASIN = errors.New("could not extract ASIN")

var (
	bareASIN   = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)
	asinInPath = []*regexp.Regexp{
		regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})`),
		regexp.MustCompile(`(?i)/gp/product/([A-Z0-9]{10})`),
		regexp.MustCompile(`(?i)/product/([A-Z0-9]{10})`),
	}
)

type Config struct {
	APIKey  string
	StoreID string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// Product is the subset of Amazon listing data the workflow prefills.
type Product struct {
	ASIN          string
	Title         string
	ImageURLs     []string
	Category      string
	Description   string
	Price         string
	OriginalLink  string
	AffiliateLink string
}

type amazonProduct struct {
	Title          string          `json:"title"`
	ImageURLs      json.RawMessage `json:"imageUrls"`
	Images         json.RawMessage `json:"images"`
	Categories     []any           `json:"categories"`
	FeatureBullets []string        `json:"featureBullets"`
	Subtitle       string          `json:"subtitle"`
	Price          *struct {
		Display string `json:"display"`
		Value   any    `json:"value"`
	} `json:"price"`
	URL        string `json:"url"`
	ProductURL string `json:"productUrl"`
}

type productResponse struct {
	Data *struct {
		AmazonProduct *amazonProduct `json:"amazonProduct"`
	} `json:"data"`
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
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

// LookupProduct fetches listing details for asin in the given marketplace
// country (default US) and attaches the store's affiliate link.
func (c *Client) LookupProduct(ctx context.Context, asin, country string) (*Product, error) {
	if !c.IsConfigured() {
		return nil, platforms.NotConfigured(provider, "CANOPY_API_KEY")
	}
	asin = strings.ToUpper(strings.TrimSpace(asin))
	if asin == "" {
		return nil, ErrNoASIN
	}
	if country == "" {
		country = defaultCountry
	}

	params := url.Values{"asin": {asin}, "domain": {country}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("API-KEY", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("canopy lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := platforms.NewAPIError(provider, "lookup product", resp)
		slog.Error("canopy API error", "asin", asin, "status", apiErr.StatusCode, "body", apiErr.Body)
		return nil, apiErr
	}

	var parsed productResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	if parsed.Data == nil || parsed.Data.AmazonProduct == nil {
		return nil, platforms.Malformed(provider, "response has no amazonProduct")
	}

	product := toProduct(parsed.Data.AmazonProduct)
	product.ASIN = asin
	product.AffiliateLink = AffiliateLink(asin, c.cfg.StoreID)

	slog.Debug("canopy product fetched", "asin", asin, "images", len(product.ImageURLs))
	return product, nil
}

func toProduct(p *amazonProduct) *Product {
	out := &Product{
		Title:        p.Title,
		ImageURLs:    stringList(p.ImageURLs),
		OriginalLink: social.FirstNonEmpty(p.URL, p.ProductURL),
	}
	if len(out.ImageURLs) == 0 {
		out.ImageURLs = stringList(p.Images)
	}

	if n := len(p.Categories); n > 0 {
		switch last := p.Categories[n-1].(type) {
		case map[string]any:
			if name, ok := last["name"].(string); ok {
				out.Category = name
			}
		case nil:
		default:
			out.Category = fmt.Sprint(last)
		}
	}

	if len(p.FeatureBullets) > 0 {
		out.Description = p.FeatureBullets[0]
	}
	if out.Description == "" {
		out.Description = p.Subtitle
	}

	if p.Price != nil {
		out.Price = p.Price.Display
		if out.Price == "" {
			out.Price = priceValue(p.Price.Value)
		}
	}
	return out
}

// stringList accepts a JSON array of strings or a single string.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return social.CleanTags(list, 0)
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return []string{single}
	}
	return nil
}

func priceValue(v any) string {
	switch value := v.(type) {
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case string:
		return value
	}
	return ""
}

// ExtractASIN accepts a bare ASIN or an Amazon product URL.
func ExtractASIN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if bareASIN.MatchString(raw) {
		return strings.ToUpper(raw), nil
	}
	for _, re := range asinInPath {
		if m := re.FindStringSubmatch(raw); m != nil {
			return strings.ToUpper(m[1]), nil
		}
	}
	return "", fmt.Errorf("%w from %q", ErrNoASIN, raw)
}

func AffiliateLink(asin, storeID string) string {
	link := "https://www.amazon.com/dp/" + asin
	if storeID == "" {
		return link
	}
	return link + "?tag=" + url.QueryEscape(storeID)
}
