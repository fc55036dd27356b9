package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaymio/productcast/internal/platforms"
	"golang.org/x/oauth2"
)

const defaultDialogURL = "https://www.facebook.com/v21.0/dialog/oauth"

var scopes = []string{
	"instagram_basic",
	"instagram_content_publish",
	"pages_show_list",
	"pages_read_engagement",
}

// Page is a Facebook page the user manages.
type Page struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) oauthConfig() *oauth2.Config {
	dialog := c.cfg.DialogURL
	if dialog == "" {
		dialog = defaultDialogURL
	}
	return &oauth2.Config{
		ClientID:     c.cfg.AppID,
		ClientSecret: c.cfg.AppSecret,
		RedirectURL:  c.cfg.RedirectURI,
		Scopes:       []string{strings.Join(scopes, ",")},
		Endpoint: oauth2.Endpoint{
			AuthURL:   dialog,
			TokenURL:  c.baseURL + "/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *Client) checkApp() error {
	var missing []string
	if c.cfg.AppID == "" {
		missing = append(missing, "INSTAGRAM_APP_ID")
	}
	if c.cfg.AppSecret == "" {
		missing = append(missing, "INSTAGRAM_APP_SECRET")
	}
	if len(missing) > 0 {
		return platforms.NotConfigured(provider, missing...)
	}
	return nil
}

// AuthURL returns the Facebook consent dialog URL.
func (c *Client) AuthURL(state string) (string, error) {
	if err := c.checkApp(); err != nil {
		return "", err
	}
	if c.cfg.RedirectURI == "" {
		return "", platforms.NotConfigured(provider, "INSTAGRAM_REDIRECT_URI")
	}
	return c.oauthConfig().AuthCodeURL(state), nil
}

// ExchangeCode trades an authorization code for a short-lived user token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	if err := c.checkApp(); err != nil {
		return "", err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauthConfig().Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("exchange instagram code: %w", err)
	}
	return token.AccessToken, nil
}

// MintCredentials upgrades a short-lived user token to a long-lived one and
// finds the Instagram business account behind the first connected page.
// pageID selects a specific page when set.
func (c *Client) MintCredentials(ctx context.Context, shortToken, pageID string) (*Credentials, error) {
	if err := c.checkApp(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(shortToken) == "" {
		return nil, fmt.Errorf("mint credentials: empty short-lived token")
	}

	var long struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   any    `json:"expires_in"`
	}
	err := c.getJSON(ctx, "/oauth/access_token", "exchange long-lived token", url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.cfg.AppID},
		"client_secret":     {c.cfg.AppSecret},
		"fb_exchange_token": {strings.TrimSpace(shortToken)},
	}, &long)
	if err != nil {
		return nil, err
	}
	if long.AccessToken == "" {
		return nil, platforms.Malformed(provider, "long-lived exchange returned no access token")
	}

	var pages struct {
		Data []Page `json:"data"`
	}
	err = c.getJSON(ctx, "/me/accounts", "list pages", url.Values{
		"access_token": {long.AccessToken},
		"limit":        {"200"},
	}, &pages)
	if err != nil {
		return nil, err
	}
	page, ok := choosePage(pages.Data, pageID)
	if !ok {
		return nil, fmt.Errorf("no Facebook page connected to an Instagram business account")
	}

	var account struct {
		BusinessAccount struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	}
	err = c.getJSON(ctx, "/"+page.ID, "lookup business account", url.Values{
		"access_token": {long.AccessToken},
		"fields":       {"instagram_business_account"},
	}, &account)
	if err != nil {
		return nil, err
	}
	if account.BusinessAccount.ID == "" {
		return nil, fmt.Errorf("page %s has no Instagram business account", page.ID)
	}

	expires := long.ExpiresIn
	if expires == nil {
		expires = "unknown"
	}
	return &Credentials{
		AccessToken:    long.AccessToken,
		UserID:         account.BusinessAccount.ID,
		LongLivedToken: long.AccessToken,
		PageID:         page.ID,
		ExpiresIn:      expires,
	}, nil
}

func choosePage(pages []Page, pageID string) (Page, bool) {
	if len(pages) == 0 {
		return Page{}, false
	}
	if pageID == "" {
		return pages[0], true
	}
	for _, p := range pages {
		if p.ID == pageID {
			return p, true
		}
	}
	return Page{}, false
}

// SaveCredentials writes creds to the token file read by Credentials.
func (c *Client) SaveCredentials(creds *Credentials) (string, error) {
	if c.cfg.TokenFile == "" {
		return "", platforms.NotConfigured(provider, "INSTAGRAM_TOKEN_FILE")
	}
	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.cfg.TokenFile), 0755); err != nil {
		return "", fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(c.cfg.TokenFile, raw, 0600); err != nil {
		return "", fmt.Errorf("write token file: %w", err)
	}
	return c.cfg.TokenFile, nil
}

func (c *Client) getJSON(ctx context.Context, path, operation string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("instagram %s: %w", operation, err)
	}
	defer resp.Body.Close()

	if !platforms.IsSuccess(resp.StatusCode) {
		return platforms.NewAPIError(provider, operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
