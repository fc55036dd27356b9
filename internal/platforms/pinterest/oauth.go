package pinterest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaymio/productcast/internal/platforms"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL = "https://www.pinterest.com/oauth/"

	// Pinterest expects scopes comma separated in a single parameter.
	scopes = "boards:read,boards:write,pins:read,pins:write,user_accounts:read"
)

func (c *Client) oauthConfig() *oauth2.Config {
	authURL := c.cfg.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}
	return &oauth2.Config{
		ClientID:     c.cfg.AppID,
		ClientSecret: c.cfg.AppSecret,
		RedirectURL:  c.cfg.RedirectURI,
		Scopes:       []string{scopes},
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  c.baseURL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

func (c *Client) checkApp() error {
	var missing []string
	if c.cfg.AppID == "" {
		missing = append(missing, "PINTEREST_APP_ID")
	}
	if c.cfg.AppSecret == "" {
		missing = append(missing, "PINTEREST_APP_SECRET")
	}
	if c.cfg.RedirectURI == "" {
		missing = append(missing, "PINTEREST_REDIRECT_URI")
	}
	if len(missing) > 0 {
		return platforms.NotConfigured(provider, missing...)
	}
	return nil
}

// AuthURL returns the consent page the operator opens to authorize the app.
func (c *Client) AuthURL(state string) (string, error) {
	if err := c.checkApp(); err != nil {
		return "", err
	}
	return c.oauthConfig().AuthCodeURL(state), nil
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if err := c.checkApp(); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("exchange code: empty authorization code")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange pinterest code: %w", err)
	}
	return token, nil
}

// SaveToken writes the access token where AccessToken will find it.
func (c *Client) SaveToken(token *oauth2.Token) (string, error) {
	if c.cfg.TokenFile == "" {
		return "", platforms.NotConfigured(provider, "PINTEREST_TOKEN_FILE")
	}
	if token == nil || token.AccessToken == "" {
		return "", fmt.Errorf("save token: empty access token")
	}
	if err := os.MkdirAll(filepath.Dir(c.cfg.TokenFile), 0755); err != nil {
		return "", fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(c.cfg.TokenFile, []byte(token.AccessToken), 0600); err != nil {
		return "", fmt.Errorf("write token file: %w", err)
	}
	return c.cfg.TokenFile, nil
}
