package youtube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaymio/productcast/internal/platforms"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"
)

const defaultRedirectURI = "http://localhost:8080/oauth2callback"

func (c *Client) oauthConfig() *oauth2.Config {
	endpoint := google.Endpoint
	if c.cfg.TokenURL != "" {
		endpoint.TokenURL = c.cfg.TokenURL
	}
	if c.cfg.AuthURL != "" {
		endpoint.AuthURL = c.cfg.AuthURL
	}
	redirect := c.cfg.RedirectURI
	if redirect == "" {
		redirect = defaultRedirectURI
	}
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  redirect,
		Endpoint:     endpoint,
		Scopes:       []string{yt.YoutubeUploadScope},
	}
}

func (c *Client) checkApp() error {
	var missing []string
	if c.cfg.ClientID == "" {
		missing = append(missing, "YOUTUBE_CLIENT_ID")
	}
	if c.cfg.ClientSecret == "" {
		missing = append(missing, "YOUTUBE_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return platforms.NotConfigured(provider, missing...)
	}
	return nil
}

// AuthURL asks for offline access so the exchange yields a refresh token.
func (c *Client) AuthURL(state string) (string, error) {
	if err := c.checkApp(); err != nil {
		return "", err
	}
	return c.oauthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// Exchange trades an authorization code for access and refresh tokens and
// stores the access token in the configured file.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if err := c.checkApp(); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("exchange code: empty authorization code")
	}

	token, err := c.oauthConfig().Exchange(c.baseContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchange youtube code: %w", err)
	}
	if c.cfg.AccessTokenFile != "" {
		if err := writeToken(c.cfg.AccessTokenFile, token.AccessToken); err != nil {
			return token, err
		}
	}
	return token, nil
}

func writeToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
