package pinterest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kaymio/productcast/internal/platforms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestCreatePin_SkippedWithoutToken(t *testing.T) {
	client := NewClient(Config{BoardID: "board"})

	result, err := client.CreatePin(context.Background(), Pin{Title: "Lamp"})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Status)
	assert.Empty(t, result.ID)
}

func TestCreatePin_SkippedWithoutBoard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/boards", r.URL.Path)
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	client := NewClient(Config{AccessToken: "tok", BaseURL: server.URL})
	result, err := client.CreatePin(context.Background(), Pin{Title: "Lamp"})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Status)
}

func TestCreatePin_Success(t *testing.T) {
	var got createPinRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/boards":
			_, _ = w.Write([]byte(`{"items": [{"id": "board-1", "name": "Finds"}, {"id": "board-2"}]}`))
		case "/pins":
			assert.Equal(t, "Bearer file-token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": "pin-42", "link": "https://pin.it/42"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	tokenFile := filepath.Join(t.TempDir(), "pinterest_token.txt")
	require.NoError(t, os.WriteFile(tokenFile, []byte("file-token\n"), 0600))

	client := NewClient(Config{TokenFile: tokenFile, BaseURL: server.URL})
	image := []byte("\x89PNG\r\n\x1a\nrest")
	result, err := client.CreatePin(context.Background(), Pin{
		Image:       image,
		Title:       strings.Repeat("T", 150),
		Description: "Bright desk lamp.",
		Link:        "https://amzn.to/x",
		Tags:        []string{"desk lamp", "#decor", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, &PinResult{Status: StatusCreated, ID: "pin-42", URL: "https://pin.it/42"}, result)

	assert.Equal(t, "board-1", got.BoardID)
	assert.Len(t, got.Title, 100)
	assert.Equal(t, "Bright desk lamp. #desklamp #decor", got.Description)
	assert.Equal(t, got.Description, got.AltText)
	assert.Equal(t, "desk lamp, #decor", got.Note)
	assert.Equal(t, "https://amzn.to/x", got.Link)
	assert.Equal(t, "image_base64", got.MediaSource.SourceType)
	assert.Equal(t, "image/png", got.MediaSource.ContentType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), got.MediaSource.Data)
}

func TestCreatePin_Limits(t *testing.T) {
	var got createPinRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"pin_id": "p", "url": "u"}`))
	}))
	defer server.Close()

	tags := make([]string, 100)
	for i := range tags {
		tags[i] = "tag"
	}
	client := NewClient(Config{AccessToken: "tok", BoardID: "b", BaseURL: server.URL})
	result, err := client.CreatePin(context.Background(), Pin{
		Title:       "Lamp",
		Description: strings.Repeat("d", 600),
		Tags:        tags,
	})
	require.NoError(t, err)
	assert.Equal(t, "p", result.ID)
	assert.Equal(t, "u", result.URL)
	assert.Len(t, got.Description, 500)
	assert.Len(t, got.Note, 250)
}

func TestCreatePin_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "api_error", status: http.StatusBadRequest, body: `{"message":"Invalid board"}`},
		{name: "missing_id", status: http.StatusCreated, body: `{}`, wantErr: platforms.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(Config{AccessToken: "tok", BoardID: "b", BaseURL: server.URL})
			_, err := client.CreatePin(context.Background(), Pin{Title: "Lamp"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				var apiErr *platforms.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.status, apiErr.StatusCode)
				assert.Contains(t, apiErr.Body, "Invalid board")
			}
		})
	}
}

func TestAuthURL(t *testing.T) {
	_, err := NewClient(Config{}).AuthURL("xyz")
	assert.ErrorIs(t, err, platforms.ErrNotConfigured)

	client := NewClient(Config{AppID: "app", AppSecret: "secret", RedirectURI: "http://localhost:8000/callback"})
	raw, err := client.AuthURL("xyz")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.pinterest.com", parsed.Host)
	q := parsed.Query()
	assert.Equal(t, "app", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "xyz", q.Get("state"))
	assert.Equal(t, scopes, q.Get("scope"))
}

func TestExchangeCodeAndSaveToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "pina_123", "token_type": "bearer", "expires_in": 2592000}`))
	}))
	defer server.Close()

	tokenFile := filepath.Join(t.TempDir(), "tokens", "pinterest.txt")
	client := NewClient(Config{
		AppID:       "app",
		AppSecret:   "secret",
		RedirectURI: "http://localhost/cb",
		BaseURL:     server.URL,
		TokenFile:   tokenFile,
	})

	token, err := client.ExchangeCode(context.Background(), " the-code ")
	require.NoError(t, err)
	assert.Equal(t, "pina_123", token.AccessToken)

	path, err := client.SaveToken(token)
	require.NoError(t, err)
	assert.Equal(t, tokenFile, path)
	assert.Equal(t, "pina_123", client.AccessToken())

	_, err = client.SaveToken(&oauth2.Token{})
	assert.Error(t, err)
}
