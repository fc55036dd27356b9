package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kaymio/productcast/internal/platforms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphRecorder struct {
	mu    sync.Mutex
	forms map[string]url.Values
}

func (g *graphRecorder) record(path string, form url.Values) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.forms == nil {
		g.forms = map[string]url.Values{}
	}
	g.forms[path] = form
}

func newGraphServer(t *testing.T, rec *graphRecorder) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		rec.record(r.URL.Path, r.PostForm)
		switch {
		case strings.HasSuffix(r.URL.Path, "/media"):
			_, _ = w.Write([]byte(`{"id": "container-1"}`))
		case strings.HasSuffix(r.URL.Path, "/media_publish"):
			_, _ = w.Write([]byte(`{"id": "media-9"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPublishPost(t *testing.T) {
	rec := &graphRecorder{}
	server := newGraphServer(t, rec)

	client := NewClient(Config{AccessToken: "tok", UserID: "1784", BaseURL: server.URL})
	result, err := client.PublishPost(context.Background(), Post{
		ImageURL: "https://cdn.example.com/a.png",
		Caption:  strings.Repeat("c", 2500),
	})
	require.NoError(t, err)
	assert.Equal(t, &PublishResult{ID: "media-9", CreationID: "container-1", ImageURL: "https://cdn.example.com/a.png"}, result)

	container := rec.forms["/1784/media"]
	require.NotNil(t, container)
	assert.Equal(t, "tok", container.Get("access_token"))
	assert.Equal(t, "https://cdn.example.com/a.png", container.Get("image_url"))
	assert.Len(t, container.Get("caption"), 2200)
	assert.Empty(t, container.Get("media_type"))
	assert.Empty(t, container.Get("share_to_story_link"))

	publish := rec.forms["/1784/media_publish"]
	require.NotNil(t, publish)
	assert.Equal(t, "container-1", publish.Get("creation_id"))
	assert.Equal(t, "tok", publish.Get("access_token"))
}

func TestPublishStory_UsesTokenFileAndResolver(t *testing.T) {
	rec := &graphRecorder{}
	server := newGraphServer(t, rec)

	tokenFile := filepath.Join(t.TempDir(), "instagram_token.json")
	raw, err := json.Marshal(Credentials{AccessToken: "file-tok", UserID: "42"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tokenFile, raw, 0600))

	client := NewClient(Config{TokenFile: tokenFile, BaseURL: server.URL})
	client.SetResolver(func(ctx context.Context, imageURL string) (string, error) {
		assert.Equal(t, "http://localhost:8000/media/generated/x.png", imageURL)
		return "https://shop.example.com/wp-content/uploads/x.png", nil
	})

	result, err := client.PublishStory(context.Background(), Post{
		ImageURL:  "http://localhost:8000/media/generated/x.png",
		ShareLink: "https://amzn.to/x",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/wp-content/uploads/x.png", result.ImageURL)

	container := rec.forms["/42/media"]
	require.NotNil(t, container)
	assert.Equal(t, "file-tok", container.Get("access_token"))
	assert.Equal(t, "STORIES", container.Get("media_type"))
	assert.Equal(t, "https://amzn.to/x", container.Get("share_to_story_link"))
	assert.Equal(t, "https://shop.example.com/wp-content/uploads/x.png", container.Get("image_url"))
	_, hasCaption := container["caption"]
	assert.False(t, hasCaption)
}

func TestPublish_ResolverFailureKeepsOriginalURL(t *testing.T) {
	rec := &graphRecorder{}
	server := newGraphServer(t, rec)

	client := NewClient(Config{AccessToken: "tok", UserID: "1", BaseURL: server.URL})
	client.SetResolver(func(context.Context, string) (string, error) {
		return "", errors.New("wordpress down")
	})

	result, err := client.PublishPost(context.Background(), Post{ImageURL: "http://localhost/media/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/media/a.png", result.ImageURL)
}

func TestPublish_NotConfigured(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(tokenFile, []byte("{not json"), 0600))

	client := NewClient(Config{AccessToken: "tok", TokenFile: tokenFile})
	_, err := client.PublishPost(context.Background(), Post{ImageURL: "https://x"})
	assert.ErrorIs(t, err, platforms.ErrNotConfigured)
}

func TestPublish_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
		status  int
	}{
		{
			name: "container_rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"message":"Invalid image"}}`))
			},
			status: http.StatusBadRequest,
		},
		{
			name: "container_without_id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			wantErr: platforms.ErrMalformedResponse,
		},
		{
			name: "publish_rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/media") {
					_, _ = w.Write([]byte(`{"id":"c"}`))
					return
				}
				w.WriteHeader(http.StatusForbidden)
			},
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(Config{AccessToken: "tok", UserID: "1", BaseURL: server.URL})
			_, err := client.PublishPost(context.Background(), Post{ImageURL: "https://x/a.png"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.status != 0 {
				assert.Equal(t, tt.status, platforms.StatusCode(err))
			}
		})
	}
}

func TestMintCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/oauth/access_token":
			assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
			assert.Equal(t, "short", q.Get("fb_exchange_token"))
			_, _ = w.Write([]byte(`{"access_token":"long","expires_in":5183944}`))
		case "/me/accounts":
			assert.Equal(t, "long", q.Get("access_token"))
			_, _ = w.Write([]byte(`{"data":[{"id":"p1","name":"Other"},{"id":"p2","name":"Shop"}]}`))
		case "/p2":
			assert.Equal(t, "instagram_business_account", q.Get("fields"))
			_, _ = w.Write([]byte(`{"instagram_business_account":{"id":"ig-77"},"id":"p2"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	tokenFile := filepath.Join(t.TempDir(), "instagram", "instagram_token.json")
	client := NewClient(Config{AppID: "app", AppSecret: "secret", BaseURL: server.URL, TokenFile: tokenFile})

	creds, err := client.MintCredentials(context.Background(), "short", "p2")
	require.NoError(t, err)
	assert.Equal(t, "long", creds.AccessToken)
	assert.Equal(t, "long", creds.LongLivedToken)
	assert.Equal(t, "ig-77", creds.UserID)
	assert.Equal(t, "p2", creds.PageID)

	path, err := client.SaveCredentials(creds)
	require.NoError(t, err)
	assert.Equal(t, tokenFile, path)

	token, userID, err := client.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "long", token)
	assert.Equal(t, "ig-77", userID)

	_, err = client.MintCredentials(context.Background(), "short", "missing-page")
	assert.Error(t, err)
}

func TestAuthURL(t *testing.T) {
	_, err := NewClient(Config{}).AuthURL("s")
	assert.ErrorIs(t, err, platforms.ErrNotConfigured)

	client := NewClient(Config{AppID: "app", AppSecret: "secret", RedirectURI: "https://shop.example.com/instagram/callback"})
	raw, err := client.AuthURL("s")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.facebook.com", parsed.Host)
	assert.Equal(t, "instagram_basic,instagram_content_publish,pages_show_list,pages_read_engagement", parsed.Query().Get("scope"))
	assert.Equal(t, "app", parsed.Query().Get("client_id"))
}
