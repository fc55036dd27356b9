package tiktok

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kaymio/productcast/internal/platforms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishVideo(t *testing.T) {
	video := []byte("mp4-bytes")
	var (
		initReq  initRequest
		uploaded []byte
		publish  publishRequest
	)

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/video/init/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&initReq))
			_, _ = w.Write([]byte(`{"data":{"upload_url":"` + server.URL + `/upload/abc","publish_id":"pub-1"}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/upload/abc":
			assert.Equal(t, "video/mp4", r.Header.Get("Content-Type"))
			uploaded, _ = io.ReadAll(r.Body)
		case r.Method == http.MethodPost && r.URL.Path == "/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&publish))
			_, _ = w.Write([]byte(`{"data":{"status":"PROCESSING_UPLOAD"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(Config{AccessToken: "tok", OpenID: "open-1", BaseURL: server.URL})
	result, err := client.PublishVideo(context.Background(), video, strings.Repeat("x", 3000), "")
	require.NoError(t, err)

	assert.Equal(t, "pub-1", result.PublishID)
	assert.Equal(t, "PROCESSING_UPLOAD", result.Data["status"])

	assert.Equal(t, "FILE_UPLOAD", initReq.SourceInfo.Source)
	assert.Equal(t, "open-1", initReq.OpenID)
	assert.Len(t, initReq.PostInfo.Caption, 2200)
	assert.Equal(t, PrivacyPublic, initReq.PostInfo.PrivacyLevel)
	assert.False(t, initReq.PostInfo.DisableDuet)
	assert.False(t, initReq.PostInfo.DisableComment)

	assert.Equal(t, video, uploaded)
	assert.Equal(t, publishRequest{PublishID: "pub-1", OpenID: "open-1"}, publish)
}

func TestPublishVideo_Privacy(t *testing.T) {
	var initReq initRequest
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/video/init/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&initReq))
			_, _ = w.Write([]byte(`{"data":{"upload_url":"` + server.URL + `/up","publish_id":"p"}}`))
		case "/up":
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	client := NewClient(Config{AccessToken: "tok", OpenID: "o", BaseURL: server.URL})
	result, err := client.PublishVideo(context.Background(), []byte("v"), "hi", "SELF_ONLY")
	require.NoError(t, err)
	assert.Equal(t, "SELF_ONLY", initReq.PostInfo.PrivacyLevel)
	assert.NotNil(t, result.Data)
}

func TestPublishVideo_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler func(serverURL string) http.HandlerFunc
		wantErr error
		status  int
	}{
		{
			name: "init_rejected",
			handler: func(string) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"error":{"code":"access_token_invalid"}}`))
				}
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "init_missing_publish_id",
			handler: func(string) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(`{"data":{"upload_url":"https://upload"}}`))
				}
			},
			wantErr: platforms.ErrMalformedResponse,
		},
		{
			name: "upload_rejected",
			handler: func(serverURL string) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					if r.URL.Path == "/video/init/" {
						_, _ = w.Write([]byte(`{"data":{"upload_url":"` + serverURL + `/up","publish_id":"p"}}`))
						return
					}
					w.WriteHeader(http.StatusRequestEntityTooLarge)
				}
			},
			status: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var serverURL string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.handler(serverURL)(w, r)
			}))
			defer server.Close()
			serverURL = server.URL

			client := NewClient(Config{AccessToken: "tok", OpenID: "o", BaseURL: server.URL})
			_, err := client.PublishVideo(context.Background(), []byte("v"), "c", "")
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

func TestPublishVideo_NotConfigured(t *testing.T) {
	client := NewClient(Config{AccessToken: "tok"})
	assert.False(t, client.IsConfigured())

	_, err := client.PublishVideo(context.Background(), []byte("v"), "c", "")
	assert.ErrorIs(t, err, platforms.ErrNotConfigured)

	_, err = NewClient(Config{AccessToken: "tok", OpenID: "o"}).PublishVideo(context.Background(), nil, "c", "")
	assert.Error(t, err)
}
