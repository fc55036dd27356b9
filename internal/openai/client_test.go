package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kaymio/productcast/internal/platforms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateText_NotConfigured(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.GenerateText(context.Background(), Prompt{User: "hi"})
	assert.ErrorIs(t, err, platforms.ErrNotConfigured)
	assert.False(t, client.IsConfigured())
	assert.Equal(t, defaultModel, client.Model())
}

func TestGenerateText_Success(t *testing.T) {
	var got responsesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"output": [
				{"type": "reasoning", "content": []},
				{"type": "message", "role": "assistant", "content": [
					{"type": "output_text", "text": "  Glow-Up Desk Lamp "}
				]}
			],
			"usage": {"output_tokens": 5}
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL + "/", Model: "gpt-test"})
	text, err := client.GenerateText(context.Background(), Prompt{
		System:      "You write titles.",
		User:        "Desk lamp",
		MaxTokens:   40,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Glow-Up Desk Lamp", text)

	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 40, got.MaxOutputTokens)
	require.Len(t, got.Input, 2)
	assert.Equal(t, "system", got.Input[0].Role)
	assert.Equal(t, "You write titles.", got.Input[0].Content[0].Text)
	assert.Equal(t, "Desk lamp", got.Input[1].Content[0].Text)
}

func TestGenerateText_OutputTextShortcut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output_text": "[\"lamp\"]"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	text, err := client.GenerateText(context.Background(), Prompt{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, `["lamp"]`, text)
}

func TestGenerateText_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "empty_output", status: http.StatusOK, body: `{"output": []}`, wantErr: platforms.ErrMalformedResponse},
		{name: "rate_limited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`},
		{name: "bad_json", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
			_, err := client.GenerateText(context.Background(), Prompt{User: "x"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.status != http.StatusOK {
				assert.Equal(t, tt.status, platforms.StatusCode(err))
			}
		})
	}
}
