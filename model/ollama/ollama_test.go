package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssrobins/bot-o-clock/model"
)

// Interface compliance (compile-time assertion)
var _ model.Client = (*Client)(nil)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(func(o *Options) {
		o.Host = srv.URL
		o.DefaultModel = "llama3.1:8b"
	})
	return srv, client
}

func TestClient_Chat(t *testing.T) {
	var got chatRequest
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"role": "assistant", "content": "hello back"},
			"done_reason":       "stop",
			"prompt_eval_count": 12,
			"eval_count":        5,
		})
	})

	resp, err := client.Chat(context.Background(), model.Request{
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: "You are a test."},
			{Role: model.RoleUser, Content: "hello"},
		},
		Temperature: 0.7,
		MaxTokens:   256,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello back", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 17, resp.Usage.TotalTokens)

	// The wire request carries the default model, non-streaming mode and the
	// generation options.
	assert.Equal(t, "llama3.1:8b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.7, got.Options.Temperature)
	assert.Equal(t, 256, got.Options.NumPredict)
	require.Len(t, got.Messages, 2)
}

func TestClient_ChatModelOverride(t *testing.T) {
	var got chatRequest
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "ok"},
		})
	})

	resp, err := client.Chat(context.Background(), model.Request{Model: "mistral"})
	require.NoError(t, err)
	assert.Equal(t, "mistral", got.Model)
	assert.Equal(t, "stop", resp.FinishReason, "missing done_reason defaults to stop")
}

func TestClient_ChatServerError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := client.Chat(context.Background(), model.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.False(t, model.IsUnavailable(err), "an answering server is not unavailable")
}

func TestClient_ChatUnreachable(t *testing.T) {
	srv, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := client.Chat(context.Background(), model.Request{})
	require.Error(t, err)
	assert.True(t, model.IsUnavailable(err))
}

func TestClient_Ping(t *testing.T) {
	srv, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, client.Ping(context.Background()))

	srv.Close()
	err := client.Ping(context.Background())
	assert.True(t, model.IsUnavailable(err))
}

func TestClient_Info(t *testing.T) {
	client := NewClient()
	info := client.Info()
	assert.Equal(t, "ollama", info.Provider)
	assert.Equal(t, "llama3.1:8b", info.Name)
}
