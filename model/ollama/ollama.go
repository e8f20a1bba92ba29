// Package ollama provides an implementation of model.Client using a local
// Ollama server's /api/chat endpoint. It adapts bot-o-clock's normalized
// Request/Response structures into Ollama's JSON wire format and back.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ssrobins/bot-o-clock/model"
)

// Options configure the Ollama client adapter.
type Options struct {
	// Host is the base URL of the Ollama server.
	Host string
	// DefaultModel is used when a request carries no model id.
	DefaultModel string
	// Timeout bounds every chat call; on expiry the call fails with
	// model.UnavailableError instead of blocking indefinitely.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client wraps the Ollama chat API behind the generic model.Client interface.
type Client struct {
	host         string
	defaultModel string
	httpClient   *http.Client
}

// NewClient creates a new Ollama client with optional overrides.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		Host:         "http://localhost:11434",
		DefaultModel: "llama3.1:8b",
		Timeout:      120 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{host: opts.Host, defaultModel: opts.DefaultModel, httpClient: httpClient}
}

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []model.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  chatOptions     `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Chat implements model.Client.
func (c *Client) Chat(ctx context.Context, req model.Request) (*model.Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	payload := chatRequest{
		Model:    modelID,
		Messages: req.Messages,
		Stream:   false,
		Options:  chatOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, model.WrapTransportErr(c.host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	finish := result.DoneReason
	if finish == "" {
		finish = "stop"
	}
	return &model.Response{
		Content:      result.Message.Content,
		FinishReason: finish,
		Usage: &model.TokenUsage{
			PromptTokens:     result.PromptEvalCount,
			CompletionTokens: result.EvalCount,
			TotalTokens:      result.PromptEvalCount + result.EvalCount,
		},
	}, nil
}

// Ping checks whether the Ollama server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return model.WrapTransportErr(c.host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

// Info implements model.Client.
func (c *Client) Info() model.Info {
	return model.Info{Name: c.defaultModel, Provider: "ollama"}
}
