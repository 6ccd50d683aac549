package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stoik/triage/internal/models"
)

// UserMessage is what callers show when the backend cannot be reached.
const UserMessage = "AI 서버에 연결할 수 없습니다. Ollama가 실행 중인지 확인해주세요."

// ErrUpstreamUnavailable is returned when the backend is unreachable or answers non-2xx.
var ErrUpstreamUnavailable = errors.New("ollama unavailable")

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "llama3.2"
	DefaultEmbedModel = "nomic-embed-text"
	DefaultTimeout    = 120 * time.Second

	probeTimeout = 5 * time.Second
)

type Options struct {
	BaseURL     string
	Model       string
	EmbedModel  string
	Temperature *float64
	Timeout     time.Duration
}

// Client implements Gateway against the Ollama HTTP API.
type Client struct {
	baseURL     string
	model       string
	embedModel  string
	temperature *float64
	client      *http.Client
	logger      *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = DefaultEmbedModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		embedModel:  opts.EmbedModel,
		temperature: opts.Temperature,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		logger: logger,
	}
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
	Options  *chatOptions         `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Model   string             `json:"model"`
	Message models.ChatMessage `json:"message"`
	Done    bool               `json:"done"`
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Complete implements Gateway.Complete.
func (c *Client) Complete(ctx context.Context, messages []models.ChatMessage, model string) (string, error) {
	if model == "" {
		model = c.model
	}

	payload := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}
	if c.temperature != nil {
		payload.Options = &chatOptions{Temperature: *c.temperature}
	}

	var out chatResponse
	if err := c.postJSON(ctx, "/api/chat", payload, &out); err != nil {
		c.logger.Error("Chat completion failed",
			zap.String("model", model),
			zap.Error(err),
		)
		return "", err
	}

	return out.Message.Content, nil
}

// CheckConnection implements Gateway.CheckConnection.
func (c *Client) CheckConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Ollama probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Embed implements Gateway.Embed. Failures are logged and yield an empty vector.
func (c *Client) Embed(ctx context.Context, text string) []float64 {
	payload := embeddingRequest{
		Model:  c.embedModel,
		Prompt: NormalizeEmbeddingText(text),
	}

	var out embeddingResponse
	if err := c.postJSON(ctx, "/api/embeddings", payload, &out); err != nil {
		c.logger.Warn("Embedding request failed",
			zap.String("model", c.embedModel),
			zap.Error(err),
		)
		return []float64{}
	}
	if out.Embedding == nil {
		return []float64{}
	}

	return out.Embedding
}

// ListModels implements Gateway.ListModels.
func (c *Client) ListModels(ctx context.Context) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return []string{}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Failed to list models", zap.Error(err))
		return []string{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []string{}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		c.logger.Debug("Failed to decode model list", zap.Error(err))
		return []string{}
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names
}

// EmbedModel is the model used for embeddings.
func (c *Client) EmbedModel() string {
	return c.embedModel
}

// NormalizeEmbeddingText flattens newlines so multi-line bodies embed as one passage.
func NormalizeEmbeddingText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	return strings.ReplaceAll(text, "\n", " ")
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: unexpected status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
