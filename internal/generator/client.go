package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBaseURL     = "https://openrouter.ai/api/v1"
	defaultModel       = "anthropic/claude-3.5-haiku"
	defaultTemperature = 0.2
	defaultMaxTokens   = 4096
)

// Client is an HTTP chat-completion client implementing Generator.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClientConfig configures a new Client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// NewClient creates a chat-completion client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      cfg.Logger.With("component", "generator"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke sends one chat completion request and returns the generated text.
// Context-window rejections are wrapped in ErrContextTooLarge so callers can
// apply the retry policy; all other failures are returned as-is.
func (c *Client) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqID := uuid.New().String()

	body, err := json.Marshal(&chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if isContextTooLargeMessage(resp.StatusCode, msg) {
			return "", fmt.Errorf("%w: status %d: %s", ErrContextTooLarge, resp.StatusCode, msg)
		}
		return "", fmt.Errorf("generator error (status %d): %s", resp.StatusCode, msg)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if cr.Error != nil {
		if isContextTooLargeMessage(0, cr.Error.Message) {
			return "", fmt.Errorf("%w: %s", ErrContextTooLarge, cr.Error.Message)
		}
		return "", fmt.Errorf("generator error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("generator returned no choices")
	}

	c.logger.Debug("generation completed",
		"request_id", reqID,
		"model", c.model,
		"duration", time.Since(start),
	)

	return cr.Choices[0].Message.Content, nil
}

// isContextTooLargeMessage classifies backend rejections caused by oversized
// prompts. 413 is the transport-level signal; providers also report it as a
// 400 with a recognizable message.
func isContextTooLargeMessage(statusCode int, msg string) bool {
	if statusCode == http.StatusRequestEntityTooLarge {
		return true
	}
	lower := strings.ToLower(msg)
	for _, marker := range []string{"too many tokens", "context length", "context window", "maximum context", "input is too long"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
