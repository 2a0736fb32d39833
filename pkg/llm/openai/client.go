// Package openai implements llm.Provider for OpenAI-compatible chat
// completion APIs with server-sent-event streaming.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/user/thinkchat/pkg/llm"
)

const providerName = "openai"

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// Client implements the llm.Provider interface for OpenAI-compatible APIs.
type Client struct {
	config     *llm.Config
	httpClient *http.Client
	retry      *llm.RetryPolicy
}

// New creates a new OpenAI-compatible client with the given configuration.
// A missing API key is a *llm.ConfigError.
func New(config *llm.Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, &llm.ConfigError{Provider: providerName, Field: "API key"}
	}
	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	c := &Client{
		config: &cfg,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	if cfg.MaxAttempts > 1 {
		c.retry = llm.DefaultRetryPolicy()
		c.retry.MaxAttempts = cfg.MaxAttempts
	}
	return c, nil
}

// chatRequest is the OpenAI chat completions request body.
type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []requestMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature *float32         `json:"temperature,omitempty"`
	TopP        *float32         `json:"top_p,omitempty"`
	Stream      bool             `json:"stream"`
}

// requestMessage is the OpenAI message format for requests. Content is a
// string, or a list of parts when an image is attached.
type requestMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// streamChunk is one SSE data payload.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Start keeps the system prompt and history client-side; the API is
// stateless so nothing is sent until the first turn.
func (c *Client) Start(_ context.Context, systemPrompt string, history []llm.Message) (llm.Session, error) {
	s := &session{client: c}
	if systemPrompt != "" {
		s.history = append(s.history, requestMessage{Role: "system", Content: systemPrompt})
	}
	for _, msg := range history {
		if msg.Text == "" {
			continue
		}
		s.history = append(s.history, requestMessage{Role: wireRole(msg.Role), Content: msg.Text})
	}
	return s, nil
}

func wireRole(role string) string {
	if role == llm.RoleModel {
		return "assistant"
	}
	return "user"
}

func userMessage(text string, image *llm.InlineData) requestMessage {
	if image == nil {
		return requestMessage{Role: "user", Content: text}
	}
	parts := []contentPart{{
		Type:     "image_url",
		ImageURL: &imageURL{URL: "data:" + image.MimeType + ";base64," + image.Data},
	}}
	if text != "" {
		parts = append(parts, contentPart{Type: "text", Text: text})
	}
	return requestMessage{Role: "user", Content: parts}
}

type session struct {
	client  *Client
	mu      sync.Mutex
	history []requestMessage
}

func (s *session) SendTurn(ctx context.Context, text string, image *llm.InlineData) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		user := userMessage(text, image)

		s.mu.Lock()
		messages := append(append([]requestMessage(nil), s.history...), user)
		s.mu.Unlock()

		body, err := s.client.openWithRetry(ctx, messages)
		if err != nil {
			yield("", &llm.StreamError{Provider: providerName, Err: err})
			return
		}
		defer body.Close()

		var full strings.Builder
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			data, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				break
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				yield("", &llm.StreamError{Provider: providerName, Err: fmt.Errorf("parse chunk: %w", err)})
				return
			}
			if chunk.Error != nil {
				yield("", &llm.StreamError{Provider: providerName, Err: errors.New(chunk.Error.Message)})
				return
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			full.WriteString(chunk.Choices[0].Delta.Content)
			if !yield(full.String(), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", &llm.StreamError{Provider: providerName, Err: fmt.Errorf("read stream: %w", err)})
			return
		}

		s.mu.Lock()
		s.history = append(s.history, user, requestMessage{Role: "assistant", Content: full.String()})
		s.mu.Unlock()
	}
}

// openWithRetry opens the turn, retrying transient failures when a retry
// policy is configured. Nothing has streamed yet, so no output repeats.
func (c *Client) openWithRetry(ctx context.Context, messages []requestMessage) (io.ReadCloser, error) {
	if c.retry == nil {
		return c.open(ctx, messages)
	}
	var body io.ReadCloser
	err := c.retry.Do(ctx, func() error {
		var err error
		body, err = c.open(ctx, messages)
		return err
	})
	return body, err
}

// open posts a streaming chat completion and returns the event stream body.
func (c *Client) open(ctx context.Context, messages []requestMessage) (io.ReadCloser, error) {
	reqBody := chatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   true,
	}
	if c.config.MaxTokens > 0 {
		reqBody.MaxTokens = c.config.MaxTokens
	}
	if c.config.Temperature != 0 {
		temp := c.config.Temperature
		reqBody.Temperature = &temp
	}
	if c.config.TopP != 0 {
		topP := c.config.TopP
		reqBody.TopP = &topP
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &llm.APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return resp.Body, nil
}
