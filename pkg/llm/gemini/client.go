// Package gemini implements llm.Provider on the Gemini API through the
// google.golang.org/genai Chats API.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/user/thinkchat/pkg/llm"
)

const providerName = "gemini"

// DefaultModel is used when the configuration leaves the model empty.
const DefaultModel = "gemini-2.5-flash"

// streamer is the part of *genai.Chat a session needs.
type streamer interface {
	SendMessageStream(ctx context.Context, parts ...genai.Part) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Client implements the llm.Provider interface for the Gemini API.
type Client struct {
	config *llm.Config
	client *genai.Client
}

// New creates a Gemini client. A missing API key is a *llm.ConfigError.
func New(ctx context.Context, config *llm.Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, &llm.ConfigError{Provider: providerName, Field: "API key"}
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &llm.InitError{Provider: providerName, Err: err}
	}
	return &Client{config: config, client: client}, nil
}

// Start opens a chat seeded with the system prompt and prior turns.
func (c *Client) Start(ctx context.Context, systemPrompt string, history []llm.Message) (llm.Session, error) {
	chat, err := c.client.Chats.Create(ctx, c.config.Model, generateConfig(c.config, systemPrompt), toContents(history))
	if err != nil {
		return nil, &llm.InitError{Provider: providerName, Err: err}
	}
	slog.Debug("gemini chat started", "model", c.config.Model, "history", len(history))
	return &session{chat: chat}, nil
}

func generateConfig(config *llm.Config, systemPrompt string) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(config.Temperature),
		TopP:        genai.Ptr(config.TopP),
		TopK:        genai.Ptr(config.TopK),
	}
	if config.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(config.MaxTokens)
	}
	if systemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	return gc
}

// toContents converts prior turns to wire contents, one text part each.
// Empty turns are dropped because the API rejects empty parts.
func toContents(history []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		if msg.Text == "" {
			continue
		}
		var role genai.Role = genai.RoleUser
		if msg.Role == llm.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, role))
	}
	return contents
}

// toParts builds the parts of one turn: the attachment first, then the text
// that asks about it.
func toParts(text string, image *llm.InlineData) ([]genai.Part, error) {
	var parts []genai.Part
	if image != nil {
		data, err := base64.StdEncoding.DecodeString(image.Data)
		if err != nil {
			return nil, fmt.Errorf("decode attachment: %w", err)
		}
		parts = append(parts, *genai.NewPartFromBytes(data, image.MimeType))
	}
	if text != "" || len(parts) == 0 {
		parts = append(parts, *genai.NewPartFromText(text))
	}
	return parts, nil
}

type session struct {
	chat streamer
}

func (s *session) SendTurn(ctx context.Context, text string, image *llm.InlineData) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		parts, err := toParts(text, image)
		if err != nil {
			yield("", &llm.StreamError{Provider: providerName, Err: err})
			return
		}

		var full strings.Builder
		for resp, err := range s.chat.SendMessageStream(ctx, parts...) {
			if err != nil {
				yield("", &llm.StreamError{Provider: providerName, Err: err})
				return
			}
			delta := resp.Text()
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			if !yield(full.String(), nil) {
				return
			}
		}
	}
}
