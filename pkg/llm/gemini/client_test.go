package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"iter"
	"testing"

	"google.golang.org/genai"

	"github.com/user/thinkchat/pkg/llm"
)

type fakeChat struct {
	chunks []string
	failAt int // index at which to fail; -1 never
	parts  []genai.Part
}

func (f *fakeChat) SendMessageStream(_ context.Context, parts ...genai.Part) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.parts = parts
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for i, c := range f.chunks {
			if i == f.failAt {
				yield(nil, errors.New("connection reset"))
				return
			}
			resp := &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: c}}},
				}},
			}
			if !yield(resp, nil) {
				return
			}
		}
	}
}

func collect(t *testing.T, seq iter.Seq2[string, error]) ([]string, error) {
	t.Helper()
	var out []string
	for text, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, text)
	}
	return out, nil
}

func TestSendTurnYieldsCumulativeText(t *testing.T) {
	chat := &fakeChat{chunks: []string{"Hi", "", " there"}, failAt: -1}
	s := &session{chat: chat}

	got, err := collect(t, s.SendTurn(context.Background(), "Hello", nil))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Hi", "Hi there"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSendTurnStreamError(t *testing.T) {
	chat := &fakeChat{chunks: []string{"Sor", "ry"}, failAt: 1}
	s := &session{chat: chat}

	got, err := collect(t, s.SendTurn(context.Background(), "Hello", nil))
	var streamErr *llm.StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected StreamError, got %v", err)
	}
	if len(got) != 1 || got[0] != "Sor" {
		t.Errorf("expected already yielded text to remain, got %v", got)
	}
}

func TestSendTurnImageFirst(t *testing.T) {
	chat := &fakeChat{chunks: []string{"a cat"}, failAt: -1}
	s := &session{chat: chat}
	img := &llm.InlineData{Data: base64.StdEncoding.EncodeToString([]byte("png")), MimeType: "image/png"}

	if _, err := collect(t, s.SendTurn(context.Background(), "what is this?", img)); err != nil {
		t.Fatal(err)
	}
	if len(chat.parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(chat.parts))
	}
	if chat.parts[0].InlineData == nil || chat.parts[0].InlineData.MIMEType != "image/png" {
		t.Errorf("expected image part first, got %+v", chat.parts[0])
	}
	if string(chat.parts[0].InlineData.Data) != "png" {
		t.Errorf("expected decoded bytes, got %q", chat.parts[0].InlineData.Data)
	}
	if chat.parts[1].Text != "what is this?" {
		t.Errorf("expected text part second, got %+v", chat.parts[1])
	}
}

func TestSendTurnBadAttachment(t *testing.T) {
	s := &session{chat: &fakeChat{failAt: -1}}
	_, err := collect(t, s.SendTurn(context.Background(), "x", &llm.InlineData{Data: "!!", MimeType: "image/png"}))
	var streamErr *llm.StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected StreamError, got %v", err)
	}
}

func TestToContentsDropsEmptyTurns(t *testing.T) {
	contents := toContents([]llm.Message{
		{Role: llm.RoleUser, Text: "Hello"},
		{Role: llm.RoleModel, Text: ""},
		{Role: llm.RoleModel, Text: "Hi"},
	})
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("unexpected roles %q %q", contents[0].Role, contents[1].Role)
	}
	if contents[1].Parts[0].Text != "Hi" {
		t.Errorf("expected text Hi, got %q", contents[1].Parts[0].Text)
	}
}

func TestGenerateConfig(t *testing.T) {
	gc := generateConfig(&llm.Config{Temperature: 0.7, TopP: 0.95, TopK: 64}, "be kind")
	if *gc.Temperature != 0.7 || *gc.TopP != 0.95 || *gc.TopK != 64 {
		t.Errorf("unexpected sampling params %v %v %v", *gc.Temperature, *gc.TopP, *gc.TopK)
	}
	if gc.SystemInstruction == nil || gc.SystemInstruction.Parts[0].Text != "be kind" {
		t.Errorf("expected system instruction, got %+v", gc.SystemInstruction)
	}
	if gc.MaxOutputTokens != 0 {
		t.Errorf("expected no output cap, got %d", gc.MaxOutputTokens)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), &llm.Config{})
	var cfgErr *llm.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestClientProviderInterface(t *testing.T) {
	var _ llm.Provider = (*Client)(nil)
}
