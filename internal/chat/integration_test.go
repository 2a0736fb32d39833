//go:build integration

package chat_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/user/thinkchat/internal/chat"
	ctxengine "github.com/user/thinkchat/internal/context"
	"github.com/user/thinkchat/internal/state"
	"github.com/user/thinkchat/internal/storage"
	"github.com/user/thinkchat/pkg/llm"
	"github.com/user/thinkchat/pkg/llm/openai"
)

// completionServer answers every chat completion with the next scripted
// reply, streamed word by word, and records how many messages it was sent.
type completionServer struct {
	mu       sync.Mutex
	replies  [][]string
	next     int
	received []int
}

func (s *completionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []json.RawMessage `json:"messages"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.received = append(s.received, len(req.Messages))
	reply := []string{"ok"}
	if s.next < len(s.replies) {
		reply = s.replies[s.next]
	}
	s.next++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	for _, d := range reply {
		chunk, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"delta": map[string]any{"content": d}}},
		})
		fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func (s *completionServer) sizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.received...)
}

func openStack(t *testing.T, kind, dir, url string) (*chat.Orchestrator, storage.Backend) {
	t.Helper()
	backend, err := storage.Open(kind, dir)
	if err != nil {
		t.Fatal(err)
	}
	provider, err := openai.New(&llm.Config{BaseURL: url + "/v1", APIKey: "test-key", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatal(err)
	}
	engine, err := ctxengine.New("gpt-4o-mini", 8000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	o, err := chat.New(context.Background(), chat.Options{
		Provider:     provider,
		Store:        state.NewHistoryStore(backend),
		SystemPrompt: ctxengine.SystemPrompt(""),
		Fitter:       engine,
	})
	if err != nil {
		t.Fatal(err)
	}
	return o, backend
}

func TestChatSurvivesRestart(t *testing.T) {
	for _, kind := range []string{storage.KindFile, storage.KindSQLite} {
		t.Run(kind, func(t *testing.T) {
			srv := &completionServer{replies: [][]string{
				{"Go is ", "a language."},
				{"It was ", "released in 2009."},
			}}
			server := httptest.NewServer(srv)
			t.Cleanup(func() {
				server.Close()
				http.DefaultTransport.(*http.Transport).CloseIdleConnections()
			})
			dir := t.TempDir()
			ctx := context.Background()

			o, backend := openStack(t, kind, dir, server.URL)
			if err := o.SendMessage(ctx, "What is Go?", nil, ""); err != nil {
				t.Fatal(err)
			}
			if err := o.SendMessage(ctx, "When was it released?", nil, ""); err != nil {
				t.Fatal(err)
			}
			before := o.State()
			backend.Close()

			// system prompt, then 1 and 3 prior messages plus the new one
			if diff := cmp.Diff([]int{2, 4}, srv.sizes()); diff != "" {
				t.Errorf("request sizes mismatch (-want +got):\n%s", diff)
			}

			restarted, backend := openStack(t, kind, dir, server.URL)
			defer backend.Close()

			after := restarted.State()
			if after.SessionID != before.SessionID {
				t.Fatalf("expected active session %s restored, got %s", before.SessionID, after.SessionID)
			}
			if diff := cmp.Diff(before.Messages, after.Messages); diff != "" {
				t.Errorf("restored messages mismatch (-want +got):\n%s", diff)
			}
			if after.Messages[3].Text != "It was released in 2009." {
				t.Errorf("unexpected reply %q", after.Messages[3].Text)
			}
			if after.Title != "What is Go?" {
				t.Errorf("unexpected title %q", after.Title)
			}

			// the restored session carries its history into the next turn
			if err := restarted.SendMessage(ctx, "Thanks", nil, ""); err != nil {
				t.Fatal(err)
			}
			sizes := srv.sizes()
			if got := sizes[len(sizes)-1]; got != 6 {
				t.Errorf("expected 6 messages in the third request, got %d", got)
			}
		})
	}
}

func TestDeletedSessionStaysDeleted(t *testing.T) {
	server := httptest.NewServer(&completionServer{})
	t.Cleanup(func() {
		server.Close()
		http.DefaultTransport.(*http.Transport).CloseIdleConnections()
	})
	dir := t.TempDir()
	ctx := context.Background()

	o, backend := openStack(t, storage.KindFile, dir, server.URL)
	if err := o.SendMessage(ctx, "first", nil, ""); err != nil {
		t.Fatal(err)
	}
	id := o.State().SessionID
	if err := o.DeleteSession(ctx, id); err != nil {
		t.Fatal(err)
	}
	backend.Close()

	restarted, backend := openStack(t, storage.KindFile, dir, server.URL)
	defer backend.Close()
	if n := len(restarted.Sessions()); n != 0 {
		t.Errorf("expected no sessions, got %d", n)
	}
	if got := restarted.State(); got.SessionID != "" || len(got.Messages) != 0 {
		t.Errorf("expected new-chat state, got %+v", got)
	}
}
