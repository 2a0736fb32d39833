package chat

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/user/thinkchat/internal/types"
)

func TestReducerTurn(t *testing.T) {
	r := NewReducer()

	userID := r.AppendUser("Hello", nil, "")
	modelID, err := r.AppendPlaceholderModel()
	if err != nil {
		t.Fatal(err)
	}
	if userID >= modelID {
		t.Errorf("expected ids to increase, got %s then %s", userID, modelID)
	}

	for _, frag := range []string{"Hi", "Hi there"} {
		if err := r.PatchModel(modelID, frag); err != nil {
			t.Fatal(err)
		}
	}
	r.Freeze()

	msgs := r.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != types.RoleUser || msgs[0].Text != "Hello" {
		t.Errorf("unexpected user message %+v", msgs[0])
	}
	if msgs[1].Role != types.RoleModel || msgs[1].Text != "Hi there" {
		t.Errorf("unexpected model message %+v", msgs[1])
	}
}

func TestReducerPatchIsIdempotent(t *testing.T) {
	r := NewReducer()
	r.AppendUser("q", nil, "")
	id, _ := r.AppendPlaceholderModel()

	if err := r.PatchModel(id, "Hi there"); err != nil {
		t.Fatal(err)
	}
	before := r.Messages()
	if err := r.PatchModel(id, "Hi there"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, r.Messages()); diff != "" {
		t.Errorf("duplicate patch changed state (-before +after):\n%s", diff)
	}
}

func TestReducerSinglePlaceholder(t *testing.T) {
	r := NewReducer()
	r.AppendUser("q", nil, "")
	if _, err := r.AppendPlaceholderModel(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.AppendPlaceholderModel(); !errors.Is(err, ErrMessageOpen) {
		t.Errorf("expected ErrMessageOpen, got %v", err)
	}
}

func TestReducerFrozenMessagesRejectPatches(t *testing.T) {
	r := NewReducer()
	userID := r.AppendUser("q", nil, "")
	modelID, _ := r.AppendPlaceholderModel()

	if err := r.PatchModel(userID, "x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen patching a user message, got %v", err)
	}

	r.Freeze()
	if err := r.PatchModel(modelID, "late"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen after freeze, got %v", err)
	}
}

func TestReducerAttachment(t *testing.T) {
	r := NewReducer()
	r.AppendUser("what is this", &types.Attachment{Data: "AA==", MimeType: "image/png"}, "cat.png")
	msg := r.Messages()[0]
	if msg.Image != "data:image/png;base64,AA==" || msg.FileName != "cat.png" {
		t.Errorf("unexpected attachment fields %+v", msg)
	}
}

func TestReducerLoadAndReset(t *testing.T) {
	r := NewReducer()
	stored := []types.Message{{ID: "1", Role: types.RoleUser, Text: "a"}}
	r.Load(stored)

	got := r.Messages()
	got[0].Text = "mutated"
	if r.Messages()[0].Text != "a" {
		t.Error("Messages must return a copy")
	}
	if stored[0].Text != "a" {
		t.Error("Load must not alias the caller's slice")
	}

	r.Reset()
	if len(r.Messages()) != 0 || r.Open() != "" {
		t.Error("expected empty reducer after reset")
	}
}
