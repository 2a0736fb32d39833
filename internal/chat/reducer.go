package chat

import (
	"errors"
	"fmt"

	"github.com/user/thinkchat/internal/types"
)

var (
	// ErrMessageOpen is returned when a placeholder is requested while
	// another model message is still streaming.
	ErrMessageOpen = errors.New("a model message is already streaming")
	// ErrNotOpen is returned when patching a message that is not the open
	// model message.
	ErrNotOpen = errors.New("message is not open for patching")
)

// Reducer owns the ordered message list of the active session. At most one
// model message is open (patchable) at a time; everything else is frozen.
type Reducer struct {
	messages []types.Message
	open     types.MessageID
}

func NewReducer() *Reducer {
	return &Reducer{}
}

// Reset clears the list, entering new-chat state.
func (r *Reducer) Reset() {
	r.messages = nil
	r.open = ""
}

// Load replaces the list wholesale.
func (r *Reducer) Load(messages []types.Message) {
	r.messages = append([]types.Message(nil), messages...)
	r.open = ""
}

// AppendUser appends a frozen user message and returns its id.
func (r *Reducer) AppendUser(text string, image *types.Attachment, fileName string) types.MessageID {
	msg := types.Message{
		ID:       types.NewMessageID(),
		Role:     types.RoleUser,
		Text:     text,
		FileName: fileName,
	}
	if image != nil {
		msg.Image = image.DataURL()
	}
	r.messages = append(r.messages, msg)
	return msg.ID
}

// AppendPlaceholderModel appends an empty model message and opens it for
// patching.
func (r *Reducer) AppendPlaceholderModel() (types.MessageID, error) {
	if r.open != "" {
		return "", ErrMessageOpen
	}
	msg := types.Message{ID: types.NewMessageID(), Role: types.RoleModel}
	r.messages = append(r.messages, msg)
	r.open = msg.ID
	return msg.ID, nil
}

// PatchModel sets the open model message's text to fullText. Patching with
// the same text twice is a no-op.
func (r *Reducer) PatchModel(id types.MessageID, fullText string) error {
	if id == "" || id != r.open {
		return fmt.Errorf("patch %s: %w", id, ErrNotOpen)
	}
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].ID == id {
			r.messages[i].Text = fullText
			return nil
		}
	}
	return fmt.Errorf("patch %s: %w", id, ErrNotOpen)
}

// Freeze closes the open model message, if any.
func (r *Reducer) Freeze() {
	r.open = ""
}

// Open returns the id of the streaming model message, or "" between turns.
func (r *Reducer) Open() types.MessageID {
	return r.open
}

// Messages returns a copy of the list.
func (r *Reducer) Messages() []types.Message {
	return append([]types.Message(nil), r.messages...)
}
