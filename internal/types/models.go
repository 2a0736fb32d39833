// internal/types/models.go
package types

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// TitleMaxRunes is the length a session title is cut to before "..." is added.
const TitleMaxRunes = 40

// DefaultTitle names a session that has no user text to derive a title from.
const DefaultTitle = "New Chat"

type Message struct {
	ID       MessageID `json:"id"`
	Role     Role      `json:"role"`
	Text     string    `json:"text"`
	Image    string    `json:"image,omitempty"`
	FileName string    `json:"fileName,omitempty"`
}

type Session struct {
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// SessionIndex maps every stored session by id.
type SessionIndex map[SessionID]*Session

// SessionSummary is the sidebar view of a stored session.
type SessionSummary struct {
	ID           SessionID
	Title        string
	MessageCount int
	UpdatedAt    time.Time
}

// Attachment is an inline image sent with a user turn.
type Attachment struct {
	Data     string // base64, no data: prefix
	MimeType string
}

// DataURL renders the attachment in the form stored on a Message.
func (a *Attachment) DataURL() string {
	return "data:" + a.MimeType + ";base64," + a.Data
}

// ParseDataURL is the inverse of DataURL.
func ParseDataURL(s string) (*Attachment, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URL")
	}
	mime, data, ok := strings.Cut(rest, ";base64,")
	if !ok || mime == "" {
		return nil, fmt.Errorf("malformed data URL")
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	return &Attachment{Data: data, MimeType: mime}, nil
}

// DeriveTitle computes a session title from its first user message.
func DeriveTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		if m.Text == "" {
			return DefaultTitle
		}
		if utf8.RuneCountInString(m.Text) > TitleMaxRunes {
			return string([]rune(m.Text)[:TitleMaxRunes]) + "..."
		}
		return m.Text
	}
	return DefaultTitle
}

// Clone returns a deep copy of the index.
func (idx SessionIndex) Clone() SessionIndex {
	out := make(SessionIndex, len(idx))
	for id, s := range idx {
		if s == nil {
			continue
		}
		cp := *s
		cp.Messages = append([]Message(nil), s.Messages...)
		out[id] = &cp
	}
	return out
}
