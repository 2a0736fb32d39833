// Package export writes stored chat sessions out as JSON, YAML or Markdown.
package export

import (
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/user/thinkchat/internal/types"
)

// Exporter writes one session in a single format.
type Exporter interface {
	Export(id types.SessionID, session *types.Session, w io.Writer) error
	Extension() string
}

// NewExporter returns the exporter for format.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, yaml, md)", format)
	}
}

// Document is the exported form of a session. Inline images are replaced by
// a summary.
type Document struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	Messages  []Entry   `json:"messages" yaml:"messages"`
}

type Entry struct {
	Role       string      `json:"role" yaml:"role"`
	Text       string      `json:"text" yaml:"text"`
	Attachment *ImageStats `json:"attachment,omitempty" yaml:"attachment,omitempty"`
}

type ImageStats struct {
	FileName string `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	MimeType string `json:"mime_type" yaml:"mime_type"`
	Bytes    int    `json:"bytes" yaml:"bytes"`
}

// NewDocument builds the export form of session.
func NewDocument(id types.SessionID, session *types.Session) Document {
	doc := Document{
		ID:        string(id),
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		Messages:  make([]Entry, 0, len(session.Messages)),
	}
	if doc.Title == "" {
		doc.Title = types.DeriveTitle(session.Messages)
	}
	for _, m := range session.Messages {
		e := Entry{Role: string(m.Role), Text: m.Text}
		if m.Image != "" {
			e.Attachment = imageStats(m)
		}
		doc.Messages = append(doc.Messages, e)
	}
	return doc
}

func imageStats(m types.Message) *ImageStats {
	stats := &ImageStats{FileName: m.FileName, MimeType: "unknown"}
	att, err := types.ParseDataURL(m.Image)
	if err != nil {
		return stats
	}
	raw, _ := base64.StdEncoding.DecodeString(att.Data)
	stats.MimeType = att.MimeType
	stats.Bytes = len(raw)
	return stats
}
