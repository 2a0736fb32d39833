package export

import (
	"fmt"
	"io"

	"github.com/user/thinkchat/internal/types"
)

// MarkdownExporter writes a readable transcript. Message text is already
// markdown and is written as is.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(id types.SessionID, session *types.Session, w io.Writer) error {
	doc := NewDocument(id, session)

	if _, err := fmt.Fprintf(w, "# %s\n\n", doc.Title); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", doc.ID)
	if !doc.UpdatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Updated:** %s  \n", doc.UpdatedAt.Format("2006-01-02 15:04"))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(doc.Messages))

	for _, m := range doc.Messages {
		_, _ = fmt.Fprintf(w, "---\n\n### %s\n\n", speaker(m.Role))
		if a := m.Attachment; a != nil {
			name := a.FileName
			if name == "" {
				name = "image"
			}
			_, _ = fmt.Fprintf(w, "> Attached %s (%s, %d bytes)\n\n", name, a.MimeType, a.Bytes)
		}
		if m.Text != "" {
			_, _ = fmt.Fprintf(w, "%s\n\n", m.Text)
		}
	}
	return nil
}

func speaker(role string) string {
	if role == string(types.RoleModel) {
		return "ThinkChat"
	}
	return "You"
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}
