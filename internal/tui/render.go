package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/user/thinkchat/internal/types"
)

const welcomeText = "How can I help you think, create, or learn today?"

// renderSidebar lists sessions numbered for /open and /delete.
func renderSidebar(sessions []types.SessionSummary, active types.SessionID, st styles) string {
	var b strings.Builder
	b.WriteString(st.sidebarTitle.Render("Chats"))
	b.WriteString("\n")
	if len(sessions) == 0 {
		b.WriteString(st.sidebarItem.Render("No chats yet"))
		return b.String()
	}
	for i, s := range sessions {
		line := truncate(fmt.Sprintf("%d. %s", i+1, s.Title), sidebarWidth-2)
		if s.ID == active {
			b.WriteString(st.sidebarActive.Render("> " + line))
		} else {
			b.WriteString(st.sidebarItem.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// renderMessages draws the message pane. A nil renderer shows model text
// unformatted. spin, when set, marks an empty streaming reply.
func renderMessages(messages []types.Message, r *glamour.TermRenderer, st styles, width int, spin string) string {
	if len(messages) == 0 {
		return st.welcome.Render(welcomeText)
	}

	var b strings.Builder
	for i, m := range messages {
		if m.Role == types.RoleUser {
			b.WriteString(st.userLabel.Render("You"))
			b.WriteString("\n")
			if m.Image != "" {
				name := m.FileName
				if name == "" {
					name = "image"
				}
				b.WriteString(st.attachment.Render("[" + name + "]"))
				b.WriteString("\n")
			}
			if m.Text != "" {
				b.WriteString(st.userText.Width(width).Render(m.Text))
				b.WriteString("\n")
			}
		} else {
			b.WriteString(st.modelLabel.Render("ThinkChat"))
			b.WriteString("\n")
			switch {
			case m.Text == "" && spin != "" && i == len(messages)-1:
				b.WriteString(st.userText.Render(spin + " Thinking..."))
				b.WriteString("\n")
			case m.Text != "":
				b.WriteString(renderMarkdown(r, m.Text))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMarkdown(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
