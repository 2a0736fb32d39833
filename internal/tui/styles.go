package tui

import "github.com/charmbracelet/lipgloss"

const sidebarWidth = 30

type styles struct {
	sidebar       lipgloss.Style
	sidebarTitle  lipgloss.Style
	sidebarItem   lipgloss.Style
	sidebarActive lipgloss.Style
	header        lipgloss.Style
	userLabel     lipgloss.Style
	modelLabel    lipgloss.Style
	userText      lipgloss.Style
	attachment    lipgloss.Style
	errBanner     lipgloss.Style
	notice        lipgloss.Style
	input         lipgloss.Style
	help          lipgloss.Style
	welcome       lipgloss.Style
}

type palette struct {
	primary, accent, text, muted, errFg, errBg string
}

var (
	darkPalette  = palette{primary: "#7C6CF2", accent: "#4FB3A9", text: "#E6E6E6", muted: "#8A8A8A", errFg: "#FFFFFF", errBg: "#B3261E"}
	lightPalette = palette{primary: "#5B4BD6", accent: "#1F7A70", text: "#1F1F1F", muted: "#6B6B6B", errFg: "#FFFFFF", errBg: "#C62828"}
)

func newStyles(theme string) styles {
	p := darkPalette
	if theme == "light" {
		p = lightPalette
	}
	return styles{
		sidebar: lipgloss.NewStyle().
			Width(sidebarWidth).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(lipgloss.Color(p.muted)),
		sidebarTitle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.primary)).MarginBottom(1),
		sidebarItem:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.text)),
		sidebarActive: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)),
		header:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.primary)).Padding(0, 1),
		userLabel:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)),
		modelLabel:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.primary)),
		userText:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.text)).PaddingLeft(2),
		attachment:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(p.muted)).PaddingLeft(2),
		errBanner:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.errFg)).Background(lipgloss.Color(p.errBg)).Padding(0, 1),
		notice:        lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)).Padding(0, 1),
		input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.primary)),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)).Padding(0, 1),
		welcome: lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)).Padding(1, 2),
	}
}
