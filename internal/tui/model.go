// Package tui is the terminal front end: a session sidebar, the message pane
// and an input box, all driven by snapshots from the chat orchestrator.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/thinkchat/internal/chat"
	"github.com/user/thinkchat/internal/types"
)

// Chat is the orchestrator surface the TUI drives.
type Chat interface {
	SendMessage(ctx context.Context, text string, image *types.Attachment, fileName string) error
	ClearChat(ctx context.Context) error
	SwitchSession(ctx context.Context, id types.SessionID) error
	DeleteSession(ctx context.Context, id types.SessionID) error
	State() chat.Snapshot
	Sessions() []types.SessionSummary
	Subscribe(fn func(chat.Snapshot)) func()
}

type stateMsg chat.Snapshot

type opDoneMsg struct {
	op  string
	err error
}

type staged struct {
	image    *types.Attachment
	fileName string
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	chat   Chat
	// background operations started by the model
	inflight *sync.WaitGroup

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	styles   styles
	theme    string

	state    chat.Snapshot
	sessions []types.SessionSummary
	staged   *staged
	pending  bool
	notice   string

	width, height int
	ready         bool
}

// New builds the model. ctx bounds every operation the model starts.
func New(ctx context.Context, c Chat, theme string) Model {
	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Type your message or ask anything..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		cancel:   cancel,
		chat:     c,
		inflight: &sync.WaitGroup{},
		textarea: ta,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		styles:   newStyles(theme),
		theme:    theme,
		state:    c.State(),
		sessions: c.Sessions(),
	}
}

// Run starts the TUI and blocks until the user quits. An in-flight turn is
// cancelled on exit and allowed to settle before Run returns.
func Run(ctx context.Context, c Chat, theme string) error {
	m := New(ctx, c, theme)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(m.ctx))

	unsubscribe := c.Subscribe(func(s chat.Snapshot) { p.Send(stateMsg(s)) })

	_, err := p.Run()
	m.cancel()
	unsubscribe()
	m.inflight.Wait()

	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// run executes fn off the event loop and reports its result as opDoneMsg.
func (m Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	m.inflight.Add(1)
	return func() tea.Msg {
		defer m.inflight.Done()
		return opDoneMsg{op: op, err: fn(m.ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.cancel()
			return m, tea.Quit
		case tea.KeyCtrlN:
			return m.clear()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			if !msg.Alt && !msg.Paste {
				return m.submit()
			}
		}
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case stateMsg:
		m.state = chat.Snapshot(msg)
		m.sessions = m.chat.Sessions()
		if !m.state.IsLoading {
			m.pending = false
		}
		m.refresh()

	case opDoneMsg:
		m.sessions = m.chat.Sessions()
		if msg.op == "send" {
			m.pending = false
		}
		switch {
		case errors.Is(msg.err, chat.ErrBusy):
			m.notice = "Wait for the current reply to finish."
		case msg.err != nil && msg.op != "send":
			// send failures already show in the error banner
			m.notice = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		}
		m.state = m.chat.State()
		m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.loading() {
			m.refresh()
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) loading() bool {
	return m.pending || m.state.IsLoading
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	input := m.textarea.Value()
	if strings.TrimSpace(input) == "" && m.staged == nil {
		return m, nil
	}
	cmd, err := ParseCommand(input)
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}
	m.notice = ""

	switch cmd.Kind {
	case CmdSend:
		if m.loading() {
			m.notice = "Wait for the current reply to finish."
			return m, nil
		}
		text, att := cmd.Text, m.staged
		m.textarea.Reset()
		m.staged = nil
		m.pending = true
		m.refresh()
		return m, m.run("send", func(ctx context.Context) error {
			if att == nil {
				return m.chat.SendMessage(ctx, text, nil, "")
			}
			return m.chat.SendMessage(ctx, text, att.image, att.fileName)
		})

	case CmdAttach:
		img, name, err := chat.LoadImage(expandHome(cmd.Text))
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.staged = &staged{image: img, fileName: name}
		m.textarea.Reset()
		return m, nil

	case CmdDetach:
		m.staged = nil
		m.textarea.Reset()
		return m, nil

	case CmdNew:
		m.textarea.Reset()
		return m.clear()

	case CmdOpen, CmdDelete:
		if cmd.Index > len(m.sessions) {
			m.notice = fmt.Sprintf("No chat %d in the sidebar.", cmd.Index)
			return m, nil
		}
		id := m.sessions[cmd.Index-1].ID
		m.textarea.Reset()
		if cmd.Kind == CmdOpen {
			return m, m.run("open", func(ctx context.Context) error { return m.chat.SwitchSession(ctx, id) })
		}
		return m, m.run("delete", func(ctx context.Context) error { return m.chat.DeleteSession(ctx, id) })

	case CmdHelp:
		m.notice = helpText
		m.textarea.Reset()
		return m, nil

	case CmdQuit:
		m.cancel()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) clear() (tea.Model, tea.Cmd) {
	m.staged = nil
	return m, m.run("new chat", m.chat.ClearChat)
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	chatWidth := width - sidebarWidth - 3
	if chatWidth < 20 {
		chatWidth = 20
	}
	// header, banner, attachment line, input box, help
	vpHeight := height - 1 - 1 - 1 - (m.textarea.Height() + 2) - 1
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.viewport.Width = chatWidth
	m.viewport.Height = vpHeight
	m.textarea.SetWidth(chatWidth - 2)

	style := glamour.WithStandardStyle("dark")
	if m.theme == "light" {
		style = glamour.WithStandardStyle("light")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(chatWidth-4))
	if err == nil {
		m.renderer = r
	}
	m.ready = true
	m.refresh()
}

// refresh re-renders the message pane, following the bottom while it is
// already there.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	spin := ""
	if m.loading() {
		spin = m.spinner.View()
	}
	m.viewport.SetContent(renderMessages(m.state.Messages, m.renderer, m.styles, m.viewport.Width, spin))
	if atBottom || m.loading() {
		m.viewport.GotoBottom()
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Starting ThinkChat..."
	}

	sidebar := m.styles.sidebar.Height(m.height).Render(renderSidebar(m.sessions, m.state.SessionID, m.styles))

	title := m.state.Title
	if title == "" {
		title = types.DefaultTitle
	}
	parts := []string{m.styles.header.Render(title), m.viewport.View()}

	switch {
	case m.state.Err != "":
		parts = append(parts, m.styles.errBanner.Render("Error: "+m.state.Err))
	case m.notice != "":
		parts = append(parts, m.styles.notice.Render(m.notice))
	case m.loading():
		parts = append(parts, m.styles.notice.Render(m.spinner.View()+" ThinkChat is thinking..."))
	default:
		parts = append(parts, "")
	}
	if m.state.Err != "" && m.notice != "" {
		parts = append(parts, m.styles.notice.Render(m.notice))
	}

	if m.staged != nil {
		parts = append(parts, m.styles.attachment.Render(fmt.Sprintf("Attached: %s (%s), /detach to remove", m.staged.fileName, m.staged.image.MimeType)))
	} else {
		parts = append(parts, "")
	}
	parts = append(parts,
		m.styles.input.Render(m.textarea.View()),
		m.styles.help.Render("enter send • alt+enter newline • ctrl+n new chat • /help • ctrl+c quit"),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, lipgloss.JoinVertical(lipgloss.Left, parts...))
}
