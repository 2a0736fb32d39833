package tui

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind identifies what a line of input asks for.
type CommandKind int

const (
	CmdSend CommandKind = iota
	CmdAttach
	CmdDetach
	CmdNew
	CmdOpen
	CmdDelete
	CmdHelp
	CmdQuit
)

// Command is a parsed line of input. Text is the message for CmdSend and the
// path for CmdAttach. Index is the 1-based sidebar position for CmdOpen and
// CmdDelete.
type Command struct {
	Kind  CommandKind
	Text  string
	Index int
}

const helpText = `Commands:
  /attach <path>  stage an image for the next message
  /detach         drop the staged image
  /new            start a new chat (Ctrl+N)
  /open <n>       switch to chat n in the sidebar
  /delete <n>     delete chat n
  /quit           exit (Ctrl+C)
Enter sends, Alt+Enter inserts a newline.`

// ParseCommand interprets one submitted line. Anything not starting with a
// slash is a message. A doubled slash escapes a message that starts with one.
func ParseCommand(input string) (Command, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{Kind: CmdSend, Text: input}, nil
	}
	if strings.HasPrefix(trimmed, "//") {
		return Command{Kind: CmdSend, Text: trimmed[1:]}, nil
	}

	name, arg, _ := strings.Cut(trimmed[1:], " ")
	name = strings.ToLower(name)
	arg = strings.TrimSpace(arg)

	switch name {
	case "attach":
		if arg == "" {
			return Command{}, fmt.Errorf("usage: /attach <path>")
		}
		return Command{Kind: CmdAttach, Text: arg}, nil
	case "detach":
		return Command{Kind: CmdDetach}, nil
	case "new", "clear":
		return Command{Kind: CmdNew}, nil
	case "open", "delete":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("usage: /%s <n>", name)
		}
		kind := CmdOpen
		if name == "delete" {
			kind = CmdDelete
		}
		return Command{Kind: kind, Index: n}, nil
	case "help", "?":
		return Command{Kind: CmdHelp}, nil
	case "quit", "exit":
		return Command{Kind: CmdQuit}, nil
	default:
		return Command{}, fmt.Errorf("unknown command /%s (try /help)", name)
	}
}
