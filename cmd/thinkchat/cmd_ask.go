package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/thinkchat/internal/chat"
	"github.com/user/thinkchat/internal/types"
)

var (
	askImage   string
	askSession string
	askNew     bool
)

func init() {
	askCmd.Flags().StringVar(&askImage, "image", "", "attach an image file")
	askCmd.Flags().StringVar(&askSession, "session", "", "continue this session (id or unique prefix)")
	askCmd.Flags().BoolVar(&askNew, "new", false, "start a new session instead of continuing the last one")
	askCmd.MarkFlagsMutuallyExclusive("session", "new")
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message and stream the answer to stdout",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		image    *types.Attachment
		fileName string
	)
	if askImage != "" {
		var err error
		image, fileName, err = chat.LoadImage(askImage)
		if err != nil {
			return err
		}
	}

	o, closeStore, err := openChat(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	switch {
	case askNew:
		if err := o.ClearChat(ctx); err != nil {
			return err
		}
	case askSession != "":
		id, err := resolveSession(o.Sessions(), askSession)
		if err != nil {
			return err
		}
		if err := o.SwitchSession(ctx, id); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	cancel := o.Subscribe(streamTo(out))
	defer cancel()

	if err := o.SendMessage(ctx, strings.Join(args, " "), image, fileName); err != nil {
		fmt.Fprintln(out)
		return err
	}
	fmt.Fprintln(out)
	return nil
}

// streamTo returns a listener that writes the growing model reply to w as
// it arrives.
func streamTo(w io.Writer) func(chat.Snapshot) {
	printed := ""
	return func(s chat.Snapshot) {
		if !s.IsLoading || len(s.Messages) == 0 {
			return
		}
		last := s.Messages[len(s.Messages)-1]
		if last.Role != types.RoleModel {
			return
		}
		if rest, ok := strings.CutPrefix(last.Text, printed); ok && rest != "" {
			fmt.Fprint(w, rest)
			printed = last.Text
		}
	}
}

// resolveSession accepts a full session id or a unique prefix of one.
func resolveSession(sessions []types.SessionSummary, arg string) (types.SessionID, error) {
	var matches []types.SessionID
	for _, s := range sessions {
		if string(s.ID) == arg {
			return s.ID, nil
		}
		if strings.HasPrefix(string(s.ID), arg) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("session not found: %s", arg)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("session prefix %q is ambiguous (%d matches)", arg, len(matches))
	}
}
