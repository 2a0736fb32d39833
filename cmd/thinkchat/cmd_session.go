package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/user/thinkchat/internal/chat"
	"github.com/user/thinkchat/internal/config"
	"github.com/user/thinkchat/internal/export"
	"github.com/user/thinkchat/internal/state"
	"github.com/user/thinkchat/internal/types"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))

	showRaw      bool
	exportFormat string
	exportOutput string
)

func init() {
	sessionShowCmd.Flags().BoolVar(&showRaw, "raw", false, "print markdown without terminal rendering")
	sessionExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "export format: json, yaml or md")
	sessionExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to this file instead of stdout")

	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionDeleteCmd, sessionExportCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored chat sessions",
}

// sessionEnv is what the session subcommands work on: no provider is
// started, so they run without an API key.
type sessionEnv struct {
	cfg     *config.Config
	history *state.HistoryStore
	index   types.SessionIndex
}

// withIndex opens the history store, loads the index, and runs fn.
func withIndex(fn func(ctx context.Context, env sessionEnv) error) error {
	cfg := loadConfig()
	setupLogging(cfg, os.Stderr)

	history, backend, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	ctx := context.Background()
	return fn(ctx, sessionEnv{cfg: cfg, history: history, index: history.Load(ctx)})
}

func lookup(index types.SessionIndex, arg string) (types.SessionID, *types.Session, error) {
	id, err := resolveSession(chat.Summaries(index), arg)
	if err != nil {
		return "", nil, err
	}
	return id, index[id], nil
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(ctx context.Context, env sessionEnv) error {
			out := cmd.OutOrStdout()
			if len(env.index) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}
			active, _ := env.history.LoadActiveID(ctx)
			return writeSessionTable(out, chat.Summaries(env.index), active)
		})
	},
}

func writeSessionTable(out io.Writer, list []types.SessionSummary, active types.SessionID) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, headerStyle.Render("ID")+"\t"+headerStyle.Render("TITLE")+"\t"+headerStyle.Render("MESSAGES")+"\t"+headerStyle.Render("UPDATED"))
	for _, s := range list {
		id := string(s.ID)
		if s.ID == active {
			id = activeStyle.Render(id + " *")
		}
		updated := "-"
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", id, s.Title, s.MessageCount, updated)
	}
	return w.Flush()
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(ctx context.Context, env sessionEnv) error {
			id, s, err := lookup(env.index, args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := (&export.MarkdownExporter{}).Export(id, s, &buf); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if showRaw {
				_, err := buf.WriteTo(out)
				return err
			}
			rendered, err := glamour.Render(buf.String(), env.cfg.UI.Theme)
			if err != nil {
				_, err := buf.WriteTo(out)
				return err
			}
			_, err = io.WriteString(out, rendered)
			return err
		})
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(ctx context.Context, env sessionEnv) error {
			id, _, err := lookup(env.index, args[0])
			if err != nil {
				return err
			}
			delete(env.index, id)
			if err := env.history.Save(ctx, env.index); err != nil {
				return fmt.Errorf("save history: %w", err)
			}
			if active, ok := env.history.LoadActiveID(ctx); ok && active == id {
				if err := env.history.ClearActiveID(ctx); err != nil {
					return fmt.Errorf("clear active session: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted.\n", id)
			return nil
		})
	},
}

var sessionExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a session as JSON, YAML or Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}
		return withIndex(func(ctx context.Context, env sessionEnv) error {
			id, s, err := lookup(env.index, args[0])
			if err != nil {
				return err
			}
			if exportOutput == "" {
				return exporter.Export(id, s, cmd.OutOrStdout())
			}

			if err := os.MkdirAll(filepath.Dir(exportOutput), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOutput, err)
			}
			if err := exporter.Export(id, s, f); err != nil {
				f.Close()
				return fmt.Errorf("export session: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", id, exportOutput)
			return nil
		})
	},
}
