package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/thinkchat/internal/config"
	"github.com/user/thinkchat/pkg/llm"
	"github.com/user/thinkchat/pkg/llm/gemini"
	"github.com/user/thinkchat/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if err := runSetup(cfg, os.Stdin, cmd.OutOrStdout()); err != nil {
			return err
		}
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration saved to", cfgPath)
		return nil
	},
}

// runSetup asks for each setting in turn, keeping the current value on an
// empty answer.
func runSetup(cfg *config.Config, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	ask := func(label, current string) string {
		return prompt(scanner, out, label, current)
	}

	fmt.Fprintln(out, "ThinkChat Setup")
	fmt.Fprintln(out, "Press Enter to accept the value shown in brackets.")
	fmt.Fprintln(out)

	provider := ask("LLM provider (gemini/openai)", cfg.LLM.Provider)
	if provider != cfg.LLM.Provider {
		cfg.LLM.Provider = provider
		cfg.LLM.Model = gemini.DefaultModel
		if provider == config.ProviderOpenAI {
			cfg.LLM.Model = openai.DefaultModel
		}
	}
	if provider == config.ProviderOpenAI {
		cfg.LLM.BaseURL = ask("API base URL", orDefault(cfg.LLM.BaseURL, openai.DefaultBaseURL))
	}
	cfg.LLM.APIKey = ask("API key", cfg.LLM.APIKey)
	cfg.LLM.Model = ask("Model", cfg.LLM.Model)
	cfg.Storage.Backend = ask("Storage backend (file/sqlite)", cfg.Storage.Backend)
	cfg.UI.Theme = ask("Theme (dark/light)", cfg.UI.Theme)

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	err := cfg.Validate()
	var cfgErr *llm.ConfigError
	if errors.As(err, &cfgErr) {
		fmt.Fprintln(out, "No API key saved; set GEMINI_API_KEY or OPENAI_API_KEY before chatting.")
		return nil
	}
	return err
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// prompt displays a labeled prompt with a default value and reads one line.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, out io.Writer, label, defaultVal string) string {
	display := defaultVal
	if label == "API key" && defaultVal != "" {
		display = config.MaskSecrets(map[string]any{"llm.api_key": defaultVal})["llm.api_key"].(string)
	}
	if display != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, display)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	if scanner.Scan() {
		if input := strings.TrimSpace(scanner.Text()); input != "" {
			return input
		}
	}
	return defaultVal
}
