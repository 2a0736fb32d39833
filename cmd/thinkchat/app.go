package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/user/thinkchat/internal/chat"
	"github.com/user/thinkchat/internal/config"
	ctxengine "github.com/user/thinkchat/internal/context"
	"github.com/user/thinkchat/internal/state"
	"github.com/user/thinkchat/internal/storage"
	"github.com/user/thinkchat/pkg/llm"
	"github.com/user/thinkchat/pkg/llm/gemini"
	"github.com/user/thinkchat/pkg/llm/openai"
)

// openHistory opens the configured storage backend. The caller closes it.
func openHistory(cfg *config.Config) (*state.HistoryStore, storage.Backend, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	backend, err := storage.Open(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	return state.NewHistoryStore(backend), backend, nil
}

func newProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return openai.New(cfg.ProviderConfig())
	default:
		return gemini.New(ctx, cfg.ProviderConfig())
	}
}

// openChat wires storage, the provider and the context fitter into an
// orchestrator. closeStore releases the storage backend.
func openChat(ctx context.Context, cfg *config.Config) (o *chat.Orchestrator, closeStore func() error, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	history, backend, err := openHistory(cfg)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			backend.Close()
		}
	}()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	engine, err := ctxengine.New(cfg.LLM.Model, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)
	if err != nil {
		return nil, nil, fmt.Errorf("create context engine: %w", err)
	}

	o, err = chat.New(ctx, chat.Options{
		Provider:     provider,
		Store:        history,
		SystemPrompt: ctxengine.SystemPrompt(cfg.LLM.SystemPrompt),
		Fitter:       engine,
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("chat opened",
		"data_dir", cfg.DataDir,
		"storage", cfg.Storage.Backend,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
	)
	return o, backend.Close, nil
}
