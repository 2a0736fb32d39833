package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/thinkchat/pkg/llm"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GEMINI_API_KEY", "API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL", "THINKCHAT_DATA_DIR"} {
		t.Setenv(name, "")
	}
}

func TestLoad_WritesDefaults(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != ProviderGemini || cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.Temperature != 0.7 || cfg.LLM.TopP != 0.95 || cfg.LLM.TopK != 64 {
		t.Errorf("unexpected sampling defaults: %+v", cfg.LLM)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("expected file backend, got %q", cfg.Storage.Backend)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected defaults written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600, got %o", perm)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	original := Default()
	original.DataDir = "/tmp/thinkchat-test"
	original.LogLevel = "debug"
	original.Storage.Backend = BackendSQLite
	original.LLM.Provider = ProviderOpenAI
	original.LLM.BaseURL = "http://localhost:11434/v1"
	original.LLM.APIKey = "sk-round-trip"
	original.LLM.Model = "llama3"
	original.LLM.Temperature = 0.2
	original.LLM.SystemPrompt = "Answer in French."
	original.UI.Theme = "light"

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not exist after save")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != *original {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, original)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)
	if err := os.WriteFile(path, []byte(`{"llm": {"model": "gemini-2.5-pro"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Model != "gemini-2.5-pro" {
		t.Errorf("expected model from file, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.TopK != 64 || cfg.LogLevel != "info" {
		t.Error("expected defaults for keys missing from file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := tempConfigPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		env      map[string]string
		wantKey  string
	}{
		{"gemini key", ProviderGemini, map[string]string{"GEMINI_API_KEY": "g-key"}, "g-key"},
		{"gemini fallback", ProviderGemini, map[string]string{"API_KEY": "fallback"}, "fallback"},
		{"gemini prefers GEMINI_API_KEY", ProviderGemini, map[string]string{"GEMINI_API_KEY": "g-key", "API_KEY": "fallback"}, "g-key"},
		{"openai key", ProviderOpenAI, map[string]string{"OPENAI_API_KEY": "sk-env"}, "sk-env"},
		{"openai ignores gemini key", ProviderOpenAI, map[string]string{"GEMINI_API_KEY": "g-key"}, "from-file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := tempConfigPath(t)
			cfg := Default()
			cfg.LLM.Provider = tt.provider
			cfg.LLM.APIKey = "from-file"
			if err := Save(path, cfg); err != nil {
				t.Fatal(err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			if loaded.LLM.APIKey != tt.wantKey {
				t.Errorf("expected key %q, got %q", tt.wantKey, loaded.LLM.APIKey)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.LLM.APIKey = "key"
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	missing := valid()
	missing.LLM.APIKey = ""
	var cfgErr *llm.ConfigError
	if err := missing.Validate(); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %v", err)
	} else if cfgErr.Field != "llm.api_key" {
		t.Errorf("expected field llm.api_key, got %q", cfgErr.Field)
	}

	badProvider := valid()
	badProvider.LLM.Provider = "claude"
	if err := badProvider.Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}

	badBackend := valid()
	badBackend.Storage.Backend = "redis"
	if err := badBackend.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestProviderConfig(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "key"
	pc := cfg.ProviderConfig()
	if pc.APIKey != "key" || pc.Model != cfg.LLM.Model || pc.TopK != 64 || pc.MaxTokens != 8192 || pc.MaxAttempts != 1 {
		t.Errorf("unexpected provider config %+v", pc)
	}
}

func TestToMap(t *testing.T) {
	cfg := Default()
	cfg.LLM.MaxTokens = 2000

	m, err := ToMap(cfg)
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}
	section, ok := m["llm"].(map[string]any)
	if !ok {
		t.Fatalf("expected llm to be map, got %T", m["llm"])
	}
	// JSON numbers are float64
	if section["max_tokens"] != float64(2000) {
		t.Errorf("expected llm.max_tokens=2000, got %v", section["max_tokens"])
	}
}

func TestListValues(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "AIza-secret-1234"

	plain, err := ListValues(cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	if plain["llm.api_key"] != "AIza-secret-1234" {
		t.Errorf("expected unmasked key, got %v", plain["llm.api_key"])
	}

	masked, err := ListValues(cfg, true)
	if err != nil {
		t.Fatal(err)
	}
	if masked["llm.api_key"] != "***1234" {
		t.Errorf("expected masked key, got %v", masked["llm.api_key"])
	}
	if masked["storage.backend"] != "file" || masked["ui.theme"] != "dark" {
		t.Errorf("unexpected values %v", masked)
	}
}

func TestGetValue(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	// missing file is created with defaults
	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "info" {
		t.Errorf("expected default log_level=info, got %v", v)
	}

	v, err = GetValue(path, "llm.top_k")
	if err != nil {
		t.Fatal(err)
	}
	if v != float64(64) {
		t.Errorf("expected llm.top_k=64, got %v (%T)", v, v)
	}

	_, err = GetValue(path, "nonexistent.key")
	if err == nil || err.Error() != "unknown config key: nonexistent.key" {
		t.Errorf("expected unknown key error, got %v", err)
	}
}

func TestSetValue(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)
	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key, value string
		want       any
	}{
		{"log_level", "debug", "debug"},
		{"llm.temperature", "0.3", 0.3},
		{"llm.max_tokens", "1024", float64(1024)},
		{"storage.backend", "sqlite", "sqlite"},
		{"custom.flag", "true", true},
	}
	for _, tt := range tests {
		if err := SetValue(path, tt.key, tt.value); err != nil {
			t.Fatalf("SetValue(%s) failed: %v", tt.key, err)
		}
		got, err := GetValue(path, tt.key)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %v (%T), got %v (%T)", tt.key, tt.want, tt.want, got, got)
		}
	}

	// other values are preserved
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != ProviderGemini || cfg.LLM.Temperature != 0.3 {
		t.Errorf("unexpected config after sets: %+v", cfg.LLM)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "config.json")
	if err := SetValue(path, "log_level", "debug"); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "config.json")
	if err := Save(path, Default()); err != nil {
		t.Fatalf("Save should create parent directory, got: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist: %v", err)
	}
}
