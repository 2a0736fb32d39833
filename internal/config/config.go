package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/thinkchat/pkg/llm"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	Storage  struct {
		Backend string `json:"backend"`
	} `json:"storage"`
	LLM struct {
		Provider         string  `json:"provider"`
		BaseURL          string  `json:"base_url"`
		APIKey           string  `json:"api_key"`
		Model            string  `json:"model"`
		Temperature      float32 `json:"temperature"`
		TopP             float32 `json:"top_p"`
		TopK             float32 `json:"top_k"`
		MaxTokens        int     `json:"max_tokens"`
		MaxContextTokens int     `json:"max_context_tokens"`
		OutputReserve    int     `json:"output_reserve"`
		SystemPrompt     string  `json:"system_prompt"`
		MaxAttempts      int     `json:"max_attempts"`
	} `json:"llm"`
	UI struct {
		Theme string `json:"theme"`
	} `json:"ui"`
}

// DefaultPath is ~/.thinkchat/config.json.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.json")
}

func defaultDataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".thinkchat")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		DataDir:  defaultDataDir(),
		LogLevel: "info",
	}
	cfg.Storage.Backend = BackendFile
	cfg.LLM.Provider = ProviderGemini
	cfg.LLM.Model = "gemini-2.5-flash"
	cfg.LLM.Temperature = 0.7
	cfg.LLM.TopP = 0.95
	cfg.LLM.TopK = 64
	cfg.LLM.MaxTokens = 8192
	cfg.LLM.MaxContextTokens = 1000000
	cfg.LLM.OutputReserve = 8192
	cfg.LLM.MaxAttempts = 1
	cfg.UI.Theme = "dark"
	return cfg
}

// Load reads path over the defaults, writing the defaults out when the file
// does not exist yet. Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	switch cfg.LLM.Provider {
	case ProviderGemini:
		for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
			if v := os.Getenv(name); v != "" {
				cfg.LLM.APIKey = v
				break
			}
		}
	case ProviderOpenAI:
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.LLM.APIKey = v
		}
		if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
			cfg.LLM.BaseURL = v
		}
	}
	if v := os.Getenv("THINKCHAT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
}

// Validate checks the settings a chat needs before anything is started. A
// missing credential is reported as *llm.ConfigError.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported llm.provider %q (want %s or %s)", c.LLM.Provider, ProviderGemini, ProviderOpenAI)
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unsupported storage.backend %q (want %s or %s)", c.Storage.Backend, BackendFile, BackendSQLite)
	}
	if c.LLM.APIKey == "" {
		return &llm.ConfigError{Provider: c.LLM.Provider, Field: "llm.api_key"}
	}
	if c.LLM.OutputReserve < 0 || c.LLM.MaxContextTokens < 0 {
		return fmt.Errorf("llm.max_context_tokens and llm.output_reserve must not be negative")
	}
	return nil
}

// ProviderConfig is the adapter view of the llm section.
func (c *Config) ProviderConfig() *llm.Config {
	return &llm.Config{
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		MaxTokens:   c.LLM.MaxTokens,
		Temperature: c.LLM.Temperature,
		TopP:        c.LLM.TopP,
		TopK:        c.LLM.TopK,
		MaxAttempts: c.LLM.MaxAttempts,
	}
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	// the file can hold an api key
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg to its nested JSON map form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}

// ListValues returns cfg as flat dot keys, optionally masking secrets.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return m, nil
}

// GetValue returns the value stored in the file at path for a dot key. The
// file is created with defaults if missing.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	m, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	v, ok := Flatten(m)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue stores value under a dot key in an existing config file. Values
// that parse as JSON (numbers, booleans) are stored typed; anything else is
// stored as a string.
func SetValue(path, key, value string) error {
	m, err := readRaw(path)
	if err != nil {
		return err
	}
	flat := Flatten(m)

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}
	flat[key] = parsed

	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, data)
}
