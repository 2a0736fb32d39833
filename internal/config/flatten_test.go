package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want map[string]any
	}{
		{
			name: "top level",
			in:   map[string]any{"log_level": "info", "data_dir": "/tmp"},
			want: map[string]any{"log_level": "info", "data_dir": "/tmp"},
		},
		{
			name: "nested",
			in: map[string]any{
				"llm":     map[string]any{"provider": "gemini", "top_k": 64.0},
				"storage": map[string]any{"backend": "sqlite"},
			},
			want: map[string]any{"llm.provider": "gemini", "llm.top_k": 64.0, "storage.backend": "sqlite"},
		},
		{
			name: "deep",
			in:   map[string]any{"a": map[string]any{"b": map[string]any{"c": true}}},
			want: map[string]any{"a.b.c": true},
		},
		{
			name: "empty nested map disappears",
			in:   map[string]any{"ui": map[string]any{}},
			want: map[string]any{},
		},
		{
			name: "empty",
			in:   map[string]any{},
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Flatten(tt.in)); diff != "" {
				t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnflatten(t *testing.T) {
	flat := map[string]any{
		"log_level": "debug",
		"llm.model": "gemini-2.5-flash",
		"llm.top_p": 0.95,
		"ui.theme":  "light",
		"x.y.z":     "deep",
	}
	want := map[string]any{
		"log_level": "debug",
		"llm":       map[string]any{"model": "gemini-2.5-flash", "top_p": 0.95},
		"ui":        map[string]any{"theme": "light"},
		"x":         map[string]any{"y": map[string]any{"z": "deep"}},
	}
	if diff := cmp.Diff(want, Unflatten(flat)); diff != "" {
		t.Errorf("Unflatten mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "key-1234"
	m, err := ToMap(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(m, Unflatten(Flatten(m))); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMaskSecrets(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"long", "AIzaSyExample9876", "***9876"},
		{"exactly four", "abcd", "***abcd"},
		{"short", "ab", "***ab"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskSecrets(map[string]any{"llm.api_key": tt.value, "llm.provider": "gemini"})
			if got["llm.api_key"] != tt.want {
				t.Errorf("expected %q, got %v", tt.want, got["llm.api_key"])
			}
			if got["llm.provider"] != "gemini" {
				t.Errorf("non-secret changed: %v", got["llm.provider"])
			}
		})
	}
}

func TestIsSecretKey(t *testing.T) {
	if !IsSecretKey("llm.api_key") {
		t.Error("expected llm.api_key to be secret")
	}
	if IsSecretKey("llm.model") {
		t.Error("expected llm.model not to be secret")
	}
}
