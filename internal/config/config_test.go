package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8690 {
		t.Errorf("Server.Port = %d, want 8690", cfg.Server.Port)
	}
	if cfg.Analysis.Provider != "ollama" {
		t.Errorf("Analysis.Provider = %q, want ollama", cfg.Analysis.Provider)
	}
	if cfg.Analysis.StageTimeout != 10*time.Minute {
		t.Errorf("Analysis.StageTimeout = %s, want 10m", cfg.Analysis.StageTimeout)
	}
	if cfg.Analysis.Retention != time.Hour {
		t.Errorf("Analysis.Retention = %s, want 1h", cfg.Analysis.Retention)
	}

	ollama, ok := cfg.GetProvider("ollama")
	if !ok {
		t.Fatal("default config is missing the ollama provider")
	}
	if !ollama.Enabled {
		t.Error("ollama provider should be enabled by default")
	}
	if openrouter, ok := cfg.GetProvider("openrouter"); !ok || openrouter.Enabled {
		t.Error("openrouter should be present but disabled by default")
	}

	enabled := cfg.EnabledProviders()
	if len(enabled) != 1 {
		t.Errorf("EnabledProviders() = %d entries, want 1", len(enabled))
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("REDLINE_TEST_KEY", "secret123")

	cases := []struct {
		in, want string
	}{
		{"${REDLINE_TEST_KEY}", "secret123"},
		{"prefix-${REDLINE_TEST_KEY}-suffix", "prefix-secret123-suffix"},
		{"no-vars-here", "no-vars-here"},
		{"${UNSET_VAR_XYZ}", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ResolveEnvVars(c.in); got != c.want {
			t.Errorf("ResolveEnvVars(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "resolved-key")

	cfg := &Config{
		Analysis: AnalysisCfg{Provider: "remote"},
		Providers: map[string]ChatProviderCfg{
			"remote": {
				Type:    "openai",
				BaseURL: "https://api.example.com/v1",
				Model:   "gpt-4o-mini",
				APIKey:  "${TEST_PROVIDER_KEY}",
				Enabled: true,
			},
		},
	}

	rc := cfg.ToProviderRegistryConfig()
	if rc.Default != "remote" {
		t.Errorf("Default = %q, want remote", rc.Default)
	}
	p, ok := rc.ChatProviders["remote"]
	if !ok {
		t.Fatal("remote provider missing from registry config")
	}
	if p.APIKey != "resolved-key" {
		t.Errorf("APIKey = %q, want resolved-key", p.APIKey)
	}
	if p.BaseURL != "https://api.example.com/v1" {
		t.Errorf("BaseURL = %q", p.BaseURL)
	}
}

func TestWriteDefaultAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if !strings.Contains(string(data), "providers:") {
		t.Error("written config is missing the providers section")
	}

	cm, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	cfg := cm.Get()
	if cfg == nil {
		t.Fatal("Get() returned nil config")
	}
	if _, ok := cfg.GetProvider("ollama"); !ok {
		t.Error("loaded config is missing the ollama provider")
	}
}
