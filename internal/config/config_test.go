package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
analysis:
  primary: openai
  fallback: claude
  max_tokens: 4096

builder:
  fetch_budget: 30s
  lookback: 365

providers:
  polygon:
    api_key: "pk_test"

llm:
  openai:
    api_key: "sk_test"
    model: "gpt-4o"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Analysis.Primary != "openai" {
		t.Errorf("expected primary openai, got %s", cfg.Analysis.Primary)
	}
	if cfg.Analysis.MaxTokens != 4096 {
		t.Errorf("expected max_tokens 4096, got %d", cfg.Analysis.MaxTokens)
	}
	if cfg.Builder.FetchBudget != 30*time.Second {
		t.Errorf("expected fetch_budget 30s, got %s", cfg.Builder.FetchBudget)
	}
	if cfg.Providers.Polygon.APIKey != "pk_test" {
		t.Errorf("expected polygon key pk_test, got %s", cfg.Providers.Polygon.APIKey)
	}
	if cfg.LLM.OpenAI.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", cfg.LLM.OpenAI.Model)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("FINLENS_TEST_KEY", "expanded-key")

	content := []byte(`
providers:
  polygon:
    api_key: "${FINLENS_TEST_KEY}"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Providers.Polygon.APIKey != "expanded-key" {
		t.Errorf("expected env-expanded key, got %s", cfg.Providers.Polygon.APIKey)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Analysis.Primary != "openai" {
		t.Errorf("expected default primary openai, got %s", cfg.Analysis.Primary)
	}
	if cfg.Analysis.OverallTimeout != 2*time.Minute {
		t.Errorf("expected default overall_timeout 2m, got %s", cfg.Analysis.OverallTimeout)
	}
	if cfg.Builder.FetchBudget != 20*time.Second {
		t.Errorf("expected default fetch_budget 20s, got %s", cfg.Builder.FetchBudget)
	}
	if cfg.Builder.Lookback != 180 {
		t.Errorf("expected default lookback 180, got %d", cfg.Builder.Lookback)
	}
	if cfg.Levels.MaxPerSide != 3 {
		t.Errorf("expected default max_per_side 3, got %d", cfg.Levels.MaxPerSide)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		c := *Defaults()
		c.LLM.OpenAI.APIKey = "sk"
		c.LLM.Claude.APIKey = "ak"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing primary",
			mutate:  func(c *Config) { c.Analysis.Primary = "" },
			wantErr: true,
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Analysis.Temperature = 3.5 },
			wantErr: true,
		},
		{
			name:    "negative overall timeout",
			mutate:  func(c *Config) { c.Analysis.OverallTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero fetch budget",
			mutate:  func(c *Config) { c.Builder.FetchBudget = 0 },
			wantErr: true,
		},
		{
			name:    "negative lookback",
			mutate:  func(c *Config) { c.Builder.Lookback = -1 },
			wantErr: true,
		},
		{
			name:    "zero levels window",
			mutate:  func(c *Config) { c.Levels.Window = 0 },
			wantErr: true,
		},
		{
			name:    "unknown provider name",
			mutate:  func(c *Config) { c.Analysis.Fallback = "gemini" },
			wantErr: true,
		},
		{
			name:    "primary missing credentials",
			mutate:  func(c *Config) { c.LLM.OpenAI.APIKey = "" },
			wantErr: true,
		},
		{
			name:    "no fallback is allowed",
			mutate:  func(c *Config) { c.Analysis.Fallback = "" },
			wantErr: false,
		},
		{
			name: "s3 archive without bucket",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Type = "s3"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
