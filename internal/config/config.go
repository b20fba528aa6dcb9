package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/finlens/finlens/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Builder   BuilderConfig   `mapstructure:"builder"`
	Levels    LevelsConfig    `mapstructure:"levels"`
	Providers ProvidersConfig `mapstructure:"providers"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AnalysisConfig controls the structured analysis client. Primary and
// Fallback name LLM providers ("openai", "claude", "ollama"); creds and
// models live under the llm section.
type AnalysisConfig struct {
	Primary        string        `mapstructure:"primary"`
	Fallback       string        `mapstructure:"fallback"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	OverallTimeout time.Duration `mapstructure:"overall_timeout"`
	Debug          bool          `mapstructure:"debug"`
}

// BuilderConfig controls fact-pack assembly.
type BuilderConfig struct {
	FetchBudget time.Duration `mapstructure:"fetch_budget"`
	Lookback    int           `mapstructure:"lookback"`
	Interval    string        `mapstructure:"interval"`
	NewsLimit   int           `mapstructure:"news_limit"`
}

// LevelsConfig controls support/resistance extraction.
type LevelsConfig struct {
	Window          int     `mapstructure:"window"`
	Lookback        int     `mapstructure:"lookback"`
	ToleranceFactor float64 `mapstructure:"tolerance_factor"`
	MaxPerSide      int     `mapstructure:"max_per_side"`
}

// ProvidersConfig holds market data source credentials.
type ProvidersConfig struct {
	Polygon     PolygonConfig     `mapstructure:"polygon"`
	CryptoPanic CryptoPanicConfig `mapstructure:"cryptopanic"`
}

type PolygonConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type CryptoPanicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type LLMConfig struct {
	Claude ClaudeConfig `mapstructure:"claude"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Ollama OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// ArchiveConfig controls debug payload capture.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Primary:        "openai",
			Fallback:       "claude",
			Temperature:    0.3,
			MaxTokens:      2048,
			AttemptTimeout: 45 * time.Second,
			OverallTimeout: 2 * time.Minute,
		},
		Builder: BuilderConfig{
			FetchBudget: 20 * time.Second,
			Lookback:    180,
			Interval:    "1d",
			NewsLimit:   5,
		},
		Levels: LevelsConfig{
			Window:          3,
			Lookback:        180,
			ToleranceFactor: 0.005,
			MaxPerSide:      3,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Type:    "localfs",
			Path:    "archive",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Analysis.Primary == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("analysis primary provider required"))
	}
	if c.Analysis.Temperature < 0 || c.Analysis.Temperature > 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("temperature must be between 0 and 2, got %f", c.Analysis.Temperature))
	}
	if c.Analysis.AttemptTimeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("attempt_timeout cannot be negative, got %s", c.Analysis.AttemptTimeout))
	}
	if c.Analysis.OverallTimeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("overall_timeout cannot be negative, got %s", c.Analysis.OverallTimeout))
	}

	if c.Builder.FetchBudget <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fetch_budget must be positive, got %s", c.Builder.FetchBudget))
	}
	if c.Builder.Lookback <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback must be positive, got %d", c.Builder.Lookback))
	}

	if c.Levels.Window < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("levels window must be at least 1, got %d", c.Levels.Window))
	}
	if c.Levels.ToleranceFactor < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("tolerance_factor cannot be negative, got %f", c.Levels.ToleranceFactor))
	}
	if c.Levels.MaxPerSide < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_per_side cannot be negative, got %d", c.Levels.MaxPerSide))
	}

	// Every provider named by the analysis section needs its credentials.
	for _, name := range []string{c.Analysis.Primary, c.Analysis.Fallback} {
		switch name {
		case "":
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when analysis uses claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when analysis uses openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when analysis uses ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown LLM provider: %s", name))
		}
	}

	if c.Archive.Enabled && c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("s3 bucket required when archive type is s3"))
	}

	return nil
}
