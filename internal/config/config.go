package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Journal   JournalConfig   `yaml:"journal" mapstructure:"journal"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputConfig configures the input tree of part_N subfolders.
type InputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// OutputConfig configures the output workbook.
type OutputConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Sheet string `yaml:"sheet" mapstructure:"sheet"`
}

// AnthropicConfig holds Anthropic API settings. Keys is the ordered credential
// list used for rotation; the LITSCAN_ANTHROPIC_KEYS env var (comma-separated)
// overrides it.
type AnthropicConfig struct {
	Keys         []string `yaml:"keys" mapstructure:"keys"`
	Model        string   `yaml:"model" mapstructure:"model"`
	MaxTokens    int64    `yaml:"max_tokens" mapstructure:"max_tokens"`
	CooldownSecs int      `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// ExtractConfig configures the per-file extraction pipeline.
type ExtractConfig struct {
	PromptPath        string `yaml:"prompt_path" mapstructure:"prompt_path"`
	ParseAttempts     int    `yaml:"parse_attempts" mapstructure:"parse_attempts"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// RetryConfig holds bounded-retry settings for transient API errors.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// JournalConfig configures the sqlite run journal.
type JournalConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LITSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.dir", "papers_to_identify")
	v.SetDefault("output.path", "output/papers_identified.xlsx")
	v.SetDefault("output.sheet", "Papers")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.cooldown_secs", 60)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("extract.prompt_path", "config/prompt.yaml")
	v.SetDefault("extract.parse_attempts", 2)
	v.SetDefault("extract.requests_per_minute", 30)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("journal.path", "output/runs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// Credential list from env takes precedence over the file so keys can stay
	// out of version-controlled config.
	if raw := os.Getenv("LITSCAN_ANTHROPIC_KEYS"); raw != "" {
		var keys []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		cfg.Anthropic.Keys = keys
	}

	return &cfg, nil
}

// Validate checks that cfg can drive a run. Errors name every missing or
// invalid field so the operator can fix them in one pass.
func (c *Config) Validate() error {
	var problems []string
	if len(c.Anthropic.Keys) == 0 {
		problems = append(problems, "anthropic.keys is required (or set LITSCAN_ANTHROPIC_KEYS)")
	}
	if c.Input.Dir == "" {
		problems = append(problems, "input.dir is required")
	}
	if c.Output.Path == "" {
		problems = append(problems, "output.path is required")
	}
	if c.Anthropic.CooldownSecs < 0 {
		problems = append(problems, "anthropic.cooldown_secs must not be negative")
	}
	if c.Extract.ParseAttempts < 1 {
		problems = append(problems, "extract.parse_attempts must be at least 1")
	}
	if c.Extract.RequestsPerMinute < 1 {
		problems = append(problems, "extract.requests_per_minute must be at least 1")
	}
	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Prompt is the externally supplied prompt template for the analysis stage.
type Prompt struct {
	System        string `yaml:"system"`
	UserPrefix    string `yaml:"user_prefix"`
	MaxInputChars int    `yaml:"max_input_chars"`
}

// LoadPrompt reads the prompt template YAML from path.
func LoadPrompt(path string) (*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read prompt %s", path)
	}

	var p Prompt
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "config: parse prompt %s", path)
	}
	if strings.TrimSpace(p.System) == "" {
		return nil, eris.Errorf("config: prompt %s missing system prompt", path)
	}
	if p.MaxInputChars <= 0 {
		p.MaxInputChars = 15000
	}

	return &p, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
