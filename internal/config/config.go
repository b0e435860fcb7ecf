// Package config loads settings from an optional YAML file, a .env file and
// the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/atmb4u/gamegirl/internal/logger"
	"github.com/atmb4u/gamegirl/internal/prompt"
	"github.com/atmb4u/gamegirl/internal/store"
	"github.com/atmb4u/gamegirl/internal/story"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	LLM    LLMConfig     `yaml:"llm"`
	Store  StoreConfig   `yaml:"store"`
	Prompt PromptConfig  `yaml:"prompt"`
	Logger logger.Config `yaml:"log"`
	// Color is auto, always or never.
	Color string `yaml:"color" env:"GAMEGIRL_COLOR" env-default:"auto"`
}

type LLMConfig struct {
	Provider      string        `yaml:"provider" env:"GAMEGIRL_PROVIDER" env-default:"gemini"`
	GeminiAPIKey  string        `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	OpenAIAPIKey  string        `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	Model         string        `yaml:"model" env:"GAMEGIRL_MODEL"`
	Temperature   float32       `yaml:"temperature" env:"GAMEGIRL_TEMPERATURE" env-default:"0.9"`
	MaxTokens     int           `yaml:"max_tokens" env:"GAMEGIRL_MAX_TOKENS" env-default:"2048"`
	Timeout       time.Duration `yaml:"timeout" env:"GAMEGIRL_TIMEOUT" env-default:"120s"`
	MaxAttempts   int           `yaml:"max_attempts" env:"GAMEGIRL_MAX_ATTEMPTS" env-default:"3"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"GAMEGIRL_RETRY_DELAY" env-default:"2s"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend" env:"GAMEGIRL_STORE" env-default:"file"`
	Dir           string `yaml:"dir" env:"GAMEGIRL_SAVE_DIR" env-default:"."`
	Format        string `yaml:"format" env:"GAMEGIRL_SAVE_FORMAT" env-default:"json"`
	SQLitePath    string `yaml:"sqlite_path" env:"GAMEGIRL_SQLITE_PATH" env-default:"gamegirl.db"`
	SupabaseURL   string `yaml:"supabase_url" env:"SUPABASE_URL"`
	SupabaseKey   string `yaml:"supabase_key" env:"SUPABASE_KEY"`
	SupabaseTable string `yaml:"supabase_table" env:"GAMEGIRL_SUPABASE_TABLE" env-default:"stories"`
}

type PromptConfig struct {
	// ProseTokenBudget caps the story text replayed into prompts; 0 disables it.
	ProseTokenBudget int    `yaml:"prose_token_budget" env:"GAMEGIRL_PROSE_TOKEN_BUDGET" env-default:"6000"`
	TokenEncoding    string `yaml:"token_encoding" env:"GAMEGIRL_TOKEN_ENCODING" env-default:"cl100k_base"`
}

// Load reads .env if present, then path if given, then the environment.
// The result is not validated; commands check what they use.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks everything a play session needs.
func (c *Config) Validate() error {
	return errors.Join(c.validateLLM(), c.ValidateStore())
}

func (c *Config) validateLLM() error {
	var errs []error

	switch strings.ToLower(c.LLM.Provider) {
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.LLM.Provider))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

// ValidateStore checks the store and display settings.
func (c *Config) ValidateStore() error {
	var errs []error
	if _, err := story.ParseFormat(c.Store.Format); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Store.Backend) {
	case store.BackendFile, store.BackendMemory:
	case store.BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("GAMEGIRL_SQLITE_PATH is required for the sqlite store"))
		}
	case store.BackendSupabase:
		if c.Store.SupabaseURL == "" || c.Store.SupabaseKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY are required for the supabase store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store.Backend))
	}

	switch strings.ToLower(c.Color) {
	case "", "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("color must be auto, always or never, got %q", c.Color))
	}
	return errors.Join(errs...)
}

// StoreOptions converts the store section for store.Open.
func (c *Config) StoreOptions() store.Config {
	format, err := story.ParseFormat(c.Store.Format)
	if err != nil {
		format = story.FormatJSON
	}
	return store.Config{
		Backend:       strings.ToLower(c.Store.Backend),
		Dir:           c.Store.Dir,
		Format:        format,
		SQLitePath:    c.Store.SQLitePath,
		SupabaseURL:   c.Store.SupabaseURL,
		SupabaseKey:   c.Store.SupabaseKey,
		SupabaseTable: c.Store.SupabaseTable,
	}
}

// TokenEncoding is the tiktoken encoding used to measure prose.
func (c *Config) TokenEncoding() string {
	if c.Prompt.TokenEncoding == "" {
		return prompt.DefaultEncoding
	}
	return c.Prompt.TokenEncoding
}
