package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/yegors/co-scribe/internal/remote/openai"
	"github.com/yegors/co-scribe/internal/transcription"
	"github.com/yegors/co-scribe/pkg/logger"
)

// Backend names
const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

// Credential variables, read from the environment or the env file
const (
	GoogleAPIKeyVar = "GOOGLE_API_KEY"
	OpenAIAPIKeyVar = "OPENAI_API_KEY"

	// EnvFileVar overrides the location of the env file
	EnvFileVar     = "CO_SCRIBE_ENV"
	defaultEnvFile = ".env"
)

// Config is the full application configuration
type Config struct {
	Backend       string              `toml:"backend" validate:"oneof=gemini openai"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Minutes       MinutesConfig       `toml:"minutes"`
	Gemini        GeminiConfig        `toml:"gemini"`
	OpenAI        OpenAIConfig        `toml:"openai"`
	Audio         AudioConfig         `toml:"audio"`
	Logging       logger.Config       `toml:"logging"`
}

// TranscriptionConfig tunes the segment transcriber and assembler
type TranscriptionConfig struct {
	Model             string  `toml:"model"`
	Language          string  `toml:"language" validate:"oneof=japanese english"`
	Timestamps        bool    `toml:"timestamps"`
	MaxRetries        int     `toml:"max_retries" validate:"gte=0,lte=20"`
	MinCharsPerSecond float64 `toml:"min_chars_per_second" validate:"gt=0"`
	BackoffMs         int     `toml:"backoff_ms" validate:"gt=0"`
	MaxSegmentMinutes int     `toml:"max_segment_minutes" validate:"gt=0,lte=60"`
	Concurrency       int     `toml:"concurrency" validate:"gte=1,lte=16"`
}

// MinutesConfig controls minutes generation
type MinutesConfig struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
}

// GeminiConfig holds Gemini connection settings
type GeminiConfig struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url" validate:"omitempty,url"`
	UploadTimeoutSecs int    `toml:"upload_timeout_seconds" validate:"gte=0"`
}

// OpenAIConfig holds OpenAI connection settings
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url" validate:"omitempty,url"`
}

// AudioConfig controls decoding and temporary artifacts
type AudioConfig struct {
	FFmpegPath string `toml:"ffmpeg_path"`
	TempDir    string `toml:"temp_dir"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Backend: BackendGemini,
		Transcription: TranscriptionConfig{
			Language:          string(transcription.LanguageJapanese),
			MaxRetries:        transcription.DefaultMaxRetries,
			MinCharsPerSecond: transcription.DefaultMinCharsPerSecond,
			BackoffMs:         int(transcription.DefaultBackoffUnit.Milliseconds()),
			MaxSegmentMinutes: transcription.DefaultMaxSegmentMinutes,
			Concurrency:       1,
		},
		Audio: AudioConfig{
			FFmpegPath: "ffmpeg",
		},
		Logging: logger.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path skips
// the file. Credentials missing from the file are taken from the environment
// and the env file. Callers apply their overrides, then Normalize and Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, key := range undecoded {
				keys[i] = key.String()
			}
			return nil, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := cfg.loadCredentials(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadCredentials fills empty API keys from the environment and the env file
func (c *Config) loadCredentials() error {
	v := viper.New()
	v.AutomaticEnv()

	envFile := os.Getenv(EnvFileVar)
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
	} else if os.Getenv(EnvFileVar) != "" {
		return fmt.Errorf("env file %s: %w", envFile, err)
	}

	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = strings.TrimSpace(v.GetString(GoogleAPIKeyVar))
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = strings.TrimSpace(v.GetString(OpenAIAPIKeyVar))
	}
	return nil
}

// Normalize fills model defaults that depend on the selected backend
func (c *Config) Normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))

	if c.Transcription.Model == "" {
		c.Transcription.Model = c.defaultAudioModel()
	}
	if c.Minutes.Model == "" {
		c.Minutes.Model = c.defaultTextModel()
	}
}

func (c *Config) defaultAudioModel() string {
	if c.Backend == BackendOpenAI {
		return openai.DefaultAudioModel
	}
	return transcription.DefaultModel
}

func (c *Config) defaultTextModel() string {
	if c.Backend == BackendOpenAI {
		return openai.DefaultTextModel
	}
	return c.Transcription.Model
}

// Validate checks field constraints
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RequireCredentials reports a missing API key for the selected backend
func (c *Config) RequireCredentials() error {
	switch c.Backend {
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("%s is not set (environment or env file)", GoogleAPIKeyVar)
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("%s is not set (environment or env file)", OpenAIAPIKeyVar)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

// Request builds the transcription request described by the configuration
func (c *Config) Request() (transcription.Request, error) {
	language, err := transcription.ParseLanguage(c.Transcription.Language)
	if err != nil {
		return transcription.Request{}, err
	}
	return transcription.Request{
		Model:             c.Transcription.Model,
		Language:          language,
		WithTimestamps:    c.Transcription.Timestamps,
		MaxRetries:        c.Transcription.MaxRetries,
		MinCharsPerSecond: c.Transcription.MinCharsPerSecond,
		BackoffUnit:       time.Duration(c.Transcription.BackoffMs) * time.Millisecond,
	}, nil
}
