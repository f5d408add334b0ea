package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// APIKeyEnvVars are the accepted environment variable names for the vendor API key, in lookup order.
var APIKeyEnvVars = []string{"OPENAI_API_KEY", "OPEN_AI_KEY"}

// Config holds application configuration.
type Config struct {
	// Bind is the interface the HTTP server listens on.
	Bind string `json:"bind,omitempty" env:"TALKTOME_BIND"`

	// Port is the HTTP server port.
	Port int `json:"port,omitempty" env:"TALKTOME_PORT"`

	// AllowedOrigins lists CORS origins allowed to call the JSON API
	// (native app shells load the UI from a different origin).
	AllowedOrigins []string `json:"allowed_origins,omitempty" env:"TALKTOME_ALLOWED_ORIGINS" env-separator:","`

	// VendorBaseURL is the base URL of the OpenAI-compatible vendor API.
	VendorBaseURL string `json:"vendor_base_url,omitempty" env:"OPENAI_BASE_URL"`

	// TranscribeModel is the speech-to-text model name.
	TranscribeModel string `json:"transcribe_model,omitempty" env:"TALKTOME_TRANSCRIBE_MODEL"`

	// ChatModel is the chat-completion model used for summaries and translation.
	ChatModel string `json:"chat_model,omitempty" env:"TALKTOME_CHAT_MODEL"`

	// SpeechModel is the text-to-speech model name.
	SpeechModel string `json:"speech_model,omitempty" env:"TALKTOME_SPEECH_MODEL"`

	// VendorTimeoutSeconds bounds a single vendor call. 0 means no timeout.
	VendorTimeoutSeconds int `json:"vendor_timeout_seconds,omitempty" env:"TALKTOME_VENDOR_TIMEOUT_SECONDS"`

	// MaxUploadBytes caps the multipart body accepted by the transcribe endpoint.
	MaxUploadBytes int64 `json:"max_upload_bytes,omitempty" env:"TALKTOME_MAX_UPLOAD_BYTES"`

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" env:"TALKTOME_LOG_LEVEL"`

	// LogFormat is "console" or "json".
	LogFormat string `json:"log_format,omitempty" env:"TALKTOME_LOG_FORMAT"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" env:"TALKTOME_DB_MAX_OPEN_CONNS"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" env:"TALKTOME_DB_MAX_IDLE_CONNS"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "folder", "meeting", "transcript", "text".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bind:            "127.0.0.1",
		Port:            3000,
		VendorBaseURL:   "https://api.openai.com/v1",
		TranscribeModel: "whisper-1",
		ChatModel:       "gpt-4o-mini",
		SpeechModel:     "gpt-4o-mini-tts",
		MaxUploadBytes:  25 << 20,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// Load loads configuration from baseDir/config.json and applies environment overrides.
// Returns default config (plus env) if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.talktome.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file in dir, if present.
// Variables already set in the process environment win.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. Unset variables leave fields untouched.
func ApplyEnv(cfg *Config) error {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	cfg.AllowedOrigins = mergeStringSlice(cfg.AllowedOrigins, nil)
	return nil
}

// LookupAPIKey returns the vendor API key from the first non-empty accepted variable.
// It is read on every call so that a key added to the environment is picked up without restart.
func LookupAPIKey(getenv func(string) string) (string, bool) {
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, name := range APIKeyEnvVars {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			return v, true
		}
	}
	return "", false
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		Bind:                 pick(overlay.Bind, base.Bind),
		Port:                 pick(overlay.Port, base.Port),
		VendorBaseURL:        strings.TrimRight(pick(overlay.VendorBaseURL, base.VendorBaseURL), "/"),
		TranscribeModel:      pick(overlay.TranscribeModel, base.TranscribeModel),
		ChatModel:            pick(overlay.ChatModel, base.ChatModel),
		SpeechModel:          pick(overlay.SpeechModel, base.SpeechModel),
		VendorTimeoutSeconds: pick(overlay.VendorTimeoutSeconds, base.VendorTimeoutSeconds),
		MaxUploadBytes:       pick(overlay.MaxUploadBytes, base.MaxUploadBytes),
		LogLevel:             pick(overlay.LogLevel, base.LogLevel),
		LogFormat:            pick(overlay.LogFormat, base.LogFormat),
		DBMaxOpenConns:       pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:       pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		AllowedOrigins:       mergeStringSlice(base.AllowedOrigins, overlay.AllowedOrigins),
		DisabledTools:        mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
		DisabledTypes:        mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes),
	}
}

// pick returns overlay if non-zero, else base.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
