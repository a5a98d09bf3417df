package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names that override file values.
const (
	EnvHome             = "JOT_HOME"
	EnvLogLevel         = "JOT_LOG_LEVEL"
	EnvReminderSchedule = "JOT_REMINDER_SCHEDULE"
	EnvWebBind          = "JOT_WEB_BIND"
	EnvWebPort          = "JOT_WEB_PORT"
	EnvNoteMaxChars     = "JOT_NOTE_MAX_CHARS"
)

// Config holds application configuration.
type Config struct {
	// NoteMaxChars is the maximum character count for title plus content
	NoteMaxChars int `json:"note_max_chars"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// ReminderSchedule is the cron spec for the reminder check (robfig/cron syntax).
	ReminderSchedule string `json:"reminder_schedule,omitempty"`

	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// WebBind and WebPort configure the web UI listener.
	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`

	// EventBuffer is the per-subscriber buffer of the change bus.
	EventBuffer int `json:"event_buffer,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		NoteMaxChars:     100000,
		ReminderSchedule: "@every 1m",
		LogLevel:         "info",
		WebBind:          "127.0.0.1",
		WebPort:          8766,
		EventBuffer:      16,
	}
}

// Load loads configuration from baseDir/config.json and applies
// JOT_* environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.jot.
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

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are not overwritten. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides cfg with JOT_* environment variables when set.
func ApplyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvReminderSchedule)); v != "" {
		cfg.ReminderSchedule = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWebBind)); v != "" {
		cfg.WebBind = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWebPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be a port number, got %q", EnvWebPort, v)
		}
		cfg.WebPort = port
	}
	if v := strings.TrimSpace(os.Getenv(EnvNoteMaxChars)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", EnvNoteMaxChars, v)
		}
		cfg.NoteMaxChars = n
	}
	return nil
}

// BaseDir returns JOT_HOME if set, otherwise ~/.jot.
func BaseDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvHome)); v != "" {
		return v, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".jot"), nil
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
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.NoteMaxChars = overlay.NoteMaxChars
	if result.NoteMaxChars == 0 {
		result.NoteMaxChars = base.NoteMaxChars
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.WebPort = overlay.WebPort
	if result.WebPort == 0 {
		result.WebPort = base.WebPort
	}

	result.EventBuffer = overlay.EventBuffer
	if result.EventBuffer == 0 {
		result.EventBuffer = base.EventBuffer
	}

	result.ReminderSchedule = firstNonEmpty(overlay.ReminderSchedule, base.ReminderSchedule)
	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)
	result.WebBind = firstNonEmpty(overlay.WebBind, base.WebBind)

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
