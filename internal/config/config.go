package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// BaseOrigin is the public origin used when building render URLs
	// (e.g. "https://charts.example.com").
	BaseOrigin string `json:"base_origin,omitempty"`

	// RenderPath is the path of the render endpoint under BaseOrigin.
	RenderPath string `json:"render_path,omitempty"`

	// RendererOrigin is where the server fetches preview images from.
	// Empty means BaseOrigin.
	RendererOrigin string `json:"renderer_origin,omitempty"`

	// DefaultWidth and DefaultHeight seed fresh editors and fill in
	// saved charts whose dimensions were not stored.
	DefaultWidth  int `json:"default_width,omitempty"`
	DefaultHeight int `json:"default_height,omitempty"`

	// Bind and Port control the HTTP listener for `chartd serve`.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// PresetsFile is an optional TOML file with extra chart presets.
	// Relative paths are resolved against the base directory.
	PresetsFile string `json:"presets_file,omitempty"`

	// SessionTTLHours is how long a sign-in session stays valid.
	SessionTTLHours int `json:"session_ttl_hours,omitempty"`

	// RenderTimeoutSeconds bounds a single preview fetch.
	RenderTimeoutSeconds int `json:"render_timeout_seconds,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseOrigin:           "http://localhost:8080",
		RenderPath:           "/api/chart",
		DefaultWidth:         800,
		DefaultHeight:        600,
		Bind:                 "127.0.0.1",
		Port:                 8080,
		PresetsFile:          "presets.toml",
		SessionTTLHours:      168,
		RenderTimeoutSeconds: 10,
		LogLevel:             "info",
	}
}

// BaseDir returns the chartd home directory: $CHARTD_HOME, or ~/.chartd.
func BaseDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("CHARTD_HOME")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".chartd"), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.chartd.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if merged.PresetsFile != "" && !filepath.IsAbs(merged.PresetsFile) {
		merged.PresetsFile = filepath.Join(baseDir, merged.PresetsFile)
	}
	return merged, nil
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

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		BaseOrigin:           pickString(overlay.BaseOrigin, base.BaseOrigin),
		RenderPath:           pickString(overlay.RenderPath, base.RenderPath),
		RendererOrigin:       pickString(overlay.RendererOrigin, base.RendererOrigin),
		DefaultWidth:         pickInt(overlay.DefaultWidth, base.DefaultWidth),
		DefaultHeight:        pickInt(overlay.DefaultHeight, base.DefaultHeight),
		Bind:                 pickString(overlay.Bind, base.Bind),
		Port:                 pickInt(overlay.Port, base.Port),
		PresetsFile:          pickString(overlay.PresetsFile, base.PresetsFile),
		SessionTTLHours:      pickInt(overlay.SessionTTLHours, base.SessionTTLHours),
		RenderTimeoutSeconds: pickInt(overlay.RenderTimeoutSeconds, base.RenderTimeoutSeconds),
		LogLevel:             pickString(overlay.LogLevel, base.LogLevel),
		DBMaxOpenConns:       pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:       pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// RendererBase returns the origin preview images are fetched from.
func (c *Config) RendererBase() string {
	if c.RendererOrigin != "" {
		return c.RendererOrigin
	}
	return c.BaseOrigin
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
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
