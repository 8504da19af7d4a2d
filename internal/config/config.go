package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey       = "WORKBOARD_API_KEY"
	EnvLegacyAPIKey = "CEREBRAS_API_KEY"
	EnvBaseURL      = "WORKBOARD_BASE_URL"
	EnvModel        = "WORKBOARD_MODEL"
	EnvHome         = "WORKBOARD_HOME"
)

// DirName is the name of the global and per-project config directories.
const DirName = ".workboard"

// Config holds application configuration.
type Config struct {
	// LLMBaseURL is the OpenAI-compatible API root; "/chat/completions" is appended
	LLMBaseURL string `json:"llm_base_url,omitempty"`

	// LLMModel is the chat-completion model name
	LLMModel string `json:"llm_model,omitempty"`

	// LLMMaxTokens caps each completion
	LLMMaxTokens int `json:"llm_max_tokens,omitempty"`

	// LLMTemperature is a pointer so an explicit 0 in a file survives Merge.
	LLMTemperature *float64 `json:"llm_temperature,omitempty"`

	// LLMTimeoutSeconds bounds a single completion request
	LLMTimeoutSeconds int `json:"llm_timeout_seconds,omitempty"`

	// LLMRequestsPerMinute throttles outbound completions. 0 keeps the default.
	LLMRequestsPerMinute int `json:"llm_requests_per_minute,omitempty"`

	// MaxHistory is the number of exchanges (user message plus reply) kept after the system prompt
	MaxHistory int `json:"max_history,omitempty"`

	// HighlightSeconds is how long a newly added card stays highlighted
	HighlightSeconds int `json:"highlight_seconds,omitempty"`

	// DueSoonDays is the default "due soon" window
	DueSoonDays int `json:"due_soon_days,omitempty"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "console" or "json"
	LogFormat string `json:"log_format,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "board", "chat". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// AllowedPaths lists extra directories board backups may be read from or
	// written to, in addition to <base>/exports. Only absolute paths count.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the directory restriction on backup paths.
	// Symlinks are still rejected.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// APIKey is never read from or written to config files.
	APIKey string `json:"-"`

	// APIKeyEnv names the variable the key came from, for error messages.
	APIKeyEnv string `json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	temp := 0.3
	return &Config{
		LLMBaseURL:           "https://api.cerebras.ai/v1",
		LLMModel:             "llama-3.3-70b",
		LLMMaxTokens:         500,
		LLMTemperature:       &temp,
		LLMTimeoutSeconds:    30,
		LLMRequestsPerMinute: 30,
		MaxHistory:           20,
		HighlightSeconds:     5,
		DueSoonDays:          3,
		LogLevel:             "info",
		LogFormat:            "console",
		APIKeyEnv:            EnvAPIKey,
	}
}

// BaseDir returns $WORKBOARD_HOME, or ~/.workboard when unset.
func BaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvHome)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.workboard.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.workboard) and
// project (.workboard) directories. The project config is found by walking
// upward from startDir. Project values take precedence for scalars; arrays
// are merged (deduplicated). Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .workboard/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadDotEnv loads dir/.env into the process environment when it exists.
// Variables already set are not overridden.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// ApplyEnv overlays environment settings onto cfg. getenv is usually os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) *Config {
	if v := strings.TrimSpace(getenv(EnvAPIKey)); v != "" {
		cfg.APIKey, cfg.APIKeyEnv = v, EnvAPIKey
	} else if v := strings.TrimSpace(getenv(EnvLegacyAPIKey)); v != "" {
		cfg.APIKey, cfg.APIKeyEnv = v, EnvLegacyAPIKey
	}
	if v := strings.TrimSpace(getenv(EnvBaseURL)); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvModel)); v != "" {
		cfg.LLMModel = v
	}
	return cfg
}

// Temperature returns the configured sampling temperature.
func (c *Config) Temperature() float64 {
	if c.LLMTemperature == nil {
		return *DefaultConfig().LLMTemperature
	}
	return *c.LLMTemperature
}

// LLMTimeout returns the per-request timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

// HighlightDelay returns how long new cards stay highlighted.
func (c *Config) HighlightDelay() time.Duration {
	return time.Duration(c.HighlightSeconds) * time.Second
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
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
	result := &Config{
		LLMBaseURL:           pickString(overlay.LLMBaseURL, base.LLMBaseURL),
		LLMModel:             pickString(overlay.LLMModel, base.LLMModel),
		LLMMaxTokens:         pickInt(overlay.LLMMaxTokens, base.LLMMaxTokens),
		LLMTimeoutSeconds:    pickInt(overlay.LLMTimeoutSeconds, base.LLMTimeoutSeconds),
		LLMRequestsPerMinute: pickInt(overlay.LLMRequestsPerMinute, base.LLMRequestsPerMinute),
		MaxHistory:           pickInt(overlay.MaxHistory, base.MaxHistory),
		HighlightSeconds:     pickInt(overlay.HighlightSeconds, base.HighlightSeconds),
		DueSoonDays:          pickInt(overlay.DueSoonDays, base.DueSoonDays),
		LogLevel:             pickString(overlay.LogLevel, base.LogLevel),
		LogFormat:            pickString(overlay.LogFormat, base.LogFormat),
		DBMaxOpenConns:       pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:       pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		AllowUnsafePaths:     base.AllowUnsafePaths || overlay.AllowUnsafePaths,
		APIKey:               pickString(overlay.APIKey, base.APIKey),
		APIKeyEnv:            pickString(overlay.APIKeyEnv, base.APIKeyEnv),
	}

	result.LLMTemperature = base.LLMTemperature
	if overlay.LLMTemperature != nil {
		result.LLMTemperature = overlay.LLMTemperature
	}

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
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

	for _, s := range append(append([]string(nil), a...), b...) {
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
