package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for HomeBase.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Database DatabaseConfig `json:"database"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Sync     SyncConfig     `json:"sync"`
	Notify   NotifyConfig   `json:"notify"`
}

type GeneralConfig struct {
	DataDir  string `json:"dataDir"`
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

type DatabaseConfig struct {
	Path string `json:"path"` // local listings SQLite file
}

type WhatsAppConfig struct {
	ProfileDir    string  `json:"profileDir"`
	BlacklistPath string  `json:"blacklistPath"`
	SelectorsPath string  `json:"selectorsPath,omitempty"` // optional YAML overrides
	DelaySeconds  float64 `json:"delaySeconds"`
	BatchSize     int     `json:"batchSize"`
	BatchPauseSec float64 `json:"batchPauseSeconds"`
}

// SyncConfig points at the remote EstateBase and, for serve mode, carries
// the pull schedule as a cron expression.
type SyncConfig struct {
	DSN      string `json:"dsn,omitempty"`
	Schedule string `json:"schedule,omitempty"`
}

type NotifyConfig struct {
	TelegramToken string `json:"telegramToken,omitempty"`
	TelegramChat  int64  `json:"telegramChatId,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.homebase).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".homebase"
	}
	return filepath.Join(home, ".homebase")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.WhatsApp.ProfileDir = ExpandPath(cfg.WhatsApp.ProfileDir)
	cfg.WhatsApp.BlacklistPath = ExpandPath(cfg.WhatsApp.BlacklistPath)
	cfg.WhatsApp.SelectorsPath = ExpandPath(cfg.WhatsApp.SelectorsPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.WhatsApp.DelaySeconds < 0 {
		errs = append(errs, "whatsapp.delaySeconds must be >= 0")
	}
	if cfg.WhatsApp.BatchSize < 1 {
		errs = append(errs, "whatsapp.batchSize must be >= 1")
	}
	if cfg.WhatsApp.BatchPauseSec < 0 {
		errs = append(errs, "whatsapp.batchPauseSeconds must be >= 0")
	}
	if cfg.Sync.Schedule != "" && cfg.Sync.DSN == "" {
		errs = append(errs, "sync.schedule requires sync.dsn")
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChat == 0 {
		errs = append(errs, "notify.telegramChatId is required with notify.telegramToken")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
