package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"homebase/internal/browser"
	"homebase/internal/config"
	"homebase/internal/notify"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version    = "1.0.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	_ = godotenv.Load() // optional .env in the working directory
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "homebase",
		Short:   "HomeBase: real-estate listing base with WhatsApp batch messaging",
		Long:    "HomeBase keeps a local base of property listings pulled from EstateBase and sends batched WhatsApp messages to listing owners.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.homebase/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(loginCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(generateCmd())
	root.AddCommand(blacklistCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(listingsCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file and reconfigures the global logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyLogConfig(cfg)
	return cfg, nil
}

// loadConfigOrDefaults is loadConfig for commands that work without a config
// file (first run).
func loadConfigOrDefaults() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		logger.Warn("config not found, using defaults", "path", resolveConfigPath(), "err", err)
		cfg = config.Defaults()
	}
	applyLogConfig(cfg)
	return cfg
}

func applyLogConfig(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var w io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.General.LogFile, "err", err)
		} else {
			w = io.MultiWriter(os.Stderr, f)
		}
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// signalContext is the shared Ctrl+C / SIGTERM context for long commands.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildNotifier returns the Telegram notifier when a token is configured,
// a no-op otherwise.
func buildNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Notify.TelegramToken == "" {
		return notify.Noop{}
	}
	n, err := notify.NewTelegram(notify.TelegramConfig{
		Token:  cfg.Notify.TelegramToken,
		ChatID: cfg.Notify.TelegramChat,
		Logger: logger,
	})
	if err != nil {
		logger.Warn("telegram notifier disabled", "err", err)
		return notify.Noop{}
	}
	return n
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(config.ExpandPath(cfg.General.DataDir), 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "dataDir", cfg.General.DataDir)
			return nil
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Open a visible Chrome window to log in to WhatsApp Web",
		Long:  "Opens WhatsApp Web for QR login. Session cookies persist in the profile directory, so later sends reuse the login. Press Ctrl+C when done.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()

			ctx, stop := signalContext()
			defer stop()

			sessions := browser.NewManager(browser.ManagerConfig{
				ProfileDir: cfg.WhatsApp.ProfileDir,
				Logger:     logger,
			})
			defer sessions.Close()

			logger.Info("scan the QR code in the opened window, then press Ctrl+C")
			return sessions.Login(ctx)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. whatsapp.batchSize)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. whatsapp.batchSize 25)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
