package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"converse/internal/chat/service"
	"converse/internal/conf"
	"converse/internal/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string

	cfg  *conf.Config
	chat *service.Chat
)

var rootCmd = &cobra.Command{
	Use:   "converse",
	Short: "converse - terminal client for the project chat backend",
	Long: `converse is a terminal client for a project-based assistant backend.

Every conversation lives in a project. Sending a message without a bound
project creates one on demand; the backend names it after the first
completed exchange.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		if err := logger.InitGlobal(&logger.Config{
			Level:            cfg.Log.Level,
			Format:           cfg.Log.Format,
			Output:           cfg.Log.Output,
			EnableStacktrace: cfg.Log.EnableStacktrace,
			File: logger.FileConfig{
				Filename:   cfg.Log.File.Filename,
				MaxSize:    cfg.Log.File.MaxSize,
				MaxAge:     cfg.Log.File.MaxAge,
				MaxBackups: cfg.Log.File.MaxBackups,
				Compress:   cfg.Log.File.Compress,
			},
		}); err != nil {
			return err
		}

		chat, err = service.New(cfg, logger.L())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if chat != nil {
			chat.Close()
		}
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $HOME/.converse/config.yaml)")
}

func loadConfig() (*conf.Config, error) {
	path := configPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".converse", "config.yaml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			// No config file is fine, defaults carry a local backend.
			c := &conf.Config{}
			applyDefaults(c, home)
			return c, nil
		}
	}

	c, err := conf.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if c.Auth.StatePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Auth.StatePath = filepath.Join(home, ".converse", "session.json")
		}
	}
	return c, nil
}

func applyDefaults(c *conf.Config, home string) {
	c.Server.BaseURL = "http://localhost:8000"
	c.Server.Timeout = 30 * time.Second
	c.Auth.CookieName = "access_token"
	c.Auth.StatePath = filepath.Join(home, ".converse", "session.json")
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.Output = "console"
}

// signalContext returns a context cancelled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
