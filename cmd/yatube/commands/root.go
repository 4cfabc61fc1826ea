package commands

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/internal/config"
)

var (
	// Global flags
	configPath  string
	storageType string
)

var rootCmd = &cobra.Command{
	Use:   "yatube",
	Short: "Yatube - blogging platform with groups, comments and follows",
	Long: `Yatube serves a server-rendered blog: posts, groups, comments,
author subscriptions and a cached home feed.

Configuration is read from a TOML file (--config) and environment
variables (DATABASE_URL, REDIS_ADDR, KAFKA_BROKERS, PORT, LOG_LEVEL).`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&storageType, "storage", "", "Storage type (in-memory or postgres), overrides config")
}

// loadConfig читает конфигурацию, применяет флаги и настраивает логгер.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if storageType != "" {
		cfg.Storage.Type = storageType
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	return cfg, nil
}
