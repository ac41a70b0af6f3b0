package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/orichalcum/internal/config"
	"github.com/aretw0/orichalcum/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "orichalcum",
	Short:         "Orichalcum runs and checks contract-typed workflow graphs",
	Long:          `Orichalcum executes graphs of prepare/execute/finalize steps and proves, before a run, that every sealed task receives the inputs its signature requires.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
}

// loadConfig reads --config and applies --log-level on top.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		if _, err := logging.ParseLevel(level); err != nil {
			return cfg, nil, err
		}
		cfg.Log.Level = level
	}
	return cfg, cfg.Logger(), nil
}
