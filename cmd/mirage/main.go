// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mirage CLI: it turns a
// telescope proposal export (observation XML plus pointing log) into a
// per-exposure, per-detector observation table.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the mirage CLI.
var rootCmd = &cobra.Command{
	Use:   "mirage",
	Short: "Build per-exposure observation tables from proposal exports",
	Long: `mirage reads the two files a proposal export produces -- the observation
XML and the pointing log -- and combines them into a single table with one
row per exposure per detector, ready to drive scene simulation.

The table subcommand runs the full pipeline; pointing parses and
summarizes a pointing log on its own.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mirage.yaml or ~/.config/mirage/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mirage")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mirage"))
		}
	}

	viper.SetEnvPrefix("MIRAGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger. Debug level when --verbose is set.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
