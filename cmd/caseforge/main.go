// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the caseforge CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/caseforge/internal/logging"
	"github.com/pdiddy/caseforge/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is built from --log-mode and --log-level before any subcommand runs.
var logger = zap.NewNop()

// rootCmd is the base command for the caseforge CLI.
var rootCmd = &cobra.Command{
	Use:   "caseforge",
	Short: "Synthesize evidence-based clinical case studies",
	Long: `caseforge turns a structured patient record into a teaching case study.
It resolves the condition to curated guideline and coding knowledge, searches
the literature for supporting evidence, drives a language model through a fixed
set of generation phases, and assembles the result into one document.

Documents can be saved to a local SQLite database and listed, searched,
rendered, or exported later with the documents subcommand.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("log-mode")
		level, _ := cmd.Flags().GetString("log-level")
		l, err := logging.New(mode, level)
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./caseforge.yaml or ~/.config/caseforge/config.yaml)")
	rootCmd.PersistentFlags().String("log-mode", "dev", "log format: dev (console) or prod (JSON)")
	rootCmd.PersistentFlags().String("log-level", "warn", "minimum log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("db", "", "SQLite database for saved documents (default from config: caseforge.db)")
	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))

	setDefaults(viper.GetViper())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("caseforge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "caseforge"))
		}
	}

	viper.SetEnvPrefix("CASEFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
