// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the citeverify CLI.
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

	"github.com/pdiddy/citeverify/internal/logging"
	"github.com/pdiddy/citeverify/internal/secrets"
	"github.com/pdiddy/citeverify/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// appConfig is the merged configuration, loaded before any subcommand runs.
	appConfig = types.DefaultConfig()

	logger = zap.NewNop()

	// configErr holds a failure from initConfig, which cobra gives no way
	// to return.
	configErr error
)

// rootCmd is the base command for the citeverify CLI.
var rootCmd = &cobra.Command{
	Use:   "citeverify",
	Short: "Cross-validate bibliographic citations against scholarly registries",
	Long: `citeverify checks citation records against OpenAlex, Crossref, and
Semantic Scholar. Each citation is scored, classified as verified, warning,
issue, retracted, or not_found, and duplicates within the batch are grouped.

Registry responses are cached (SQLite by default) so repeated runs are fast
and deterministic.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		log, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.LoadAll(dir, ".env", log)
		if err != nil {
			return err
		}
		secrets.Apply(cfg.Registries, s)
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug("loaded secrets", zap.Strings("keys", keys))
		}

		appConfig, logger = cfg, log
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./citeverify.yaml or ~/.config/citeverify/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret files (one key per file)")
}

func initConfig() {
	v := viper.GetViper()
	if err := setDefaults(v); err != nil {
		configErr = err
		return
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("citeverify")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "citeverify"))
		}
	}

	v.SetEnvPrefix("CITEVERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "warning: could not read config %s: %v\n", cfgFile, err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
