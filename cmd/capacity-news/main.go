// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the capacity-news CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/capacity-news/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API tokens loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the capacity-news CLI.
var rootCmd = &cobra.Command{
	Use:   "capacity-news",
	Short: "Track biologics manufacturing capacity news",
	Long: `capacity-news monitors pharmaceutical trade outlets for biologics
manufacturing capacity announcements: new facilities, expansions,
construction, shutdowns, and outsourcing deals. Discovered articles are
classified, mined for structured capacity facts (bioreactor volumes,
facility footprints, fill-finish output, capital expenditure), and
merged into a persistent JSON corpus with an SQLite query index.

Use run for a full discovery pass, query to search the index, and
index to rebuild it from the corpus.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./capacity-news.yaml or ~/.config/capacity-news/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("capacity-news")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "capacity-news"))
		}
	}

	viper.SetEnvPrefix("CAPACITY_NEWS")
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
