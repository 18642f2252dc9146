// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the gpreg CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured in PersistentPreRunE once flags are parsed.
var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "gpreg"})

// rootCmd is the base command for the gpreg CLI. Without a subcommand it
// runs fetch.
var rootCmd = &cobra.Command{
	Use:   "gpreg [targets...]",
	Short: "Download GP practice registration datasets and convert them to TSV",
	Long: `gpreg downloads the monthly "Patients Registered at a GP Practice"
publication archives, extracts the dataset files whose links match the given
targets, and converts each CSV into <target>.tsv in the output directory.

The publication page is chosen from the current month. Targets default to the
single-year-of-age regional, female, and male breakdowns.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("verbose") {
			logger.SetLevel(log.DebugLevel)
		}
		return nil
	},
	RunE: runFetch,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./gpreg.yaml or ~/.config/gpreg/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().String("history-db", "", "SQLite database recording runs (empty disables history)")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("history_db", rootCmd.PersistentFlags().Lookup("history-db"))

	addFetchFlags(rootCmd)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gpreg")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "gpreg"))
		}
	}

	viper.SetEnvPrefix("GPREG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}
