// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/gpreg/internal/history"
	"github.com/pdiddy/gpreg/internal/pipeline"
	"github.com/pdiddy/gpreg/pkg/types"
)

// errFailed signals a non-zero exit whose cause has already been printed.
var errFailed = errors.New("run finished with failures")

var fetchCmd = &cobra.Command{
	Use:   "fetch [targets...]",
	Short: "Download, extract, and convert the current month's datasets",
	Long: `Fetch builds the publication page URL from the current month, finds the
first archive link containing each target, downloads and extracts it into the
output directory, and converts the extracted CSV to <target>.tsv.

A target with no matching link is reported and skipped. A target whose
archive or data cannot be processed is reported as failed; the remaining
targets are still processed. Failure to fetch the publication page stops the
run before anything is written.`,
	Args: cobra.ArbitraryArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

// addFetchFlags registers the fetch flags as persistent flags on cmd and
// binds them to their viper keys.
func addFetchFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("output-dir", types.DefaultOutputDir, "directory for extracted archives and TSV output")
	flags.String("base-url", types.DefaultBaseURL, "publication series URL; the month-year segment is appended")
	flags.Duration("timeout", types.DefaultTimeout, "HTTP request timeout")
	flags.String("user-agent", types.BrowserUserAgent, "User-Agent sent with the publication page request")
	flags.Bool("manifest", false, "write manifest.yaml describing the run to the output directory")
	flags.StringSlice("targets", nil, "link fragments to fetch (default: regions, female, male single-year-of-age files)")

	for key, flag := range map[string]string{
		"output_dir": "output-dir",
		"base_url":   "base-url",
		"timeout":    "timeout",
		"user_agent": "user-agent",
		"manifest":   "manifest",
		"targets":    "targets",
	} {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// fetchConfig assembles the run configuration from viper. Positional
// arguments replace the configured targets.
func fetchConfig(args []string) types.FetchConfig {
	cfg := types.DefaultFetchConfig()
	if v := viper.GetString("output_dir"); v != "" {
		cfg.OutputDir = v
	}
	if v := viper.GetString("base_url"); v != "" {
		cfg.BaseURL = v
	}
	if v := viper.GetDuration("timeout"); v > 0 {
		cfg.Timeout = v
	}
	if v := viper.GetString("user_agent"); v != "" {
		cfg.UserAgent = v
	}
	cfg.Manifest = viper.GetBool("manifest")

	targets := args
	if len(targets) == 0 {
		targets = splitTargets(viper.GetStringSlice("targets"))
	}
	if len(targets) > 0 {
		cfg.Targets = make([]types.Target, len(targets))
		for i, t := range targets {
			cfg.Targets[i] = types.Target(t)
		}
	}
	return cfg
}

// splitTargets splits comma-separated entries so GPREG_TARGETS=a,b and a
// config list read the same way. Blank entries are dropped.
func splitTargets(values []string) []string {
	var targets []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				targets = append(targets, t)
			}
		}
	}
	return targets
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := fetchConfig(args)
	logger.Debug("starting run", "targets", len(cfg.Targets), "output_dir", cfg.OutputDir, "base_url", cfg.BaseURL)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	prog := newProgress(os.Stderr, viper.GetBool("verbose"))
	defer prog.Stop()

	client := &http.Client{Timeout: cfg.Timeout}
	p := pipeline.New(client, cfg, prog.Writer(out), pipeline.Options{
		Logger:   logger,
		OnTarget: prog.Update,
	})

	run, err := p.Run(ctx)
	prog.Stop()

	recordHistory(ctx, run)

	var pageErr *pipeline.PageError
	switch {
	case errors.As(err, &pageErr):
		return errFailed
	case err != nil:
		return err
	case run.HasFailures():
		return errFailed
	}
	return nil
}

// recordHistory stores the run when a history database is configured.
// Failures are logged and do not affect the exit status.
func recordHistory(ctx context.Context, run types.RunRecord) {
	hcfg := types.HistoryConfig{DBPath: viper.GetString("history_db")}
	if !hcfg.Enabled() {
		return
	}

	store, err := history.Open(hcfg)
	if err != nil {
		logger.Warn("opening history", "err", err)
		return
	}
	defer store.Close()

	// Record even when ctx was cancelled mid-run.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	id, err := store.Record(recCtx, run)
	if err != nil {
		logger.Warn("recording run", "err", err)
		return
	}
	logger.Debug("recorded run", "id", id, "db", hcfg.DBPath)
}

// reportError logs err unless it has already been reported.
func reportError(err error) {
	if err == nil || errors.Is(err, errFailed) {
		return
	}
	logger.Error(err)
}
