// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the fetch, extract, and convert workflow for a set
// of targets.
//
// A run fetches the publication page for the current month once. Failure to
// fetch it aborts the run before anything is written. Each target is then
// processed inside its own failure boundary: a missing link, a bad archive,
// or malformed data is recorded against that target and the run moves on.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gpreg/internal/archive"
	"github.com/pdiddy/gpreg/internal/convert"
	"github.com/pdiddy/gpreg/internal/publication"
	"github.com/pdiddy/gpreg/pkg/types"
)

// ManifestFile is written to the output directory when manifests are enabled.
const ManifestFile = "manifest.yaml"

// PageError reports that the publication page could not be fetched.
type PageError struct {
	URL string
	Err error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("fetching publication page %s: %v", e.URL, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Options holds optional collaborators for a Pipeline.
type Options struct {
	// Now is the clock used to pick the publication month. Defaults to time.Now.
	Now func() time.Time

	// Logger receives diagnostic output. Defaults to a discarding logger.
	Logger *log.Logger

	// OnTarget, if set, is called before each target is processed.
	OnTarget func(target types.Target, index, total int)
}

// Pipeline downloads, extracts, and converts the datasets named by its targets.
type Pipeline struct {
	cfg      types.FetchConfig
	client   *http.Client
	fetcher  *publication.Fetcher
	w        io.Writer
	now      func() time.Time
	logger   *log.Logger
	onTarget func(types.Target, int, int)
}

// New returns a Pipeline that performs HTTP requests with client and prints
// per-target status lines to w.
func New(client *http.Client, cfg types.FetchConfig, w io.Writer, opts Options) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pipeline{
		cfg:      cfg,
		client:   client,
		fetcher:  publication.NewFetcher(client, cfg.UserAgent),
		w:        w,
		now:      now,
		logger:   logger,
		onTarget: opts.OnTarget,
	}
}

// Run processes every configured target and returns the run record.
//
// The returned error is non-nil only when the run could not proceed: the
// publication page fetch failed (*PageError), the output directory could
// not be created, or ctx was cancelled. Per-target failures are reported in
// the record, not as an error.
func (p *Pipeline) Run(ctx context.Context) (types.RunRecord, error) {
	started := p.now()
	run := types.RunRecord{
		StartedAt: started,
		Period:    publication.PeriodSlug(started),
		PageURL:   publication.PageURL(p.cfg.BaseURL, started),
		OutputDir: p.cfg.OutputDir,
	}
	finish := func() types.RunRecord {
		run.FinishedAt = p.now()
		return run
	}

	p.logger.Debug("fetching publication page", "url", run.PageURL)
	page, err := p.fetcher.FetchPage(ctx, run.PageURL)
	if err != nil {
		fmt.Fprintf(p.w, "HTTPError: %v\n", err)
		run.PageError = err.Error()
		return finish(), &PageError{URL: run.PageURL, Err: err}
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return finish(), fmt.Errorf("creating output directory %s: %w", p.cfg.OutputDir, err)
	}

	for i, target := range p.cfg.Targets {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}
		if p.onTarget != nil {
			p.onTarget(target, i, len(p.cfg.Targets))
		}

		res := p.processTarget(ctx, page, target, run.Period)
		if res.Status == types.StatusFailed {
			fmt.Fprintf(p.w, "failed: %s (%s)\n", target, res.Error)
			p.logger.Warn("target failed", "target", target, "err", res.Error)
		}
		run.Results = append(run.Results, res)
	}

	fmt.Fprintf(p.w, "\nRun summary: %d converted, %d not found, %d failed (total: %d)\n",
		run.Count(types.StatusConverted), run.Count(types.StatusNotFound),
		run.Count(types.StatusFailed), len(run.Results))

	run = finish()
	if p.cfg.Manifest {
		if err := writeManifest(run, filepath.Join(p.cfg.OutputDir, ManifestFile)); err != nil {
			p.logger.Error("writing manifest", "err", err)
		}
	}
	return run, nil
}

// processTarget handles one target. It never returns an error; failures are
// captured in the result.
func (p *Pipeline) processTarget(ctx context.Context, page *publication.Page, target types.Target, period string) types.TargetResult {
	res := types.TargetResult{Target: target}
	fail := func(err error) types.TargetResult {
		res.Status = types.StatusFailed
		res.Error = err.Error()
		return res
	}

	if err := validateTarget(target); err != nil {
		return fail(err)
	}

	link, ok := page.FindLink(target)
	if !ok {
		fmt.Fprintf(p.w, "No zip file containing '%s' found on the page for %s.\n", target, period)
		res.Status = types.StatusNotFound
		return res
	}
	res.ArchiveURL = link
	p.logger.Debug("downloading archive", "target", target, "url", link)

	data, err := archive.Download(ctx, p.client, link)
	if err != nil {
		return fail(fmt.Errorf("downloading archive: %w", err))
	}

	entries, err := archive.Extract(data, p.cfg.OutputDir)
	if err != nil {
		return fail(fmt.Errorf("extracting archive: %w", err))
	}
	p.logger.Debug("extracted archive", "target", target, "files", len(entries))

	expected, err := archive.ExpectedDataFile(link)
	if err != nil {
		return fail(err)
	}
	entry, err := archive.ResolveDataFile(expected, entries)
	if err != nil {
		return fail(err)
	}
	res.DataFile = filepath.Join(p.cfg.OutputDir, filepath.FromSlash(entry))

	tsvPath := filepath.Join(p.cfg.OutputDir, string(target)+".tsv")
	rows, err := convert.FileToTSV(res.DataFile, tsvPath)
	if err != nil {
		return fail(err)
	}

	res.Status = types.StatusConverted
	res.OutputPath = tsvPath
	res.Rows = rows
	fmt.Fprintf(p.w, "Downloaded and converted to TSV: %s\n", tsvPath)
	p.logger.Debug("converted", "target", target, "rows", rows, "path", tsvPath)
	return res
}

// validateTarget rejects targets that cannot name a file in the output directory.
func validateTarget(target types.Target) error {
	s := string(target)
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("empty target")
	}
	if strings.ContainsAny(s, `/\`) || s == "." || s == ".." {
		return fmt.Errorf("target %q is not a valid file name", s)
	}
	return nil
}

func writeManifest(run types.RunRecord, path string) error {
	data, err := yaml.Marshal(&run)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
