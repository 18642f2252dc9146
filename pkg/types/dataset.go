// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Target is a fragment matched against archive link addresses on the
// publication page (e.g. "gp-reg-pat-prac-sing-age-female"). It also names
// the output file: <target>.tsv.
type Target string

// TargetStatus indicates the outcome of processing one target.
type TargetStatus string

const (
	StatusConverted TargetStatus = "converted"
	StatusNotFound  TargetStatus = "not_found"
	StatusFailed    TargetStatus = "failed"
)

// TargetResult records what happened to a single target during a run.
type TargetResult struct {
	// Target is the fragment that was searched for.
	Target Target `json:"target" yaml:"target"`

	// Status is converted, not_found, or failed.
	Status TargetStatus `json:"status" yaml:"status"`

	// ArchiveURL is the matched link, empty when no link matched.
	ArchiveURL string `json:"archive_url,omitempty" yaml:"archive_url,omitempty"`

	// DataFile is the CSV path inside the output directory that was converted.
	DataFile string `json:"data_file,omitempty" yaml:"data_file,omitempty"`

	// OutputPath is the written TSV file.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	// Rows is the number of data rows written, header excluded.
	Rows int `json:"rows,omitempty" yaml:"rows,omitempty"`

	// Error holds the failure detail for failed targets.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunRecord is a completed run as stored in history and written to the manifest.
type RunRecord struct {
	// ID is assigned by the history store; zero until recorded.
	ID int64 `json:"id,omitempty" yaml:"id,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Period is the month-year slug the page URL was built from (e.g. "march-2024").
	Period string `json:"period" yaml:"period"`

	// PageURL is the publication page that was fetched.
	PageURL string `json:"page_url" yaml:"page_url"`

	// OutputDir is where files were written.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// PageError is set when the publication page could not be fetched.
	PageError string `json:"page_error,omitempty" yaml:"page_error,omitempty"`

	Results []TargetResult `json:"results" yaml:"results"`
}

// Count returns the number of results with the given status.
func (r RunRecord) Count(status TargetStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// HasFailures reports whether the page fetch or any target failed.
func (r RunRecord) HasFailures() bool {
	return r.PageError != "" || r.Count(StatusFailed) > 0
}
