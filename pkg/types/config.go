// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

const (
	// DefaultBaseURL is the landing page of the "Patients Registered at a GP
	// Practice" publication series. The monthly page lives at
	// DefaultBaseURL/<month>-<year>.
	DefaultBaseURL = "https://digital.nhs.uk/data-and-information/publications/statistical/patients-registered-at-a-gp-practice"

	// BrowserUserAgent is sent when fetching the publication page, which
	// rejects obvious non-browser clients.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Firefox/100.0"

	// DefaultOutputDir is where archives are extracted and TSV files written.
	DefaultOutputDir = "output"

	// DefaultTimeout bounds every HTTP request.
	DefaultTimeout = 60 * time.Second
)

// DefaultTargets are the single-year-of-age breakdowns fetched when no
// targets are given: regional totals, female, and male.
var DefaultTargets = []Target{
	"gp-reg-pat-prac-sing-age-regions",
	"gp-reg-pat-prac-sing-age-female",
	"gp-reg-pat-prac-sing-age-male",
}

// HTTPConfig holds shared HTTP settings used when talking to the publication site.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with the publication page
	// request. Archive downloads are sent without it.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for a fetch run.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the publication series URL without the month-year suffix.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// OutputDir receives the extracted archive contents and the TSV files.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Targets are the link fragments to look for on the publication page.
	Targets []Target `json:"targets" yaml:"targets"`

	// Manifest controls whether manifest.yaml is written to OutputDir.
	Manifest bool `json:"manifest" yaml:"manifest"`
}

// HistoryConfig holds settings for the run history database.
type HistoryConfig struct {
	// DBPath is the SQLite database file. Empty disables history.
	DBPath string `json:"db_path" yaml:"db_path"`
}

// Enabled reports whether run history should be recorded.
func (c HistoryConfig) Enabled() bool {
	return c.DBPath != ""
}

// DefaultFetchConfig returns a FetchConfig populated with the defaults.
func DefaultFetchConfig() FetchConfig {
	targets := make([]Target, len(DefaultTargets))
	copy(targets, DefaultTargets)
	return FetchConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   DefaultTimeout,
			UserAgent: BrowserUserAgent,
		},
		BaseURL:   DefaultBaseURL,
		OutputDir: DefaultOutputDir,
		Targets:   targets,
	}
}
