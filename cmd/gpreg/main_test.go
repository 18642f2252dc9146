// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/gpreg/pkg/types"
)

func TestFetchConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := fetchConfig(nil)
	assert.Equal(t, types.DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, types.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, types.BrowserUserAgent, cfg.UserAgent)
	assert.Equal(t, types.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, types.DefaultTargets, cfg.Targets)
	assert.False(t, cfg.Manifest)
}

func TestFetchConfig_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("output_dir", "data/out")
	viper.Set("timeout", "5s")
	viper.Set("manifest", true)
	viper.Set("targets", []string{"from-config"})

	cfg := fetchConfig(nil)
	assert.Equal(t, "data/out", cfg.OutputDir)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.Manifest)
	assert.Equal(t, []types.Target{"from-config"}, cfg.Targets)

	cfg = fetchConfig([]string{"gp-reg-pat-prac-sing-age-male"})
	assert.Equal(t, []types.Target{"gp-reg-pat-prac-sing-age-male"}, cfg.Targets)
}

func TestWriteRuns(t *testing.T) {
	started := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	runs := []types.RunRecord{{
		ID:         7,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Period:     "march-2024",
		Results: []types.TargetResult{
			{Target: "gp-reg-pat-prac-sing-age-regions", Status: types.StatusConverted, OutputPath: "output/gp-reg-pat-prac-sing-age-regions.tsv", Rows: 2},
			{Target: "gp-reg-pat-prac-sing-age-female", Status: types.StatusNotFound},
			{Target: "gp-reg-pat-prac-sing-age-male", Status: types.StatusFailed, Error: "boom"},
		},
	}}

	var buf bytes.Buffer
	writeRuns(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "#7")
	assert.Contains(t, out, "march-2024  1 converted, 1 not found, 1 failed (1.5s)")
	assert.Contains(t, out, "output/gp-reg-pat-prac-sing-age-regions.tsv (2 rows)")
	assert.Contains(t, out, "gp-reg-pat-prac-sing-age-male: boom")
}

func TestWriteRuns_Empty(t *testing.T) {
	var buf bytes.Buffer
	writeRuns(&buf, nil)
	assert.Equal(t, "No runs recorded.\n", buf.String())
}

func TestFetchConfig_TargetsFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("GPREG_TARGETS", "gp-reg-pat-prac-sing-age-female, gp-reg-pat-prac-sing-age-male")
	viper.SetEnvPrefix("GPREG")
	viper.AutomaticEnv()

	cfg := fetchConfig(nil)
	assert.Equal(t, []types.Target{"gp-reg-pat-prac-sing-age-female", "gp-reg-pat-prac-sing-age-male"}, cfg.Targets)
}

func TestSplitTargets(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"comma separated", []string{"a,b"}, []string{"a", "b"}},
		{"already split", []string{"a", "b"}, []string{"a", "b"}},
		{"blanks dropped", []string{"a,,", " ", "b "}, []string{"a", "b"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitTargets(tt.in))
		})
	}
}
