package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-aipi/internal/testutils"
)

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(testutils.SampleCSV), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestBuildWritesArtifacts verifies that build writes every artifact and
// that the ranking tables follow the evidence order.
func TestBuildWritesArtifacts(t *testing.T) {
	dataset := writeDataset(t)
	out := filepath.Join(t.TempDir(), "build")

	stdout, err := execute(t, "--source", dataset, "build", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Build complete", "Build must report completion.")
	assert.Contains(t, stdout, "3 providers", "Build must report the provider count.")

	for _, name := range []string{
		"providers_ranking_evidence.csv",
		"providers_ranking_known_only.csv",
		"scores_by_indicator.csv",
		"providers.json",
		"meta.json",
		"aipi.xlsx",
	} {
		info, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, "Artifact %s must exist.", name)
		assert.Positive(t, info.Size(), "Artifact %s must not be empty.", name)
	}

	table, err := os.ReadFile(filepath.Join(out, "providers_ranking_evidence.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(table)), "\n")
	require.Len(t, lines, 4, "Ranking table must have a header and one line per provider.")
	assert.Contains(t, lines[1], testutils.SampleTop, "Top provider must come first.")
	assert.Contains(t, lines[3], testutils.SampleBottom, "Bottom provider must come last.")

	var docs []struct {
		ProviderID string `json:"provider_id"`
	}
	raw, err := os.ReadFile(filepath.Join(out, "providers.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &docs))
	require.Len(t, docs, 3)
	assert.Equal(t, testutils.SampleTop, docs[0].ProviderID, "Documents must follow ranking order.")

	var meta struct {
		DatasetHash string `json:"dataset_hash"`
		ReleaseTag  string `json:"release_tag"`
	}
	raw, err = os.ReadFile(filepath.Join(out, "meta.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.NotEmpty(t, meta.DatasetHash, "Meta must identify the dataset.")
	assert.True(t, strings.HasPrefix(meta.ReleaseTag, "data-"), "Meta must carry a release tag.")
}

// TestBuildArchivesRelease verifies that an archived build can be listed
// and inspected through the releases command.
func TestBuildArchivesRelease(t *testing.T) {
	dataset := writeDataset(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "releases.db")

	_, err := execute(t, "--source", dataset, "build", "--out", filepath.Join(dir, "build"), "--archive", "--archive-path", db)
	require.NoError(t, err)

	listing, err := execute(t, "--source", dataset, "releases", "--archive-path", db)
	require.NoError(t, err)
	assert.Contains(t, listing, "TAG", "Listing must have a header.")
	assert.Contains(t, listing, "data-", "Listing must show the archived release.")

	fields := strings.Fields(strings.Split(strings.TrimSpace(listing), "\n")[1])
	require.NotEmpty(t, fields)

	detail, err := execute(t, "--source", dataset, "releases", fields[0], "--archive-path", db)
	require.NoError(t, err)
	assert.Contains(t, detail, "providers.json", "Release detail must list archived documents.")
	assert.Contains(t, detail, "meta.json", "Release detail must list archived documents.")
	assert.NotContains(t, detail, "aipi.xlsx", "Spreadsheets are not archived.")
}

// TestBuildArchiveRequiresPath verifies that --archive without a database
// path is rejected.
func TestBuildArchiveRequiresPath(t *testing.T) {
	dataset := writeDataset(t)

	_, err := execute(t, "--source", dataset, "build", "--out", t.TempDir(), "--archive")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive path")
}

// TestSensitivityCommand verifies the text and JSON sensitivity reports.
func TestSensitivityCommand(t *testing.T) {
	dataset := writeDataset(t)

	text, err := execute(t, "--source", dataset, "sensitivity")
	require.NoError(t, err)
	assert.Contains(t, text, "Providers compared:")
	assert.Contains(t, text, "Without Transparency (evidence)")

	raw, err := execute(t, "--source", dataset, "--mode", "known_only", "sensitivity", "--json")
	require.NoError(t, err)
	var report struct {
		Providers int      `json:"providers"`
		Rho       *float64 `json:"spearman_rho"`
		Ablations []struct {
			Mode string `json:"mode"`
		} `json:"ablations"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &report))
	assert.Equal(t, 3, report.Providers)
	require.NotNil(t, report.Rho)
	assert.InDelta(t, 1.0, *report.Rho, 1e-9, "Sample modes rank providers identically.")
	require.Len(t, report.Ablations, 4, "One ablation per pillar.")
	assert.Equal(t, "known_only", report.Ablations[0].Mode)
}

// TestRootRejectsInvalidInput verifies flag and source validation.
func TestRootRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown mode", args: []string{"--source", "data.csv", "--mode", "weighted", "sensitivity"}},
		{name: "missing dataset", args: []string{"--source", filepath.Join(t.TempDir(), "absent.csv"), "sensitivity"}},
		{name: "releases without archive", args: []string{"--source", "data.csv", "releases"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

// TestIsURL verifies scheme detection for source flags.
func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://example.org/data.csv"))
	assert.True(t, isURL("HTTP://example.org/data.csv"))
	assert.False(t, isURL("data/aipi.csv"))
	assert.False(t, isURL("ftp://example.org/data.csv"))
}
