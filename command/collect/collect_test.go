package collect

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dc "dependabot-stats/domain/config"
	"dependabot-stats/domain/metrics"
)

func TestParseArgs(t *testing.T) {
	s, err := parseArgs([]string{
		"-from", "2023-03-01", "-to", "2023-03-16", "-mode", "daily", "-format", "json",
		"-outdated-limit", "20", "-repo", "alphagov/a, alphagov/b,", "-concurrency", "8",
	}, &dc.Config{})
	require.NoError(t, err)

	assert.Equal(t, metrics.ModeDaily, s.window.Mode)
	assert.Equal(t, "2023-03-01", s.window.From.Format("2006-01-02"))
	assert.Equal(t, dc.FormatJSON, s.format)
	assert.Equal(t, []string{"alphagov/a", "alphagov/b"}, s.cfg.GitHub.Repos)
	assert.Equal(t, 20, *s.cfg.Metrics.OutdatedLimit)
	assert.Equal(t, 8, s.cfg.Metrics.Concurrency)
	assert.Equal(t, dc.DefaultLabel, s.cfg.GitHub.Label)
	assert.Equal(t, dc.DefaultHistoryDays, *s.cfg.GitHub.HistoryDays)
	assert.Equal(t, dc.DefaultAutoMergeLogin, s.cfg.GitHub.AutoMergeLogin)
}

func TestParseArgsKeepsConfigValues(t *testing.T) {
	limit := 10
	cfg := &dc.Config{}
	cfg.GitHub.Org = "alphagov"
	cfg.Metrics.OutdatedLimit = &limit

	s, err := parseArgs([]string{"-from", "2023-03-01", "-to", "2023-03-01"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 10, *s.cfg.Metrics.OutdatedLimit)
	assert.Equal(t, metrics.ModeSnapshot, s.window.Mode)
	assert.Equal(t, dc.FormatCLI, s.format)
}

func TestParseArgsExplicitZeros(t *testing.T) {
	s, err := parseArgs([]string{
		"-from", "2023-03-01", "-to", "2023-03-16", "-org", "alphagov",
		"-outdated-limit", "0", "-history-days", "0", "-auto-merge-login", "release-bot",
	}, &dc.Config{})
	require.NoError(t, err)
	assert.Equal(t, 0, *s.cfg.Metrics.OutdatedLimit)
	assert.Equal(t, 0, *s.cfg.GitHub.HistoryDays)
	assert.Equal(t, "release-bot", s.cfg.GitHub.AutoMergeLogin)
}

func TestParseArgsValidation(t *testing.T) {
	base := []string{"-org", "alphagov", "-outdated-limit", "20"}
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"missing window", base, "window"},
		{"bad from", append([]string{"-from", "03/01/2023", "-to", "2023-03-16"}, base...), "from"},
		{"from after to", append([]string{"-from", "2023-03-16", "-to", "2023-03-01"}, base...), "window"},
		{"unknown mode", append([]string{"-from", "2023-03-01", "-to", "2023-03-16", "-mode", "weekly"}, base...), "window"},
		{"unknown format", append([]string{"-from", "2023-03-01", "-to", "2023-03-16", "-format", "xml"}, base...), "format"},
		{"negative limit flag", []string{"-from", "2023-03-01", "-to", "2023-03-16", "-org", "alphagov", "-outdated-limit", "-5"}, "metrics.outdated_limit"},
		{"negative history flag", append([]string{"-from", "2023-03-01", "-to", "2023-03-16", "-history-days", "-1"}, base...), "github.history_days"},
		{"missing limit", []string{"-from", "2023-03-01", "-to", "2023-03-16", "-org", "alphagov"}, "metrics.outdated_limit"},
		{"no repos", []string{"-from", "2023-03-01", "-to", "2023-03-16", "-outdated-limit", "20"}, "github"},
		{"push without gateway", append([]string{"-from", "2023-03-01", "-to", "2023-03-16", "-push"}, base...), "prometheus.pushgateway_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArgs(tt.args, &dc.Config{})
			var ve *dc.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestWriteFormats(t *testing.T) {
	r := metrics.Report{From: "2023-03-01", To: "2023-03-16", Mode: metrics.ModeSnapshot,
		Snapshots: []metrics.Snapshot{{Key: "2023-03-01..2023-03-16", TotalNewPRs: 5}}}

	for format, want := range map[string]string{
		dc.FormatCLI:        "New PRs:              5",
		dc.FormatJSON:       `"total_new_prs": 5`,
		dc.FormatCSV:        "2023-03-01..2023-03-16,0,5",
		dc.FormatPrometheus: "dependabot_total_new_prs 5",
	} {
		var buf bytes.Buffer
		require.NoError(t, write(&buf, format, r), format)
		assert.Contains(t, buf.String(), want, format)
	}
}

func TestWriteToCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.txt")
	err := writeTo(path, func(w io.Writer) error {
		_, err := w.Write([]byte("ok"))
		return err
	})
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
}
