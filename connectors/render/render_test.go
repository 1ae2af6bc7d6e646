package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dependabot-stats/domain/metrics"
)

func sample() metrics.Report {
	return metrics.Report{
		RunID:       "run-1",
		From:        "2023-03-01",
		To:          "2023-03-16",
		Mode:        metrics.ModeSnapshot,
		GeneratedAt: time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC),
		Repos:       2,
		FailedRepos: []string{"alphagov/broken"},
		Stats:       metrics.Stats{Unparsed: 1},
		Snapshots: []metrics.Snapshot{{
			Key:                   "2023-03-01..2023-03-16",
			TotalPRsSeen:          6,
			TotalNewPRs:           5,
			TotalMergedPRs:        1,
			TotalAutoMergedPRs:    1,
			PRSuccessRate:         20,
			MinorUpdatePercentage: 60,
			PRsPerDependency:      []metrics.Count{{Name: "rack", Count: 3}},
			OpenFailingPRs:        []metrics.PRRef{{Repo: "alphagov/a", Number: 7, Title: "Bump rack from 1 to 2"}},
			OutdatedDependencies: []metrics.DependencyLag{
				{Repo: "alphagov/a", Number: 7, Dependency: "rack", FromVersion: "1", ToVersion: "2", Days: 30},
			},
		}},
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sample()))
	out := buf.String()

	assert.Contains(t, out, "Dependabot metrics 2023-03-01..2023-03-16 (snapshot, 2 repos)")
	assert.Contains(t, out, "Failed repositories: alphagov/broken")
	assert.Contains(t, out, "Unparsed titles: 1")
	assert.Contains(t, out, "== 2023-03-01..2023-03-16 ==")
	assert.Contains(t, out, "New PRs:              5 (seen 6)")
	assert.Contains(t, out, "Success rate:         20.00%")
	assert.Contains(t, out, "Merged by:            auto 1, user 0")
	assert.Contains(t, out, "alphagov/a#7 Bump rack from 1 to 2")
	assert.Contains(t, out, "alphagov/a#7 rack 1 -> 2 (30 days)")
}

func TestTextSkipsEmptyDailyBuckets(t *testing.T) {
	r := sample()
	r.Mode = metrics.ModeDaily
	r.Snapshots = append(r.Snapshots, metrics.Snapshot{Key: "2023-03-02"})

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, r))
	assert.NotContains(t, buf.String(), "== 2023-03-02 ==")
}

func TestTextTruncatesBreakdowns(t *testing.T) {
	r := sample()
	for i := 0; i < topN+3; i++ {
		r.Snapshots[0].FrequentlyUpdatedRepos = append(r.Snapshots[0].FrequentlyUpdatedRepos, metrics.Count{Name: "repo", Count: 1})
	}
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, r))
	assert.Contains(t, buf.String(), "... 3 more")
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sample()))
	assert.Contains(t, buf.String(), `"total_new_prs": 5`)

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, metrics.ModeSnapshot, got.Mode)
	snap, ok := got.Snapshot("2023-03-01..2023-03-16")
	require.True(t, ok)
	assert.Equal(t, 5, snap.TotalNewPRs)
	assert.Equal(t, 1, snap.TotalAutoMergedPRs)
	assert.Equal(t, []metrics.Count{{Name: "rack", Count: 3}}, snap.PRsPerDependency)
}

func TestReadJSONInvalid(t *testing.T) {
	_, err := ReadJSON(bytes.NewBufferString("{"))
	assert.Error(t, err)
}
