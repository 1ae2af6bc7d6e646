package prometheus

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dependabot-stats/domain/metrics"
)

func report(mode metrics.Mode) metrics.Report {
	return metrics.Report{
		Mode: mode,
		Snapshots: []metrics.Snapshot{{
			Key:                     "2023-03-01",
			TotalNewPRs:             2,
			TotalAutoMergedPRs:      1,
			MedianMergeTime:         3,
			TimeToMergeDistribution: []metrics.DayCount{{Days: 3, Count: 1}},
			PRsByUpdateType:         metrics.SeverityCounts{Minor: 2},
			PRsPerDependencyByType:  []metrics.DependencySeverities{
				{Dependency: "rack", SeverityCounts: metrics.SeverityCounts{Minor: 2}},
			},
			OpenPRs:    []metrics.PRRef{{Repo: "alphagov/whitehall", Number: 9, Title: "Bump rack from 2.0 to 2.1", CreatedAt: time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)}},
			MergeTimes: []metrics.PRDays{{Repo: "alphagov/whitehall", Number: 4, Days: 3}},
		}},
	}
}

func TestDailySeriesCarryDate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, NewRegistry(report(metrics.ModeDaily))))
	out := buf.String()

	assert.Contains(t, out, `dependabot_total_new_prs{date="2023-03-01"} 2`)
	assert.Contains(t, out, `dependabot_prs_by_update_type{date="2023-03-01",update_type="minor"} 2`)
	assert.Contains(t, out, `dependabot_prs_per_dependency{date="2023-03-01",dependency="rack",update_type="minor"} 2`)
	assert.Contains(t, out, `dependabot_merge_times{date="2023-03-01",pr_number="4",repo="alphagov/whitehall"} 3`)
	assert.NotContains(t, out, `dependency="rack",update_type="major"`)
	assert.Contains(t, out, `dependabot_auto_merged_prs{date="2023-03-01"} 1`)
	assert.Contains(t, out, `dependabot_merged_by_user_prs{date="2023-03-01"} 0`)
	assert.Contains(t, out, `dependabot_median_merge_time{date="2023-03-01"} 3`)
	assert.Contains(t, out, `dependabot_merge_time_distribution{date="2023-03-01",days="3"} 1`)
}

func TestSnapshotSeriesHaveNoDate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, NewRegistry(report(metrics.ModeSnapshot))))
	out := buf.String()

	assert.Contains(t, out, "dependabot_total_new_prs 2")
	assert.NotContains(t, out, `date="`)
}

func TestPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, Push(context.Background(), srv.URL, "dependabot_metrics", NewRegistry(report(metrics.ModeSnapshot))))
	assert.Equal(t, "/metrics/job/dependabot_metrics", path)
	assert.NotEmpty(t, body)
}

func TestPushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	assert.Error(t, Push(context.Background(), srv.URL, "job", NewRegistry(report(metrics.ModeSnapshot))))
}
