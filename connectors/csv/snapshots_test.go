package csv

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dependabot-stats/domain/metrics"
)

func sampleReport() metrics.Report {
	return metrics.Report{
		Snapshots: []metrics.Snapshot{
			{
				Key:                "2023-03-01",
				TotalPRsSeen:       3,
				TotalNewPRs:        2,
				TotalMergedPRs:     1,
				TotalAutoMergedPRs: 1,
				PRsByUpdateType:    metrics.SeverityCounts{Minor: 1, Patch: 1},
				PRSuccessRate:      50,
				AverageMergeTime:   10.0 / 3,
				MergeTimes:         []metrics.PRDays{{Repo: "alphagov/whitehall", Number: 12, Days: 3}},
			},
			{Key: "2023-03-02"},
		},
	}
}

func TestWriteSnapshots(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshots(&buf, sampleReport()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, snapshotHeaders, rows[0])

	got := map[string]string{}
	for i, h := range rows[0] {
		got[h] = rows[1][i]
	}
	assert.Equal(t, "2023-03-01", got["key"])
	assert.Equal(t, "2", got["total_new_prs"])
	assert.Equal(t, "1", got["minor_prs"])
	assert.Equal(t, "50.00", got["pr_success_rate"])
	assert.Equal(t, "3.33", got["average_merge_time"])
	assert.Equal(t, "1", got["auto_merged"])
	assert.Equal(t, "0", got["merged_by_user"])

	empty := map[string]string{}
	for i, h := range rows[0] {
		empty[h] = rows[2][i]
	}
	assert.Equal(t, "0.00", empty["average_time_since_open"])
}

func TestWriteMergeTimes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMergeTimes(&buf, sampleReport()))
	assert.Equal(t, "key,repo,pr_number,days\n2023-03-01,alphagov/whitehall,12,3\n", buf.String())
}
