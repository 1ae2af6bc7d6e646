package csv

import (
	"encoding/csv"
	"io"
	"strconv"

	"dependabot-stats/domain/metrics"
)

var snapshotHeaders = []string{
	"key", "total_prs_seen", "total_new_prs", "total_merged_prs", "auto_merged", "merged_by_user",
	"total_closed_prs", "total_open_prs",
	"major_prs", "minor_prs", "patch_prs", "unknown_prs",
	"major_update_percentage", "minor_update_percentage", "patch_update_percentage",
	"pr_success_rate", "average_merge_time", "median_merge_time", "average_time_since_open",
	"open_failing_prs", "outdated_dependencies", "long_merge_dependencies", "total_security_alerts",
}

// WriteSnapshots writes one row per bucket with the scalar metrics.
func WriteSnapshots(w io.Writer, r metrics.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeaders); err != nil {
		return err
	}
	for _, s := range r.Snapshots {
		row := []string{
			s.Key,
			strconv.Itoa(s.TotalPRsSeen),
			strconv.Itoa(s.TotalNewPRs),
			strconv.Itoa(s.TotalMergedPRs),
			strconv.Itoa(s.TotalAutoMergedPRs),
			strconv.Itoa(s.TotalMergedByUserPRs),
			strconv.Itoa(s.TotalClosedPRs),
			strconv.Itoa(s.TotalOpenPRs),
			strconv.Itoa(s.PRsByUpdateType.Major),
			strconv.Itoa(s.PRsByUpdateType.Minor),
			strconv.Itoa(s.PRsByUpdateType.Patch),
			strconv.Itoa(s.PRsByUpdateType.Unknown),
			formatFloat(s.MajorUpdatePercentage),
			formatFloat(s.MinorUpdatePercentage),
			formatFloat(s.PatchUpdatePercentage),
			formatFloat(s.PRSuccessRate),
			formatFloat(s.AverageMergeTime),
			formatFloat(s.MedianMergeTime),
			formatFloat(s.AverageTimeSinceOpen),
			strconv.Itoa(len(s.OpenFailingPRs)),
			strconv.Itoa(len(s.OutdatedDependencies)),
			strconv.Itoa(len(s.LongMergeDependencies)),
			strconv.Itoa(s.TotalSecurityAlerts),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMergeTimes writes one row per merged PR: key, repo, pr_number, days.
func WriteMergeTimes(w io.Writer, r metrics.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"key", "repo", "pr_number", "days"}); err != nil {
		return err
	}
	for _, s := range r.Snapshots {
		for _, m := range s.MergeTimes {
			if err := cw.Write([]string{s.Key, m.Repo, strconv.Itoa(m.Number), strconv.Itoa(m.Days)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
