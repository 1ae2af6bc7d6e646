package csv

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"dependabot-stats/domain/dependabot"
	"dependabot-stats/domain/metrics"
)

// WritePullRequests writes every fetched PR with its parsed update, one row per PR.
// Headers: repo, number, title, status, created_at, closed_at, merged_at, merged_by, dependency, from_version, to_version, update_type
func WritePullRequests(w io.Writer, prs []dependabot.PullRequest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"repo", "number", "title", "status", "created_at", "closed_at", "merged_at", "merged_by", "dependency", "from_version", "to_version", "update_type"}); err != nil {
		return err
	}
	for _, pr := range prs {
		closed := ""
		if pr.ClosedAt != nil {
			closed = pr.ClosedAt.UTC().Format(time.RFC3339)
		}
		merged := ""
		if pr.MergedAt != nil {
			merged = pr.MergedAt.UTC().Format(time.RFC3339)
		}
		var dep, from, to, sev string
		if u, ok := metrics.ParseTitle(pr.Title); ok {
			dep, from, to = u.Dependency, u.FromVersion, u.ToVersion
			sev = string(metrics.Classify(u.FromVersion, u.ToVersion))
		}
		row := []string{
			pr.Repo,
			strconv.Itoa(pr.Number),
			pr.Title,
			pr.Status().String(),
			pr.CreatedAt.UTC().Format(time.RFC3339),
			closed,
			merged,
			pr.MergedBy,
			dep, from, to, sev,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
