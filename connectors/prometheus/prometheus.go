package prometheus

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"

	"dependabot-stats/domain/metrics"
)

const namespace = "dependabot"

// exporter registers one gauge family per metric. In daily mode every series carries
// the bucket date as a label.
type exporter struct {
	reg      *prometheus.Registry
	withDate bool
}

func (e *exporter) gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	if e.withDate {
		labels = append([]string{"date"}, labels...)
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	e.reg.MustRegister(g)
	return g
}

type series struct {
	withDate bool
	date     string
}

func (s series) set(g *prometheus.GaugeVec, v float64, labels ...string) {
	if s.withDate {
		labels = append([]string{s.date}, labels...)
	}
	g.WithLabelValues(labels...).Set(v)
}

// NewRegistry builds a registry holding every bucket of the report.
func NewRegistry(r metrics.Report) *prometheus.Registry {
	e := &exporter{reg: prometheus.NewRegistry(), withDate: r.Mode == metrics.ModeDaily}

	totalNew := e.gauge("total_new_prs", "Number of new dependency PRs")
	totalMerged := e.gauge("total_merged_prs", "Number of merged dependency PRs")
	autoMerged := e.gauge("auto_merged_prs", "Number of PRs merged by the auto-merge account")
	userMerged := e.gauge("merged_by_user_prs", "Number of PRs merged by anyone else")
	totalClosed := e.gauge("total_closed_prs", "Number of dependency PRs closed without merging")
	totalOpen := e.gauge("total_open_prs", "Number of dependency PRs still open")
	totalAlerts := e.gauge("total_security_alerts", "Number of open security alerts")
	byType := e.gauge("prs_by_update_type", "Number of PRs by update type", "update_type")
	typePct := e.gauge("update_type_percentage", "Share of classified PRs by update type", "update_type")
	perDep := e.gauge("prs_per_dependency", "Number of PRs per dependency and update type", "dependency", "update_type")
	openPRs := e.gauge("open_prs", "Open PRs", "repo", "pr_number", "title", "created_at")
	openFailing := e.gauge("open_failing_prs", "Open PRs that currently have failing checks", "repo", "pr_number")
	mergeTimes := e.gauge("merge_times", "Merge time in days for each PR", "repo", "pr_number")
	repos := e.gauge("frequently_updated_repos", "Number of dependency PRs per repository", "repo")
	openPerDep := e.gauge("open_prs_per_dependency", "Number of still open PRs per dependency", "dependency")
	alertsRepo := e.gauge("security_alerts_per_repo", "Number of open security alerts per repository", "repo")
	alertsDep := e.gauge("security_alerts_per_dependency", "Number of open security alerts per dependency", "dependency")
	successRate := e.gauge("pr_success_rate", "Percentage of PRs merged or closed")
	avgMerge := e.gauge("average_merge_time", "Average days to merge")
	avgOpen := e.gauge("average_time_since_open", "Average days open PRs have been waiting")
	medianMerge := e.gauge("median_merge_time", "Median days to merge")
	mergeDist := e.gauge("merge_time_distribution", "Number of merged PRs per days to merge", "days")

	for _, snap := range r.Snapshots {
		s := series{withDate: e.withDate, date: snap.Key}
		s.set(totalNew, float64(snap.TotalNewPRs))
		s.set(totalMerged, float64(snap.TotalMergedPRs))
		s.set(autoMerged, float64(snap.TotalAutoMergedPRs))
		s.set(userMerged, float64(snap.TotalMergedByUserPRs))
		s.set(totalClosed, float64(snap.TotalClosedPRs))
		s.set(totalOpen, float64(snap.TotalOpenPRs))
		s.set(totalAlerts, float64(snap.TotalSecurityAlerts))
		s.set(successRate, snap.PRSuccessRate)
		s.set(avgMerge, snap.AverageMergeTime)
		s.set(avgOpen, snap.AverageTimeSinceOpen)
		s.set(medianMerge, snap.MedianMergeTime)
		for _, d := range snap.TimeToMergeDistribution {
			s.set(mergeDist, float64(d.Count), strconv.Itoa(d.Days))
		}

		for _, sev := range []metrics.Severity{metrics.Major, metrics.Minor, metrics.Patch, metrics.Unknown} {
			s.set(byType, float64(snap.PRsByUpdateType.Get(sev)), string(sev))
		}
		s.set(typePct, snap.MajorUpdatePercentage, string(metrics.Major))
		s.set(typePct, snap.MinorUpdatePercentage, string(metrics.Minor))
		s.set(typePct, snap.PatchUpdatePercentage, string(metrics.Patch))

		for _, d := range snap.PRsPerDependencyByType {
			for _, sev := range []metrics.Severity{metrics.Major, metrics.Minor, metrics.Patch, metrics.Unknown} {
				if n := d.Get(sev); n > 0 {
					s.set(perDep, float64(n), d.Dependency, string(sev))
				}
			}
		}
		for _, pr := range snap.OpenPRs {
			s.set(openPRs, 1, pr.Repo, strconv.Itoa(pr.Number), pr.Title, pr.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
		}
		for _, pr := range snap.OpenFailingPRs {
			s.set(openFailing, 1, pr.Repo, strconv.Itoa(pr.Number))
		}
		for _, m := range snap.MergeTimes {
			s.set(mergeTimes, float64(m.Days), m.Repo, strconv.Itoa(m.Number))
		}
		for _, c := range snap.FrequentlyUpdatedRepos {
			s.set(repos, float64(c.Count), c.Name)
		}
		for _, c := range snap.OpenPRsPerDependency {
			s.set(openPerDep, float64(c.Count), c.Name)
		}
		for _, c := range snap.SecurityAlertsPerRepo {
			s.set(alertsRepo, float64(c.Count), c.Name)
		}
		for _, c := range snap.SecurityAlertsPerDependency {
			s.set(alertsDep, float64(c.Count), c.Name)
		}
	}
	return e.reg
}

// WriteText writes the registry in the text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Push replaces the job's metrics on the pushgateway.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push to %s: %w", url, err)
	}
	return nil
}
