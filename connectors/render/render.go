package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"dependabot-stats/domain/metrics"
)

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r metrics.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadJSON decodes a report written by JSON.
func ReadJSON(rd io.Reader) (metrics.Report, error) {
	var r metrics.Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return metrics.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

// topN limits breakdown listings in the text output.
const topN = 10

// Text writes a human readable summary, one section per bucket.
func Text(w io.Writer, r metrics.Report) error {
	p := &printer{w: w}
	p.f("Dependabot metrics %s..%s (%s, %d repos)\n", r.From, r.To, r.Mode, r.Repos)
	if len(r.FailedRepos) > 0 {
		p.f("Failed repositories: %s\n", strings.Join(r.FailedRepos, ", "))
	}
	if r.Stats.Unparsed > 0 {
		p.f("Unparsed titles: %d\n", r.Stats.Unparsed)
	}
	for _, s := range r.Snapshots {
		if r.Mode == metrics.ModeDaily && s.TotalPRsSeen == 0 && s.TotalMergedPRs == 0 && s.TotalClosedPRs == 0 && s.TotalSecurityAlerts == 0 {
			continue
		}
		p.snapshot(s)
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) f(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) snapshot(s metrics.Snapshot) {
	p.f("\n== %s ==\n", s.Key)
	p.f("New PRs:              %d (seen %d)\n", s.TotalNewPRs, s.TotalPRsSeen)
	p.f("Merged / closed / open: %d / %d / %d\n", s.TotalMergedPRs, s.TotalClosedPRs, s.TotalOpenPRs)
	p.f("Merged by:            auto %d, user %d\n", s.TotalAutoMergedPRs, s.TotalMergedByUserPRs)
	p.f("Success rate:         %.2f%%\n", s.PRSuccessRate)
	p.f("Update types:         major %.2f%%, minor %.2f%%, patch %.2f%% (unknown %d)\n",
		s.MajorUpdatePercentage, s.MinorUpdatePercentage, s.PatchUpdatePercentage, s.PRsByUpdateType.Unknown)
	p.f("Time to merge:        avg %.2f days, median %.2f days\n", s.AverageMergeTime, s.MedianMergeTime)
	p.f("Time since open:      avg %.2f days\n", s.AverageTimeSinceOpen)
	p.f("Security alerts:      %d\n", s.TotalSecurityAlerts)
	p.counts("Most updated repos", s.FrequentlyUpdatedRepos)
	p.counts("PRs per dependency", s.PRsPerDependency)
	p.counts("Open PRs per dependency", s.OpenPRsPerDependency)
	p.counts("Alerts per repo", s.SecurityAlertsPerRepo)
	p.counts("Alerts per dependency", s.SecurityAlertsPerDependency)
	if len(s.OpenFailingPRs) > 0 {
		p.f("Open PRs with failing checks:\n")
		for _, pr := range s.OpenFailingPRs {
			p.f("  %s#%d %s\n", pr.Repo, pr.Number, pr.Title)
		}
	}
	p.lags("Outdated dependencies", s.OutdatedDependencies)
	p.lags("Slow merges", s.LongMergeDependencies)
}

func (p *printer) counts(title string, cs []metrics.Count) {
	if len(cs) == 0 {
		return
	}
	p.f("%s:\n", title)
	for i, c := range cs {
		if i == topN {
			p.f("  ... %d more\n", len(cs)-topN)
			break
		}
		p.f("  %-40s %d\n", c.Name, c.Count)
	}
}

func (p *printer) lags(title string, ls []metrics.DependencyLag) {
	if len(ls) == 0 {
		return
	}
	p.f("%s:\n", title)
	for _, l := range ls {
		p.f("  %s#%d %s %s -> %s (%d days)\n", l.Repo, l.Number, l.Dependency, l.FromVersion, l.ToVersion, l.Days)
	}
}
