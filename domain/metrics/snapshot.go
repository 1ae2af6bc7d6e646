package metrics

import (
	"math"
	"slices"
	"sort"

	"github.com/samber/lo"
)

// DayCount is one bar of the time-to-merge histogram.
type DayCount struct {
	Days  int `json:"days"`
	Count int `json:"count"`
}

// DependencySeverities is the per-update-type breakdown of one dependency.
type DependencySeverities struct {
	Dependency string `json:"dependency"`
	SeverityCounts
}

// Snapshot is the finalized, read-only view of a bucket. Exporters only consume this.
type Snapshot struct {
	Key string `json:"key"`

	TotalPRsSeen        int `json:"total_prs_seen"`
	TotalNewPRs         int `json:"total_new_prs"`
	TotalMergedPRs      int `json:"total_merged_prs"`
	TotalClosedPRs      int `json:"total_closed_prs"`
	TotalOpenPRs        int `json:"total_open_prs"`
	TotalSecurityAlerts int `json:"total_security_alerts"`

	TotalAutoMergedPRs   int `json:"auto_merged"`
	TotalMergedByUserPRs int `json:"merged_by_user"`

	PRsByUpdateType       SeverityCounts `json:"prs_by_update_type"`
	MajorUpdatePercentage float64        `json:"major_update_percentage"`
	MinorUpdatePercentage float64        `json:"minor_update_percentage"`
	PatchUpdatePercentage float64        `json:"patch_update_percentage"`

	PRSuccessRate        float64 `json:"pr_success_rate"`
	AverageMergeTime     float64 `json:"average_merge_time"`
	MedianMergeTime      float64 `json:"median_merge_time"`
	AverageTimeSinceOpen float64 `json:"average_time_since_open"`

	MergeTimes              []PRDays   `json:"merge_times"`
	TimeSinceOpen           []PRDays   `json:"time_since_open"`
	TimeToMergeDistribution []DayCount `json:"time_to_merge_distribution"`

	FrequentlyUpdatedRepos      []Count                `json:"frequently_updated_repos"`
	PRsPerDependency            []Count                `json:"prs_per_dependency"`
	PRsPerDependencyByType      []DependencySeverities `json:"prs_per_dependency_by_type"`
	OpenPRsPerDependency        []Count                `json:"open_prs_per_dependency"`
	SecurityAlertsPerRepo       []Count                `json:"security_alerts_per_repo"`
	SecurityAlertsPerDependency []Count                `json:"security_alerts_per_dependency"`

	OpenPRs               []PRRef         `json:"open_prs"`
	OpenFailingPRs        []PRRef         `json:"open_failing_prs"`
	UnparsedPRs           []PRRef         `json:"unparsed_prs"`
	OutdatedDependencies  []DependencyLag `json:"outdated_dependencies"`
	LongMergeDependencies []DependencyLag `json:"long_merge_dependencies"`
}

// Finalize derives averages, percentages and sorted breakdowns from b. It only reads b.
func Finalize(b *Bucket) Snapshot {
	s := Snapshot{
		Key:                  b.Key,
		TotalPRsSeen:         b.TotalPRsSeen,
		TotalNewPRs:          b.TotalNewPRs,
		TotalMergedPRs:       b.TotalMergedPRs,
		TotalClosedPRs:       b.TotalClosedPRs,
		TotalOpenPRs:         b.TotalOpenPRs,
		TotalSecurityAlerts:  b.TotalSecurityAlerts,
		TotalAutoMergedPRs:   b.TotalAutoMergedPRs,
		TotalMergedByUserPRs: b.TotalMergedByUserPRs,
		PRsByUpdateType:      b.PRsByUpdateType,

		MergeTimes:    nonNil(b.MergeTimes),
		TimeSinceOpen: nonNil(b.TimeSinceOpen),

		FrequentlyUpdatedRepos:      b.FrequentlyUpdatedRepos.Sorted(),
		PRsPerDependency:            b.PRsPerDependency.Sorted(),
		OpenPRsPerDependency:        b.OpenPRsPerDependency.Sorted(),
		SecurityAlertsPerRepo:       b.SecurityAlertsPerRepo.Sorted(),
		SecurityAlertsPerDependency: b.SecurityAlertsPerDependency.Sorted(),

		OpenPRs:               nonNil(b.OpenPRs),
		OpenFailingPRs:        nonNil(b.OpenFailingPRs),
		UnparsedPRs:           nonNil(b.UnparsedPRs),
		OutdatedDependencies:  nonNil(b.OutdatedDependencies),
		LongMergeDependencies: nonNil(b.LongMergeDependencies),
	}

	classifiedTotal := b.PRsByUpdateType.Classified()
	s.MajorUpdatePercentage = round2(percent(b.PRsByUpdateType.Major, classifiedTotal))
	s.MinorUpdatePercentage = round2(percent(b.PRsByUpdateType.Minor, classifiedTotal))
	s.PatchUpdatePercentage = round2(percent(b.PRsByUpdateType.Patch, classifiedTotal))
	s.PRSuccessRate = percent(b.TotalMergedPRs+b.TotalClosedPRs, b.TotalNewPRs)

	mergeDays := lo.Map(b.MergeTimes, func(m PRDays, _ int) int { return m.Days })
	s.AverageMergeTime = mean(mergeDays)
	s.MedianMergeTime = median(mergeDays)
	s.AverageTimeSinceOpen = mean(lo.Map(b.TimeSinceOpen, func(m PRDays, _ int) int { return m.Days }))
	s.TimeToMergeDistribution = distribution(mergeDays)

	s.PRsPerDependencyByType = lo.Map(s.PRsPerDependency, func(c Count, _ int) DependencySeverities {
		return DependencySeverities{Dependency: c.Name, SeverityCounts: *b.PRsPerDependencyByType[c.Name]}
	})
	return s
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func mean(vs []int) float64 {
	if len(vs) == 0 {
		return 0
	}
	return float64(lo.Sum(vs)) / float64(len(vs))
}

func median(vs []int) float64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := slices.Clone(vs)
	slices.Sort(sorted)
	n := len(sorted)
	return float64(sorted[(n-1)/2]+sorted[n/2]) / 2
}

func distribution(days []int) []DayCount {
	counts := lo.CountValues(days)
	out := make([]DayCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, DayCount{Days: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Days < out[j].Days })
	return out
}

// nonNil copies src so the snapshot never aliases the bucket, and renders empty lists as [].
func nonNil[T any](src []T) []T {
	out := make([]T, len(src))
	copy(out, src)
	return out
}
