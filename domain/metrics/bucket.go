package metrics

import (
	"sort"
	"time"
)

// Count is one entry of a breakdown.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Tally is a multiset that remembers first-insertion order, so sorted breakdowns break
// ties deterministically.
type Tally struct {
	order  []string
	counts map[string]int
}

func NewTally() *Tally { return &Tally{counts: map[string]int{}} }

func (t *Tally) Add(key string, n int) {
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key] += n
}

// Get never creates the key.
func (t *Tally) Get(key string) int { return t.counts[key] }

func (t *Tally) Keys() []string { return t.order }

// Sorted returns strictly positive entries, highest count first.
func (t *Tally) Sorted() []Count {
	out := make([]Count, 0, len(t.order))
	for _, k := range t.order {
		if c := t.counts[k]; c > 0 {
			out = append(out, Count{Name: k, Count: c})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// SeverityCounts counts PRs per update type.
type SeverityCounts struct {
	Major   int `json:"major"`
	Minor   int `json:"minor"`
	Patch   int `json:"patch"`
	Unknown int `json:"unknown"`
}

func (s *SeverityCounts) Add(sev Severity) {
	switch sev {
	case Major:
		s.Major++
	case Minor:
		s.Minor++
	case Patch:
		s.Patch++
	default:
		s.Unknown++
	}
}

func (s SeverityCounts) Get(sev Severity) int {
	switch sev {
	case Major:
		return s.Major
	case Minor:
		return s.Minor
	case Patch:
		return s.Patch
	default:
		return s.Unknown
	}
}

// Classified excludes Unknown.
func (s SeverityCounts) Classified() int { return s.Major + s.Minor + s.Patch }

func (s SeverityCounts) Total() int { return s.Classified() + s.Unknown }

// PRRef points at one PR.
type PRRef struct {
	Repo      string    `json:"repo"`
	Number    int       `json:"pr_number"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// PRDays is a per-PR duration in whole days.
type PRDays struct {
	Repo   string `json:"repo"`
	Number int    `json:"pr_number"`
	Days   int    `json:"days"`
}

// DependencyLag records a dependency that stayed unmerged for at least the outdated limit.
type DependencyLag struct {
	Repo        string `json:"repo"`
	Number      int    `json:"pr_number"`
	Dependency  string `json:"dependency"`
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
	Days        int    `json:"days"`
}

// Bucket is the mutable aggregate for one bucket key. Collections only grow while the
// accumulator is open and are only read by Finalize.
type Bucket struct {
	Key string

	TotalPRsSeen        int
	TotalNewPRs         int
	TotalMergedPRs      int
	TotalClosedPRs      int
	TotalOpenPRs        int
	TotalSecurityAlerts int
	// split of TotalMergedPRs by merge actor; unknown actors land in neither
	TotalAutoMergedPRs   int
	TotalMergedByUserPRs int

	PRsByUpdateType             SeverityCounts
	PRsPerDependency            *Tally
	PRsPerDependencyByType      map[string]*SeverityCounts
	OpenPRsPerDependency        *Tally
	FrequentlyUpdatedRepos      *Tally
	SecurityAlertsPerRepo       *Tally
	SecurityAlertsPerDependency *Tally

	MergeTimes            []PRDays
	TimeSinceOpen         []PRDays
	OpenPRs               []PRRef
	OpenFailingPRs        []PRRef
	UnparsedPRs           []PRRef
	OutdatedDependencies  []DependencyLag
	LongMergeDependencies []DependencyLag
}

func NewBucket(key string) *Bucket {
	return &Bucket{
		Key:                         key,
		PRsPerDependency:            NewTally(),
		PRsPerDependencyByType:      map[string]*SeverityCounts{},
		OpenPRsPerDependency:        NewTally(),
		FrequentlyUpdatedRepos:      NewTally(),
		SecurityAlertsPerRepo:       NewTally(),
		SecurityAlertsPerDependency: NewTally(),
	}
}

func (b *Bucket) addDependencySeverity(dep string, sev Severity) {
	s, ok := b.PRsPerDependencyByType[dep]
	if !ok {
		s = &SeverityCounts{}
		b.PRsPerDependencyByType[dep] = s
	}
	s.Add(sev)
}
