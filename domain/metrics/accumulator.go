package metrics

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dependabot-stats/domain/dependabot"
)

// ErrSealed is returned when events arrive after the buckets were finalized.
var ErrSealed = errors.New("metrics: accumulator already finalized")

// Options configures an Accumulator. OutdatedLimit has no default. Merges by
// AutoMergeLogin count as auto-merged, merges by anyone else as merged by a user.
type Options struct {
	Window         Window
	OutdatedLimit  int
	AutoMergeLogin string
	Now            func() time.Time
}

// RepoEvents is everything fetched for one repository. Failing marks open PRs whose
// checks are currently failing.
type RepoEvents struct {
	Repo    string
	PRs     []dependabot.PullRequest
	Alerts  []dependabot.SecurityAlert
	Failing map[int]bool
}

// Stats counts recoverable problems seen while accumulating.
type Stats struct {
	Repos           int `json:"repos"`
	PRs             int `json:"prs"`
	Unparsed        int `json:"unparsed"`
	UnknownSeverity int `json:"unknown_severity"`
	OutOfWindow     int `json:"out_of_window"`
}

// Accumulator owns every bucket of a run. AddRepo is safe for concurrent use.
type Accumulator struct {
	opts Options

	mu      sync.Mutex
	keys    []string
	buckets map[string]*Bucket
	stats   Stats
	sealed  bool
}

func NewAccumulator(opts Options) *Accumulator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &Accumulator{opts: opts, keys: opts.Window.Keys(), buckets: map[string]*Bucket{}}
	for _, k := range a.keys {
		a.buckets[k] = NewBucket(k)
	}
	return a
}

type classified struct {
	pr      dependabot.PullRequest
	change  *Change
	sev     Severity
	origin  time.Time
	failing bool
}

// classify resolves titles, severities and origins for one repository. The history it
// builds is scoped to the repository and discarded on return.
func (a *Accumulator) classify(ev RepoEvents) []classified {
	hist := NewRepoHistory(ev.Repo)
	out := make([]classified, 0, len(ev.PRs))
	for _, pr := range ev.PRs {
		c := classified{pr: pr, failing: ev.Failing[pr.Number]}
		if u, ok := ParseTitle(pr.Title); ok {
			ch := Change{PR: pr, Update: u}
			c.change = &ch
			c.sev = Classify(u.FromVersion, u.ToVersion)
			hist.Add(ch)
		} else {
			slog.Debug("title.unmatched", "repo", ev.Repo, "pr", pr.Number, "title", pr.Title)
		}
		out = append(out, c)
	}
	for i := range out {
		if out[i].change != nil {
			out[i].origin = hist.Origin(*out[i].change)
		}
	}
	return out
}

// AddRepo folds one repository's events into the buckets.
func (a *Accumulator) AddRepo(ev RepoEvents) error {
	records := a.classify(ev)
	now := a.opts.Now()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return ErrSealed
	}
	a.stats.Repos++
	for _, r := range records {
		a.stats.PRs++
		a.addPR(r, now)
	}
	for _, al := range ev.Alerts {
		a.addAlert(al)
	}
	return nil
}

// InWindow reports whether t falls inside the reporting window.
func (a *Accumulator) InWindow(t time.Time) bool {
	_, ok := a.opts.Window.Key(t)
	return ok
}

func (a *Accumulator) bucket(t time.Time) *Bucket {
	key, ok := a.opts.Window.Key(t)
	if !ok {
		return nil
	}
	return a.buckets[key]
}

func (a *Accumulator) addPR(r classified, now time.Time) {
	pr := r.pr
	ref := PRRef{Repo: pr.Repo, Number: pr.Number, Title: pr.Title, CreatedAt: pr.CreatedAt}
	if r.change == nil {
		a.stats.Unparsed++
	} else if r.sev == Unknown {
		a.stats.UnknownSeverity++
	}

	created := a.bucket(pr.CreatedAt)
	if created == nil {
		a.stats.OutOfWindow++
	} else {
		created.TotalPRsSeen++
		if r.change == nil {
			created.UnparsedPRs = append(created.UnparsedPRs, ref)
		} else {
			a.addCreated(created, r, ref, now)
		}
	}
	if r.change == nil {
		return
	}

	switch pr.Status() {
	case dependabot.StatusMerged:
		b := a.bucket(*pr.MergedAt)
		if b == nil {
			return
		}
		days := DaysBetween(r.origin, *pr.MergedAt)
		b.TotalMergedPRs++
		switch {
		case pr.MergedBy == "":
		case a.opts.AutoMergeLogin != "" && strings.EqualFold(pr.MergedBy, a.opts.AutoMergeLogin):
			b.TotalAutoMergedPRs++
		default:
			b.TotalMergedByUserPRs++
		}
		b.MergeTimes = append(b.MergeTimes, PRDays{Repo: pr.Repo, Number: pr.Number, Days: days})
		if days >= a.opts.OutdatedLimit {
			b.LongMergeDependencies = append(b.LongMergeDependencies, lag(r, days))
		}
	case dependabot.StatusClosed:
		if pr.ClosedAt == nil {
			return
		}
		if b := a.bucket(*pr.ClosedAt); b != nil {
			b.TotalClosedPRs++
		}
	}
}

func (a *Accumulator) addCreated(b *Bucket, r classified, ref PRRef, now time.Time) {
	dep := r.change.Update.Dependency
	b.TotalNewPRs++
	b.PRsByUpdateType.Add(r.sev)
	b.PRsPerDependency.Add(dep, 1)
	b.addDependencySeverity(dep, r.sev)
	b.FrequentlyUpdatedRepos.Add(r.pr.Repo, 1)

	if r.pr.Status() != dependabot.StatusOpen {
		return
	}
	b.TotalOpenPRs++
	b.OpenPRsPerDependency.Add(dep, 1)
	b.OpenPRs = append(b.OpenPRs, ref)
	if r.failing {
		b.OpenFailingPRs = append(b.OpenFailingPRs, ref)
	}
	age := DaysBetween(r.origin, now)
	b.TimeSinceOpen = append(b.TimeSinceOpen, PRDays{Repo: r.pr.Repo, Number: r.pr.Number, Days: age})
	if age >= a.opts.OutdatedLimit {
		b.OutdatedDependencies = append(b.OutdatedDependencies, lag(r, age))
	}
}

func (a *Accumulator) addAlert(al dependabot.SecurityAlert) {
	b := a.bucket(al.CreatedAt)
	if b == nil {
		return
	}
	b.TotalSecurityAlerts++
	b.SecurityAlertsPerRepo.Add(al.Repo, 1)
	b.SecurityAlertsPerDependency.Add(al.Dependency, 1)
}

func lag(r classified, days int) DependencyLag {
	return DependencyLag{
		Repo:        r.pr.Repo,
		Number:      r.pr.Number,
		Dependency:  r.change.Update.Dependency,
		FromVersion: r.change.Update.FromVersion,
		ToVersion:   r.change.Update.ToVersion,
		Days:        days,
	}
}

// Snapshots seals the accumulator and finalizes every bucket in key order.
func (a *Accumulator) Snapshots() []Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
	out := make([]Snapshot, 0, len(a.keys))
	for _, k := range a.keys {
		out = append(out, Finalize(a.buckets[k]))
	}
	return out
}

func (a *Accumulator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
