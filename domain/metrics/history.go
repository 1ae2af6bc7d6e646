package metrics

import (
	"sort"
	"time"

	"dependabot-stats/domain/dependabot"
)

// Change is a PR whose title parsed, paired with what it proposes.
type Change struct {
	PR     dependabot.PullRequest
	Update ParsedUpdate
}

// DependencyHistory holds every PR seen for one (repo, dependency) pair, ordered by
// creation time. It includes PRs created before the reporting window because a
// supersession chain can start there.
type DependencyHistory struct {
	Repo       string
	Dependency string
	changes    []Change
}

// Add inserts c keeping creation order; equal timestamps keep arrival order.
func (h *DependencyHistory) Add(c Change) {
	i := sort.Search(len(h.changes), func(i int) bool {
		return h.changes[i].PR.CreatedAt.After(c.PR.CreatedAt)
	})
	h.changes = append(h.changes, Change{})
	copy(h.changes[i+1:], h.changes[i:])
	h.changes[i] = c
}

func (h *DependencyHistory) Changes() []Change { return h.changes }

// EarliestOrigin returns the earliest creation time among PRs proposing an upgrade from
// fromVersion. Without supersession that is the PR's own creation time.
func (h *DependencyHistory) EarliestOrigin(fromVersion string) (time.Time, bool) {
	// changes are ordered, the first hit is the earliest
	for _, c := range h.changes {
		if c.Update.FromVersion == fromVersion {
			return c.PR.CreatedAt, true
		}
	}
	return time.Time{}, false
}

// RepoHistory is the per-repository set of dependency histories. It is built while one
// repository is processed and dropped afterwards.
type RepoHistory struct {
	Repo string
	deps map[string]*DependencyHistory
	// dependency names in first-seen order
	order []string
}

func NewRepoHistory(repo string) *RepoHistory {
	return &RepoHistory{Repo: repo, deps: map[string]*DependencyHistory{}}
}

func (r *RepoHistory) Add(c Change) {
	h, ok := r.deps[c.Update.Dependency]
	if !ok {
		h = &DependencyHistory{Repo: r.Repo, Dependency: c.Update.Dependency}
		r.deps[c.Update.Dependency] = h
		r.order = append(r.order, c.Update.Dependency)
	}
	h.Add(c)
}

// Dependency returns the history for dep, or nil if none was recorded.
func (r *RepoHistory) Dependency(dep string) *DependencyHistory { return r.deps[dep] }

func (r *RepoHistory) Dependencies() []string { return r.order }

// Origin resolves the effective start time of c within its own dependency history.
func (r *RepoHistory) Origin(c Change) time.Time {
	if h := r.deps[c.Update.Dependency]; h != nil {
		if t, ok := h.EarliestOrigin(c.Update.FromVersion); ok && t.Before(c.PR.CreatedAt) {
			return t
		}
	}
	return c.PR.CreatedAt
}
