package collect

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dependabot-stats/domain/dependabot"
	"dependabot-stats/domain/metrics"
)

// Source is what the pipeline needs from GitHub.
type Source interface {
	ListDependencyPRs(ctx context.Context, repo, label string, since time.Time) ([]dependabot.PullRequest, error)
	OpenAlerts(ctx context.Context, repo string) ([]dependabot.SecurityAlert, error)
	FailingChecks(ctx context.Context, repo string, number int) (bool, error)
	MergeActor(ctx context.Context, repo string, number int) (string, error)
}

// RepoFailure records a repository whose data could not be fetched. The repository
// contributes no events to the run.
type RepoFailure struct {
	Repo  string
	Stage string
	Err   error
}

func (f RepoFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Repo, f.Stage, f.Err)
}

func (f RepoFailure) Unwrap() error { return f.Err }

// Pipeline fetches every repository concurrently and folds the results into Acc.
type Pipeline struct {
	Source      Source
	Acc         *metrics.Accumulator
	Label       string
	Since       time.Time
	Concurrency int
}

// Result is what a pipeline run produced besides the accumulated buckets.
type Result struct {
	Failures []RepoFailure
	PRs      []dependabot.PullRequest
}

// Run processes repos with at most Concurrency in flight. Fetch failures are recorded
// per repository; only an accumulator error aborts the run.
func (p *Pipeline) Run(ctx context.Context, repos []string) (Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Concurrency, 1))

	var (
		mu  sync.Mutex
		res Result
	)
	for _, repo := range repos {
		repo := repo
		g.Go(func() error {
			ev, fail := p.fetch(ctx, repo)
			if fail != nil {
				slog.Warn("phase.repo.failed", "repo", repo, "stage", fail.Stage, "error", fail.Err)
				mu.Lock()
				res.Failures = append(res.Failures, *fail)
				mu.Unlock()
				return nil
			}
			if err := p.Acc.AddRepo(ev); err != nil {
				return fmt.Errorf("accumulate %s: %w", repo, err)
			}
			mu.Lock()
			res.PRs = append(res.PRs, ev.PRs...)
			mu.Unlock()
			slog.Info("phase.repo.done", "repo", repo, "prs", len(ev.PRs), "alerts", len(ev.Alerts))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Repo < res.Failures[j].Repo })
	sort.SliceStable(res.PRs, func(i, j int) bool {
		if res.PRs[i].Repo != res.PRs[j].Repo {
			return res.PRs[i].Repo < res.PRs[j].Repo
		}
		return res.PRs[i].Number < res.PRs[j].Number
	})
	return res, nil
}

func (p *Pipeline) fetch(ctx context.Context, repo string) (metrics.RepoEvents, *RepoFailure) {
	prs, err := p.Source.ListDependencyPRs(ctx, repo, p.Label, p.Since)
	if err != nil {
		return metrics.RepoEvents{}, &RepoFailure{Repo: repo, Stage: "prs", Err: err}
	}
	alerts, err := p.Source.OpenAlerts(ctx, repo)
	if err != nil {
		return metrics.RepoEvents{}, &RepoFailure{Repo: repo, Stage: "alerts", Err: err}
	}
	// merge actors are filled in on a copy
	prs = slices.Clone(prs)
	failing := map[int]bool{}
	for i, pr := range prs {
		if pr.Status() == dependabot.StatusMerged {
			// only merges inside the window are counted, so only those need a timeline
			if !p.Acc.InWindow(*pr.MergedAt) {
				continue
			}
			login, err := p.Source.MergeActor(ctx, repo, pr.Number)
			if err != nil {
				slog.Warn("phase.timeline.error", "repo", repo, "pr", pr.Number, "error", err)
				continue
			}
			prs[i].MergedBy = login
			continue
		}
		if pr.Status() != dependabot.StatusOpen {
			continue
		}
		bad, err := p.Source.FailingChecks(ctx, repo, pr.Number)
		if err != nil {
			slog.Warn("phase.checks.error", "repo", repo, "pr", pr.Number, "error", err)
			continue
		}
		if bad {
			failing[pr.Number] = true
		}
	}
	return metrics.RepoEvents{Repo: repo, PRs: prs, Alerts: alerts, Failing: failing}, nil
}
