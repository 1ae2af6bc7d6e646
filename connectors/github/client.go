// Package github provides the GitHub connector used by the collector: dependency PRs,
// check-run conclusions, open Dependabot alerts and org repository listing. Calls sleep
// through rate limits and retry the same page.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v61/github"
	"golang.org/x/oauth2"

	"dependabot-stats/domain/dependabot"
)

const (
	perPage        = 100
	userAgent      = "dependabot-stats"
	requestTimeout = 30 * time.Second
	maxRateWait    = time.Hour
)

// rateSafetyMargin is added to the advertised primary rate limit reset.
var rateSafetyMargin = 2 * time.Second

// Client wraps a go-github client. Use New to construct it.
type Client struct {
	gh *gh.Client
}

// New builds an authenticated client. hc may be nil.
func New(hc *http.Client, token string) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: requestTimeout}
	}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		hc.Timeout = requestTimeout
	}
	c := gh.NewClient(hc)
	c.UserAgent = userAgent
	return &Client{gh: c}
}

// NewFromGitHub wraps an existing go-github client, e.g. one pointed at a test server.
func NewFromGitHub(c *gh.Client) *Client { return &Client{gh: c} }

func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("github: %q is not owner/name", repo)
	}
	return owner, name, nil
}

// ListDependencyPRs lists PRs carrying label that were updated since the given time. It
// pages through the issues endpoint until an empty page and keeps only pull requests.
func (c *Client) ListDependencyPRs(ctx context.Context, repo, label string, since time.Time) ([]dependabot.PullRequest, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	slog.Info("phase.prs.fetch.start", "repo", repo, "since", since.Format(time.DateOnly))
	opt := &gh.IssueListByRepoOptions{
		State:       "all",
		Labels:      []string{label},
		Since:       since,
		ListOptions: gh.ListOptions{PerPage: perPage, Page: 1},
	}
	var all []dependabot.PullRequest
	for {
		issues, _, err := c.gh.Issues.ListByRepo(ctx, owner, name, opt)
		if err != nil {
			if waitIfRateLimited(ctx, err) {
				continue
			}
			return nil, fmt.Errorf("list issues %s page %d: %w", repo, opt.Page, err)
		}
		if len(issues) == 0 {
			break
		}
		slog.Debug("phase.prs.fetch.page", "repo", repo, "page", opt.Page, "count", len(issues))
		for _, is := range issues {
			if !is.IsPullRequest() {
				continue
			}
			all = append(all, toPullRequest(repo, is))
		}
		opt.Page++
	}
	slog.Info("phase.prs.fetch.done", "repo", repo, "count", len(all))
	return all, nil
}

func toPullRequest(repo string, is *gh.Issue) dependabot.PullRequest {
	pr := dependabot.PullRequest{
		Repo:      repo,
		Number:    is.GetNumber(),
		Title:     is.GetTitle(),
		State:     strings.ToLower(is.GetState()),
		CreatedAt: is.GetCreatedAt().Time,
	}
	if is.ClosedAt != nil {
		t := is.ClosedAt.Time
		pr.ClosedAt = &t
	}
	if links := is.GetPullRequestLinks(); links != nil && links.MergedAt != nil {
		t := links.MergedAt.Time
		pr.MergedAt = &t
	}
	return pr
}

// HeadSHA returns the head commit of a pull request.
func (c *Client) HeadSHA(ctx context.Context, repo string, number int) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}
	for {
		pr, _, err := c.gh.PullRequests.Get(ctx, owner, name, number)
		if err != nil {
			if waitIfRateLimited(ctx, err) {
				continue
			}
			return "", fmt.Errorf("get pull %s#%d: %w", repo, number, err)
		}
		return pr.GetHead().GetSHA(), nil
	}
}

// CheckConclusions lists the conclusion of every check run on ref.
func (c *Client) CheckConclusions(ctx context.Context, repo, ref string) ([]string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	opt := &gh.ListCheckRunsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	var out []string
	for {
		res, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, name, ref, opt)
		if err != nil {
			if waitIfRateLimited(ctx, err) {
				continue
			}
			return nil, fmt.Errorf("list check runs %s@%s: %w", repo, ref, err)
		}
		for _, run := range res.CheckRuns {
			out = append(out, run.GetConclusion())
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return out, nil
}

// FailingChecks reports whether the PR's head commit has any check that concluded
// outside success, neutral or skipped.
func (c *Client) FailingChecks(ctx context.Context, repo string, number int) (bool, error) {
	sha, err := c.HeadSHA(ctx, repo, number)
	if err != nil {
		return false, err
	}
	conclusions, err := c.CheckConclusions(ctx, repo, sha)
	if err != nil {
		return false, err
	}
	return AnyFailing(conclusions), nil
}

// AnyFailing applies the failing-check rule to a list of conclusions.
func AnyFailing(conclusions []string) bool {
	for _, c := range conclusions {
		switch c {
		case "success", "neutral", "skipped":
		default:
			return true
		}
	}
	return false
}

// MergeActor returns the login on the "merged" event of a PR's timeline, or "" when the
// timeline has none.
func (c *Client) MergeActor(ctx context.Context, repo string, number int) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}
	opt := &gh.ListOptions{PerPage: perPage}
	for {
		events, resp, err := c.gh.Issues.ListIssueTimeline(ctx, owner, name, number, opt)
		if err != nil {
			if waitIfRateLimited(ctx, err) {
				continue
			}
			return "", fmt.Errorf("list timeline %s#%d: %w", repo, number, err)
		}
		for _, ev := range events {
			if ev.GetEvent() == "merged" {
				return ev.GetActor().GetLogin(), nil
			}
		}
		if resp.NextPage == 0 {
			return "", nil
		}
		opt.Page = resp.NextPage
	}
}

// OpenAlerts lists open Dependabot alerts for a repository. The alerts endpoint pages
// with "after" cursors rather than page numbers.
func (c *Client) OpenAlerts(ctx context.Context, repo string) ([]dependabot.SecurityAlert, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	slog.Info("phase.alerts.fetch.start", "repo", repo)
	opt := &gh.ListAlertsOptions{State: gh.String("open"), ListCursorOptions: gh.ListCursorOptions{PerPage: perPage}}
	var all []dependabot.SecurityAlert
	for {
		alerts, resp, err := c.gh.Dependabot.ListRepoAlerts(ctx, owner, name, opt)
		if err != nil {
			if waitIfRateLimited(ctx, err) {
				continue
			}
			return nil, fmt.Errorf("list dependabot alerts %s: %w", repo, err)
		}
		for _, a := range alerts {
			all = append(all, dependabot.SecurityAlert{
				Repo:       repo,
				Dependency: a.GetDependency().GetPackage().GetName(),
				CreatedAt:  a.GetCreatedAt().Time,
			})
		}
		if resp.After == "" {
			break
		}
		opt.ListCursorOptions.After = resp.After
	}
	slog.Info("phase.alerts.fetch.done", "repo", repo, "count", len(all))
	return all, nil
}

// ListOrgRepos lists the non-archived repositories of org as owner/name.
func (c *Client) ListOrgRepos(ctx context.Context, org string) ([]string, error) {
	slog.Info("phase.repos.fetch.start", "org", org)
	opt := &gh.RepositoryListByOrgOptions{Type: "all", ListOptions: gh.ListOptions{PerPage: perPage}}
	var all []string
	for {
		repos, resp, err := c.gh.Repositories.ListByOrg(ctx, org, opt)
		if err != nil {
			if waitIfRateLimited(ctx, err) {
				continue
			}
			return nil, fmt.Errorf("list repos for %s: %w", org, err)
		}
		for _, r := range repos {
			if r.GetArchived() {
				continue
			}
			all = append(all, r.GetFullName())
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	slog.Info("phase.repos.fetch.done", "org", org, "repos", len(all))
	return all, nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var er *gh.ErrorResponse
	return errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound
}

// waitIfRateLimited sleeps until the advertised reset (capped to an hour) when err is a
// primary or secondary rate limit. It returns true if the caller should retry.
func waitIfRateLimited(ctx context.Context, err error) bool {
	var wait time.Duration
	var rle *gh.RateLimitError
	var abuse *gh.AbuseRateLimitError
	switch {
	case errors.As(err, &rle):
		wait = time.Until(rle.Rate.Reset.Time) + rateSafetyMargin
	case errors.As(err, &abuse):
		wait = abuse.GetRetryAfter()
		if wait <= 0 {
			wait = time.Minute
		}
	default:
		return false
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	if wait > maxRateWait {
		wait = maxRateWait
	}
	slog.Warn("rate.limit.sleep", "wait", wait)
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
