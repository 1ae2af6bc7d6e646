package collect

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"dependabot-stats/connectors/config"
	ccsv "dependabot-stats/connectors/csv"
	cg "dependabot-stats/connectors/github"
	cprom "dependabot-stats/connectors/prometheus"
	"dependabot-stats/connectors/render"
	dc "dependabot-stats/domain/config"
	"dependabot-stats/domain/metrics"
)

// settings is the merged result of the config file and the command line.
type settings struct {
	cfg        *dc.Config
	window     metrics.Window
	format     string
	out        string
	mergeTimes string
	prsOut     string
	push       bool
	verbose    bool
}

// parseArgs applies flags on top of cfg and validates the result. Every error it returns
// is a configuration error and nothing has been fetched yet.
func parseArgs(args []string, cfg *dc.Config) (settings, error) {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	from := fs.String("from", "", "window start, YYYY-MM-DD (required)")
	to := fs.String("to", "", "window end, YYYY-MM-DD, inclusive (required)")
	mode := fs.String("mode", string(metrics.ModeSnapshot), "bucketing: snapshot or daily")
	format := fs.String("format", dc.FormatCLI, "output format: cli, json, csv or prometheus")
	out := fs.String("out", "", "output file (default stdout)")
	mergeTimes := fs.String("merge-times", "", "also write per-PR merge times as CSV to this file")
	prsOut := fs.String("prs-out", "", "also write every fetched PR as CSV to this file")
	limit := fs.Int("outdated-limit", 0, "days after which an open PR is outdated (overrides metrics.outdated_limit)")
	history := fs.Int("history-days", 0, "days before -from to fetch PRs for supersession (overrides github.history_days)")
	autoMerge := fs.String("auto-merge-login", "", "login whose merges count as auto-merged (overrides github.auto_merge_login)")
	repos := fs.String("repo", "", "comma-separated owner/name list (overrides github.repos)")
	org := fs.String("org", "", "GitHub organization (overrides github.org)")
	concurrency := fs.Int("concurrency", 0, "repositories fetched in parallel (overrides metrics.concurrency)")
	push := fs.Bool("push", false, "push the prometheus metrics to prometheus.pushgateway_url")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return settings{}, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *org != "" {
		cfg.GitHub.Org = *org
	}
	if *repos != "" {
		cfg.GitHub.Repos = lo.Compact(lo.Map(strings.Split(*repos, ","), func(r string, _ int) string {
			return strings.TrimSpace(r)
		}))
	}
	if set["outdated-limit"] {
		cfg.Metrics.OutdatedLimit = limit
	}
	if set["history-days"] {
		cfg.GitHub.HistoryDays = history
	}
	if *autoMerge != "" {
		cfg.GitHub.AutoMergeLogin = *autoMerge
	}
	if set["concurrency"] {
		cfg.Metrics.Concurrency = *concurrency
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return settings{}, err
	}
	if err := dc.ValidateFormat(*format); err != nil {
		return settings{}, err
	}
	if *push && cfg.Prometheus.PushgatewayURL == "" {
		return settings{}, &dc.ValidationError{Field: "prometheus.pushgateway_url", Reason: "is required with -push"}
	}

	if *from == "" || *to == "" {
		return settings{}, &dc.ValidationError{Field: "window", Reason: "-from and -to are required"}
	}
	fromDay, err := metrics.ParseDate(*from)
	if err != nil {
		return settings{}, &dc.ValidationError{Field: "from", Reason: err.Error()}
	}
	toDay, err := metrics.ParseDate(*to)
	if err != nil {
		return settings{}, &dc.ValidationError{Field: "to", Reason: err.Error()}
	}
	w, err := metrics.NewWindow(fromDay, toDay, metrics.Mode(*mode))
	if err != nil {
		return settings{}, &dc.ValidationError{Field: "window", Reason: err.Error()}
	}

	return settings{
		cfg:        cfg,
		window:     w,
		format:     *format,
		out:        *out,
		mergeTimes: *mergeTimes,
		prsOut:     *prsOut,
		push:       *push,
		verbose:    *verbose,
	}, nil
}

// Run executes the collect subcommand: fetch dependency PRs and alerts, accumulate
// them into buckets and render the report.
func Run(args []string) error {
	config.LoadEnv()
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	s, err := parseArgs(args, cfg)
	if err != nil {
		slog.Error("collect.validation.error", "error", err)
		return err
	}
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		err := &dc.ValidationError{Field: "GITHUB_TOKEN", Reason: "must be set"}
		slog.Error("collect.validation.error", "error", err)
		return err
	}

	level := slog.LevelInfo
	if s.verbose {
		level = slog.LevelDebug
	}
	runID := uuid.NewString()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).With("run_id", runID))

	ctx := context.Background()
	ghc := cg.New(nil, token)

	repos := s.cfg.GitHub.Repos
	if len(repos) == 0 {
		if repos, err = ghc.ListOrgRepos(ctx, s.cfg.GitHub.Org); err != nil {
			return err
		}
	}

	since := s.window.From.AddDate(0, 0, -*s.cfg.GitHub.HistoryDays)
	slog.Info("collect.start", "from", s.window.From.Format(time.DateOnly), "to", s.window.To.Format(time.DateOnly),
		"mode", s.window.Mode, "repos", len(repos), "since", since.Format(time.DateOnly))

	acc := metrics.NewAccumulator(metrics.Options{
		Window:         s.window,
		OutdatedLimit:  *s.cfg.Metrics.OutdatedLimit,
		AutoMergeLogin: s.cfg.GitHub.AutoMergeLogin,
	})
	p := &Pipeline{Source: ghc, Acc: acc, Label: s.cfg.GitHub.Label, Since: since, Concurrency: s.cfg.Metrics.Concurrency}
	res, err := p.Run(ctx, repos)
	if err != nil {
		return err
	}

	report := metrics.NewReport(runID, s.window, time.Now().UTC(), acc.Snapshots())
	report.Repos = len(repos)
	report.Stats = acc.Stats()
	report.FailedRepos = lo.Map(res.Failures, func(f RepoFailure, _ int) string { return f.Repo })
	slog.Info("collect.done", "repos", report.Repos, "failed", len(report.FailedRepos),
		"prs", report.Stats.PRs, "unparsed", report.Stats.Unparsed)

	if err := writeTo(s.out, func(w io.Writer) error { return write(w, s.format, report) }); err != nil {
		return err
	}
	if s.mergeTimes != "" {
		if err := writeTo(s.mergeTimes, func(w io.Writer) error { return ccsv.WriteMergeTimes(w, report) }); err != nil {
			return err
		}
	}
	if s.prsOut != "" {
		if err := writeTo(s.prsOut, func(w io.Writer) error { return ccsv.WritePullRequests(w, res.PRs) }); err != nil {
			return err
		}
	}
	if s.push {
		if err := cprom.Push(ctx, s.cfg.Prometheus.PushgatewayURL, s.cfg.Prometheus.Job, cprom.NewRegistry(report)); err != nil {
			return err
		}
		slog.Info("collect.pushed", "url", s.cfg.Prometheus.PushgatewayURL, "job", s.cfg.Prometheus.Job)
	}
	return nil
}

func write(w io.Writer, format string, r metrics.Report) error {
	switch format {
	case dc.FormatJSON:
		return render.JSON(w, r)
	case dc.FormatCSV:
		return ccsv.WriteSnapshots(w, r)
	case dc.FormatPrometheus:
		return cprom.WriteText(w, cprom.NewRegistry(r))
	default:
		return render.Text(w, r)
	}
}

// writeTo runs fn against path, or stdout when path is empty.
func writeTo(path string, fn func(io.Writer) error) (err error) {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := ccsv.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := fn(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("collect.output.written", "path", path)
	return nil
}
