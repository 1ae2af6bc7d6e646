package main

import (
	"fmt"
	"log/slog"
	"os"

	cmdcollect "dependabot-stats/command/collect"
	cmdweb "dependabot-stats/command/web"
)

// Dependabot PR metrics for a set of repositories.
// Usage:
//   GITHUB_TOKEN=ghp_xxx go run . collect -from 2023-03-01 -to 2023-03-16 [-mode daily] [-format json] [-out report.json]
//   go run . web -file report.json
// Notes:
// - Repositories come from -repo, github.repos or every non-archived repo of github.org.
// - metrics.outdated_limit (or -outdated-limit) is required.

const usage = `usage: dependabot-stats collect -from <YYYY-MM-DD> -to <YYYY-MM-DD> [-mode snapshot|daily] [-format cli|json|csv|prometheus] [-out <file>] [-outdated-limit <days>] [-repo <list>] [-org <org>] [-push] [-v]
       dependabot-stats web [-addr :8080] [-file ./data/report.json] [-ui ./ui/dist]
ENV: GITHUB_TOKEN is required by collect; set CONFIG_PATH to point to a YAML config file (default ./config.yml)`

func main() {
	args := os.Args
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(h))

	if len(args) > 1 {
		sub := args[1]
		rest := append([]string{}, args[2:]...)
		switch sub {
		case "collect":
			if err := cmdcollect.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "web":
			if err := cmdweb.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintln(os.Stderr, usage)
	os.Exit(2)
}
