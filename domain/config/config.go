package config

import (
	"fmt"
	"strings"
)

const (
	DefaultLabel       = "dependencies"
	DefaultConcurrency = 4
	DefaultJob         = "dependabot_metrics"
	DefaultHistoryDays = 180
)

// DefaultAutoMergeLogin is the CI account that merges approved bot PRs.
const DefaultAutoMergeLogin = "govuk-ci"

// Output formats accepted by the collect command.
const (
	FormatCLI        = "cli"
	FormatJSON       = "json"
	FormatCSV        = "csv"
	FormatPrometheus = "prometheus"
)

var formats = []string{FormatCLI, FormatJSON, FormatCSV, FormatPrometheus}

// Config represents the structure of config.yml used by the tool.
type Config struct {
	GitHub struct {
		Org            string   `yaml:"org"`
		Repos          []string `yaml:"repos"`
		Label          string   `yaml:"label"`
		// HistoryDays is how far before the window start PRs are fetched so that
		// version chains can be resolved to their origin. nil means the default; 0 is kept.
		HistoryDays    *int     `yaml:"history_days"`
		AutoMergeLogin string   `yaml:"auto_merge_login"`
	} `yaml:"github"`
	Metrics struct {
		// OutdatedLimit is required; nil means it was never set.
		OutdatedLimit *int `yaml:"outdated_limit"`
		Concurrency   int  `yaml:"concurrency"`
	} `yaml:"metrics"`
	Prometheus struct {
		PushgatewayURL string `yaml:"pushgateway_url"`
		Job            string `yaml:"job"`
	} `yaml:"prometheus"`
}

// ApplyDefaults fills optional fields left empty.
func (c *Config) ApplyDefaults() {
	if c.GitHub.Label == "" {
		c.GitHub.Label = DefaultLabel
	}
	if c.GitHub.HistoryDays == nil {
		d := DefaultHistoryDays
		c.GitHub.HistoryDays = &d
	}
	if c.GitHub.AutoMergeLogin == "" {
		c.GitHub.AutoMergeLogin = DefaultAutoMergeLogin
	}
	if c.Metrics.Concurrency == 0 {
		c.Metrics.Concurrency = DefaultConcurrency
	}
	if c.Prometheus.Job == "" {
		c.Prometheus.Job = DefaultJob
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Metrics.OutdatedLimit == nil {
		return &ValidationError{Field: "metrics.outdated_limit", Reason: "is required"}
	}
	if *c.Metrics.OutdatedLimit < 0 {
		return &ValidationError{Field: "metrics.outdated_limit", Reason: "must not be negative"}
	}
	if c.Metrics.Concurrency < 1 {
		return &ValidationError{Field: "metrics.concurrency", Reason: "must be at least 1"}
	}
	if c.GitHub.HistoryDays != nil && *c.GitHub.HistoryDays < 0 {
		return &ValidationError{Field: "github.history_days", Reason: "must not be negative"}
	}
	if c.GitHub.Org == "" && len(c.GitHub.Repos) == 0 {
		return &ValidationError{Field: "github", Reason: "either org or repos must be set"}
	}
	for _, r := range c.GitHub.Repos {
		if owner, name, ok := strings.Cut(r, "/"); !ok || owner == "" || name == "" {
			return &ValidationError{Field: "github.repos", Reason: fmt.Sprintf("%q is not owner/name", r)}
		}
	}
	return nil
}

// ValidateFormat checks an output format name.
func ValidateFormat(f string) error {
	for _, known := range formats {
		if f == known {
			return nil
		}
	}
	return &ValidationError{Field: "format", Reason: fmt.Sprintf("%q is not one of %s", f, strings.Join(formats, ", "))}
}

// ValidationError is a fatal configuration problem, reported before any fetching.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}
