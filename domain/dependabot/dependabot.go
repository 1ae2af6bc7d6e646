package dependabot

import "time"

// PR states as reported by the issues endpoint.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// PullRequest is one dependency-labelled PR as fetched from GitHub. It is never mutated
// after the connector produced it.
type PullRequest struct {
	Repo      string     `json:"repo"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
	// MergedBy is the login on the timeline "merged" event. Empty when unknown.
	MergedBy string `json:"merged_by,omitempty"`
}

// Status is the terminal (or current) state used for accumulation.
type Status int

const (
	StatusOpen Status = iota
	StatusMerged
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusMerged:
		return "merged"
	case StatusClosed:
		return "closed"
	default:
		return "open"
	}
}

// Status classifies the record: anything not closed is open, closed with a merge
// timestamp is merged, closed without one was closed without merging.
func (pr PullRequest) Status() Status {
	if pr.State != StateClosed {
		return StatusOpen
	}
	if pr.MergedAt != nil {
		return StatusMerged
	}
	return StatusClosed
}

// SecurityAlert is an open Dependabot alert on a repository.
type SecurityAlert struct {
	Repo       string    `json:"repo"`
	Dependency string    `json:"dependency"`
	CreatedAt  time.Time `json:"created_at"`
}
