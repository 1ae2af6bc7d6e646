package metrics

import "time"

// Report is what one run hands to the renderers.
type Report struct {
	RunID       string     `json:"run_id"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Mode        Mode       `json:"mode"`
	GeneratedAt time.Time  `json:"generated_at"`
	Repos       int        `json:"repos"`
	FailedRepos []string   `json:"failed_repos"`
	Stats       Stats      `json:"stats"`
	Snapshots   []Snapshot `json:"snapshots"`
}

// NewReport wraps finalized snapshots with the window they cover.
func NewReport(runID string, w Window, generated time.Time, snaps []Snapshot) Report {
	return Report{
		RunID:       runID,
		From:        w.From.Format(dateLayout),
		To:          w.To.Format(dateLayout),
		Mode:        w.Mode,
		GeneratedAt: generated,
		FailedRepos: []string{},
		Snapshots:   snaps,
	}
}

// Snapshot looks up a bucket by key.
func (r Report) Snapshot(key string) (Snapshot, bool) {
	for _, s := range r.Snapshots {
		if s.Key == key {
			return s, true
		}
	}
	return Snapshot{}, false
}
