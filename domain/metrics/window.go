package metrics

import (
	"fmt"
	"time"
)

// Mode selects how events are bucketed.
type Mode string

const (
	ModeSnapshot Mode = "snapshot"
	ModeDaily    Mode = "daily"
)

const dateLayout = "2006-01-02"

// Window is the inclusive reporting range.
type Window struct {
	From time.Time
	To   time.Time
	Mode Mode
}

func NewWindow(from, to time.Time, mode Mode) (Window, error) {
	w := Window{From: Day(from), To: Day(to), Mode: mode}
	if w.To.Before(w.From) {
		return Window{}, fmt.Errorf("window: from %s is after to %s", w.From.Format(dateLayout), w.To.Format(dateLayout))
	}
	switch mode {
	case ModeSnapshot, ModeDaily:
	default:
		return Window{}, fmt.Errorf("window: unknown mode %q", mode)
	}
	return w, nil
}

// Keys lists every bucket key in chronological order.
func (w Window) Keys() []string {
	if w.Mode == ModeSnapshot {
		return []string{w.snapshotKey()}
	}
	var keys []string
	for d := w.From; !d.After(w.To); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(dateLayout))
	}
	return keys
}

// Key maps t to its bucket. ok is false when t falls outside the window.
func (w Window) Key(t time.Time) (string, bool) {
	d := Day(t)
	if d.Before(w.From) || d.After(w.To) {
		return "", false
	}
	if w.Mode == ModeSnapshot {
		return w.snapshotKey(), true
	}
	return d.Format(dateLayout), true
}

func (w Window) snapshotKey() string {
	return w.From.Format(dateLayout) + ".." + w.To.Format(dateLayout)
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// ParseDate reads a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
