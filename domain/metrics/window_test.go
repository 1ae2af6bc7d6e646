package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowDaily(t *testing.T) {
	w, err := NewWindow(at(0), at(2), ModeDaily)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-03-01", "2023-03-02", "2023-03-03"}, w.Keys())

	k, ok := w.Key(at(1).Add(23 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, "2023-03-02", k)

	_, ok = w.Key(at(-1).Add(23 * time.Hour))
	assert.False(t, ok)
	_, ok = w.Key(at(3))
	assert.False(t, ok)
}

func TestWindowSnapshot(t *testing.T) {
	w, err := NewWindow(at(0), at(15), ModeSnapshot)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-03-01..2023-03-16"}, w.Keys())
	k, ok := w.Key(at(15).Add(12 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, "2023-03-01..2023-03-16", k)
}

func TestWindowRejectsBadInput(t *testing.T) {
	_, err := NewWindow(at(2), at(1), ModeDaily)
	assert.Error(t, err)
	_, err = NewWindow(at(1), at(2), Mode("weekly"))
	assert.Error(t, err)
}

func TestDaysBetweenUsesCalendarDates(t *testing.T) {
	assert.Equal(t, 1, DaysBetween(at(0).Add(23*time.Hour), at(1).Add(time.Hour)))
	assert.Equal(t, 10, DaysBetween(time.Date(2023, 2, 26, 0, 0, 0, 0, time.UTC), time.Date(2023, 3, 8, 0, 0, 0, 0, time.UTC)))
}
