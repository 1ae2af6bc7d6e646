package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dependabot-stats/domain/dependabot"
)

var day0 = time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)

func at(days int) time.Time { return day0.AddDate(0, 0, days) }

func ptr(t time.Time) *time.Time { return &t }

func change(repo string, number int, dep, from string, created time.Time) Change {
	return Change{
		PR:     dependabot.PullRequest{Repo: repo, Number: number, CreatedAt: created},
		Update: ParsedUpdate{Dependency: dep, FromVersion: from, ToVersion: "9.9.9"},
	}
}

func TestEarliestOriginFollowsSupersession(t *testing.T) {
	h := NewRepoHistory("org/app")
	latest := change("org/app", 3, "foo", "1.0.0", at(14))
	h.Add(latest)
	h.Add(change("org/app", 1, "foo", "1.0.0", at(0)))
	h.Add(change("org/app", 2, "foo", "1.0.0", at(6)))

	origin, ok := h.Dependency("foo").EarliestOrigin("1.0.0")
	require.True(t, ok)
	assert.Equal(t, at(0), origin)
	assert.Equal(t, at(0), h.Origin(latest))
	assert.Equal(t, 16, DaysBetween(h.Origin(latest), at(16)))

	created := []time.Time{}
	for _, c := range h.Dependency("foo").Changes() {
		created = append(created, c.PR.CreatedAt)
	}
	assert.Equal(t, []time.Time{at(0), at(6), at(14)}, created)
}

func TestOriginWithoutSupersession(t *testing.T) {
	h := NewRepoHistory("org/app")
	c := change("org/app", 7, "bar", "2.0.0", at(3))
	h.Add(c)
	h.Add(change("org/app", 5, "bar", "1.9.0", at(1)))
	assert.Equal(t, at(3), h.Origin(c))
}

func TestOriginScopedToDependency(t *testing.T) {
	h := NewRepoHistory("org/app")
	c := change("org/app", 2, "foo", "1.0.0", at(5))
	h.Add(c)
	h.Add(change("org/app", 1, "bar", "1.0.0", at(0)))
	assert.Equal(t, at(5), h.Origin(c))
	assert.Equal(t, []string{"foo", "bar"}, h.Dependencies())
	assert.Nil(t, h.Dependency("baz"))
}
