package metrics

import (
	"regexp"
	"strings"
)

// ParsedUpdate is the dependency bump a PR title proposes.
type ParsedUpdate struct {
	Dependency  string `json:"dependency"`
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
}

type titlePattern struct {
	name    string
	re      *regexp.Regexp
	extract func(g map[string]string) ParsedUpdate
}

// Tried in order, first match wins. Titles bumping several dependencies at once
// ("Bump json5, @babel/core and loader-utils") are deliberately not recognised.
var titlePatterns = []titlePattern{
	{
		name: "bump",
		re:   regexp.MustCompile(`Bump (?P<dependency>[\w-]+)(?P<sep>-|/)?(?P<subpackage>[\w-]+)? from (?P<from>[\w.]+(?:-[\w.]+)?) to (?P<to>[\w.]+(?:-[\w.]+)?)`),
		extract: func(g map[string]string) ParsedUpdate {
			dep := g["dependency"]
			if g["subpackage"] != "" {
				dep += g["sep"] + g["subpackage"]
			}
			return ParsedUpdate{Dependency: dep, FromVersion: g["from"], ToVersion: g["to"]}
		},
	},
	{
		name: "prefixed-bump",
		re:   regexp.MustCompile(`^(?:(?:\[Security\] )?Bump|build\(deps.*\): bump) (?P<dependency>.+) from (?P<from>.+) to (?P<to>.+)`),
		extract: func(g map[string]string) ParsedUpdate {
			return ParsedUpdate{Dependency: g["dependency"], FromVersion: g["from"], ToVersion: stripDirectory(g["to"])}
		},
	},
	{
		name: "requirement",
		re:   regexp.MustCompile(`^Update (?P<dependency>.+) requirement from (?:=|~>) (?P<from>.+) to (?:=|~>)(?P<to>.+)`),
		extract: func(g map[string]string) ParsedUpdate {
			return ParsedUpdate{Dependency: g["dependency"], FromVersion: g["from"], ToVersion: stripDirectory(g["to"])}
		},
	},
	{
		// Range to range: the second pair is the effective one.
		name: "requirement-range",
		re:   regexp.MustCompile(`^Update (?P<dependency>.+) requirement from (?:>=\s)?(?P<from>.+),\s<\s(?P<to>.+) to (?:>=\s)?(?P<from2>.+),\s<\s(?P<to2>.+)`),
		extract: func(g map[string]string) ParsedUpdate {
			return ParsedUpdate{Dependency: g["dependency"], FromVersion: g["from2"], ToVersion: stripDirectory(g["to2"])}
		},
	},
	{
		name: "requirement-to-range",
		re:   regexp.MustCompile(`Update (?P<dependency>.+) requirement from (?:~> )?(?P<from>.+) to (?:>= )?(?P<to>.+), < (?P<to2>.+)`),
		extract: func(g map[string]string) ParsedUpdate {
			return ParsedUpdate{Dependency: g["dependency"], FromVersion: g["from"], ToVersion: stripDirectory(g["to2"])}
		},
	},
}

// ParseTitle extracts the dependency and versions from a bot PR title. ok is false when
// no known pattern matches.
func ParseTitle(title string) (ParsedUpdate, bool) {
	for _, p := range titlePatterns {
		g, ok := match(p.re, title)
		if !ok {
			continue
		}
		u := p.extract(g)
		u.Dependency = strings.TrimSpace(u.Dependency)
		u.FromVersion = strings.TrimSpace(u.FromVersion)
		u.ToVersion = strings.TrimSpace(u.ToVersion)
		if u.Dependency == "" || u.FromVersion == "" || u.ToVersion == "" {
			return ParsedUpdate{}, false
		}
		// a name with spaces or commas lists several dependencies
		if strings.ContainsAny(u.Dependency, " ,") {
			return ParsedUpdate{}, false
		}
		return u, true
	}
	return ParsedUpdate{}, false
}

func match(re *regexp.Regexp, s string) (map[string]string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	g := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			g[name] = m[i]
		}
	}
	return g, true
}

// stripDirectory drops the " in /path" suffix monorepo bumps carry.
func stripDirectory(v string) string {
	if i := strings.Index(v, " in "); i >= 0 {
		return v[:i]
	}
	return v
}
