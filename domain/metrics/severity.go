package metrics

import (
	"regexp"
	"strconv"
	"strings"
)

// Severity is how big a version change is.
type Severity string

const (
	Major   Severity = "major"
	Minor   Severity = "minor"
	Patch   Severity = "patch"
	Unknown Severity = "unknown"
)

// numeric dot segments with an optional pre-release suffix
var versionRe = regexp.MustCompile(`^\d+(?:\.\d+)*(?:-[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?$`)

// Classify compares two versions segment by segment. The first differing index decides:
// 0 is major, 1 is minor, anything later (or no difference) is patch. Malformed input
// yields Unknown.
func Classify(from, to string) Severity {
	a, ok := segments(from)
	if !ok {
		return Unknown
	}
	b, ok := segments(to)
	if !ok {
		return Unknown
	}
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			continue
		}
		switch i {
		case 0:
			return Major
		case 1:
			return Minor
		default:
			return Patch
		}
	}
	return Patch
}

func segments(v string) ([]int, bool) {
	v = strings.TrimSpace(v)
	if !versionRe.MatchString(v) {
		return nil, false
	}
	core, _, _ := strings.Cut(v, "-")
	parts := strings.Split(core, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
