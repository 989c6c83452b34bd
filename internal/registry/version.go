package registry

import (
	"sort"

	"github.com/apparentlymart/go-versions/versions"
)

// SortVersions returns vs in ascending order. Semantic versions sort by
// precedence and come before anything that does not parse, which sorts as a
// plain string.
func SortVersions(vs []string) []string {
	out := append([]string(nil), vs...)
	sort.SliceStable(out, func(i, j int) bool {
		return versionLess(out[i], out[j])
	})
	return out
}

// NewestVersion returns the highest version in vs, or "" for an empty list.
func NewestVersion(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	sorted := SortVersions(vs)
	return sorted[len(sorted)-1]
}

// Neighbors returns the versions immediately before and after v in vs.
// Either may be "" when v is the oldest or newest.
func Neighbors(vs []string, v string) (predecessor, successor string) {
	sorted := SortVersions(vs)
	for i, s := range sorted {
		if s != v {
			continue
		}
		if i > 0 {
			predecessor = sorted[i-1]
		}
		if i < len(sorted)-1 {
			successor = sorted[i+1]
		}
		break
	}
	return predecessor, successor
}

func versionLess(a, b string) bool {
	va, errA := versions.ParseVersion(a)
	vb, errB := versions.ParseVersion(b)
	switch {
	case errA == nil && errB == nil:
		if va.Same(vb) {
			return a < b
		}
		return va.LessThan(vb)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
