package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Tag is a release tag together with the commit it points at.
type Tag struct {
	Name    string    `json:"name"`
	Commit  string    `json:"commit"`
	Created time.Time `json:"created"`
}

// SortByCreation orders tags oldest first. Tags created within the same
// second are ordered by semantic version, then by name.
func SortByCreation(tags []Tag) {
	slices.SortStableFunc(tags, func(a, b Tag) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return compareTagNames(a.Name, b.Name)
	})
}

// SortNamesBySemver orders tag names oldest first by semantic version. Names
// that are not versions sort before all versions, alphabetically.
func SortNamesBySemver(names []string) {
	slices.SortStableFunc(names, compareTagNames)
}

// TagNames extracts the names of tags, keeping their order.
func TagNames(tags []Tag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

// Reversed returns a reversed copy of names.
func Reversed(names []string) []string {
	out := slices.Clone(names)
	slices.Reverse(out)
	return out
}

func compareTagNames(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		if c := va.Compare(vb); c != 0 {
			return c
		}
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	}
	return strings.Compare(a, b)
}
