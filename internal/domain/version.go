package domain

import (
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// InitialTag is the first tag handed out for a repository that was never published.
const InitialTag = "v1.0.0"

var releaseTagRegex = regexp.MustCompile(`^v\d+\.\d+\.\d+$`)

// Version wraps semver.Version for additional methods.
type Version struct {
	*semver.Version
}

// NewVersion creates a new Version from a string.
func NewVersion(s string) (*Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, err
	}
	return &Version{v}, nil
}

// ParseTag parses a release tag of the exact form vMAJOR.MINOR.PATCH.
// Pre-release and build suffixes are rejected since the sequencer only
// ever produces plain patch bumps.
func ParseTag(tag string) (*Version, error) {
	if !releaseTagRegex.MatchString(tag) {
		return nil, &MalformedTagError{Tag: tag}
	}
	v, err := NewVersion(tag)
	if err != nil {
		return nil, &MalformedTagError{Tag: tag, Err: err}
	}
	return v, nil
}

// NextTag returns the tag that follows existingTags. The slice is ordered
// oldest first by creation time, so the last element is the latest tag.
func NextTag(existingTags []string) (string, error) {
	if len(existingTags) == 0 {
		return InitialTag, nil
	}
	last, err := ParseTag(existingTags[len(existingTags)-1])
	if err != nil {
		return "", err
	}
	return last.BumpPatch().String(), nil
}

// BumpPatch increments the patch version.
func (v *Version) BumpPatch() *Version {
	newVer := v.IncPatch()
	return &Version{&newVer}
}

// String returns the version string with v prefix.
func (v *Version) String() string {
	return "v" + v.Version.String()
}
