package domain

import "fmt"

// Release holds the metadata published alongside a new release tag.
type Release struct {
	Tag     string
	Summary DiffSummary
}

// Name is the release title.
func (r Release) Name() string {
	return "Release " + r.Tag
}

// Notes renders the diff summary as the release body.
func (r Release) Notes() string {
	return fmt.Sprintf("%d files changed, %d insertions(+), %d deletions(-)",
		r.Summary.FilesChanged, r.Summary.Insertions, r.Summary.Deletions)
}
