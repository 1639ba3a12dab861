package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelease(t *testing.T) {
	t.Run("Should title the release with its tag", func(t *testing.T) {
		assert.Equal(t, "Release v1.2.3", Release{Tag: "v1.2.3"}.Name())
	})
	t.Run("Should summarize the diff in the notes", func(t *testing.T) {
		r := Release{Tag: "v1.0.1", Summary: DiffSummary{FilesChanged: 2, Insertions: 10, Deletions: 3}}
		assert.Equal(t, "2 files changed, 10 insertions(+), 3 deletions(-)", r.Notes())
	})
}
