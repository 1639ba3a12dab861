package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Run("Should replace blank build metadata with defaults", func(t *testing.T) {
		orig := Version
		t.Cleanup(func() { Version = orig })
		Version = "  "
		info := Get()
		assert.Equal(t, "dev", info.Version)
		assert.Equal(t, "dev", Summary())
	})
	t.Run("Should trim injected values", func(t *testing.T) {
		orig := CommitHash
		t.Cleanup(func() { CommitHash = orig })
		CommitHash = " abc123\n"
		assert.Equal(t, "abc123", Get().Commit)
	})
}
