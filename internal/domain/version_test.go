package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersion(t *testing.T) {
	t.Run("Should create valid version from string", func(t *testing.T) {
		version, err := NewVersion("1.2.3")
		require.NoError(t, err)
		assert.Equal(t, "v1.2.3", version.String())
	})
	t.Run("Should return error for invalid version string", func(t *testing.T) {
		version, err := NewVersion("invalid")
		assert.Error(t, err)
		assert.Nil(t, version)
	})
}

func TestParseTag(t *testing.T) {
	t.Run("Should parse a plain release tag", func(t *testing.T) {
		version, err := ParseTag("v2.5.9")
		require.NoError(t, err)
		assert.Equal(t, "v2.5.9", version.String())
	})
	t.Run("Should reject tags outside the release pattern", func(t *testing.T) {
		for _, tag := range []string{"1.2.3", "v1.2", "v1.2.x", "release-1", "v1.2.3-beta", "v1.2.3+build", ""} {
			_, err := ParseTag(tag)
			require.Error(t, err, tag)
			var malformed *MalformedTagError
			require.True(t, errors.As(err, &malformed), tag)
			assert.Equal(t, tag, malformed.Tag)
			assert.ErrorIs(t, err, ErrMalformedTag)
		}
	})
}

func TestNextTag(t *testing.T) {
	t.Run("Should start at v1.0.0 when no tags exist", func(t *testing.T) {
		next, err := NextTag(nil)
		require.NoError(t, err)
		assert.Equal(t, "v1.0.0", next)
	})
	t.Run("Should bump only the patch of the last tag", func(t *testing.T) {
		cases := []struct {
			tags []string
			want string
		}{
			{tags: []string{"v1.0.0"}, want: "v1.0.1"},
			{tags: []string{"v1.0.0", "v1.0.1", "v1.0.2"}, want: "v1.0.3"},
			{tags: []string{"v3.9.9"}, want: "v3.9.10"},
			{tags: []string{"v2.0.0", "v1.4.7"}, want: "v1.4.8"},
			{tags: []string{"v0.0.0"}, want: "v0.0.1"},
		}
		for _, tc := range cases {
			next, err := NextTag(tc.tags)
			require.NoError(t, err)
			assert.Equal(t, tc.want, next)
		}
	})
	t.Run("Should fail with MalformedTagError when the last tag cannot be parsed", func(t *testing.T) {
		next, err := NextTag([]string{"v1.0.0", "nightly"})
		assert.Empty(t, next)
		var malformed *MalformedTagError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "nightly", malformed.Tag)
	})
	t.Run("Should ignore malformed tags that are not last", func(t *testing.T) {
		next, err := NextTag([]string{"nightly", "v1.1.0"})
		require.NoError(t, err)
		assert.Equal(t, "v1.1.1", next)
	})
}
