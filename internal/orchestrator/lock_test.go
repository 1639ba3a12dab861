package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeploymentLock_Acquire(t *testing.T) {
	ctx := context.Background()
	t.Run("Should reject a second holder while the lock is held", func(t *testing.T) {
		lock := NewDeploymentLock(t.TempDir(), 0)
		release, err := lock.Acquire(ctx)
		require.NoError(t, err)
		_, err = lock.Acquire(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, domain.StageLock, domain.StageOf(err))
		assert.Contains(t, err.Error(), MsgLockBusy)
		release()
		release, err = lock.Acquire(ctx)
		require.NoError(t, err)
		release()
	})
	t.Run("Should wait for the holder to release", func(t *testing.T) {
		lock := NewDeploymentLock("", time.Second)
		release, err := lock.Acquire(ctx)
		require.NoError(t, err)
		go func() {
			time.Sleep(50 * time.Millisecond)
			release()
		}()
		second, err := lock.Acquire(ctx)
		require.NoError(t, err)
		second()
	})
	t.Run("Should exclude other lock instances sharing the state directory", func(t *testing.T) {
		dir := t.TempDir()
		first := NewDeploymentLock(dir, 0)
		other := NewDeploymentLock(dir, 0)
		release, err := first.Acquire(ctx)
		require.NoError(t, err)
		_, err = other.Acquire(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConflict)
		release()
		release, err = other.Acquire(ctx)
		require.NoError(t, err)
		release()
	})
}

func TestValidateTagName(t *testing.T) {
	t.Run("Should accept release tags", func(t *testing.T) {
		for _, tag := range []string{"v1.0.0", "v10.2.33", "release/v1.0.0"} {
			assert.NoError(t, ValidateTagName(tag), tag)
		}
	})
	t.Run("Should reject malformed ref names", func(t *testing.T) {
		for _, tag := range []string{"", "-v1", "/v1", "v1/", "v1..0", "v1.lock", "v1.", "v1 0", "v1~0"} {
			assert.Error(t, ValidateTagName(tag), tag)
		}
	})
}
