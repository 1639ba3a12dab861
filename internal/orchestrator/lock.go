package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/gofrs/flock"
)

const lockRetryInterval = 50 * time.Millisecond

// DeploymentLock serialises mutating operations. The channel slot covers
// callers in this process, the file lock covers other processes on the host.
type DeploymentLock struct {
	slot chan struct{}
	path string
	wait time.Duration
}

// NewDeploymentLock creates a lock backed by <stateDir>/deploy.lock.
// An empty stateDir keeps the lock in-process only.
func NewDeploymentLock(stateDir string, wait time.Duration) *DeploymentLock {
	path := ""
	if stateDir != "" {
		path = filepath.Join(stateDir, "deploy.lock")
	}
	if wait < lockRetryInterval {
		wait = lockRetryInterval
	}
	return &DeploymentLock{slot: make(chan struct{}, 1), path: path, wait: wait}
}

// Acquire waits up to the configured duration for the lock. The returned
// release function must be called exactly once.
func (l *DeploymentLock) Acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	select {
	case l.slot <- struct{}{}:
	default:
		select {
		case l.slot <- struct{}{}:
		case <-ctx.Done():
			return nil, busyError()
		}
	}
	if l.path == "" {
		return func() { <-l.slot }, nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), DirPermissionsDefault); err != nil {
		<-l.slot
		return nil, domain.NewStageError(domain.StageLock, domain.ErrRepositoryState,
			fmt.Errorf("failed to create lock directory: %w", err))
	}
	fileLock := flock.New(l.path)
	locked, err := fileLock.TryLockContext(ctx, lockRetryInterval)
	if err != nil || !locked {
		<-l.slot
		if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, busyError()
		}
		return nil, domain.NewStageError(domain.StageLock, domain.ErrRepositoryState,
			fmt.Errorf("failed to acquire deployment lock: %w", err))
	}
	return func() {
		_ = fileLock.Unlock()
		<-l.slot
	}, nil
}

func busyError() error {
	return domain.NewStageError(domain.StageLock, domain.ErrConflict, errors.New(MsgLockBusy))
}
