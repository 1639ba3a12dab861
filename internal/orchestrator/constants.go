package orchestrator

import (
	"context"
	"os"
	"time"
)

var (
	// RollbackTimeout bounds the compensations of a failed pipeline
	RollbackTimeout = getTimeoutOrDefault("SITEPUBLISH_ROLLBACK_TIMEOUT", 2*time.Minute)
	// DefaultRetryDelay is the initial delay for exponential backoff
	DefaultRetryDelay = time.Second
)

// getTimeoutOrDefault returns the duration set in envVar, or def
func getTimeoutOrDefault(envVar string, def time.Duration) time.Duration {
	if env := os.Getenv(envVar); env != "" {
		if duration, err := time.ParseDuration(env); err == nil {
			return duration
		}
	}
	return def
}

// Status messages
const (
	MsgNotInitialized   = "Repository is not initialized"
	MsgNoTags           = "No tags found, unpublished changes detected"
	MsgStatusFailed     = "Status check failed: %v"
	MsgUnpublished      = "Unpublished changes detected. Last published tag: %s"
	MsgAllPublished     = "All changes are published. Current tag: %s"
	MsgPublishedNewTag  = "Site published with new tag %s"
	MsgPublishedReused  = "Site published (no content changes, reusing existing tag %s)"
	MsgPublishFailed    = "Publish failed: %v"
	MsgRolledBack       = "Rolled back to tag %s"
	MsgRollbackFailed   = "Rollback failed: %v"
	MsgLockBusy         = "another deployment operation is in progress"
	MsgTagsUnavailable  = "Unable to list tags: %v"
	MsgRepositoryAbsent = "repository is not initialized"
)

// DirPermissionsDefault is the standard permission for created directories
const DirPermissionsDefault = 0755

// withTimeout bounds ctx by d. A non-positive d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
