package repository

import (
	"context"

	"github.com/compozy/sitepublish/internal/domain"
)

// GitOptions binds a GitRepository to one working directory and one remote.
type GitOptions struct {
	Dir            string
	RemoteURL      string
	Branch         string
	Token          string
	CommitterName  string
	CommitterEmail string
}

// GitRepository defines the version control operations used by the publish core.
// Tags are always returned oldest first in creation order.
type GitRepository interface {
	Dir() string
	// At returns an adapter with the same remote and identity bound to dir.
	At(dir string) GitRepository
	Exists(ctx context.Context) bool
	Clone(ctx context.Context) error
	FetchTags(ctx context.Context) error
	ListTags(ctx context.Context) ([]domain.Tag, error)
	RemoteTags(ctx context.Context) ([]string, error)
	TagExists(ctx context.Context, tag string) (bool, error)
	HeadCommit(ctx context.Context) (string, error)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	DiffSummary(ctx context.Context, from, to string) (domain.DiffSummary, error)
	CheckoutTag(ctx context.Context, tag string) error
	CreateTag(ctx context.Context, tag, msg string) error
	DeleteTag(ctx context.Context, tag string) error
	PushTag(ctx context.Context, tag string) error
	// CommitAll stages every change and commits it. It reports false when
	// the worktree was already clean.
	CommitAll(ctx context.Context, msg string) (bool, error)
	PushBranch(ctx context.Context) error
}
