package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

const remoteName = "origin"

var tagRefSpec = config.RefSpec("+refs/tags/*:refs/tags/*")

// gitRepository is the go-git implementation of GitRepository. The working
// copy is opened on every call because rollback replaces the directory.
type gitRepository struct {
	opts GitOptions
}

// NewGitRepository creates a new GitRepository bound to opts.Dir.
func NewGitRepository(opts GitOptions) GitRepository {
	return &gitRepository{opts: opts}
}

func (r *gitRepository) Dir() string {
	return r.opts.Dir
}

func (r *gitRepository) At(dir string) GitRepository {
	opts := r.opts
	opts.Dir = dir
	return &gitRepository{opts: opts}
}

func (r *gitRepository) open() (*git.Repository, error) {
	repo, err := git.PlainOpen(r.opts.Dir)
	if err != nil {
		return nil, domain.NewStageError("", domain.ErrRepositoryState,
			fmt.Errorf("failed to open git repository %s: %w", r.opts.Dir, err))
	}
	return repo, nil
}

// Exists reports whether the directory holds git metadata.
func (r *gitRepository) Exists(_ context.Context) bool {
	info, err := os.Stat(filepath.Join(r.opts.Dir, git.GitDirName))
	return err == nil && info.IsDir()
}

func (r *gitRepository) getAuth() transport.AuthMethod {
	return RemoteAuth(r.opts.RemoteURL, r.opts.Token)
}

// RemoteAuth returns token credentials for http(s) remotes only.
func RemoteAuth(remoteURL, token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	if !strings.HasPrefix(remoteURL, "https://") && !strings.HasPrefix(remoteURL, "http://") {
		return nil
	}
	// Use x-access-token as username for GitHub token authentication
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: token,
	}
}

func (r *gitRepository) signature() *object.Signature {
	return &object.Signature{
		Name:  r.opts.CommitterName,
		Email: r.opts.CommitterEmail,
		When:  time.Now(),
	}
}

// Clone clones the remote branch with all tags into the bound directory.
func (r *gitRepository) Clone(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(r.opts.Dir), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	_, err := git.PlainCloneContext(ctx, r.opts.Dir, false, &git.CloneOptions{
		URL:           r.opts.RemoteURL,
		Auth:          r.getAuth(),
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(r.opts.Branch),
		SingleBranch:  true,
		Tags:          git.AllTags,
	})
	if err != nil {
		return domain.NewStageError(domain.StageClone, domain.ErrNetworkOperation,
			fmt.Errorf("failed to clone %s: %w", r.opts.RemoteURL, err))
	}
	return nil
}

// FetchTags fetches every remote tag, overwriting moved local tags.
func (r *gitRepository) FetchTags(ctx context.Context) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{tagRefSpec},
		Auth:       r.getAuth(),
		Tags:       git.AllTags,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return domain.NewStageError(domain.StageFetch, domain.ErrNetworkOperation,
			fmt.Errorf("failed to fetch tags from remote: %w", err))
	}
	return nil
}

// ListTags returns local tags oldest first. Annotated tags are dated by
// their tagger, lightweight tags by the tagged commit.
func (r *gitRepository) ListTags(_ context.Context) ([]domain.Tag, error) {
	repo, err := r.open()
	if err != nil {
		return nil, err
	}
	tagRefs, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	var tags []domain.Tag
	if err := tagRefs.ForEach(func(ref *plumbing.Reference) error {
		commit, created, err := peelTag(repo, ref)
		if err != nil {
			return nil // Skip tags that do not point at a commit
		}
		tags = append(tags, domain.Tag{
			Name:    ref.Name().Short(),
			Commit:  commit.Hash.String(),
			Created: created,
		})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	domain.SortByCreation(tags)
	return tags, nil
}

func peelTag(repo *git.Repository, ref *plumbing.Reference) (*object.Commit, time.Time, error) {
	if tagObj, err := repo.TagObject(ref.Hash()); err == nil {
		commit, err := tagObj.Commit()
		if err != nil {
			return nil, time.Time{}, err
		}
		return commit, tagObj.Tagger.When, nil
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, time.Time{}, err
	}
	return commit, commit.Committer.When, nil
}

// RemoteTags lists tag names on the remote without touching local state.
func (r *gitRepository) RemoteTags(ctx context.Context) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: remoteName,
		URLs: []string{r.opts.RemoteURL},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: r.getAuth()})
	if err != nil {
		if errors.Is(err, transport.ErrEmptyRemoteRepository) {
			return []string{}, nil
		}
		return nil, domain.NewStageError(domain.StageFetch, domain.ErrNetworkOperation,
			fmt.Errorf("failed to list remote refs: %w", err))
	}
	seen := make(map[string]struct{})
	names := []string{}
	for _, ref := range refs {
		if !ref.Name().IsTag() {
			continue
		}
		name := ref.Name().Short()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// TagExists checks if a tag exists locally.
func (r *gitRepository) TagExists(_ context.Context, tag string) (bool, error) {
	repo, err := r.open()
	if err != nil {
		return false, err
	}
	_, err = repo.Tag(tag)
	if errors.Is(err, git.ErrTagNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tag %s: %w", tag, err)
	}
	return true, nil
}

// HeadCommit returns the SHA of the current HEAD commit.
func (r *gitRepository) HeadCommit(_ context.Context) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", domain.NewStageError("", domain.ErrRepositoryState, fmt.Errorf("failed to get HEAD: %w", err))
	}
	return head.Hash().String(), nil
}

// resolveCommit resolves a tag name, branch, HEAD or hash to a commit.
func resolveCommit(repo *git.Repository, rev string) (*object.Commit, error) {
	if ref, err := repo.Tag(rev); err == nil {
		commit, _, err := peelTag(repo, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tag %s: %w", rev, err)
		}
		return commit, nil
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %s: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", rev, err)
	}
	return commit, nil
}

// IsAncestor reports whether ancestor is descendant or one of its ancestors.
func (r *gitRepository) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	repo, err := r.open()
	if err != nil {
		return false, err
	}
	from, err := resolveCommit(repo, ancestor)
	if err != nil {
		return false, err
	}
	to, err := resolveCommit(repo, descendant)
	if err != nil {
		return false, err
	}
	if from.Hash == to.Hash {
		return true, nil
	}
	ok, err := from.IsAncestor(to)
	if err != nil {
		return false, fmt.Errorf("failed to walk history: %w", err)
	}
	return ok, nil
}

// DiffSummary counts files, insertions and deletions between two revisions.
func (r *gitRepository) DiffSummary(ctx context.Context, from, to string) (domain.DiffSummary, error) {
	repo, err := r.open()
	if err != nil {
		return domain.DiffSummary{}, err
	}
	fromCommit, err := resolveCommit(repo, from)
	if err != nil {
		return domain.DiffSummary{}, err
	}
	toCommit, err := resolveCommit(repo, to)
	if err != nil {
		return domain.DiffSummary{}, err
	}
	if fromCommit.Hash == toCommit.Hash {
		return domain.DiffSummary{}, nil
	}
	patch, err := fromCommit.PatchContext(ctx, toCommit)
	if err != nil {
		return domain.DiffSummary{}, fmt.Errorf("failed to diff %s..%s: %w", from, to, err)
	}
	var summary domain.DiffSummary
	for _, stat := range patch.Stats() {
		summary.FilesChanged++
		summary.Insertions += stat.Addition
		summary.Deletions += stat.Deletion
	}
	return summary, nil
}

// CheckoutTag checks out the commit a tag points at (detached HEAD).
func (r *gitRepository) CheckoutTag(_ context.Context, tag string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	ref, err := repo.Tag(tag)
	if err != nil {
		return domain.NewStageError(domain.StageCheckout, domain.ErrConflict,
			fmt.Errorf("tag %s not found: %w", tag, err))
	}
	commit, _, err := peelTag(repo, ref)
	if err != nil {
		return domain.NewStageError(domain.StageCheckout, domain.ErrRepositoryState,
			fmt.Errorf("failed to resolve tag %s: %w", tag, err))
	}
	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := w.Checkout(&git.CheckoutOptions{Hash: commit.Hash, Force: true}); err != nil {
		return domain.NewStageError(domain.StageCheckout, domain.ErrRepositoryState,
			fmt.Errorf("failed to checkout %s: %w", tag, err))
	}
	return nil
}

// CreateTag creates an annotated tag at HEAD.
func (r *gitRepository) CreateTag(_ context.Context, tag, msg string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	_, err = repo.CreateTag(tag, head.Hash(), &git.CreateTagOptions{
		Message: msg,
		Tagger:  r.signature(),
	})
	if err != nil {
		return fmt.Errorf("failed to create tag %s: %w", tag, err)
	}
	return nil
}

// DeleteTag deletes a local tag.
func (r *gitRepository) DeleteTag(_ context.Context, tag string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	if err := repo.DeleteTag(tag); err != nil && !errors.Is(err, git.ErrTagNotFound) {
		return fmt.Errorf("failed to delete tag %s: %w", tag, err)
	}
	return nil
}

// PushTag pushes a tag to the remote.
func (r *gitRepository) PushTag(ctx context.Context, tag string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", tag, tag))},
		Auth:       r.getAuth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return domain.NewStageError(domain.StageTag, domain.ErrNetworkOperation,
			fmt.Errorf("failed to push tag %s: %w", tag, err))
	}
	return nil
}

// CommitAll stages every change not ignored by .gitignore and commits it.
// It refuses to commit on a detached HEAD, where PushBranch would not see
// the new commit.
func (r *gitRepository) CommitAll(_ context.Context, msg string) (bool, error) {
	repo, err := r.open()
	if err != nil {
		return false, err
	}
	head, err := repo.Head()
	if err != nil {
		return false, domain.NewStageError("", domain.ErrRepositoryState, fmt.Errorf("failed to get HEAD: %w", err))
	}
	if !head.Name().IsBranch() {
		return false, domain.NewStageError("", domain.ErrRepositoryState,
			fmt.Errorf("working copy is pinned at a tag (HEAD %s), not on branch %s", head.Hash().String()[:7], r.opts.Branch))
	}
	w, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	patterns, err := gitignore.ReadPatterns(w.Filesystem, nil)
	if err != nil {
		return false, fmt.Errorf("failed to read ignore patterns: %w", err)
	}
	w.Excludes = append(w.Excludes, patterns...)
	if err := w.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("failed to stage changes: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return false, nil
	}
	sig := r.signature()
	if _, err := w.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return false, fmt.Errorf("failed to create commit: %w", err)
	}
	return true, nil
}

// PushBranch pushes the bound branch to the remote.
func (r *gitRepository) PushBranch(ctx context.Context) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	name := r.opts.Branch
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", name, name))},
		Auth:       r.getAuth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return domain.NewStageError("", domain.ErrNetworkOperation,
			fmt.Errorf("failed to push branch %s: %w", name, err))
	}
	return nil
}
