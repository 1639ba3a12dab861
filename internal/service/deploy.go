package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/repository"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DeployService publishes a build output directory to the hosting branch.
type DeployService interface {
	Deploy(ctx context.Context, outputDir, message string) error
}

// DeployOptions names the publish remote, branch and identity.
type DeployOptions struct {
	RemoteURL      string
	Branch         string
	Token          string
	CommitterName  string
	CommitterEmail string
	Timeout        time.Duration
}

type deployService struct {
	fs     afero.Fs
	opts   DeployOptions
	logger *zap.Logger
}

// NewDeployService creates a new DeployService.
func NewDeployService(fs afero.Fs, opts DeployOptions, logger *zap.Logger) DeployService {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultNetworkTimeout
	}
	return &deployService{fs: fs, opts: opts, logger: logger}
}

// Deploy turns outputDir into a one-commit repository on the publish branch
// and force pushes it, replacing whatever the branch held before.
func (s *deployService) Deploy(ctx context.Context, outputDir, message string) error {
	if err := s.fs.RemoveAll(filepath.Join(outputDir, git.GitDirName)); err != nil {
		return domain.NewStageError(domain.StageDeploy, domain.ErrRepositoryState,
			fmt.Errorf("failed to reset output repository: %w", err))
	}
	branch := plumbing.NewBranchReferenceName(s.opts.Branch)
	repo, err := git.PlainInitWithOptions(outputDir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: branch},
	})
	if err != nil {
		return domain.NewStageError(domain.StageDeploy, domain.ErrRepositoryState,
			fmt.Errorf("failed to initialise output repository: %w", err))
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{s.opts.RemoteURL}}); err != nil {
		return domain.NewStageError(domain.StageDeploy, domain.ErrRepositoryState,
			fmt.Errorf("failed to add publish remote: %w", err))
	}
	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := w.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return domain.NewStageError(domain.StageDeploy, domain.ErrRepositoryState,
			fmt.Errorf("failed to stage build output: %w", err))
	}
	sig := &object.Signature{Name: s.opts.CommitterName, Email: s.opts.CommitterEmail, When: time.Now()}
	hash, err := w.Commit(message, &git.CommitOptions{Author: sig, Committer: sig, AllowEmptyCommits: true})
	if err != nil {
		return domain.NewStageError(domain.StageDeploy, domain.ErrRepositoryState,
			fmt.Errorf("failed to commit build output: %w", err))
	}
	pushCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	refSpec := config.RefSpec(fmt.Sprintf("+%s:%s", branch, branch))
	err = repo.PushContext(pushCtx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       repository.RemoteAuth(s.opts.RemoteURL, s.opts.Token),
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return domain.NewStageError(domain.StageDeploy, domain.ErrNetworkOperation,
			fmt.Errorf("failed to push %s: %w", s.opts.Branch, err))
	}
	s.logger.Info("Deployed build output",
		zap.String("branch", s.opts.Branch),
		zap.String("commit", hash.String()),
	)
	return nil
}

// DeployMessage builds the publish branch commit message.
func DeployMessage(env string, now time.Time) string {
	return fmt.Sprintf("Deploy site - %s - %s", env, now.UTC().Format(time.RFC3339))
}
