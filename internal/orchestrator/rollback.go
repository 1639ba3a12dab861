package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/repository"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// RollbackOptions tunes the rollback pipeline
type RollbackOptions struct {
	NetworkTimeout time.Duration
	Retry          RetryPolicy
}

// RollbackOrchestrator replaces the working copy with a checkout of a tag.
// The tag is validated against the remote before anything is touched and
// the replacement is staged next to the repository, so a failure leaves
// either the previous working copy or a complete new one.
type RollbackOrchestrator struct {
	gitRepo repository.GitRepository
	fs      afero.Fs
	opts    RollbackOptions
	logger  *zap.Logger
}

// NewRollbackOrchestrator creates a new RollbackOrchestrator
func NewRollbackOrchestrator(
	gitRepo repository.GitRepository,
	fs afero.Fs,
	opts RollbackOptions,
	logger *zap.Logger,
) *RollbackOrchestrator {
	return &RollbackOrchestrator{gitRepo: gitRepo, fs: fs, opts: opts, logger: logger}
}

// Rollback checks out tag in a fresh clone and swaps it into place.
func (o *RollbackOrchestrator) Rollback(
	ctx context.Context,
	tag string,
	record *domain.DeploymentRecord,
) (*domain.RollbackResult, error) {
	repoDir := o.gitRepo.Dir()
	session := uuid.New().String()
	stagingDir := fmt.Sprintf("%s.rollback-%s", repoDir, session)
	backupDir := fmt.Sprintf("%s.backup-%s", repoDir, session)
	staged := o.gitRepo.At(stagingDir)
	record.Tag = tag

	pipeline := NewPipeline(record, o.opts.Retry, o.logger)
	pipeline.AddStep(PipelineStep{
		Name:      "Validate tag",
		Stage:     domain.StageValidate,
		Retryable: true,
		Execute: func(ctx context.Context) error {
			return o.validate(ctx, tag)
		},
	})
	pipeline.AddStep(PipelineStep{
		Name:      "Clone into staging",
		Stage:     domain.StageClone,
		Retryable: true,
		Execute: func(ctx context.Context) error {
			if err := o.fs.RemoveAll(stagingDir); err != nil {
				return fmt.Errorf("failed to clear staging directory: %w", err)
			}
			ctx, cancel := withTimeout(ctx, o.opts.NetworkTimeout)
			defer cancel()
			return staged.Clone(ctx)
		},
		Compensate: func(_ context.Context) error {
			return o.fs.RemoveAll(stagingDir)
		},
	})
	pipeline.AddStep(PipelineStep{
		Name:  "Checkout tag",
		Stage: domain.StageCheckout,
		Execute: func(ctx context.Context) error {
			exists, err := staged.TagExists(ctx, tag)
			if err != nil {
				return domain.NewStageError(domain.StageCheckout, domain.ErrRepositoryState, err)
			}
			if !exists {
				return domain.NewStageError(domain.StageCheckout, domain.ErrConflict,
					fmt.Errorf("tag %s not found in fresh clone", tag))
			}
			return staged.CheckoutTag(ctx, tag)
		},
	})
	pipeline.AddStep(PipelineStep{
		Name:  "Swap working copy",
		Stage: domain.StageSwap,
		Execute: func(_ context.Context) error {
			return o.swap(repoDir, stagingDir, backupDir)
		},
	})
	if err := pipeline.Execute(ctx); err != nil {
		return &domain.RollbackResult{
			Success: false,
			Message: fmt.Sprintf(MsgRollbackFailed, err),
			Tag:     tag,
			Stage:   domain.StageOf(err),
		}, err
	}
	return &domain.RollbackResult{Success: true, Message: fmt.Sprintf(MsgRolledBack, tag), Tag: tag}, nil
}

func (o *RollbackOrchestrator) validate(ctx context.Context, tag string) error {
	if err := ValidateTagName(tag); err != nil {
		return domain.NewStageError(domain.StageValidate, domain.ErrConflict, err)
	}
	ctx, cancel := withTimeout(ctx, o.opts.NetworkTimeout)
	defer cancel()
	names, err := o.gitRepo.RemoteTags(ctx)
	if err != nil {
		return domain.NewStageError(domain.StageValidate, domain.ErrNetworkOperation, err)
	}
	if !slices.Contains(names, tag) {
		return domain.NewStageError(domain.StageValidate, domain.ErrConflict,
			fmt.Errorf("tag %s does not exist on the remote", tag))
	}
	return nil
}

// swap moves the current working copy aside, moves the staged clone into
// place and drops the old copy. A failed move restores the old copy.
func (o *RollbackOrchestrator) swap(repoDir, stagingDir, backupDir string) error {
	hadRepo := true
	if _, err := o.fs.Stat(repoDir); err != nil {
		if !os.IsNotExist(err) {
			return domain.NewStageError(domain.StageSwap, domain.ErrRepositoryState, err)
		}
		hadRepo = false
	}
	if hadRepo {
		if err := o.fs.Rename(repoDir, backupDir); err != nil {
			return domain.NewStageError(domain.StageSwap, domain.ErrRepositoryState,
				fmt.Errorf("failed to move working copy aside: %w", err))
		}
	}
	if err := o.fs.Rename(stagingDir, repoDir); err != nil {
		err = fmt.Errorf("failed to move staged clone into place: %w", err)
		if hadRepo {
			if restoreErr := o.fs.Rename(backupDir, repoDir); restoreErr != nil {
				err = errors.Join(err, fmt.Errorf("failed to restore working copy: %w", restoreErr))
			}
		}
		return domain.NewStageError(domain.StageSwap, domain.ErrRepositoryState, err)
	}
	if hadRepo {
		if err := o.fs.RemoveAll(backupDir); err != nil {
			o.logger.Warn("Failed to remove previous working copy", zap.String("path", backupDir), zap.Error(err))
		}
	}
	return nil
}
