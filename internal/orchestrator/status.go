package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/repository"
	"github.com/compozy/sitepublish/internal/usecase"
	"go.uber.org/zap"
)

// StatusInspector reports whether the working copy holds unpublished changes.
type StatusInspector struct {
	gitRepo        repository.GitRepository
	inspect        *usecase.InspectChangesUseCase
	networkTimeout time.Duration
	logger         *zap.Logger
}

// NewStatusInspector creates a new StatusInspector
func NewStatusInspector(gitRepo repository.GitRepository, networkTimeout time.Duration, logger *zap.Logger) *StatusInspector {
	return &StatusInspector{
		gitRepo:        gitRepo,
		inspect:        &usecase.InspectChangesUseCase{GitRepo: gitRepo},
		networkTimeout: networkTimeout,
		logger:         logger,
	}
}

// GetStatus never fails: problems are reported in the message with
// HasUnpublishedChanges set to false.
func (s *StatusInspector) GetStatus(ctx context.Context) domain.DeploymentStatus {
	if !s.gitRepo.Exists(ctx) {
		return domain.DeploymentStatus{Message: MsgNotInitialized}
	}
	if err := s.fetch(ctx); err != nil {
		s.logger.Warn("Status check failed", zap.Error(err))
		return domain.DeploymentStatus{Message: fmt.Sprintf(MsgStatusFailed, err)}
	}
	inspection, err := s.Inspect(ctx)
	if err != nil {
		s.logger.Warn("Status check failed", zap.Error(err))
		return domain.DeploymentStatus{Message: fmt.Sprintf(MsgStatusFailed, err)}
	}
	return StatusFromInspection(inspection)
}

// Inspect computes the current tag and change flag without fetching.
func (s *StatusInspector) Inspect(ctx context.Context) (*usecase.ChangeInspection, error) {
	inspection, err := s.inspect.Execute(ctx)
	if err != nil {
		return nil, domain.NewStageError(domain.StageStatus, domain.ErrRepositoryState, err)
	}
	return inspection, nil
}

func (s *StatusInspector) fetch(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.networkTimeout)
	defer cancel()
	return s.gitRepo.FetchTags(ctx)
}

// StatusFromInspection renders an inspection as a DeploymentStatus.
func StatusFromInspection(inspection *usecase.ChangeInspection) domain.DeploymentStatus {
	switch {
	case inspection.CurrentTag == "":
		return domain.DeploymentStatus{HasUnpublishedChanges: true, Message: MsgNoTags}
	case inspection.HasChanges:
		return domain.DeploymentStatus{
			CurrentTag:            inspection.CurrentTag,
			HasUnpublishedChanges: true,
			Message:               fmt.Sprintf(MsgUnpublished, inspection.CurrentTag),
		}
	default:
		return domain.DeploymentStatus{
			CurrentTag: inspection.CurrentTag,
			Message:    fmt.Sprintf(MsgAllPublished, inspection.CurrentTag),
		}
	}
}
