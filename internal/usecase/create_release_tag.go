package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/repository"
)

// CreateReleaseTagUseCase creates an annotated release tag at HEAD and pushes it.
type CreateReleaseTagUseCase struct {
	GitRepo repository.GitRepository
}

// Execute runs the use case. A tag that could not be pushed is deleted
// locally so the working copy never claims an unpublished version.
func (uc *CreateReleaseTagUseCase) Execute(ctx context.Context, tag string) error {
	if err := uc.GitRepo.CreateTag(ctx, tag, "Release "+tag); err != nil {
		return domain.NewStageError(domain.StageTag, domain.ErrRepositoryState, err)
	}
	if err := uc.GitRepo.PushTag(ctx, tag); err != nil {
		if delErr := uc.GitRepo.DeleteTag(context.WithoutCancel(ctx), tag); delErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to remove unpushed tag: %w", delErr))
		}
		return domain.NewStageError(domain.StageTag, domain.ErrNetworkOperation, err)
	}
	return nil
}
