package usecase

import (
	"context"
	"fmt"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/repository"
)

// NextTagUseCase computes the tag the next publish will create.
type NextTagUseCase struct {
	GitRepo repository.GitRepository
}

// Execute runs the use case over every local tag in creation order.
func (uc *NextTagUseCase) Execute(ctx context.Context) (string, error) {
	tags, err := uc.GitRepo.ListTags(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list tags: %w", err)
	}
	next, err := domain.NextTag(domain.TagNames(tags))
	if err != nil {
		return "", domain.NewStageError(domain.StageTag, domain.ErrMalformedTag, err)
	}
	return next, nil
}
