package usecase

import (
	"context"
	"fmt"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/repository"
)

// ChangeInspection describes the working copy relative to its current tag.
type ChangeInspection struct {
	// CurrentTag is the newest tag reachable from HEAD, empty when none is.
	CurrentTag string
	HasChanges bool
	Summary    domain.DiffSummary
}

// InspectChangesUseCase decides whether HEAD holds unpublished changes.
type InspectChangesUseCase struct {
	GitRepo repository.GitRepository
}

// Execute runs the use case. Tags must already be fetched.
func (uc *InspectChangesUseCase) Execute(ctx context.Context) (*ChangeInspection, error) {
	tags, err := uc.GitRepo.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	current, err := uc.currentTag(ctx, tags)
	if err != nil {
		return nil, err
	}
	if current == "" {
		return &ChangeInspection{HasChanges: true}, nil
	}
	summary, err := uc.GitRepo.DiffSummary(ctx, current, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..HEAD: %w", current, err)
	}
	return &ChangeInspection{
		CurrentTag: current,
		HasChanges: summary.HasChanges(),
		Summary:    summary,
	}, nil
}

// currentTag walks tags newest first and returns the first one HEAD contains.
func (uc *InspectChangesUseCase) currentTag(ctx context.Context, tags []domain.Tag) (string, error) {
	for i := len(tags) - 1; i >= 0; i-- {
		ok, err := uc.GitRepo.IsAncestor(ctx, tags[i].Name, "HEAD")
		if err != nil {
			return "", fmt.Errorf("failed to check tag %s against HEAD: %w", tags[i].Name, err)
		}
		if ok {
			return tags[i].Name, nil
		}
	}
	return "", nil
}
