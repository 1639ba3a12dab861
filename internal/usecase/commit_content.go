package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/sitepublish/internal/repository"
)

// CommitContentUseCase records content edits on the content branch.
type CommitContentUseCase struct {
	GitRepo repository.GitRepository
	// PushTimeout bounds the branch push. Zero means no deadline.
	PushTimeout time.Duration
}

// Execute stages everything, commits and pushes. It returns false without
// pushing when there was nothing to commit.
func (uc *CommitContentUseCase) Execute(ctx context.Context, message string) (bool, error) {
	if message == "" {
		return false, fmt.Errorf("commit message cannot be empty")
	}
	committed, err := uc.GitRepo.CommitAll(ctx, message)
	if err != nil {
		return false, fmt.Errorf("failed to commit content: %w", err)
	}
	if !committed {
		return false, nil
	}
	if err := uc.push(ctx); err != nil {
		return true, fmt.Errorf("failed to push content: %w", err)
	}
	return true, nil
}

func (uc *CommitContentUseCase) push(ctx context.Context) error {
	if uc.PushTimeout <= 0 {
		return uc.GitRepo.PushBranch(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, uc.PushTimeout)
	defer cancel()
	return uc.GitRepo.PushBranch(ctx)
}
