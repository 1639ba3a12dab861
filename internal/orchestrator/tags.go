package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/repository"
	"go.uber.org/zap"
)

// TagLister lists release tags newest first. It prefers the local
// repository, where creation dates are known, and falls back to listing
// the remote refs.
type TagLister struct {
	gitRepo        repository.GitRepository
	networkTimeout time.Duration
	logger         *zap.Logger
}

// NewTagLister creates a new TagLister
func NewTagLister(gitRepo repository.GitRepository, networkTimeout time.Duration, logger *zap.Logger) *TagLister {
	return &TagLister{gitRepo: gitRepo, networkTimeout: networkTimeout, logger: logger}
}

// List never fails; when both tiers fail the message carries the errors.
func (l *TagLister) List(ctx context.Context) domain.TagList {
	local, localErr := l.listLocal(ctx)
	if localErr == nil {
		l.logger.Debug("Listed tags", zap.String("source", string(domain.TagSourceLocal)), zap.Int("count", len(local)))
		return domain.TagList{Tags: local, Source: domain.TagSourceLocal}
	}
	l.logger.Info("Local tag listing failed, listing remote", zap.Error(localErr))
	remote, remoteErr := l.listRemote(ctx)
	if remoteErr == nil {
		l.logger.Debug("Listed tags", zap.String("source", string(domain.TagSourceRemote)), zap.Int("count", len(remote)))
		return domain.TagList{Tags: remote, Source: domain.TagSourceRemote}
	}
	err := errors.Join(localErr, remoteErr)
	l.logger.Warn("Tag listing failed", zap.Error(err))
	return domain.TagList{Tags: []string{}, Message: fmt.Sprintf(MsgTagsUnavailable, err)}
}

func (l *TagLister) listLocal(ctx context.Context) ([]string, error) {
	if !l.gitRepo.Exists(ctx) {
		return nil, errors.New(MsgRepositoryAbsent)
	}
	fetchCtx, cancel := withTimeout(ctx, l.networkTimeout)
	defer cancel()
	if err := l.gitRepo.FetchTags(fetchCtx); err != nil {
		return nil, err
	}
	tags, err := l.gitRepo.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Reversed(domain.TagNames(tags)), nil
}

func (l *TagLister) listRemote(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, l.networkTimeout)
	defer cancel()
	names, err := l.gitRepo.RemoteTags(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortNamesBySemver(names)
	return domain.Reversed(names), nil
}
