package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/repository"
	"github.com/compozy/sitepublish/internal/service"
	"github.com/compozy/sitepublish/internal/usecase"
	"go.uber.org/zap"
)

// PublishOptions tunes the publish pipeline
type PublishOptions struct {
	NetworkTimeout time.Duration
	Retry          RetryPolicy
	DeployEnv      string
}

// PublishOrchestrator builds, deploys and tags the content repository.
type PublishOrchestrator struct {
	gitRepo   repository.GitRepository
	status    *StatusInspector
	content   service.ContentProcessor
	build     service.BuildService
	deploy    service.DeployService
	releases  repository.ReleaseRepository
	nextTag   *usecase.NextTagUseCase
	createTag *usecase.CreateReleaseTagUseCase
	opts      PublishOptions
	logger    *zap.Logger
}

// NewPublishOrchestrator creates a new PublishOrchestrator. A nil releases
// repository disables release notes.
func NewPublishOrchestrator(
	gitRepo repository.GitRepository,
	content service.ContentProcessor,
	build service.BuildService,
	deploy service.DeployService,
	releases repository.ReleaseRepository,
	opts PublishOptions,
	logger *zap.Logger,
) *PublishOrchestrator {
	if releases == nil {
		releases = repository.NewGithubNoopRepository()
	}
	if opts.DeployEnv == "" {
		opts.DeployEnv = "production"
	}
	return &PublishOrchestrator{
		gitRepo:   gitRepo,
		status:    NewStatusInspector(gitRepo, opts.NetworkTimeout, logger),
		content:   content,
		build:     build,
		deploy:    deploy,
		releases:  releases,
		nextTag:   &usecase.NextTagUseCase{GitRepo: gitRepo},
		createTag: &usecase.CreateReleaseTagUseCase{GitRepo: gitRepo},
		opts:      opts,
		logger:    logger,
	}
}

// publishRun carries values between the steps of one publish
type publishRun struct {
	inspection *usecase.ChangeInspection
	outputDir  string
	newTag     string
}

// Publish runs the pipeline. The tag step runs last so a tag never names
// a commit that failed to build or deploy.
func (o *PublishOrchestrator) Publish(ctx context.Context, record *domain.DeploymentRecord) (*domain.PublishResult, error) {
	run := &publishRun{}
	pipeline := NewPipeline(record, o.opts.Retry, o.logger)
	pipeline.AddStep(PipelineStep{
		Name:      "Clone repository",
		Stage:     domain.StageSync,
		Retryable: true,
		Skip:      func() bool { return o.gitRepo.Exists(ctx) },
		Execute: func(ctx context.Context) error {
			return o.withNetworkTimeout(ctx, o.gitRepo.Clone)
		},
	})
	pipeline.AddStep(PipelineStep{
		Name:      "Fetch tags",
		Stage:     domain.StageFetch,
		Retryable: true,
		Execute: func(ctx context.Context) error {
			return o.withNetworkTimeout(ctx, o.gitRepo.FetchTags)
		},
	})
	pipeline.AddStep(PipelineStep{
		Name:  "Inspect changes",
		Stage: domain.StageStatus,
		Execute: func(ctx context.Context) error {
			inspection, err := o.status.Inspect(ctx)
			if err != nil {
				return err
			}
			run.inspection = inspection
			return nil
		},
	})
	pipeline.AddStep(PipelineStep{
		Name:  "Process content",
		Stage: domain.StageContent,
		Execute: func(ctx context.Context) error {
			return o.content.Process(ctx)
		},
	})
	pipeline.AddStep(PipelineStep{
		Name:  "Build site",
		Stage: domain.StageBuild,
		Execute: func(ctx context.Context) error {
			outputDir, err := o.build.Build(ctx)
			if err != nil {
				return err
			}
			run.outputDir = outputDir
			return nil
		},
	})
	pipeline.AddStep(PipelineStep{
		Name:      "Deploy site",
		Stage:     domain.StageDeploy,
		Retryable: true,
		Execute: func(ctx context.Context) error {
			return o.deploy.Deploy(ctx, run.outputDir, service.DeployMessage(o.opts.DeployEnv, time.Now()))
		},
	})
	pipeline.AddStep(PipelineStep{
		Name:  "Create release tag",
		Stage: domain.StageTag,
		Skip:  func() bool { return !run.inspection.HasChanges },
		Execute: func(ctx context.Context) error {
			next, err := o.nextTag.Execute(ctx)
			if err != nil {
				return err
			}
			if err := o.withNetworkTimeout(ctx, func(ctx context.Context) error {
				return o.createTag.Execute(ctx, next)
			}); err != nil {
				return err
			}
			run.newTag = next
			return nil
		},
	})
	pipeline.AddStep(PipelineStep{
		Name:  "Publish release notes",
		Stage: domain.StageNotify,
		Skip:  func() bool { return run.newTag == "" },
		Execute: func(ctx context.Context) error {
			o.notify(ctx, run)
			return nil
		},
	})
	if err := pipeline.Execute(ctx); err != nil {
		return &domain.PublishResult{
			Success: false,
			Message: fmt.Sprintf(MsgPublishFailed, err),
			Stage:   domain.StageOf(err),
		}, err
	}
	if run.newTag != "" {
		return &domain.PublishResult{Success: true, Message: fmt.Sprintf(MsgPublishedNewTag, run.newTag), Tag: run.newTag}, nil
	}
	current := run.inspection.CurrentTag
	return &domain.PublishResult{Success: true, Message: fmt.Sprintf(MsgPublishedReused, current), Tag: current}, nil
}

func (o *PublishOrchestrator) notify(ctx context.Context, run *publishRun) {
	ctx, cancel := withTimeout(ctx, o.opts.NetworkTimeout)
	defer cancel()
	release := domain.Release{Tag: run.newTag, Summary: run.inspection.Summary}
	url, err := o.releases.CreateRelease(ctx, release)
	switch {
	case errors.Is(err, repository.ErrReleaseNotifierDisabled):
	case err != nil:
		o.logger.Warn("Failed to publish release notes", zap.String("tag", run.newTag), zap.Error(err))
	default:
		o.logger.Info("Published release notes", zap.String("tag", run.newTag), zap.String("url", url))
	}
}

func (o *PublishOrchestrator) withNetworkTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := withTimeout(ctx, o.opts.NetworkTimeout)
	defer cancel()
	return fn(ctx)
}
