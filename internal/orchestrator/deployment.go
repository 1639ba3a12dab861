package orchestrator

import (
	"context"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/repository"
	"github.com/compozy/sitepublish/internal/usecase"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PreviewController is the preview process lifecycle seen by the facade.
type PreviewController interface {
	Start(ctx context.Context) (domain.PublishResult, error)
	Stop(ctx context.Context) (domain.PublishResult, error)
	Status() domain.PreviewStatus
}

// Publisher runs the publish pipeline.
type Publisher interface {
	Publish(ctx context.Context, record *domain.DeploymentRecord) (*domain.PublishResult, error)
}

// RollbackRunner runs the rollback pipeline.
type RollbackRunner interface {
	Rollback(ctx context.Context, tag string, record *domain.DeploymentRecord) (*domain.RollbackResult, error)
}

// Deployment is the single entry point for every external operation.
// Mutating operations hold the deployment lock and are journaled; reads
// never take the lock. Errors come back both as a failed result, whose
// message names the stage, and as the error itself for transports that
// map kinds to status codes.
type Deployment struct {
	status    *StatusInspector
	tags      *TagLister
	preview   PreviewController
	publisher Publisher
	rollback  RollbackRunner
	commit    *usecase.CommitContentUseCase
	journal   repository.JournalRepository
	lock      *DeploymentLock
	logger    *zap.Logger
}

// DeploymentDeps groups the collaborators of a Deployment
type DeploymentDeps struct {
	Status    *StatusInspector
	Tags      *TagLister
	Preview   PreviewController
	Publisher Publisher
	Rollback  RollbackRunner
	Commit    *usecase.CommitContentUseCase
	Journal   repository.JournalRepository
	Lock      *DeploymentLock
}

// NewDeployment creates a new Deployment
func NewDeployment(deps DeploymentDeps, logger *zap.Logger) *Deployment {
	return &Deployment{
		status:    deps.Status,
		tags:      deps.Tags,
		preview:   deps.Preview,
		publisher: deps.Publisher,
		rollback:  deps.Rollback,
		commit:    deps.Commit,
		journal:   deps.Journal,
		lock:      deps.Lock,
		logger:    logger,
	}
}

// Status reports the working copy relative to its last published tag.
func (d *Deployment) Status(ctx context.Context) domain.DeploymentStatus {
	return d.status.GetStatus(ctx)
}

// ListTags lists release tags newest first.
func (d *Deployment) ListTags(ctx context.Context) domain.TagList {
	return d.tags.List(ctx)
}

// PreviewStatus reports the preview session.
func (d *Deployment) PreviewStatus() domain.PreviewStatus {
	return d.preview.Status()
}

// PreviewStart starts the preview process.
func (d *Deployment) PreviewStart(ctx context.Context) (domain.PublishResult, error) {
	return d.previewOp(ctx, domain.OperationPreviewStart, d.preview.Start)
}

// PreviewStop stops the preview process.
func (d *Deployment) PreviewStop(ctx context.Context) (domain.PublishResult, error) {
	return d.previewOp(ctx, domain.OperationPreviewStop, d.preview.Stop)
}

func (d *Deployment) previewOp(
	ctx context.Context,
	op domain.OperationType,
	fn func(context.Context) (domain.PublishResult, error),
) (domain.PublishResult, error) {
	ctx = context.WithoutCancel(ctx)
	record := d.newRecord(op)
	release, err := d.lock.Acquire(ctx)
	if err != nil {
		d.finish(ctx, record, err.Error(), "", err)
		return failedPublish(err), err
	}
	defer release()
	result, err := fn(ctx)
	if err != nil {
		d.finish(ctx, record, err.Error(), "", err)
		return failedPublish(err), err
	}
	d.finish(ctx, record, result.Message, "", nil)
	return result, nil
}

// Publish builds, deploys and, when content changed, tags the repository.
// The caller's cancellation is ignored so a dropped client cannot abort a
// half-done deploy; configured timeouts still apply.
func (d *Deployment) Publish(ctx context.Context) (domain.PublishResult, error) {
	ctx = context.WithoutCancel(ctx)
	record := d.newRecord(domain.OperationPublish)
	release, err := d.lock.Acquire(ctx)
	if err != nil {
		d.finish(ctx, record, err.Error(), "", err)
		return failedPublish(err), err
	}
	defer release()
	result, err := d.publisher.Publish(ctx, record)
	d.finish(ctx, record, result.Message, result.Tag, err)
	return *result, err
}

// Rollback replaces the working copy with a checkout of tag.
func (d *Deployment) Rollback(ctx context.Context, tag string) (domain.RollbackResult, error) {
	ctx = context.WithoutCancel(ctx)
	record := d.newRecord(domain.OperationRollback)
	release, err := d.lock.Acquire(ctx)
	if err != nil {
		d.finish(ctx, record, err.Error(), tag, err)
		return domain.RollbackResult{Message: err.Error(), Tag: tag, Stage: domain.StageOf(err)}, err
	}
	defer release()
	result, err := d.rollback.Rollback(ctx, tag, record)
	d.finish(ctx, record, result.Message, tag, err)
	return *result, err
}

// Commit records content edits on the content branch. It reports false
// when there was nothing to commit.
func (d *Deployment) Commit(ctx context.Context, message string) (bool, error) {
	ctx = context.WithoutCancel(ctx)
	record := d.newRecord(domain.OperationCommit)
	release, err := d.lock.Acquire(ctx)
	if err != nil {
		d.finish(ctx, record, err.Error(), "", err)
		return false, err
	}
	defer release()
	committed, err := d.commit.Execute(ctx, message)
	switch {
	case err != nil:
		d.finish(ctx, record, err.Error(), "", err)
	case !committed:
		d.finish(ctx, record, "No changes to commit", "", nil)
	default:
		d.finish(ctx, record, message, "", nil)
	}
	return committed, err
}

// History returns up to limit journal records, newest first.
func (d *Deployment) History(ctx context.Context, limit int) ([]*domain.DeploymentRecord, error) {
	return d.journal.List(ctx, limit)
}

func (d *Deployment) newRecord(op domain.OperationType) *domain.DeploymentRecord {
	return domain.NewDeploymentRecord(uuid.New().String(), op)
}

// finish closes and journals record. Journal failures are logged only.
func (d *Deployment) finish(ctx context.Context, record *domain.DeploymentRecord, message, tag string, err error) {
	if tag != "" {
		record.Tag = tag
	}
	if err != nil {
		record.Fail(message, domain.StageOf(err))
		d.logger.Error("Operation failed",
			zap.String("operation", string(record.Operation)),
			zap.String("id", record.ID),
			zap.Error(err),
		)
	} else {
		record.Succeed(message)
		d.logger.Info("Operation succeeded",
			zap.String("operation", string(record.Operation)),
			zap.String("id", record.ID),
			zap.String("message", message),
		)
	}
	if d.journal == nil {
		return
	}
	if jerr := d.journal.Append(ctx, record); jerr != nil {
		d.logger.Warn("Failed to append journal record", zap.String("id", record.ID), zap.Error(jerr))
	}
}

func failedPublish(err error) domain.PublishResult {
	return domain.PublishResult{Message: err.Error(), Stage: domain.StageOf(err)}
}
