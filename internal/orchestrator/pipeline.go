package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// PipelineStep represents a single step in a deployment pipeline
type PipelineStep struct {
	Name  string
	Stage domain.Stage
	// Retryable steps are retried when they fail with a network error.
	Retryable bool
	// Skip is evaluated right before the step would run.
	Skip       func() bool
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// RetryPolicy bounds retries of retryable steps and compensations
type RetryPolicy struct {
	Count uint64
	Delay time.Duration
}

func (p RetryPolicy) backoff() retry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return retry.WithMaxRetries(p.Count, retry.NewExponential(delay))
}

type executedStep struct {
	record int
	step   *PipelineStep
}

// Pipeline runs steps in order and compensates completed steps in reverse
// order when one fails. Every step is tracked in the deployment record.
type Pipeline struct {
	record   *domain.DeploymentRecord
	steps    []PipelineStep
	executed []executedStep
	retry    RetryPolicy
	logger   *zap.Logger
}

// NewPipeline creates a new pipeline writing its progress to record
func NewPipeline(record *domain.DeploymentRecord, policy RetryPolicy, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		record: record,
		steps:  []PipelineStep{},
		retry:  policy,
		logger: logger.With(zap.String("operation", string(record.Operation)), zap.String("id", record.ID)),
	}
}

// AddStep adds a step to the pipeline
func (p *Pipeline) AddStep(step PipelineStep) {
	p.steps = append(p.steps, step)
}

// Execute runs the pipeline. The returned error always names the failed stage.
func (p *Pipeline) Execute(ctx context.Context) error {
	for i := range p.steps {
		step := &p.steps[i]
		idx := p.record.StartStep(step.Name, step.Stage)
		if step.Skip != nil && step.Skip() {
			p.record.FinishStep(idx, domain.StepStatusSkipped, 0, nil)
			p.logger.Debug("Skipping step", zap.String("step", step.Name))
			continue
		}
		p.logger.Info("Running step", zap.String("step", step.Name))
		attempts, err := p.executeStep(ctx, step)
		if err != nil {
			p.record.FinishStep(idx, domain.StepStatusFailed, attempts, err)
			if domain.StageOf(err) == "" {
				err = domain.NewStageError(step.Stage, nil, err)
			}
			p.logger.Error("Step failed", zap.String("step", step.Name), zap.Error(err))
			// Compensations must finish even when the caller has gone away
			rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
			rollbackErr := p.rollback(rollbackCtx)
			cancel()
			if rollbackErr != nil {
				return fmt.Errorf("%w (rollback also failed: %v)", err, rollbackErr)
			}
			return err
		}
		p.record.FinishStep(idx, domain.StepStatusCompleted, attempts, nil)
		p.executed = append(p.executed, executedStep{record: idx, step: step})
	}
	return nil
}

// executeStep executes a single step, retrying network failures of retryable steps
func (p *Pipeline) executeStep(ctx context.Context, step *PipelineStep) (int, error) {
	attempts := 0
	err := retry.Do(ctx, p.retry.backoff(), func(retryCtx context.Context) error {
		attempts++
		execErr := step.Execute(retryCtx)
		if execErr == nil {
			return nil
		}
		if step.Retryable && errors.Is(execErr, domain.ErrNetworkOperation) {
			p.logger.Warn("Retrying step", zap.String("step", step.Name), zap.Int("attempt", attempts), zap.Error(execErr))
			return retry.RetryableError(execErr)
		}
		return execErr
	})
	return attempts, err
}

// rollback executes compensating actions for completed steps, newest first
func (p *Pipeline) rollback(ctx context.Context) error {
	var errs []error
	for i := len(p.executed) - 1; i >= 0; i-- {
		done := p.executed[i]
		if done.step.Compensate == nil {
			continue
		}
		p.logger.Info("Compensating step", zap.String("step", done.step.Name))
		err := retry.Do(ctx, p.retry.backoff(), func(retryCtx context.Context) error {
			if err := done.step.Compensate(retryCtx); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			p.logger.Error("Compensation failed", zap.String("step", done.step.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("compensation for %s failed: %w", done.step.Name, err))
			continue
		}
		p.record.FinishStep(done.record, domain.StepStatusCompensated, 0, nil)
	}
	return errors.Join(errs...)
}
