package domain

import (
	"time"
)

// OperationType identifies a mutating deployment operation.
type OperationType string

const (
	OperationPublish      OperationType = "publish"
	OperationRollback     OperationType = "rollback"
	OperationPreviewStart OperationType = "preview_start"
	OperationPreviewStop  OperationType = "preview_stop"
	OperationCommit       OperationType = "commit"
)

// RecordStatus represents the overall status of a deployment operation
type RecordStatus string

const (
	RecordStatusRunning    RecordStatus = "running"
	RecordStatusSucceeded  RecordStatus = "succeeded"
	RecordStatusFailed     RecordStatus = "failed"
	RecordStatusRolledBack RecordStatus = "rolled_back"
)

// StepStatus represents the status of an individual pipeline step
type StepStatus string

const (
	StepStatusRunning     StepStatus = "running"
	StepStatusCompleted   StepStatus = "completed"
	StepStatusSkipped     StepStatus = "skipped"
	StepStatusFailed      StepStatus = "failed"
	StepStatusCompensated StepStatus = "compensated"
)

// DeploymentRecord is the journal entry written for every mutating operation.
type DeploymentRecord struct {
	ID         string        `json:"id"`
	Operation  OperationType `json:"operation"`
	Status     RecordStatus  `json:"status"`
	Tag        string        `json:"tag,omitempty"`
	Message    string        `json:"message,omitempty"`
	Stage      Stage         `json:"stage,omitempty"`
	Steps      []StepRecord  `json:"steps,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt *time.Time    `json:"finishedAt,omitempty"`
}

// StepRecord represents a single step of a pipeline run
type StepRecord struct {
	Name        string     `json:"name"`
	Stage       Stage      `json:"stage"`
	Status      StepStatus `json:"status"`
	Attempts    int        `json:"attempts,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// NewDeploymentRecord creates a running record for op
func NewDeploymentRecord(id string, op OperationType) *DeploymentRecord {
	return &DeploymentRecord{
		ID:        id,
		Operation: op,
		Status:    RecordStatusRunning,
		StartedAt: time.Now(),
		Steps:     []StepRecord{},
	}
}

// StartStep appends a running step and returns its index
func (r *DeploymentRecord) StartStep(name string, stage Stage) int {
	r.Steps = append(r.Steps, StepRecord{
		Name:      name,
		Stage:     stage,
		Status:    StepStatusRunning,
		StartedAt: time.Now(),
	})
	return len(r.Steps) - 1
}

// FinishStep marks the step at idx with status and optional error
func (r *DeploymentRecord) FinishStep(idx int, status StepStatus, attempts int, err error) {
	if idx < 0 || idx >= len(r.Steps) {
		return
	}
	now := time.Now()
	r.Steps[idx].Status = status
	r.Steps[idx].Attempts = attempts
	r.Steps[idx].CompletedAt = &now
	if err != nil {
		r.Steps[idx].Error = err.Error()
	}
}

// Succeed closes the record successfully
func (r *DeploymentRecord) Succeed(message string) {
	r.close(RecordStatusSucceeded, message, "")
}

// Fail closes the record as failed at stage
func (r *DeploymentRecord) Fail(message string, stage Stage) {
	status := RecordStatusFailed
	for _, s := range r.Steps {
		if s.Status == StepStatusCompensated {
			status = RecordStatusRolledBack
			break
		}
	}
	r.close(status, message, stage)
}

func (r *DeploymentRecord) close(status RecordStatus, message string, stage Stage) {
	now := time.Now()
	r.Status = status
	r.Message = message
	r.Stage = stage
	r.FinishedAt = &now
}
