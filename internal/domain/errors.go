package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Stage errors carry one of these so callers can branch with errors.Is.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrRepositoryState  = errors.New("repository state error")
	ErrNetworkOperation = errors.New("network operation error")
	ErrBuild            = errors.New("build error")
	ErrConflict         = errors.New("conflict")
	ErrMalformedTag     = errors.New("malformed tag")
)

// Stage identifies the step of an operation that failed.
type Stage string

const (
	StageLock     Stage = "lock"
	StageSync     Stage = "sync"
	StageFetch    Stage = "fetch"
	StageStatus   Stage = "status"
	StageContent  Stage = "content"
	StageBuild    Stage = "build"
	StageDeploy   Stage = "deploy"
	StageTag      Stage = "tag"
	StageNotify   Stage = "notify"
	StageValidate Stage = "validate"
	StageClone    Stage = "clone"
	StageCheckout Stage = "checkout"
	StageSwap     Stage = "swap"
	StagePreview  Stage = "preview"
)

// MalformedTagError is returned when a tag cannot be parsed as vMAJOR.MINOR.PATCH.
type MalformedTagError struct {
	Tag string
	Err error
}

func (e *MalformedTagError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed tag %q: %v", e.Tag, e.Err)
	}
	return fmt.Sprintf("malformed tag %q: expected vMAJOR.MINOR.PATCH", e.Tag)
}

func (e *MalformedTagError) Is(target error) bool {
	return target == ErrMalformedTag
}

func (e *MalformedTagError) Unwrap() error {
	return e.Err
}

// StageError ties a failure to the stage that produced it and to an error kind.
type StageError struct {
	Stage Stage
	Kind  error
	Err   error
}

// NewStageError wraps err with stage and kind. A nil err yields nil.
func NewStageError(stage Stage, kind, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// StageOf returns the outermost non-empty stage recorded in err, or "".
func StageOf(err error) Stage {
	for err != nil {
		var stageErr *StageError
		if !errors.As(err, &stageErr) {
			return ""
		}
		if stageErr.Stage != "" {
			return stageErr.Stage
		}
		err = stageErr.Err
	}
	return ""
}
