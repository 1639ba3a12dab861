package service

import (
	"context"

	"github.com/compozy/sitepublish/internal/domain"
)

// ContentProcessor normalises raw content into the layout the site builder expects.
type ContentProcessor interface {
	Process(ctx context.Context) error
}

type commandContentProcessor struct {
	runner *CommandRunner
	dir    string
	argv   []string
}

// NewContentProcessor runs argv in dir. An empty argv yields a no-op processor.
func NewContentProcessor(runner *CommandRunner, dir string, argv []string) ContentProcessor {
	if len(argv) == 0 {
		return NewNoopContentProcessor()
	}
	return &commandContentProcessor{runner: runner, dir: dir, argv: argv}
}

func (p *commandContentProcessor) Process(ctx context.Context) error {
	if err := p.runner.Run(ctx, p.dir, nil, p.argv); err != nil {
		return domain.NewStageError(domain.StageContent, domain.ErrBuild, err)
	}
	return nil
}

type noopContentProcessor struct{}

// NewNoopContentProcessor returns a processor for content that is already in place.
func NewNoopContentProcessor() ContentProcessor {
	return noopContentProcessor{}
}

func (noopContentProcessor) Process(context.Context) error {
	return nil
}
