package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// BuildService produces the static site.
type BuildService interface {
	// Build returns the absolute path of the build output directory.
	Build(ctx context.Context) (string, error)
}

// BuildOptions describes how the site is built.
type BuildOptions struct {
	SiteDir   string
	Command   []string
	OutputDir string
	CacheDirs []string
	DeployEnv string
}

type buildService struct {
	fs     afero.Fs
	runner *CommandRunner
	opts   BuildOptions
	logger *zap.Logger
}

// NewBuildService creates a new BuildService.
func NewBuildService(fs afero.Fs, runner *CommandRunner, opts BuildOptions, logger *zap.Logger) BuildService {
	if opts.DeployEnv == "" {
		opts.DeployEnv = "production"
	}
	return &buildService{fs: fs, runner: runner, opts: opts, logger: logger}
}

// ValidateSiteSubdir accepts only relative paths that name a directory strictly
// inside the site directory, since the build removes them.
func ValidateSiteSubdir(dir string) error {
	if !filepath.IsLocal(dir) || filepath.Clean(dir) == "." {
		return fmt.Errorf("%q must be a relative path inside the site directory", dir)
	}
	return nil
}

func (s *buildService) Build(ctx context.Context) (string, error) {
	siteDir, err := filepath.Abs(s.opts.SiteDir)
	if err != nil {
		return "", domain.NewStageError(domain.StageBuild, domain.ErrConfiguration,
			fmt.Errorf("failed to resolve site directory: %w", err))
	}
	outputDir := filepath.Join(siteDir, s.opts.OutputDir)
	cleaned := append([]string{s.opts.OutputDir}, s.opts.CacheDirs...)
	for _, dir := range cleaned {
		if err := ValidateSiteSubdir(dir); err != nil {
			return "", domain.NewStageError(domain.StageBuild, domain.ErrConfiguration, err)
		}
	}
	for _, dir := range cleaned {
		target := filepath.Join(siteDir, dir)
		if err := s.fs.RemoveAll(target); err != nil {
			return "", domain.NewStageError(domain.StageBuild, domain.ErrBuild,
				fmt.Errorf("failed to clean %s: %w", target, err))
		}
	}
	s.logger.Info("Building site", zap.String("site_dir", siteDir), zap.Strings("command", s.opts.Command))
	env := []string{DeployEnvVar + "=" + s.opts.DeployEnv}
	if err := s.runner.Run(ctx, siteDir, env, s.opts.Command); err != nil {
		return "", domain.NewStageError(domain.StageBuild, domain.ErrBuild, err)
	}
	info, err := s.fs.Stat(outputDir)
	if err != nil || !info.IsDir() {
		if err == nil || os.IsNotExist(err) {
			err = fmt.Errorf("build output directory %s was not produced", outputDir)
		}
		return "", domain.NewStageError(domain.StageBuild, domain.ErrBuild, err)
	}
	if err := afero.WriteFile(s.fs, filepath.Join(outputDir, NoJekyllFile), nil, 0o644); err != nil {
		return "", domain.NewStageError(domain.StageBuild, domain.ErrBuild,
			fmt.Errorf("failed to write %s: %w", NoJekyllFile, err))
	}
	return outputDir, nil
}
