package cmd

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/compozy/sitepublish/internal/config"
	"github.com/compozy/sitepublish/internal/logger"
	"github.com/compozy/sitepublish/internal/orchestrator"
	"github.com/compozy/sitepublish/internal/preview"
	"github.com/compozy/sitepublish/internal/repository"
	"github.com/compozy/sitepublish/internal/server"
	"github.com/compozy/sitepublish/internal/service"
	"github.com/compozy/sitepublish/internal/usecase"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var _ server.Deployment = (*orchestrator.Deployment)(nil)

// container holds all the dependencies for the application.
type container struct {
	cfg    *config.Config
	logger *zap.Logger

	fsRepo      repository.FileSystemRepository
	gitRepo     repository.GitRepository
	releaseRepo repository.ReleaseRepository
	journalRepo repository.JournalRepository
	preview     *preview.Manager
	deployment  *orchestrator.Deployment
}

// newContainer creates a new container with all the dependencies.
func newContainer() (*container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)

	fsRepo := repository.FileSystemRepository(afero.NewOsFs())
	gitRepo := repository.NewGitRepository(repository.GitOptions{
		Dir:            cfg.RepoPath,
		RemoteURL:      cfg.RepoURL,
		Branch:         cfg.Branch,
		Token:          cfg.GithubToken,
		CommitterName:  cfg.CommitterName,
		CommitterEmail: cfg.CommitterEmail,
	})

	// Release notes are optional and need a GitHub remote
	releaseRepo := repository.NewGithubNoopRepository()
	if cfg.GithubRelease {
		owner, repo, err := repository.ParseGitHubRemote(cfg.RepoURL)
		if err != nil {
			return nil, fmt.Errorf("github_release requires a GitHub repo_url: %w", err)
		}
		releaseRepo, err = repository.NewGithubRepository(cfg.GithubToken, owner, repo)
		if err != nil {
			return nil, err
		}
	}
	journalRepo := repository.NewJSONJournalRepository(fsRepo, cfg.StateDir)

	runner := service.NewCommandRunner(log, cfg.CommandTimeout)
	content := service.NewContentProcessor(runner, filepath.Join(cfg.RepoPath, cfg.ContentDir), cfg.ContentCommand)
	siteDir := resolveSiteDir(cfg)
	build := service.NewBuildService(fsRepo, runner, service.BuildOptions{
		SiteDir:   siteDir,
		Command:   cfg.BuildCommand,
		OutputDir: cfg.BuildOutputDir,
		CacheDirs: cfg.BuildCacheDirs,
	}, log)
	deploy := service.NewDeployService(fsRepo, service.DeployOptions{
		RemoteURL:      cfg.DeployRemoteURL(),
		Branch:         cfg.PublishBranch,
		Token:          cfg.GithubToken,
		CommitterName:  cfg.CommitterName,
		CommitterEmail: cfg.CommitterEmail,
		Timeout:        cfg.NetworkTimeout,
	}, log)
	previewManager := preview.NewManager(preview.Options{
		SiteDir: siteDir,
		Command: cfg.PreviewCommand,
		Port:    cfg.PreviewPort,
		URL:     cfg.PreviewURL,
	}, content, log.Named("preview"))

	retry := orchestrator.RetryPolicy{Count: cfg.RetryCount, Delay: cfg.RetryDelay}
	deployment := orchestrator.NewDeployment(orchestrator.DeploymentDeps{
		Status:  orchestrator.NewStatusInspector(gitRepo, cfg.NetworkTimeout, log),
		Tags:    orchestrator.NewTagLister(gitRepo, cfg.NetworkTimeout, log),
		Preview: previewManager,
		Publisher: orchestrator.NewPublishOrchestrator(gitRepo, content, build, deploy, releaseRepo,
			orchestrator.PublishOptions{NetworkTimeout: cfg.NetworkTimeout, Retry: retry}, log.Named("publish")),
		Rollback: orchestrator.NewRollbackOrchestrator(gitRepo, fsRepo,
			orchestrator.RollbackOptions{NetworkTimeout: cfg.NetworkTimeout, Retry: retry}, log.Named("rollback")),
		Commit:  &usecase.CommitContentUseCase{GitRepo: gitRepo, PushTimeout: cfg.NetworkTimeout},
		Journal: journalRepo,
		Lock:    orchestrator.NewDeploymentLock(cfg.StateDir, cfg.LockWait),
	}, log)

	return &container{
		cfg:         cfg,
		logger:      log,
		fsRepo:      fsRepo,
		gitRepo:     gitRepo,
		releaseRepo: releaseRepo,
		journalRepo: journalRepo,
		preview:     previewManager,
		deployment:  deployment,
	}, nil
}

// resolveSiteDir anchors a relative site_dir at the repository path.
func resolveSiteDir(cfg *config.Config) string {
	if filepath.IsAbs(cfg.SiteDir) {
		return cfg.SiteDir
	}
	return filepath.Join(cfg.RepoPath, cfg.SiteDir)
}

// lazyContainer builds the container on first use so commands that need
// no configuration, like version, run without it.
type lazyContainer struct {
	once sync.Once
	c    *container
	err  error
}

func (l *lazyContainer) get() (*container, error) {
	l.once.Do(func() {
		l.c, l.err = newContainer()
	})
	return l.c, l.err
}

func (l *lazyContainer) sync() {
	if l.c != nil {
		_ = l.c.logger.Sync()
	}
}

// InitCommands initializes all commands with their dependencies
func InitCommands() error {
	deps := &lazyContainer{}
	rootCmd.PersistentPostRun = func(_ *cobra.Command, _ []string) { deps.sync() }
	rootCmd.AddCommand(
		newServeCmd(deps),
		newStatusCmd(deps),
		newTagsCmd(deps),
		newPublishCmd(deps),
		newRollbackCmd(deps),
		newPreviewCmd(deps),
		newHistoryCmd(deps),
		newCommitCmd(deps),
		newVersionCmd(),
	)
	return nil
}
