package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/preview"
	"github.com/compozy/sitepublish/internal/repository"
	"github.com/compozy/sitepublish/internal/service"
	"github.com/compozy/sitepublish/internal/testutil"
	"github.com/compozy/sitepublish/internal/usecase"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type deploymentMocks struct {
	publisher *mockPublisher
	rollback  *mockRollbackRunner
	preview   *mockPreviewController
	journal   *mockJournalRepository
	lock      *DeploymentLock
}

func newDeploymentMocks(t *testing.T) (*deploymentMocks, *Deployment) {
	m := &deploymentMocks{
		publisher: new(mockPublisher),
		rollback:  new(mockRollbackRunner),
		preview:   new(mockPreviewController),
		journal:   new(mockJournalRepository),
		lock:      NewDeploymentLock("", 0),
	}
	deployment := NewDeployment(DeploymentDeps{
		Preview:   m.preview,
		Publisher: m.publisher,
		Rollback:  m.rollback,
		Journal:   m.journal,
		Lock:      m.lock,
	}, zaptest.NewLogger(t))
	return m, deployment
}

func journaled(op domain.OperationType, status domain.RecordStatus) any {
	return mock.MatchedBy(func(record *domain.DeploymentRecord) bool {
		return record.Operation == op && record.Status == status && record.FinishedAt != nil
	})
}

func TestDeployment_Publish(t *testing.T) {
	t.Run("Should journal a successful publish", func(t *testing.T) {
		m, deployment := newDeploymentMocks(t)
		m.publisher.On("Publish", mock.Anything, mock.Anything).
			Return(&domain.PublishResult{Success: true, Message: "Site published with new tag v1.0.0", Tag: "v1.0.0"}, nil)
		m.journal.On("Append", mock.Anything, journaled(domain.OperationPublish, domain.RecordStatusSucceeded)).
			Return(nil)
		result, err := deployment.Publish(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "v1.0.0", result.Tag)
		m.journal.AssertExpectations(t)
		record := m.journal.Calls[0].Arguments.Get(1).(*domain.DeploymentRecord)
		assert.Equal(t, "v1.0.0", record.Tag)
		assert.NotEmpty(t, record.ID)
	})
	t.Run("Should ignore cancellation of the caller", func(t *testing.T) {
		m, deployment := newDeploymentMocks(t)
		live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
		m.publisher.On("Publish", live, mock.Anything).
			Return(&domain.PublishResult{Success: true, Tag: "v1.0.0"}, nil)
		m.journal.On("Append", mock.Anything, mock.Anything).Return(nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := deployment.Publish(ctx)
		require.NoError(t, err)
		m.publisher.AssertExpectations(t)
	})
	t.Run("Should refuse to run while another operation holds the lock", func(t *testing.T) {
		m, deployment := newDeploymentMocks(t)
		release, err := m.lock.Acquire(context.Background())
		require.NoError(t, err)
		defer release()
		m.journal.On("Append", mock.Anything, journaled(domain.OperationPublish, domain.RecordStatusFailed)).
			Return(nil)
		result, err := deployment.Publish(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.False(t, result.Success)
		assert.Equal(t, domain.StageLock, result.Stage)
		assert.Contains(t, result.Message, MsgLockBusy)
		m.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
	t.Run("Should not fail when the journal cannot be written", func(t *testing.T) {
		m, deployment := newDeploymentMocks(t)
		m.publisher.On("Publish", mock.Anything, mock.Anything).
			Return(&domain.PublishResult{Success: true, Tag: "v1.0.0"}, nil)
		m.journal.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))
		result, err := deployment.Publish(context.Background())
		require.NoError(t, err)
		assert.True(t, result.Success)
	})
}

func TestDeployment_Rollback(t *testing.T) {
	t.Run("Should journal a failed rollback with its stage", func(t *testing.T) {
		m, deployment := newDeploymentMocks(t)
		failure := domain.NewStageError(domain.StageValidate, domain.ErrConflict, errors.New("tag v9.9.9 does not exist"))
		m.rollback.On("Rollback", mock.Anything, "v9.9.9", mock.Anything).
			Return(&domain.RollbackResult{Message: "Rollback failed", Tag: "v9.9.9", Stage: domain.StageValidate}, failure)
		m.journal.On("Append", mock.Anything, mock.MatchedBy(func(record *domain.DeploymentRecord) bool {
			return record.Stage == domain.StageValidate && record.Tag == "v9.9.9"
		})).Return(nil)
		result, err := deployment.Rollback(context.Background(), "v9.9.9")
		require.Error(t, err)
		assert.False(t, result.Success)
		m.journal.AssertExpectations(t)
	})
}

func TestDeployment_Preview(t *testing.T) {
	t.Run("Should report preview errors in the result", func(t *testing.T) {
		m, deployment := newDeploymentMocks(t)
		failure := domain.NewStageError(domain.StagePreview, domain.ErrConflict, preview.ErrAlreadyRunning)
		m.preview.On("Start", mock.Anything).Return(domain.PublishResult{}, failure)
		m.journal.On("Append", mock.Anything, journaled(domain.OperationPreviewStart, domain.RecordStatusFailed)).
			Return(nil)
		result, err := deployment.PreviewStart(context.Background())
		require.Error(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, failure.Error(), result.Message)
		assert.Equal(t, domain.StagePreview, result.Stage)
	})
	t.Run("Should stop the preview", func(t *testing.T) {
		m, deployment := newDeploymentMocks(t)
		m.preview.On("Stop", mock.Anything).Return(domain.PublishResult{Success: true, Message: "Preview stopped"}, nil)
		m.journal.On("Append", mock.Anything, journaled(domain.OperationPreviewStop, domain.RecordStatusSucceeded)).
			Return(nil)
		result, err := deployment.PreviewStop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Preview stopped", result.Message)
	})
	t.Run("Should read the preview status without the lock", func(t *testing.T) {
		m, deployment := newDeploymentMocks(t)
		release, err := m.lock.Acquire(context.Background())
		require.NoError(t, err)
		defer release()
		m.preview.On("Status").Return(domain.PreviewStatus{IsRunning: true, URL: "http://localhost:4000", Port: 4000})
		assert.True(t, deployment.PreviewStatus().IsRunning)
	})
}

func TestDeployment_History(t *testing.T) {
	t.Run("Should return journal records", func(t *testing.T) {
		m, deployment := newDeploymentMocks(t)
		records := []*domain.DeploymentRecord{domain.NewDeploymentRecord("a", domain.OperationPublish)}
		m.journal.On("List", mock.Anything, 5).Return(records, nil)
		got, err := deployment.History(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, records, got)
	})
}

// newLocalDeployment wires real adapters against a throwaway remote.
func newLocalDeployment(t *testing.T, remote *testutil.Remote) (*Deployment, repository.GitRepository) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	fs := afero.NewOsFs()
	root := t.TempDir()
	gitRepo := repository.NewGitRepository(repository.GitOptions{
		Dir:            filepath.Join(root, "content"),
		RemoteURL:      remote.URL,
		Branch:         remote.Branch,
		CommitterName:  "Deploy Bot",
		CommitterEmail: "bot@example.com",
	})
	runner := service.NewCommandRunner(logger, time.Minute)
	build := service.NewBuildService(fs, runner, service.BuildOptions{
		SiteDir:   gitRepo.Dir(),
		Command:   []string{"sh", "-c", "mkdir -p out && echo ok > out/index.html"},
		OutputDir: "out",
	}, logger)
	deploy := service.NewDeployService(fs, service.DeployOptions{
		RemoteURL:      remote.URL,
		Branch:         "gh-pages",
		CommitterName:  "Deploy Bot",
		CommitterEmail: "bot@example.com",
	}, logger)
	retry := RetryPolicy{Count: 0, Delay: time.Millisecond}
	stateDir := filepath.Join(root, "state")
	deployment := NewDeployment(DeploymentDeps{
		Status: NewStatusInspector(gitRepo, time.Minute, logger),
		Tags:   NewTagLister(gitRepo, time.Minute, logger),
		Publisher: NewPublishOrchestrator(gitRepo, service.NewNoopContentProcessor(), build, deploy, nil,
			PublishOptions{NetworkTimeout: time.Minute, Retry: retry}, logger),
		Rollback: NewRollbackOrchestrator(gitRepo, fs,
			RollbackOptions{NetworkTimeout: time.Minute, Retry: retry}, logger),
		Commit:  &usecase.CommitContentUseCase{GitRepo: gitRepo, PushTimeout: time.Minute},
		Journal: repository.NewJSONJournalRepository(fs, stateDir),
		Lock:    NewDeploymentLock(stateDir, time.Second),
	}, logger)
	return deployment, gitRepo
}

func TestDeployment_Lifecycle(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewRemote(t, "main")
	remote.Commit(t, ".gitignore", "out/\n")
	deployment, gitRepo := newLocalDeployment(t, remote)

	t.Run("Should report an uninitialized repository before the first publish", func(t *testing.T) {
		assert.Equal(t, MsgNotInitialized, deployment.Status(ctx).Message)
	})
	t.Run("Should publish the first release as v1.0.0", func(t *testing.T) {
		result, err := deployment.Publish(ctx)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "v1.0.0", result.Tag)
		assert.True(t, remote.HasTag(t, "v1.0.0"))
		assert.True(t, remote.BranchExists(t, "gh-pages"))
		status := deployment.Status(ctx)
		assert.Equal(t, "v1.0.0", status.CurrentTag)
		assert.False(t, status.HasUnpublishedChanges)
	})
	t.Run("Should reuse the tag when nothing changed", func(t *testing.T) {
		result, err := deployment.Publish(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v1.0.0", result.Tag)
		assert.Contains(t, result.Message, "reusing existing tag v1.0.0")
		assert.False(t, remote.HasTag(t, "v1.0.1"))
	})
	t.Run("Should tag the next patch after a content commit", func(t *testing.T) {
		post := filepath.Join(gitRepo.Dir(), "posts", "hello.md")
		require.NoError(t, os.MkdirAll(filepath.Dir(post), 0o755))
		require.NoError(t, os.WriteFile(post, []byte("# Hello\n"), 0o644))
		committed, err := deployment.Commit(ctx, "Add hello post")
		require.NoError(t, err)
		assert.True(t, committed)
		status := deployment.Status(ctx)
		assert.True(t, status.HasUnpublishedChanges)
		assert.Equal(t, "v1.0.0", status.CurrentTag)
		result, err := deployment.Publish(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v1.0.1", result.Tag)
	})
	t.Run("Should list tags newest first", func(t *testing.T) {
		tags := deployment.ListTags(ctx)
		assert.Equal(t, []string{"v1.0.1", "v1.0.0"}, tags.Tags)
		assert.Equal(t, domain.TagSourceLocal, tags.Source)
	})
	t.Run("Should roll back to an earlier tag", func(t *testing.T) {
		result, err := deployment.Rollback(ctx, "v1.0.0")
		require.NoError(t, err)
		assert.True(t, result.Success)
		status := deployment.Status(ctx)
		assert.Equal(t, "v1.0.0", status.CurrentTag)
		assert.False(t, status.HasUnpublishedChanges)
		_, err = os.Stat(filepath.Join(gitRepo.Dir(), "posts", "hello.md"))
		assert.True(t, os.IsNotExist(err))
	})
	t.Run("Should journal every mutating operation newest first", func(t *testing.T) {
		records, err := deployment.History(ctx, 0)
		require.NoError(t, err)
		require.Len(t, records, 5)
		ops := make([]domain.OperationType, 0, len(records))
		for _, record := range records {
			ops = append(ops, record.Operation)
			assert.Equal(t, domain.RecordStatusSucceeded, record.Status)
		}
		assert.Equal(t, []domain.OperationType{
			domain.OperationRollback,
			domain.OperationPublish,
			domain.OperationCommit,
			domain.OperationPublish,
			domain.OperationPublish,
		}, ops)
	})
	t.Run("Should refuse to commit while rolled back to a tag", func(t *testing.T) {
		before := remote.BranchHead(t, remote.Branch)
		post := filepath.Join(gitRepo.Dir(), "posts", "after.md")
		require.NoError(t, os.MkdirAll(filepath.Dir(post), 0o755))
		require.NoError(t, os.WriteFile(post, []byte("# After\n"), 0o644))
		committed, err := deployment.Commit(ctx, "Add post after rollback")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRepositoryState)
		assert.False(t, committed)
		assert.Equal(t, before, remote.BranchHead(t, remote.Branch))
		records, err := deployment.History(ctx, 1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.OperationCommit, records[0].Operation)
		assert.Equal(t, domain.RecordStatusFailed, records[0].Status)
	})
}
