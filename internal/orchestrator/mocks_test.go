package orchestrator

import (
	"context"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/repository"
	"github.com/stretchr/testify/mock"
)

// Mock for GitRepository
type mockGitRepository struct {
	mock.Mock
}

func (m *mockGitRepository) Dir() string {
	return m.Called().String(0)
}

func (m *mockGitRepository) At(dir string) repository.GitRepository {
	return m.Called(dir).Get(0).(repository.GitRepository)
}

func (m *mockGitRepository) Exists(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockGitRepository) Clone(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGitRepository) FetchTags(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGitRepository) ListTags(ctx context.Context) ([]domain.Tag, error) {
	args := m.Called(ctx)
	tags, _ := args.Get(0).([]domain.Tag)
	return tags, args.Error(1)
}

func (m *mockGitRepository) RemoteTags(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *mockGitRepository) TagExists(ctx context.Context, tag string) (bool, error) {
	args := m.Called(ctx, tag)
	return args.Bool(0), args.Error(1)
}

func (m *mockGitRepository) HeadCommit(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockGitRepository) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	args := m.Called(ctx, ancestor, descendant)
	return args.Bool(0), args.Error(1)
}

func (m *mockGitRepository) DiffSummary(ctx context.Context, from, to string) (domain.DiffSummary, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(domain.DiffSummary), args.Error(1)
}

func (m *mockGitRepository) CheckoutTag(ctx context.Context, tag string) error {
	return m.Called(ctx, tag).Error(0)
}

func (m *mockGitRepository) CreateTag(ctx context.Context, tag, msg string) error {
	return m.Called(ctx, tag, msg).Error(0)
}

func (m *mockGitRepository) DeleteTag(ctx context.Context, tag string) error {
	return m.Called(ctx, tag).Error(0)
}

func (m *mockGitRepository) PushTag(ctx context.Context, tag string) error {
	return m.Called(ctx, tag).Error(0)
}

func (m *mockGitRepository) CommitAll(ctx context.Context, msg string) (bool, error) {
	args := m.Called(ctx, msg)
	return args.Bool(0), args.Error(1)
}

func (m *mockGitRepository) PushBranch(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Mock for ContentProcessor
type mockContentProcessor struct {
	mock.Mock
}

func (m *mockContentProcessor) Process(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Mock for BuildService
type mockBuildService struct {
	mock.Mock
}

func (m *mockBuildService) Build(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Mock for DeployService
type mockDeployService struct {
	mock.Mock
}

func (m *mockDeployService) Deploy(ctx context.Context, outputDir, message string) error {
	return m.Called(ctx, outputDir, message).Error(0)
}

// Mock for ReleaseRepository
type mockReleaseRepository struct {
	mock.Mock
}

func (m *mockReleaseRepository) CreateRelease(ctx context.Context, release domain.Release) (string, error) {
	args := m.Called(ctx, release)
	return args.String(0), args.Error(1)
}

// Mock for JournalRepository
type mockJournalRepository struct {
	mock.Mock
}

func (m *mockJournalRepository) Append(ctx context.Context, record *domain.DeploymentRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockJournalRepository) List(ctx context.Context, limit int) ([]*domain.DeploymentRecord, error) {
	args := m.Called(ctx, limit)
	records, _ := args.Get(0).([]*domain.DeploymentRecord)
	return records, args.Error(1)
}

// Mock for PreviewController
type mockPreviewController struct {
	mock.Mock
}

func (m *mockPreviewController) Start(ctx context.Context) (domain.PublishResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.PublishResult), args.Error(1)
}

func (m *mockPreviewController) Stop(ctx context.Context) (domain.PublishResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.PublishResult), args.Error(1)
}

func (m *mockPreviewController) Status() domain.PreviewStatus {
	return m.Called().Get(0).(domain.PreviewStatus)
}

var (
	_ repository.GitRepository     = (*mockGitRepository)(nil)
	_ repository.ReleaseRepository = (*mockReleaseRepository)(nil)
	_ repository.JournalRepository = (*mockJournalRepository)(nil)
	_ PreviewController            = (*mockPreviewController)(nil)
)

// Mock for Publisher
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, record *domain.DeploymentRecord) (*domain.PublishResult, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(*domain.PublishResult), args.Error(1)
}

// Mock for RollbackRunner
type mockRollbackRunner struct {
	mock.Mock
}

func (m *mockRollbackRunner) Rollback(
	ctx context.Context,
	tag string,
	record *domain.DeploymentRecord,
) (*domain.RollbackResult, error) {
	args := m.Called(ctx, tag, record)
	return args.Get(0).(*domain.RollbackResult), args.Error(1)
}
