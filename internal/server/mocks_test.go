package server

import (
	"context"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/stretchr/testify/mock"
)

// Mock for Deployment
type mockDeployment struct {
	mock.Mock
}

func (m *mockDeployment) Status(ctx context.Context) domain.DeploymentStatus {
	return m.Called(ctx).Get(0).(domain.DeploymentStatus)
}

func (m *mockDeployment) ListTags(ctx context.Context) domain.TagList {
	return m.Called(ctx).Get(0).(domain.TagList)
}

func (m *mockDeployment) PreviewStart(ctx context.Context) (domain.PublishResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.PublishResult), args.Error(1)
}

func (m *mockDeployment) PreviewStop(ctx context.Context) (domain.PublishResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.PublishResult), args.Error(1)
}

func (m *mockDeployment) PreviewStatus() domain.PreviewStatus {
	return m.Called().Get(0).(domain.PreviewStatus)
}

func (m *mockDeployment) Publish(ctx context.Context) (domain.PublishResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.PublishResult), args.Error(1)
}

func (m *mockDeployment) Rollback(ctx context.Context, tag string) (domain.RollbackResult, error) {
	args := m.Called(ctx, tag)
	return args.Get(0).(domain.RollbackResult), args.Error(1)
}

func (m *mockDeployment) History(ctx context.Context, limit int) ([]*domain.DeploymentRecord, error) {
	args := m.Called(ctx, limit)
	records, _ := args.Get(0).([]*domain.DeploymentRecord)
	return records, args.Error(1)
}
