package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func serve(t *testing.T, d Deployment, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(NewHandler(d, zaptest.NewLogger(t)))
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandler_Reads(t *testing.T) {
	t.Run("Should report health", func(t *testing.T) {
		rec := serve(t, new(mockDeployment), http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
	})
	t.Run("Should serve the status", func(t *testing.T) {
		d := new(mockDeployment)
		d.On("Status", mock.Anything).Return(domain.DeploymentStatus{
			CurrentTag:            "v1.0.2",
			HasUnpublishedChanges: true,
			Message:               "Unpublished changes detected. Last published tag: v1.0.2",
		})
		rec := serve(t, d, http.MethodGet, "/deploy/status", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		body := decode[map[string]any](t, rec)
		assert.Equal(t, "v1.0.2", body["currentTag"])
		assert.Equal(t, true, body["hasUnpublishedChanges"])
	})
	t.Run("Should serve tags newest first", func(t *testing.T) {
		d := new(mockDeployment)
		d.On("ListTags", mock.Anything).Return(domain.TagList{Tags: []string{"v1.0.1", "v1.0.0"}, Source: domain.TagSourceLocal})
		rec := serve(t, d, http.MethodGet, "/deploy/tags", "")
		body := decode[domain.TagList](t, rec)
		assert.Equal(t, []string{"v1.0.1", "v1.0.0"}, body.Tags)
		assert.Equal(t, domain.TagSourceLocal, body.Source)
	})
	t.Run("Should serve the preview status", func(t *testing.T) {
		d := new(mockDeployment)
		d.On("PreviewStatus").Return(domain.PreviewStatus{IsRunning: true, URL: "http://localhost:4000", Port: 4000})
		rec := serve(t, d, http.MethodGet, "/deploy/preview-status", "")
		body := decode[domain.PreviewStatus](t, rec)
		assert.True(t, body.IsRunning)
		assert.Equal(t, 4000, body.Port)
	})
	t.Run("Should serve history with a limit", func(t *testing.T) {
		d := new(mockDeployment)
		d.On("History", mock.Anything, 3).Return([]*domain.DeploymentRecord{
			domain.NewDeploymentRecord("a", domain.OperationPublish),
		}, nil)
		rec := serve(t, d, http.MethodGet, "/deploy/history?limit=3", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[HistoryResponse](t, rec).Records, 1)
	})
	t.Run("Should default the history limit", func(t *testing.T) {
		d := new(mockDeployment)
		d.On("History", mock.Anything, DefaultHistoryLimit).Return([]*domain.DeploymentRecord{}, nil)
		rec := serve(t, d, http.MethodGet, "/deploy/history", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		d.AssertExpectations(t)
	})
	t.Run("Should reject an invalid history limit", func(t *testing.T) {
		rec := serve(t, new(mockDeployment), http.MethodGet, "/deploy/history?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Mutations(t *testing.T) {
	t.Run("Should publish", func(t *testing.T) {
		d := new(mockDeployment)
		d.On("Publish", mock.Anything).Return(domain.PublishResult{
			Success: true, Message: "Site published with new tag v1.0.3", Tag: "v1.0.3",
		}, nil)
		rec := serve(t, d, http.MethodPost, "/deploy/publish", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode[domain.PublishResult](t, rec)
		assert.True(t, body.Success)
		assert.Equal(t, "v1.0.3", body.Tag)
	})
	t.Run("Should map a conflict to 409", func(t *testing.T) {
		d := new(mockDeployment)
		err := domain.NewStageError(domain.StageLock, domain.ErrConflict, errors.New("busy"))
		d.On("Publish", mock.Anything).Return(domain.PublishResult{Message: err.Error(), Stage: domain.StageLock}, err)
		rec := serve(t, d, http.MethodPost, "/deploy/publish", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decode[domain.PublishResult](t, rec)
		assert.False(t, body.Success)
		assert.Equal(t, domain.StageLock, body.Stage)
	})
	t.Run("Should map other failures to 500", func(t *testing.T) {
		d := new(mockDeployment)
		err := domain.NewStageError(domain.StageBuild, domain.ErrBuild, errors.New("exit status 1"))
		d.On("Publish", mock.Anything).Return(domain.PublishResult{Message: "Publish failed: " + err.Error()}, err)
		rec := serve(t, d, http.MethodPost, "/deploy/publish", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, decode[domain.PublishResult](t, rec).Message, "build failed")
	})
	t.Run("Should start and stop the preview", func(t *testing.T) {
		d := new(mockDeployment)
		d.On("PreviewStart", mock.Anything).Return(domain.PublishResult{
			Success: true, Message: "Preview started at http://localhost:4000", URL: "http://localhost:4000",
		}, nil)
		d.On("PreviewStop", mock.Anything).Return(domain.PublishResult{Success: true, Message: "Preview stopped"}, nil)
		rec := serve(t, d, http.MethodPost, "/deploy/preview-start", "")
		assert.Equal(t, "http://localhost:4000", decode[domain.PublishResult](t, rec).URL)
		rec = serve(t, d, http.MethodPost, "/deploy/preview-stop", "")
		assert.Equal(t, "Preview stopped", decode[domain.PublishResult](t, rec).Message)
	})
	t.Run("Should roll back to the requested tag", func(t *testing.T) {
		d := new(mockDeployment)
		d.On("Rollback", mock.Anything, "v1.0.0").Return(domain.RollbackResult{
			Success: true, Message: "Rolled back to tag v1.0.0", Tag: "v1.0.0",
		}, nil)
		rec := serve(t, d, http.MethodPost, "/deploy/rollback", `{"tag":"v1.0.0"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[domain.RollbackResult](t, rec).Success)
	})
	t.Run("Should require a tag to roll back", func(t *testing.T) {
		d := new(mockDeployment)
		for _, body := range []string{"", "{}", `{"tag":""}`} {
			rec := serve(t, d, http.MethodPost, "/deploy/rollback", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}
		rec := serve(t, d, http.MethodPost, "/deploy/rollback", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		d.AssertNotCalled(t, "Rollback", mock.Anything, mock.Anything)
	})
	t.Run("Should reject unknown routes with JSON", func(t *testing.T) {
		rec := serve(t, new(mockDeployment), http.MethodGet, "/deploy/unknown", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}
