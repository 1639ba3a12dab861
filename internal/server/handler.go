package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/pkg/version"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// DefaultHistoryLimit is the number of journal records served without ?limit
const DefaultHistoryLimit = 20

// Deployment is the operation facade served over HTTP.
type Deployment interface {
	Status(ctx context.Context) domain.DeploymentStatus
	ListTags(ctx context.Context) domain.TagList
	PreviewStart(ctx context.Context) (domain.PublishResult, error)
	PreviewStop(ctx context.Context) (domain.PublishResult, error)
	PreviewStatus() domain.PreviewStatus
	Publish(ctx context.Context) (domain.PublishResult, error)
	Rollback(ctx context.Context, tag string) (domain.RollbackResult, error)
	History(ctx context.Context, limit int) ([]*domain.DeploymentRecord, error)
}

// Handler handles the REST API requests.
type Handler struct {
	d      Deployment
	logger *zap.Logger
}

// NewHandler creates a new instance of the REST API handler.
func NewHandler(d Deployment, logger *zap.Logger) Handler {
	return Handler{d: d, logger: logger}
}

// RollbackRequest is the body of POST /deploy/rollback.
type RollbackRequest struct {
	Tag string `json:"tag"`
}

// HistoryResponse is the body of GET /deploy/history.
type HistoryResponse struct {
	Records []*domain.DeploymentRecord `json:"records"`
}

// Health reports that the server is up.
func (h Handler) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	apiSuccess(w, map[string]string{"status": "ok", "version": version.Summary()})
}

// Status reports unpublished changes relative to the current tag.
func (h Handler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	apiSuccess(w, h.d.Status(r.Context()))
}

// Tags lists release tags newest first.
func (h Handler) Tags(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	apiSuccess(w, h.d.ListTags(r.Context()))
}

// History lists journal records newest first.
func (h Handler) History(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			apiBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	records, err := h.d.History(r.Context(), limit)
	if err != nil {
		apiResult(w, h.logger, messageBody{Message: err.Error()}, err)
		return
	}
	apiSuccess(w, HistoryResponse{Records: records})
}

// PreviewStatus reports the preview session.
func (h Handler) PreviewStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	apiSuccess(w, h.d.PreviewStatus())
}

// PreviewStart starts the preview process.
func (h Handler) PreviewStart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res, err := h.d.PreviewStart(r.Context())
	apiResult(w, h.logger, res, err)
}

// PreviewStop stops the preview process.
func (h Handler) PreviewStop(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res, err := h.d.PreviewStop(r.Context())
	apiResult(w, h.logger, res, err)
}

// Publish builds, deploys and tags the site.
func (h Handler) Publish(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res, err := h.d.Publish(r.Context())
	apiResult(w, h.logger, res, err)
}

// Rollback checks out the requested tag.
func (h Handler) Rollback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req RollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apiBadRequest(w, "invalid request body")
		return
	}
	if req.Tag == "" {
		apiBadRequest(w, "Tag is required")
		return
	}
	res, err := h.d.Rollback(r.Context(), req.Tag)
	apiResult(w, h.logger, res, err)
}
