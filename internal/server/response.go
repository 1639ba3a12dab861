package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/compozy/sitepublish/internal/domain"
	"go.uber.org/zap"
)

type messageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SetDefaultHeaders sets the JSON and CORS headers of every response.
func SetDefaultHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Accept,Authorization,Accept-Language,Content-Type,Content-Language")
}

// statusCode maps a failed mutation to an HTTP status.
func statusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	SetDefaultHeaders(w)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func apiSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

// apiResult writes a mutation result with the status derived from err.
func apiResult(w http.ResponseWriter, logger *zap.Logger, data any, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, code, data)
}

func apiBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, messageBody{Message: message})
}
