package server

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// NewRouter creates and configures a new instance of the router.
func NewRouter(h Handler) *httprouter.Router {
	r := httprouter.New()

	r.GET("/healthz", h.Health)
	r.GET("/deploy/status", h.Status)
	r.GET("/deploy/tags", h.Tags)
	r.GET("/deploy/history", h.History)
	r.GET("/deploy/preview-status", h.PreviewStatus)
	r.POST("/deploy/preview-start", h.PreviewStart)
	r.POST("/deploy/preview-stop", h.PreviewStop)
	r.POST("/deploy/publish", h.Publish)
	r.POST("/deploy/rollback", h.Rollback)

	r.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		SetDefaultHeaders(w)
		h := w.Header()
		h.Set("Access-Control-Allow-Methods", h.Get("Allow"))
		w.WriteHeader(http.StatusNoContent)
	})
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, messageBody{Message: "Not found"})
	})

	return r
}
