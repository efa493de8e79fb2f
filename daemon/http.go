package daemon

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/deepnoodle-ai/pyreg"
	"github.com/deepnoodle-ai/pyreg/protocol"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ExecuteResponse is the JSON body returned by POST /execute.
type ExecuteResponse struct {
	Status string `json:"status"`
	Output string `json:"output"`
}

// Handler returns the HTTP front end:
//
//	POST   /execute   run the request body as a program
//	GET    /stats     cache statistics
//	DELETE /cache     clear the cache
//	GET    /healthz   liveness probe
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/execute", s.handleExecute)
	r.Get("/stats", s.handleStats)
	r.Delete("/cache", s.handleClearCache)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return r
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, protocol.MaxMessageSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, ExecuteResponse{
			Status: protocol.StatusError.String(),
			Output: err.Error(),
		})
		return
	}
	resp := execute(r.Context(), pyreg.NewVM(pyreg.WithCache(s.cache)), string(body))
	code := http.StatusOK
	if !resp.IsSuccess() {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, ExecuteResponse{Status: resp.Status.String(), Output: resp.Output})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear()
	s.log.Info().Msg("cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
