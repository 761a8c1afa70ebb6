// Package serve runs jobs outside Lambda: once from a test input, or behind a
// local synchronous HTTP API.
package serve

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/dmorgan81/kandinsky-worker/internal/handler"
	"github.com/dmorgan81/kandinsky-worker/internal/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

type JobHandler interface {
	Handle(context.Context, handler.Job) (handler.Output, error)
}

type Result struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output *handler.Output `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Run handles one job and wraps the outcome the way the hosted runtime
// reports it.
func Run(ctx context.Context, h JobHandler, job handler.Job) Result {
	job.ID = lo.Ternary(job.ID != "", job.ID, "local-"+uuid.NewString())
	out, err := h.Handle(ctx, job)
	if err != nil {
		log.FromContextOrDiscard(ctx).Error("job failed", "job", job.ID, "error", err)
		return Result{ID: job.ID, Status: StatusFailed, Error: err.Error()}
	}
	return Result{ID: job.ID, Status: StatusCompleted, Output: &out}
}

// OpenInput treats input as a path when such a file exists and as inline JSON
// otherwise.
func OpenInput(input string) (io.ReadCloser, error) {
	if _, err := os.Stat(input); err == nil {
		return os.Open(input)
	}
	return io.NopCloser(strings.NewReader(input)), nil
}

func RunOnce(ctx context.Context, h JobHandler, r io.Reader, w io.Writer) error {
	var job handler.Job
	if err := json.NewDecoder(r).Decode(&job); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Run(ctx, h, job))
}

func NewRouter(ctx context.Context, h JobHandler) *mux.Router {
	logger := log.FromContextOrDiscard(ctx)

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Info("api request", "method", req.Method, "path", req.URL.Path)
			next.ServeHTTP(w, req.WithContext(log.NewContext(req.Context(), logger)))
		})
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/runsync", func(w http.ResponseWriter, req *http.Request) {
		var job handler.Job
		if err := json.NewDecoder(req.Body).Decode(&job); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, Run(req.Context(), h, job))
	}).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
