package httpx

import (
	"log/slog"
	"net/http"

	"github.com/soundscribe/soundscribe/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs   *service.JobService
	Logger *slog.Logger // Logger for request logging and panic recovery (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	mux.HandleFunc("POST /transcribe", jobHandlers.Submit)
	mux.HandleFunc("GET /status/{job_id}", jobHandlers.Status)
	mux.HandleFunc("GET /stats", jobHandlers.Stats)
	mux.Handle("GET /health", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /health", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
