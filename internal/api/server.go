package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether a dependency is usable
type HealthCheck func() error

// RouterConfig wires the handlers served by the analysis service
type RouterConfig struct {
	Runs    *RunHandler
	Screens *ScreenHandler
	Checks  map[string]HealthCheck
}

// NewRouter builds the service router: health probes, metrics and the API
func NewRouter(cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(mux.MiddlewareFunc(ChainMiddleware(ErrorHandlingMiddleware(), LoggingMiddleware())))

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		checks := make(map[string]interface{}, len(cfg.Checks))
		for name, check := range cfg.Checks {
			if err := check(); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = map[string]interface{}{"status": "error", "error": err.Error()}
				continue
			}
			checks[name] = map[string]interface{}{"status": "ok"}
		}

		health := map[string]interface{}{
			"status":    "UP",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    checks,
		}
		if cfg.Runs != nil {
			health["analysis"] = cfg.Runs.runner.Status()
		}
		if status != http.StatusOK {
			health["status"] = "DOWN"
		}
		respondWithJSON(w, status, health)
	}).Methods("GET")

	// Readiness probe
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		for _, check := range cfg.Checks {
			if check() != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("NOT READY"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}).Methods("GET")

	// Liveness probe
	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("LIVE"))
	}).Methods("GET")

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	v1 := router.PathPrefix("/api/v1").Subrouter()
	if cfg.Runs != nil {
		v1.HandleFunc("/runs", cfg.Runs.TriggerRun).Methods("POST")
		v1.HandleFunc("/runs/last", cfg.Runs.LastRun).Methods("GET")
	}
	if cfg.Screens != nil {
		v1.HandleFunc("/queries", cfg.Screens.ListQueries).Methods("GET")
		v1.HandleFunc("/queries/{id}", cfg.Screens.GetQuery).Methods("GET")
		v1.HandleFunc("/queries/{id}/results", cfg.Screens.Screen).Methods("GET")
	}

	return router
}
