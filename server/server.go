// Package server is the thin HTTP adapter over the rollup core: route
// dispatch, request parsing, and JSON serialization only.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ErickG09/api-muro-eolico/config"
	"github.com/ErickG09/api-muro-eolico/localtime"
	"github.com/ErickG09/api-muro-eolico/logger"
	"github.com/ErickG09/api-muro-eolico/rollup"

	"github.com/gorilla/mux"
)

// Server wires the rollup service to its HTTP routes.
type Server struct {
	rollups *rollup.Service
	clock   *localtime.Clock
	cfg     config.ServerConfig
}

// New creates a Server.
func New(rollups *rollup.Service, clock *localtime.Clock, cfg config.ServerConfig) *Server {
	return &Server{
		rollups: rollups,
		clock:   clock,
		cfg:     cfg,
	}
}

// Handler wraps the route table in the CORS and request-log middleware.
// The middleware sits outside the router so preflight OPTIONS requests
// are answered even for method-restricted routes.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(requestLogMiddleware(s.Router()))
}

// Router builds the route table under the configured base path.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)

	api := r.PathPrefix(s.cfg.BasePath).Subrouter()

	api.HandleFunc("/new", s.handleCreate).Methods(http.MethodPost)

	api.HandleFunc("/readLatest", s.handleReadLatest).Methods(http.MethodGet)
	api.HandleFunc("/readTempLatest/{group:[0-9]+}", s.handleReadTempLatest).Methods(http.MethodGet)
	api.HandleFunc("/readAll", s.handleReadAll).Methods(http.MethodGet)
	api.HandleFunc("/readForDate", s.handleReadForDate).Methods(http.MethodGet)
	api.HandleFunc("/getAllHours", s.handleGetAllHours).Methods(http.MethodGet)
	api.HandleFunc("/getAllMinutes", s.handleGetAllMinutes).Methods(http.MethodGet)
	api.HandleFunc("/getHourByNumber/{number:[0-9]+}", s.handleGetHourByNumber).Methods(http.MethodGet)
	api.HandleFunc("/get_totals", s.handleGetTotals).Methods(http.MethodGet)

	api.HandleFunc("/readAllDays", s.handleReadAllDays).Methods(http.MethodGet)
	api.HandleFunc("/getCurrentDay", s.handleGetCurrentDay).Methods(http.MethodGet)
	api.HandleFunc("/read30days", s.handleRead30Days).Methods(http.MethodGet)
	api.HandleFunc("/getWeek", s.handleGetWeek).Methods(http.MethodGet)
	api.HandleFunc("/getDayByNumber/{number:[0-9]+}", s.handleGetDayByNumber).Methods(http.MethodGet)

	api.HandleFunc("/getCurrentMonth", s.handleGetCurrentMonth).Methods(http.MethodGet)
	api.HandleFunc("/readAllMonths", s.handleReadAllMonths).Methods(http.MethodGet)
	api.HandleFunc("/getMonthsObjects", s.handleGetMonthsObjects).Methods(http.MethodGet)

	api.HandleFunc("/getTotal", s.handleGetTotal).Methods(http.MethodGet)

	api.HandleFunc("/resetAll", s.handleResetAll).Methods(http.MethodDelete)
	api.HandleFunc("/resetTempWallData", s.handleResetSnapshots).Methods(http.MethodDelete)
	api.HandleFunc("/deleteAllZeros", s.handleDeleteAllZeros).Methods(http.MethodDelete)
	api.HandleFunc("/deleteDay/{id:[0-9]+}", s.handleDeleteDay).Methods(http.MethodDelete)

	return r
}

// ListenAndServe starts the HTTP server on the configured port.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	logger.Printf("Listening on %s (base path %s)\n", addr, s.cfg.BasePath)
	return http.ListenAndServe(addr, s.Handler())
}

// corsMiddleware mirrors the dashboard's cross-origin needs. An empty
// origin list allows any origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.cfg.AllowedOrigins) > 0 {
			origin = ""
			for _, allowed := range s.cfg.AllowedOrigins {
				if allowed == r.Header.Get("Origin") {
					origin = allowed
					break
				}
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code a handler wrote
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.LogRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
