package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fortuna/pitchside/internal/metrics"
)

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server
func NewServer(port string, handler *Handler) *Server {
	return &Server{
		port:    port,
		handler: handler,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           NewRouter(handler),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter wires every route onto a mux router.
func NewRouter(handler *Handler) *mux.Router {
	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	// Health check and metrics
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// API v1 routes sit on the root router: mux reports a method mismatch
	// inside a subrouter as 404
	const api = "/api/v1"

	// Scheduler
	router.HandleFunc(api+"/scheduler/status", handler.GetSchedulerStatus).Methods("GET")
	router.HandleFunc(api+"/scheduler/run/{cadence}", handler.TriggerCadence).Methods("POST")

	// Catalog
	router.HandleFunc(api+"/leagues", handler.GetLeagues).Methods("GET")
	router.HandleFunc(api+"/leagues/{leagueID}/matches/upcoming", handler.GetUpcomingMatches).Methods("GET")
	router.HandleFunc(api+"/teams/{teamID}/players", handler.GetTeamPlayers).Methods("GET")

	return router
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
