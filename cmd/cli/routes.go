package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sguter90/airmaestro/pkg/config"
	"github.com/sguter90/airmaestro/pkg/database"
	"github.com/sguter90/airmaestro/pkg/ingest"
	"github.com/sguter90/airmaestro/pkg/logger"
	"github.com/sguter90/airmaestro/pkg/metrics"
	"github.com/sguter90/airmaestro/pkg/puller"
)

// RouteManager handles all API routes
type RouteManager struct {
	server     config.ServerConfig
	comparison config.ComparisonConfig
	dbManager  *database.DatabaseManager
	ingestor   *ingest.Ingestor
	store      ingest.Store
	puller     *puller.PullerService
	log        *logger.Logger
	metrics    *metrics.Metrics
	Router     *mux.Router
}

// NewRouteManager creates a new RouteManager instance.
// dbManager and pullerService may be nil; the endpoints needing them then answer 503.
func NewRouteManager(cfg *config.Config, dbManager *database.DatabaseManager, store ingest.Store, pullerService *puller.PullerService, log *logger.Logger, m *metrics.Metrics) *RouteManager {
	if log == nil {
		log = logger.Nop()
	}
	return &RouteManager{
		server:     cfg.Server,
		comparison: cfg.Comparison,
		dbManager:  dbManager,
		ingestor:   ingest.NewIngestor(store, log, m),
		store:      store,
		puller:     pullerService,
		log:        log.WithComponent("api"),
		metrics:    m,
		Router:     mux.NewRouter(),
	}
}

// Setup configures all API routes
func (rm *RouteManager) Setup() {
	r := rm.Router
	r.Use(rm.metricsMiddleware)
	r.Use(rm.corsMiddleware)

	// Global OPTIONS handler - catches all preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.HandleFunc("/health", rm.healthHandler).Methods("GET")
	if rm.metrics != nil {
		r.Handle("/metrics", rm.metrics.Handler()).Methods("GET")
	}

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()
	rm.setupAPIRoutes(api)
}

// setupAPIRoutes configures all API v1 routes
func (rm *RouteManager) setupAPIRoutes(api *mux.Router) {
	// Public auth endpoints (no auth required)
	api.HandleFunc("/auth/login", rm.handleLogin).Methods("POST")
	api.HandleFunc("/auth/logout", rm.handleLogout).Methods("POST")

	// Read-only data
	api.HandleFunc("/devices", rm.getDevicesHandler).Methods("GET")
	api.HandleFunc("/readings", rm.getReadingsHandler).Methods("GET")
	api.HandleFunc("/variables", rm.getVariablesHandler).Methods("GET")

	// Protected endpoints (auth required)
	protected := api.PathPrefix("").Subrouter()
	protected.Use(rm.JWTAuthMiddleware)

	// User info
	protected.HandleFunc("/auth/me", rm.handleMe).Methods("GET")
	protected.HandleFunc("/auth/refresh", rm.handleRefreshToken).Methods("POST")

	// Device management
	protected.HandleFunc("/devices", rm.saveDeviceHandler).Methods("POST")
	protected.HandleFunc("/devices/{id}", rm.deleteDeviceHandler).Methods("DELETE")

	// Ingestion and comparison
	protected.HandleFunc("/fetch", rm.fetchHandler).Methods("POST")
	protected.HandleFunc("/compare", rm.compareHandler).Methods("POST")
	protected.HandleFunc("/reports/latest", rm.latestReportHandler).Methods("GET")
}
