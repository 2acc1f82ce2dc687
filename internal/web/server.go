package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corridor-network/psm/internal/logger"
	"github.com/corridor-network/psm/internal/state"
	"github.com/corridor-network/psm/internal/strategy"
	"github.com/corridor-network/psm/internal/vault"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests for strategy status and cycle history.
type WebServer struct {
	router     *mux.Router
	port       string
	strategy   *strategy.Strategy
	vault      vault.Vault
	configName string
	startTime  time.Time
}

// NewWebServer creates a new web server instance.
func NewWebServer(port string, strat *strategy.Strategy, v vault.Vault, configName string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:     mux.NewRouter(),
		port:       port,
		strategy:   strat,
		vault:      v,
		configName: configName,
		startTime:  time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes.
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/status", ws.handleGetStatus).Methods("GET")
	api.HandleFunc("/cycles", ws.handleGetCycles).Methods("GET")
	api.HandleFunc("/cycles/latest", ws.handleGetLatestCycle).Methods("GET")
	api.HandleFunc("/cycles/{number}", ws.handleGetCycle).Methods("GET")
	api.HandleFunc("/parameters", ws.handleGetParameters).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server.
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	lifecycleState := "unknown"
	if s, err := ws.strategy.State(); err == nil {
		lifecycleState = string(s)
	} else {
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.startTime).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "psm-pool-strategy-manager",
			"version": "1.0.0",
		},
		"strategy_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"lifecycle_state":  lifecycleState,
			"breaker_engaged":  ws.strategy.Flags().Breaker,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetStatus returns a live view of the strategy: identities, corridor,
// lifecycle flags and the current valuation.
func (ws *WebServer) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	corridor, err := ws.vault.Corridor()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to read corridor")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to read corridor")
		return
	}

	lifecycleState, err := ws.strategy.State()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to derive lifecycle state")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to derive lifecycle state")
		return
	}

	valuation := sdkmath.ZeroInt()
	if v, err := ws.strategy.BalanceOf(); err == nil {
		valuation = v
	} else {
		webLogger.Warn().Err(err).Msg("Failed to value strategy holdings")
	}

	response := map[string]interface{}{
		"identities": ws.strategy.Identities(),
		"corridor":   corridor,
		"state":      lifecycleState,
		"flags":      ws.strategy.Flags(),
		"valuation":  valuation.String(),
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetCycles returns recent cycle snapshots.
func (ws *WebServer) handleGetCycles(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	snapshots, err := state.GetRecentSnapshots(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve cycles")
		return
	}

	response := map[string]interface{}{
		"cycles": snapshots,
		"count":  len(snapshots),
		"limit":  limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetCycle returns the snapshot for a specific cycle number.
func (ws *WebServer) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	numberStr := vars["number"]

	number, err := strconv.Atoi(numberStr)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid cycle number")
		return
	}

	snapshot, err := state.GetSnapshotByCycle(number)
	if err != nil {
		webLogger.Error().Err(err).Int("cycleNumber", number).Msg("Failed to get cycle snapshot")
		ws.writeErrorResponse(w, http.StatusNotFound, "Cycle not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleGetLatestCycle returns the most recent cycle snapshot.
func (ws *WebServer) handleGetLatestCycle(w http.ResponseWriter, r *http.Request) {
	snapshots, err := state.GetRecentSnapshots(1)
	if err != nil || len(snapshots) == 0 {
		webLogger.Error().Err(err).Msg("Failed to get latest cycle snapshot")
		ws.writeErrorResponse(w, http.StatusNotFound, "No cycles found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, snapshots[0])
}

// handleGetParameters returns the active strategy parameters.
func (ws *WebServer) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	params, err := state.LoadActiveStrategyParameters(ws.configName)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get strategy parameters")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve strategy parameters")
		return
	}

	response := map[string]interface{}{
		"parameters": params,
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response.
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response.
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers.
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture the status code.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
