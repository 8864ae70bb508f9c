package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/parpool/parpool/internal/admin"
	"github.com/parpool/parpool/internal/config"
	"github.com/parpool/parpool/internal/engine"
	"github.com/parpool/parpool/internal/ledger"
	"github.com/parpool/parpool/internal/logger"
	"github.com/parpool/parpool/internal/registry"
	"github.com/parpool/parpool/internal/state"
	"github.com/parpool/parpool/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests for pool operations and observation.
type WebServer struct {
	router *mux.Router
	port   string

	engine *engine.Engine
	admin  *admin.Controller
	events *ledger.RingSink

	// persistReceipt is called with every receipt a handler produced. Nil
	// disables persistence (POOL_DB=off).
	persistReceipt func(types.OperationReceipt) error
}

// Config holds the dependencies for creating a new WebServer.
type Config struct {
	Port           string
	Engine         *engine.Engine
	Admin          *admin.Controller
	Events         *ledger.RingSink
	PersistReceipt func(types.OperationReceipt) error
}

// NewWebServer creates a new web server instance.
func NewWebServer(cfg Config) (*WebServer, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if cfg.Admin == nil {
		return nil, errors.New("admin controller cannot be nil")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	server := &WebServer{
		router:         mux.NewRouter(),
		port:           cfg.Port,
		engine:         cfg.Engine,
		admin:          cfg.Admin,
		events:         cfg.Events,
		persistReceipt: cfg.PersistReceipt,
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pool", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/assets", ws.handleGetAssets).Methods("GET")
	api.HandleFunc("/assets/{id}/limits", ws.handleGetAssetLimits).Methods("GET")
	api.HandleFunc("/events", ws.handleGetEvents).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")
	api.HandleFunc("/receipts/{id}", ws.handleGetReceipt).Methods("GET")
	api.HandleFunc("/snapshots", ws.handleGetSnapshots).Methods("GET")
	api.HandleFunc("/summary", ws.handleGetSummary).Methods("GET")

	ops := api.PathPrefix("/operations").Subrouter()
	ops.HandleFunc("/swap", ws.handleSwap).Methods("POST")
	ops.HandleFunc("/add", ws.handleAdd).Methods("POST")
	ops.HandleFunc("/add-evenly", ws.handleAddEvenly).Methods("POST")
	ops.HandleFunc("/remove", ws.handleRemove).Methods("POST")
	ops.HandleFunc("/remove-evenly", ws.handleRemoveEvenly).Methods("POST")

	adminAPI := api.PathPrefix("/admin").Subrouter()
	adminAPI.HandleFunc("/fee-rate", ws.handleSetFeeRate).Methods("POST")
	adminAPI.HandleFunc("/assets", ws.handleRegisterAsset).Methods("POST")
	adminAPI.HandleFunc("/assets/{id}/bounds", ws.handleSetBounds).Methods("POST")
	adminAPI.HandleFunc("/assets/{id}/accepting", ws.handleSetAccepting).Methods("POST")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
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

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Receipts may be persisted through a non-DB hook; only ping postgres
	// when a connection was actually opened.
	dbHealthy := true
	if state.DB != nil {
		if err := state.TestDBConnection(); err != nil {
			dbHealthy = false
		}
	}

	hasErrors := !dbHealthy || !ws.engine.Initialized()
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
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "parpool-basket-pool-engine",
			"version": "1.0.0",
		},
		"pool_status": map[string]interface{}{
			"initialized":      ws.engine.Initialized(),
			"database_healthy": dbHealthy,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}
	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPool returns a consistent snapshot of the whole pool
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	snapshot, err := ws.engine.Snapshot()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to snapshot pool")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to snapshot pool")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleGetAssets returns the registered assets with balances
func (ws *WebServer) handleGetAssets(w http.ResponseWriter, r *http.Request) {
	snapshot, err := ws.engine.Snapshot()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to snapshot pool")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list assets")
		return
	}

	response := map[string]interface{}{
		"assets":   snapshot.Assets,
		"balances": snapshot.Balances,
		"count":    len(snapshot.Assets),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetAssetLimits returns the current headroom of one asset
func (ws *WebServer) handleGetAssetLimits(w http.ResponseWriter, r *http.Request) {
	id := types.AssetID(mux.Vars(r)["id"])

	limits, err := ws.engine.Limits(id)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, limits)
}

// handleGetEvents returns recent pool events from the ring sink
func (ws *WebServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if ws.events == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Event buffer not configured")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	events := ws.events.Recent(limit)
	response := map[string]interface{}{
		"events": events,
		"count":  len(events),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetReceipts returns paginated operation receipts
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	if ws.persistReceipt == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Receipt persistence is disabled")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	receipts, err := state.GetRecentReceipts(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}

	response := map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetReceipt returns a specific operation receipt by ID
func (ws *WebServer) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	if ws.persistReceipt == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Receipt persistence is disabled")
		return
	}

	id := mux.Vars(r)["id"]
	receipt, err := state.GetReceiptByID(id)
	if err != nil {
		webLogger.Error().Err(err).Str("receiptId", id).Msg("Failed to get receipt")
		ws.writeErrorResponse(w, http.StatusNotFound, "Receipt not found")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, receipt)
}

// handleGetSnapshots returns recent persisted pool snapshots
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	if ws.persistReceipt == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Snapshot persistence is disabled")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	snapshots, err := state.GetRecentSnapshots(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	response := map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetSummary returns aggregated receipt history statistics
func (ws *WebServer) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	if ws.persistReceipt == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Receipt persistence is disabled")
		return
	}

	summary, err := state.GetOperationSummary()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get operation summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve summary")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// operationRequest is the shared request body for pool operations.
type operationRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Amount string `json:"amount"`
}

func (ws *WebServer) handleSwap(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodeOperation(w, r)
	if !ok {
		return
	}
	receipt, err := ws.engine.Swap(req.Caller, types.AssetID(req.From), amount, types.AssetID(req.To))
	ws.finishOperation(w, receipt, err)
}

func (ws *WebServer) handleAdd(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodeOperation(w, r)
	if !ok {
		return
	}
	receipt, err := ws.engine.Add(req.Caller, types.AssetID(req.Asset), amount)
	ws.finishOperation(w, receipt, err)
}

func (ws *WebServer) handleAddEvenly(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodeOperation(w, r)
	if !ok {
		return
	}
	receipt, err := ws.engine.AddEvenly(req.Caller, amount)
	ws.finishOperation(w, receipt, err)
}

func (ws *WebServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodeOperation(w, r)
	if !ok {
		return
	}
	receipt, err := ws.engine.Remove(req.Caller, types.AssetID(req.Asset), amount)
	ws.finishOperation(w, receipt, err)
}

func (ws *WebServer) handleRemoveEvenly(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.decodeOperation(w, r)
	if !ok {
		return
	}
	receipt, err := ws.engine.RemoveEvenly(req.Caller, amount)
	ws.finishOperation(w, receipt, err)
}

// adminRequest is the shared request body for admin mutations.
type adminRequest struct {
	Caller    string `json:"caller"`
	Asset     string `json:"asset,omitempty"`
	Rate      string `json:"rate,omitempty"`
	LowBound  string `json:"low_bound,omitempty"`
	HighBound string `json:"high_bound,omitempty"`
	Accepting *bool  `json:"accepting,omitempty"`
}

func (ws *WebServer) handleSetFeeRate(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ws.decodeJSON(w, r, &req) {
		return
	}
	rate, ok := math.NewIntFromString(req.Rate)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid rate")
		return
	}
	if err := ws.admin.SetFeeRate(req.Caller, rate); err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"rate": rate.String()})
}

func (ws *WebServer) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ws.decodeJSON(w, r, &req) {
		return
	}
	// Omitted bounds fall back to the configured registration defaults.
	low, high := config.DefaultLowBound, config.DefaultHighBound
	if req.LowBound != "" {
		var ok bool
		if low, ok = math.NewIntFromString(req.LowBound); !ok {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid bounds")
			return
		}
	}
	if req.HighBound != "" {
		var ok bool
		if high, ok = math.NewIntFromString(req.HighBound); !ok {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid bounds")
			return
		}
	}
	if err := ws.admin.Register(req.Caller, types.AssetID(req.Asset), low, high); err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"asset":      req.Asset,
		"low_bound":  low.String(),
		"high_bound": high.String(),
	})
}

func (ws *WebServer) handleSetBounds(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ws.decodeJSON(w, r, &req) {
		return
	}
	id := types.AssetID(mux.Vars(r)["id"])
	low, lowOK := math.NewIntFromString(req.LowBound)
	high, highOK := math.NewIntFromString(req.HighBound)
	if !lowOK || !highOK {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid bounds")
		return
	}
	if err := ws.admin.SetBounds(req.Caller, id, low, high); err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"asset":      string(id),
		"low_bound":  low.String(),
		"high_bound": high.String(),
	})
}

func (ws *WebServer) handleSetAccepting(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !ws.decodeJSON(w, r, &req) {
		return
	}
	if req.Accepting == nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Missing accepting flag")
		return
	}
	id := types.AssetID(mux.Vars(r)["id"])
	if err := ws.admin.SetAccepting(req.Caller, id, *req.Accepting); err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"asset":     string(id),
		"accepting": *req.Accepting,
	})
}

// decodeOperation decodes an operation request body and parses its amount.
func (ws *WebServer) decodeOperation(w http.ResponseWriter, r *http.Request) (*operationRequest, math.Int, bool) {
	var req operationRequest
	if !ws.decodeJSON(w, r, &req) {
		return nil, math.Int{}, false
	}
	amount, ok := math.NewIntFromString(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return nil, math.Int{}, false
	}
	return &req, amount, true
}

func (ws *WebServer) decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// finishOperation persists the receipt of a successful operation and writes
// the HTTP response.
func (ws *WebServer) finishOperation(w http.ResponseWriter, receipt *types.OperationReceipt, err error) {
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	if ws.persistReceipt != nil {
		if persistErr := ws.persistReceipt(*receipt); persistErr != nil {
			// The transition already committed; a persistence failure must
			// not be reported as an operation failure.
			webLogger.Error().Err(persistErr).Str("receiptId", receipt.ID).Msg("Failed to persist receipt")
		}
	}
	ws.writeJSONResponse(w, http.StatusOK, receipt)
}

// writeOperationError maps engine errors onto HTTP status codes.
func (ws *WebServer) writeOperationError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrLimitExceeded),
		errors.Is(err, engine.ErrNotAccepting),
		errors.Is(err, registry.ErrAlreadyRegistered):
		statusCode = http.StatusConflict
	case errors.Is(err, registry.ErrNotRegistered):
		statusCode = http.StatusNotFound
	case errors.Is(err, admin.ErrUnauthorized):
		statusCode = http.StatusForbidden
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidFeeRate),
		errors.Is(err, registry.ErrInvalidBound),
		errors.Is(err, registry.ErrInvalidAssetID):
		statusCode = http.StatusBadRequest
	case errors.Is(err, engine.ErrNotInitialized):
		statusCode = http.StatusServiceUnavailable
	}
	ws.writeErrorResponse(w, statusCode, err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
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

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
