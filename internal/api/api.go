// Package api exposes the lookup engine over HTTP. Handlers only
// translate between JSON and engine calls; all lookup semantics live
// in internal/phonedb and internal/batch.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"phone-lookup/internal/batch"
	"phone-lookup/internal/phonedb"
)

// maxBatchSize caps a single batch request.
const maxBatchSize = 100

// maxCacheResize caps the accepted (clear-only) cache resize value.
const maxCacheResize = 100000

// Server holds the engine handle shared by all handlers.
type Server struct {
	engine       *phonedb.Engine
	batchWorkers int
}

// NewServer creates a Server around a loaded engine. batchWorkers
// bounds the fan-out of /batch requests; 0 means one worker per CPU.
func NewServer(engine *phonedb.Engine, batchWorkers int) *Server {
	return &Server{engine: engine, batchWorkers: batchWorkers}
}

// Routes builds the chi router for the service.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Get("/query", s.handleQuery)
	r.Get("/query/{phone}", s.handleQueryPath)
	r.Post("/batch", s.handleBatch)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/cache/clear", s.handleCacheClear)
	r.Post("/cache/resize", s.handleCacheResize)
	return r
}

// response is the envelope shared by every endpoint. Code is 0 on
// success and a negative error code otherwise.
type response struct {
	Code    int    `json:"code"`
	Data    any    `json:"data,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, response{Code: 0, Data: data, Success: true, Message: "success"})
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, response{Code: code, Success: false, Message: message})
}

// errorCode maps an engine error to an envelope code and message.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, phonedb.ErrNotFound):
		return -404, "phone number not found"
	case errors.Is(err, phonedb.ErrInvalidLength):
		return -400, "invalid phone number format"
	case errors.Is(err, phonedb.ErrInvalidDatabase),
		errors.Is(err, phonedb.ErrInvalidCarrierCode):
		return -500, "database format error"
	default:
		return -500, "lookup failed"
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "Phone Lookup API v1.0 - Ready")
}

func (s *Server) resolveAndRespond(w http.ResponseWriter, phone string) {
	if len(phone) < 7 {
		writeError(w, http.StatusBadRequest, -400, "invalid phone number format")
		return
	}

	rec, err := s.engine.Resolve(phone)
	if err != nil {
		code, msg := errorCode(err)
		writeJSON(w, http.StatusOK, response{Code: code, Success: false, Message: msg})
		return
	}
	writeSuccess(w, rec)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.resolveAndRespond(w, r.URL.Query().Get("phone"))
}

func (s *Server) handleQueryPath(w http.ResponseWriter, r *http.Request) {
	s.resolveAndRespond(w, chi.URLParam(r, "phone"))
}

// batchRequest is the /batch request body.
type batchRequest struct {
	Phones []string `json:"phones"`
}

// batchItem is one per-phone outcome inside a batch response. Exactly
// one of Result and Error is set.
type batchItem struct {
	Phone  string          `json:"phone"`
	Index  int             `json:"index"`
	Result *phonedb.Record `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type batchResponse struct {
	JobID     string      `json:"job_id"`
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Results   []batchItem `json:"results"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, -400, "invalid request body")
		return
	}
	if len(req.Phones) > maxBatchSize {
		writeError(w, http.StatusBadRequest, -400, "batch queries are limited to 100 phone numbers")
		return
	}

	results := batch.Lookup(s.engine, req.Phones, s.batchWorkers)

	items := make([]batchItem, len(results))
	for i, res := range results {
		item := batchItem{Phone: res.Phone, Index: res.Index}
		if res.Err != nil {
			_, item.Error = errorCode(res.Err)
		} else {
			item.Result = res.Record
		}
		items[i] = item
	}

	succeeded := batch.Succeeded(results)
	writeSuccess(w, batchResponse{
		JobID:     uuid.New().String(),
		Total:     len(results),
		Succeeded: succeeded,
		Failed:    len(results) - succeeded,
		Results:   items,
	})
}

// healthInfo is the /health payload.
type healthInfo struct {
	Status       string  `json:"status"`
	Version      string  `json:"db_version"`
	IndexCount   int     `json:"index_count"`
	CacheSize    int     `json:"cache_size"`
	CacheMax     int     `json:"cache_capacity"`
	TotalQueries uint64  `json:"total_queries"`
	CacheHitRate float64 `json:"cache_hit_rate_percent"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cache := s.engine.CacheStats()
	writeSuccess(w, healthInfo{
		Status:       "healthy",
		Version:      s.engine.Version(),
		IndexCount:   s.engine.IndexCount(),
		CacheSize:    cache.Size,
		CacheMax:     cache.Capacity,
		TotalQueries: s.engine.TotalQueries(),
		CacheHitRate: s.engine.CacheHitRate(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]any{
		"engine": s.engine.Stats(),
		"cache":  s.engine.CacheStats(),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearCache(); err != nil {
		writeError(w, http.StatusConflict, -400, "cache is disabled")
		return
	}
	writeSuccess(w, "cache cleared")
}

// cacheResizeRequest is the /cache/resize request body.
type cacheResizeRequest struct {
	Size int `json:"size"`
}

func (s *Server) handleCacheResize(w http.ResponseWriter, r *http.Request) {
	var req cacheResizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, -400, "invalid request body")
		return
	}
	if req.Size > maxCacheResize {
		writeError(w, http.StatusBadRequest, -400, "cache size must not exceed 100000")
		return
	}
	if err := s.engine.SetCacheSize(req.Size); err != nil {
		writeError(w, http.StatusConflict, -400, "cache is disabled")
		return
	}
	// Capacity is fixed at construction; resize only clears.
	writeSuccess(w, "cache cleared; capacity is fixed at construction time")
}
