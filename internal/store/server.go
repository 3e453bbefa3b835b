package store

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// batchRequest is the body of POST /v1/{entity}/batch.
type batchRequest struct {
	Records []Record `json:"records"`
}

// batchResponse answers a batch write.
type batchResponse struct {
	Inserted int `json:"inserted"`
}

type countResponse struct {
	Count int `json:"count"`
}

type quantityResponse struct {
	Quantity string `json:"quantity"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// handler serves a Store over HTTP.
type handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler exposes s over HTTP:
//
//	POST /v1/{entity}/batch          upsert a batch
//	GET  /v1/{entity}/count          count migrated records
//	GET  /v1/{entity}/records/{key}  look up one record
//	GET  /v1/{entity}/quantity       sum migrated quantity
//	GET  /healthz                    liveness
func NewHandler(s Store, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{store: s, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(h.requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/{entity}", func(r chi.Router) {
		r.Post("/batch", h.batch)
		r.Get("/count", h.count)
		r.Get("/records/{key}", h.lookup)
		r.Get("/quantity", h.quantity)
	})

	return r
}

// requestLog logs one line per request.
func (h *handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

// entity reads and validates the {entity} path segment.
func (h *handler) entity(w http.ResponseWriter, r *http.Request) (Entity, bool) {
	e, err := ParseEntity(chi.URLParam(r, "entity"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return e, true
}

func (h *handler) batch(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entity(w, r)
	if !ok {
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	n, err := h.store.Upsert(r.Context(), entity, req.Records)
	if err != nil {
		h.logger.Warn("batch rejected", zap.String("entity", string(entity)), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Inserted: n})
}

func (h *handler) count(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entity(w, r)
	if !ok {
		return
	}

	n, err := h.store.CountMigrated(r.Context(), entity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entity(w, r)
	if !ok {
		return
	}

	key := chi.URLParam(r, "key")
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}

	rec, found, err := h.store.Lookup(r.Context(), entity, key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) quantity(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entity(w, r)
	if !ok {
		return
	}

	total, err := h.store.SumQuantity(r.Context(), entity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quantityResponse{Quantity: total.String()})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	var body errorBody
	body.Error.Message = message
	body.Error.Code = status
	writeJSON(w, status, body)
}
