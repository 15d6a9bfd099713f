package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"sitemanager/core-go/internal/db"
	"sitemanager/core-go/internal/metrics"
	"sitemanager/core-go/internal/refresher"
	"sitemanager/core-go/internal/sqlcgen"
	"sitemanager/core-go/internal/tree"
)

type datasetQueries interface {
	GetDataset(ctx context.Context, name string) (sqlcgen.Dataset, error)
	ListDatasets(ctx context.Context) ([]sqlcgen.Dataset, error)
	UpsertDataset(ctx context.Context, arg sqlcgen.UpsertDatasetParams) (sqlcgen.Dataset, error)
	DeleteDataset(ctx context.Context, name string) (int64, error)
}

// SnapshotSource publishes the tree computed from stored datasets. *refresher.Worker
// satisfies it.
type SnapshotSource interface {
	Latest() *refresher.Snapshot
	RefreshNow(ctx context.Context) error
}

type Options struct {
	Processor   *tree.Processor
	Snapshots   SnapshotSource
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

type Handler struct {
	log         zerolog.Logger
	pool        *db.Pool
	datasets    datasetQueries
	proc        *tree.Processor
	snapshots   SnapshotSource
	metrics     *metrics.Metrics
	corsOrigins []string
}

func NewHandler(log zerolog.Logger, pool *db.Pool, opts Options) *Handler {
	h := &Handler{
		log:         log,
		pool:        pool,
		proc:        opts.Processor,
		snapshots:   opts.Snapshots,
		metrics:     opts.Metrics,
		corsOrigins: opts.CORSOrigins,
	}
	if pool != nil {
		h.datasets = pool.Queries()
	}
	if h.proc == nil {
		h.proc = tree.NewProcessor(log, nil, opts.Metrics)
	}
	if len(h.corsOrigins) == 0 {
		h.corsOrigins = []string{"*"}
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", snapshotRevisionHeader},
	}).Handler)
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/tree", func(r chi.Router) {
				r.Get("/", h.handleGetTree)
				r.Post("/process", h.handleProcessTree)
				r.Get("/node", h.handleGetTreeNode)
				r.Get("/search", h.handleSearchTree)
				r.Get("/alarms", h.handleTreeAlarms)
			})

			r.Get("/severities", h.handleListSeverities)

			r.Route("/datasets", func(r chi.Router) {
				r.Get("/", h.handleListDatasets)
				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", h.handleGetDataset)
					r.Put("/", h.handlePutDataset)
					r.Delete("/", h.handleDeleteDataset)
				})
			})

			r.Get("/map/sites", h.handleMapSites)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), elapsed)

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("http_request")
	})
}

// writeJSON buffers the encoding; a value that cannot be encoded is sent as a 500.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.log.Error().Err(err).Int("status", status).Msg("encode response")
		buf.Reset()
		buf.WriteString(`{"error":{"code":"encode_error","message":"failed to encode response"}}` + "\n")
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.pool == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return
	}

	if err := h.pool.Ping(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (h *Handler) ensureDatasets(w http.ResponseWriter) bool {
	if h.datasets == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return false
	}
	return true
}

func (h *Handler) handleListSeverities(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, tree.SeverityStyles())
}
