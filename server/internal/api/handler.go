package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/obsidianstack/regionstat/pkg/types"
	"github.com/obsidianstack/regionstat/server/internal/config"
	"github.com/obsidianstack/regionstat/server/internal/metrics"
	"github.com/obsidianstack/regionstat/server/internal/query"
	"github.com/obsidianstack/regionstat/server/internal/schema"
	"github.com/obsidianstack/regionstat/server/internal/store"
)

// RegionLister lists the regions held by the dataset.
type RegionLister interface {
	Regions() []store.RegionCount
}

// Options configures the HTTP boundary.
type Options struct {
	// MaxBodyBytes caps the POST /api body. Zero uses config.DefaultMaxBodyBytes.
	MaxBodyBytes int64
	CORS         config.CORSConfig
	RateLimit    config.RateLimitConfig
	Logger       *slog.Logger
}

// Handler serves the regionstat HTTP API.
type Handler struct {
	query   *query.Service
	regions RegionLister
	metrics *metrics.Registry
	limiter *rate.Limiter // nil when rate limiting is disabled
	maxBody int64
	log     *slog.Logger
	root    http.Handler
}

// New creates a Handler and registers all routes. reg may be nil.
func New(svc *query.Service, regions RegionLister, reg *metrics.Registry, opts Options) http.Handler {
	if reg == nil {
		reg = metrics.New(nil)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &Handler{
		query:   svc,
		regions: regions,
		metrics: reg,
		maxBody: opts.MaxBodyBytes,
		log:     opts.Logger,
	}
	if opts.RateLimit.Enabled() {
		h.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit.RequestsPerSecond), opts.RateLimit.EffectiveBurst())
	}

	r := mux.NewRouter()
	r.HandleFunc("/", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api", h.summarize).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/regions", h.listRegions).Methods(http.MethodGet)
	r.Handle("/metrics", reg).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: opts.CORS.AllowedOrigins,
		AllowedMethods: opts.CORS.AllowedMethods,
		AllowedHeaders: opts.CORS.AllowedHeaders,
	})
	h.root = withRequestID(h.accessLog(c.Handler(r)))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// status returns GET /: liveness check.
func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// summarize returns POST /api: one RegionSummary per requested region.
func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		h.reject(w, r, http.StatusTooManyRequests, metrics.ReasonRateLimited, "rate limit exceeded")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, r, http.StatusRequestEntityTooLarge, metrics.ReasonTooLarge, "request body too large")
			return
		}
		h.reject(w, r, http.StatusBadRequest, metrics.ReasonBadRequest, "could not read request body")
		return
	}

	req, violations, err := decodeQuery(body)
	if err != nil {
		h.reject(w, r, http.StatusBadRequest, metrics.ReasonBadRequest, "malformed JSON body")
		return
	}
	if len(violations) > 0 {
		h.metrics.ObserveRejected(metrics.ReasonBadRequest)
		h.log.Debug("api: invalid query", "request_id", RequestID(r.Context()), "violations", violations)
		jsonResp(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Details: violations})
		return
	}

	resp := h.query.Handle(req)
	h.metrics.ObserveQuery()
	jsonResp(w, http.StatusOK, resp)
}

// listRegions returns GET /api/v1/regions: loaded regions with record counts.
func (h *Handler) listRegions(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, h.regions.Regions())
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.reject(w, r, http.StatusMethodNotAllowed, metrics.ReasonMethodNotAllowed, "method not allowed")
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, code int, reason, msg string) {
	h.metrics.ObserveRejected(reason)
	h.log.Debug("api: request rejected",
		"request_id", RequestID(r.Context()), "path", r.URL.Path, "status", code, "reason", reason)
	jsonErr(w, code, msg)
}

// --- helpers ----------------------------------------------------------------

// queryBody is the wire shape of POST /api. threshold_ms is decoded as a float
// so that integral values written as 150.0 are accepted; the schema has
// already rejected fractional ones.
type queryBody struct {
	Regions     []string `json:"regions"`
	ThresholdMs float64  `json:"threshold_ms"`
}

// decodeQuery validates body against the request schema and decodes it.
// A non-nil error means body is not valid JSON.
func decodeQuery(body []byte) (types.QueryRequest, []string, error) {
	violations, err := schema.QueryRequest().Validate(body)
	if err != nil {
		return types.QueryRequest{}, nil, err
	}
	if len(violations) > 0 {
		return types.QueryRequest{}, violations, nil
	}

	var wire queryBody
	if err := json.Unmarshal(body, &wire); err != nil {
		return types.QueryRequest{}, nil, err
	}
	return types.QueryRequest{Regions: wire.Regions, ThresholdMs: int(wire.ThresholdMs)}, nil, nil
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
