// Package server implements the HTTP collation service behind "stemma serve".
//
// Routes:
//
//	POST /collate   CollateX JSON input in, alignment table and transpositions out
//	GET  /healthz   liveness
//	GET  /metrics   Prometheus metrics, when a gatherer is configured
//
// Collation responses are cached by witness content and matching settings.
// Every response carries an X-Request-ID header; a request ID sent by the
// client is kept.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/stemma/pkg/apparatus"
	"github.com/matzehuels/stemma/pkg/cache"
	"github.com/matzehuels/stemma/pkg/collate"
	errs "github.com/matzehuels/stemma/pkg/errors"
	stemmaio "github.com/matzehuels/stemma/pkg/io"
	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/observability"
	"github.com/matzehuels/stemma/pkg/transposition"
	"github.com/matzehuels/stemma/pkg/witness"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// MaxBodyBytes bounds the size of a collation request.
const MaxBodyBytes = 8 << 20

// Config configures a [Server].
type Config struct {
	Cache    cache.Cache         // Optional; defaults to no caching
	Keyer    cache.Keyer         // Optional; defaults to cache.DefaultKeyer
	Logger   *log.Logger         // Optional; defaults to log.Default()
	Gatherer prometheus.Gatherer // Optional; enables GET /metrics
}

// Server answers collation requests.
type Server struct {
	cache    cache.Cache
	keyer    cache.Keyer
	logger   *log.Logger
	gatherer prometheus.Gatherer
}

// New creates a server from cfg.
func New(cfg Config) *Server {
	s := &Server{cache: cfg.Cache, keyer: cfg.Keyer, logger: cfg.Logger, gatherer: cfg.Gatherer}
	if s.cache == nil {
		s.cache = cache.NewNullCache()
	}
	if s.keyer == nil {
		s.keyer = cache.NewDefaultKeyer()
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Handler returns the service routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Post("/collate", s.handleCollate)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Close releases the cache.
func (s *Server) Close() error {
	return s.cache.Close()
}

// =============================================================================
// Responses
// =============================================================================

// CollateResponse is the body of a successful POST /collate.
type CollateResponse struct {
	RunID          string                     `json:"run_id"`
	Table          *apparatus.Table           `json:"table"`
	Transpositions map[string][]Transposition `json:"transpositions"`
	Stats          Stats                      `json:"stats"`
}

// Transposition is one phrase reported as moved.
type Transposition struct {
	Phrase   string `json:"phrase"`
	Index    int    `json:"index"`
	Expected int    `json:"expected_rank"`
	Actual   int    `json:"actual_rank"`
}

// Stats summarizes the collated graph.
type Stats struct {
	Witnesses int `json:"witnesses"`
	Vertices  int `json:"vertices"`
	Edges     int `json:"edges"`
	Entries   int `json:"entries"`
	Variants  int `json:"variants"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCollate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.With("request_id", RequestID(ctx))

	in, err := stemmaio.ReadJSON(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ws, err := in.Build(witness.Tokenizer{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	mo, err := in.MatchOptions(match.DefaultOptions())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := s.keyer.CollationKey(cache.HashWitnesses(ws), cache.CollationKeyOpts{
		Algorithm: mo.Mode.String(),
		Threshold: mo.Threshold,
	})
	if data, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		logger.Debug("served cached collation", "key", key)
		w.Header().Set("X-Cache", "hit")
		writeRaw(w, http.StatusOK, data)
		return
	} else if err != nil {
		logger.Warn("cache read failed", "err", err)
	}

	res, err := collate.Collate(ctx, ws, collate.Options{Match: mo})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := json.Marshal(newCollateResponse(res))
	if err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInternal, err, "encode response"))
		return
	}
	if err := s.cache.Set(ctx, key, data, cache.TTLCollation); err != nil {
		logger.Warn("cache write failed", "err", err)
	}

	logger.Info("collated", "run", res.RunID, "witnesses", len(ws), "vertices", res.Graph.VertexCount())
	w.Header().Set("X-Cache", "miss")
	writeRaw(w, http.StatusOK, data)
}

func newCollateResponse(res *collate.Result) CollateResponse {
	tbl := apparatus.FromResult(res)
	out := CollateResponse{
		RunID:          res.RunID,
		Table:          tbl,
		Transpositions: make(map[string][]Transposition),
		Stats: Stats{
			Witnesses: len(res.Witnesses),
			Vertices:  res.Graph.VertexCount(),
			Edges:     res.Graph.EdgeCount(),
			Entries:   len(tbl.Entries),
			Variants:  tbl.Variants(),
		},
	}
	for sigil, ts := range res.Transpositions {
		for _, t := range ts {
			out.Transpositions[sigil] = append(out.Transpositions[sigil], newTransposition(t))
		}
	}
	return out
}

func newTransposition(t transposition.Transposition) Transposition {
	var phrase []byte
	for i, tm := range t.Phrase.Tokens {
		if i > 0 {
			phrase = append(phrase, ' ')
		}
		phrase = append(phrase, tm.Token.Normalized...)
	}
	return Transposition{Phrase: string(phrase), Index: t.Index, Expected: t.Expected, Actual: t.Actual}
}

// =============================================================================
// Errors
// =============================================================================

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeConfiguration, errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", RequestID(r.Context()), "err", err)
	}
	writeJSON(w, status, errorResponse{
		Error:     errs.UserMessage(err),
		Code:      string(errs.GetCode(err)),
		RequestID: RequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, data)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// =============================================================================
// Middleware
// =============================================================================

type ctxKey int

const requestIDKey ctxKey = 0

// RequestID returns the ID of the request carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// MaxRequestIDLen bounds client-supplied request IDs.
const MaxRequestIDLen = 128

// validRequestID reports whether id is short and uses only letters, digits,
// '.', '_' and '-'.
func validRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch c := id[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// requestID keeps a well-formed client X-Request-ID or assigns a new one,
// and echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// statusWriter captures the status code of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

// observe reports every request to the server hooks and the debug log.
// Routes are reported by pattern so that metrics stay bounded.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.Server()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		d := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, route, sw.status, d)
		s.logger.Debug("request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"route", route,
			"status", sw.status,
			"duration", d)
	})
}
