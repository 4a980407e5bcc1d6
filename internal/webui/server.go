// Package webui serves rendered profiles over HTTP.
package webui

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/profvis/internal/flamegraph"
	"github.com/profvis/internal/formatter"
	"github.com/profvis/internal/statistics"
	"github.com/profvis/pkg/compression"
	"github.com/profvis/pkg/config"
	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/telemetry"
	"github.com/profvis/pkg/utils"
	"github.com/profvis/pkg/writer"
)

// Server represents the HTTP server.
type Server struct {
	cfg        config.ServerConfig
	svc        *RenderService
	gatherer   prometheus.Gatherer
	formatters *formatter.Registry
	topN       int
	logger     utils.Logger
	server     *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithGatherer exposes the metrics in g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTopN sets the size of summary rankings.
func WithTopN(n int) Option {
	return func(s *Server) { s.topN = n }
}

// NewServer creates a new server.
func NewServer(cfg config.ServerConfig, svc *RenderService, opts ...Option) *Server {
	s := &Server{
		cfg:        cfg,
		svc:        svc,
		formatters: formatter.NewRegistry(),
		topN:       statistics.DefaultTopN,
		logger:     &utils.NullLogger{},
	}
	for _, o := range opts {
		o(s)
	}
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/formats", s.handleFormats)
	mux.HandleFunc("/api/render", s.traced("render", s.handleRender))
	mux.HandleFunc("/api/flamegraph", s.traced("flamegraph", s.handleFlameGraph))
	mux.HandleFunc("/api/codetable", s.traced("codetable", s.handleCodeTable))
	mux.HandleFunc("/api/summary", s.traced("summary", s.handleSummary))
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting web server at %s", s.cfg.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) traced(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := telemetry.Start(r.Context(), "http."+name,
			attribute.String("http.method", r.Method),
			attribute.String("profile.key", r.URL.Query().Get("key")),
		)
		defer span.End()
		h(w, r.WithContext(ctx))
	}
}

// input reads the profile reference of a request: ?key= on GET, the body
// on POST.
func (s *Server) input(w http.ResponseWriter, r *http.Request) (Input, bool) {
	q := r.URL.Query()
	in := Input{Format: q.Get("format")}
	switch r.Method {
	case http.MethodGet:
		in.Key = q.Get("key")
		if in.Key == "" {
			s.writeError(w, apperrors.MalformedInput("missing key parameter"))
			return in, false
		}
	case http.MethodPost:
		body := r.Body
		if s.cfg.MaxBodyBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		}
		in.Body = body
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return in, false
	}
	return in, true
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	in, ok := s.input(w, r)
	if !ok {
		return
	}
	out, err := s.svc.Render(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, r, out.Result)
}

func (s *Server) handleFlameGraph(w http.ResponseWriter, r *http.Request) {
	in, ok := s.input(w, r)
	if !ok {
		return
	}
	opts := flamegraph.DefaultGeneratorOptions()
	opts.Collapsed = queryBool(r, "collapsed")
	if v := r.URL.Query().Get("min_percent"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, apperrors.MalformedInput("invalid min_percent %q", v))
			return
		}
		opts.MinPercent = p
	}

	fg, err := s.svc.FlameGraph(r.Context(), in, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, r, fg)
}

func (s *Server) handleCodeTable(w http.ResponseWriter, r *http.Request) {
	in, ok := s.input(w, r)
	if !ok {
		return
	}
	out, err := s.svc.Render(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}

	f := s.formatters.Get(r.URL.Query().Get("view"))
	if f.Name() == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	opts := formatter.Options{
		HideZeroLines: queryBool(r, "hide_zero"),
		Highlight:     out.Result.Highlight,
	}
	if err := f.Format(w, out.Result.Files, opts); err != nil {
		s.logger.Error("Failed to write code table: %v", err)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	in, ok := s.input(w, r)
	if !ok {
		return
	}
	out, err := s.svc.Render(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	summary := statistics.Summarize(out, s.topN)
	summary.Source = in.Key
	writeJSON(w, r, summary)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.svc.Formats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

// errorBody is the JSON body of a failed request.
type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetErrorCode(err)
	status := statusFor(err, code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = writer.NewJSONWriter[errorBody]().Write(errorBody{Code: code, Error: err.Error()}, w)
}

func statusFor(err error, code string) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch code {
	case apperrors.CodeInputTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeMalformedInput, apperrors.CodeMalformedProfile,
		apperrors.CodeParseError, apperrors.CodeEmptyInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v, gzip-compressed when the client accepts it.
func writeJSON[T any](w http.ResponseWriter, r *http.Request, v T) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	jw := writer.NewJSONWriter[T]()
	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		jw = writer.NewCompressedJSONWriter[T](compression.Gzip{})
	}
	_, _ = jw.Write(v, w)
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
