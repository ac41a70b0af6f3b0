// Package http exposes signature parsing, graph validation, recorded
// traces and metrics over a JSON API.
package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/orichalcum"
	"github.com/aretw0/orichalcum/internal/dto"
	"github.com/aretw0/orichalcum/internal/logging"
	"github.com/aretw0/orichalcum/internal/validator"
	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/telemetry"
)

// APIVersion is reported by GET /info.
const APIVersion = "1"

// maxBody bounds request bodies.
const maxBody = 1 << 20

// Server holds the collaborators of the handlers.
type Server struct {
	traces   *telemetry.MemorySink
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithTraces serves GET /v1/traces from sink.
func WithTraces(sink *telemetry.MemorySink) Option {
	return func(s *Server) { s.traces = sink }
}

// WithGatherer serves GET /metrics from g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewHandler creates the HTTP handler. Endpoints whose collaborator is not
// configured answer 404.
func NewHandler(opts ...Option) http.Handler {
	s := &Server{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/signatures", s.PostSignature)
		r.Post("/validate", s.PostValidate)
		if s.traces != nil {
			r.Get("/traces", s.GetTraces)
		}
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SignatureRequest is the body of POST /v1/signatures.
type SignatureRequest struct {
	Signature string `json:"signature"`
}

// PostSignature parses a signature and returns its description.
func (s *Server) PostSignature(w http.ResponseWriter, r *http.Request) {
	var body SignatureRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	sig, err := schema.Parse(body.Signature)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err.Error(), err)
		return
	}
	s.reply(w, http.StatusOK, schema.Describe(sig))
}

// ValidateResponse is the body returned by POST /v1/validate.
type ValidateResponse = validator.Summary

// PostValidate checks a graph document, JSON or YAML.
func (s *Server) PostValidate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	g, err := dto.Parse(data)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err.Error(), err)
		return
	}
	report, err := validator.ValidateGraph(g)
	if err != nil {
		s.fail(w, http.StatusUnprocessableEntity, err.Error(), err)
		return
	}

	resp := report.Summary(r.URL.Query().Get("strict") == "true")
	s.reply(w, http.StatusOK, resp)
}

// GetTraces lists recorded events, optionally filtered by ?task=.
func (s *Server) GetTraces(w http.ResponseWriter, r *http.Request) {
	var events []telemetry.Event
	if task := r.URL.Query().Get("task"); task != "" {
		events = s.traces.EventsFor(task)
	} else {
		events = s.traces.Events()
	}
	if events == nil {
		events = []telemetry.Event{}
	}
	s.reply(w, http.StatusOK, map[string]any{
		"events": events,
		"issues": s.traces.Issues(),
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.reply(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.reply(w, http.StatusOK, map[string]string{
		"app":         "orichalcum-http",
		"version":     orichalcum.Version,
		"api_version": APIVersion,
	})
}

func (s *Server) reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string, err error) {
	s.logger.Warn("request rejected", "status", status, "error", err)
	s.reply(w, status, map[string]string{"error": msg})
}
