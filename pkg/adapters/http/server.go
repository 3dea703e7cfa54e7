package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"

	"github.com/aretw0/livemd/internal/compiler"
	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/ports"
)

//go:embed openapi.yaml
var rawSpec []byte

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// Server exposes a ports.Runtime over HTTP.
type Server struct {
	Runtime ports.Runtime

	logger  *slog.Logger
	metrics http.Handler
	version string
	spec    *openapi3.T
}

// Option configures the HTTP server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts a Prometheus handler on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the build version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewHandler creates a new HTTP handler for the runtime.
func NewHandler(rt ports.Runtime, opts ...Option) (http.Handler, error) {
	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		Runtime: rt,
		logger:  logging.NewNop(),
		version: "dev",
		spec:    spec,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Post("/parse", s.Parse)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.OpenSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.CloseSession)
			r.Post("/execute", s.Execute)
			r.Post("/blocks", s.ExecuteBlock)
			r.Get("/state", s.GetState)
			r.Patch("/state", s.PatchState)
			r.Delete("/state", s.ResetState)
			r.Post("/forms/{blockID}", s.SubmitForm)
		})
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>livemd API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// -- Requests --

type documentRequest struct {
	Document string `json:"document"`
}

type openRequest struct {
	SessionID string `json:"session_id"`
}

type executeRequest struct {
	Document   string                  `json:"document"`
	DocumentID string                  `json:"document_id"`
	Prior      map[string]domain.Value `json:"prior"`
	Carry      bool                    `json:"carry"`
	Settings   map[string]any          `json:"settings"`
}

type blockRequest struct {
	Kind domain.BlockKind `json:"kind"`
	Body string           `json:"body"`
}

type formRequest struct {
	Answers map[string]any `json:"answers"`
}

// SegmentView is the wire shape of one parsed segment.
type SegmentView struct {
	Type  string             `json:"type"`
	Range domain.SourceRange `json:"range"`
	Block domain.Segment     `json:"block"`
}

type parseResponse struct {
	Segments []SegmentView    `json:"segments"`
	Summary  compiler.Summary `json:"summary"`
}

// -- Handlers --

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "livemd-http",
		"version":     s.version,
		"api_version": s.spec.Info.Version,
	})
}

// Parse handles the POST /parse request.
func (s *Server) Parse(w http.ResponseWriter, r *http.Request) {
	var body documentRequest
	if !s.decode(w, r, "Parse", &body) {
		return
	}
	segs := s.Runtime.Parse(body.Document)
	views := make([]SegmentView, len(segs))
	for i, seg := range segs {
		views[i] = SegmentView{Type: seg.SegmentType(), Range: seg.SourceRange(), Block: seg}
	}
	s.writeJSON(w, http.StatusOK, parseResponse{Segments: views, Summary: compiler.Summarize(segs)})
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Runtime.Sessions()})
}

// OpenSession handles the POST /sessions request. The body is optional.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var body openRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, "OpenSession", err)
		return
	}
	id, err := s.Runtime.Open(r.Context(), body.SessionID)
	if err != nil {
		s.fail(w, "OpenSession", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, openRequest{SessionID: id})
}

// CloseSession handles the DELETE /sessions/{id} request.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Runtime.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "CloseSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Execute handles the POST /sessions/{id}/execute request.
func (s *Server) Execute(w http.ResponseWriter, r *http.Request) {
	var body executeRequest
	if !s.decode(w, r, "Execute", &body) {
		return
	}
	opts := domain.ExecuteOptions{Prior: body.Prior, Carry: body.Carry, Settings: body.Settings}
	id := chi.URLParam(r, "id")

	var (
		res *domain.RenderResult
		err error
	)
	if body.DocumentID != "" {
		res, err = s.Runtime.ExecuteDocument(r.Context(), id, body.DocumentID, opts)
	} else {
		res, err = s.Runtime.Execute(r.Context(), id, body.Document, opts)
	}
	s.writeResult(w, "Execute", res, err)
}

// ExecuteBlock handles the POST /sessions/{id}/blocks request.
func (s *Server) ExecuteBlock(w http.ResponseWriter, r *http.Request) {
	var body blockRequest
	if !s.decode(w, r, "ExecuteBlock", &body) {
		return
	}
	res, err := s.Runtime.ExecuteBlock(r.Context(), chi.URLParam(r, "id"), body.Kind, body.Body)
	s.writeResult(w, "ExecuteBlock", res, err)
}

// GetState handles the GET /sessions/{id}/state request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Runtime.GetState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "GetState", err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// PatchState handles the PATCH /sessions/{id}/state request.
func (s *Server) PatchState(w http.ResponseWriter, r *http.Request) {
	var body map[string]domain.Value
	if !s.decode(w, r, "PatchState", &body) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.Runtime.SetState(r.Context(), id, body); err != nil {
		s.fail(w, "PatchState", err)
		return
	}
	s.GetState(w, r)
}

// ResetState handles the DELETE /sessions/{id}/state request.
func (s *Server) ResetState(w http.ResponseWriter, r *http.Request) {
	if err := s.Runtime.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "ResetState", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitForm handles the POST /sessions/{id}/forms/{blockID} request.
func (s *Server) SubmitForm(w http.ResponseWriter, r *http.Request) {
	var body formRequest
	if !s.decode(w, r, "SubmitForm", &body) {
		return
	}
	res, err := s.Runtime.SubmitForm(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "blockID"), body.Answers)
	s.writeResult(w, "SubmitForm", res, err)
}

// -- Helpers --

// writeResult sends a render result. A timed out pass still answers 200 with
// its partial result; every other error maps through statusFor.
func (s *Server) writeResult(w http.ResponseWriter, op string, res *domain.RenderResult, err error) {
	var te *domain.TimeoutError
	if err != nil && !(errors.As(err, &te) && res != nil) {
		s.fail(w, op, err)
		return
	}
	if te != nil {
		s.logger.Warn(op+": pass timed out", "session_id", res.SessionID, "skipped", te.Skipped)
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.badRequest(w, op, err)
		return false
	}
	return true
}

func (s *Server) badRequest(w http.ResponseWriter, op string, err error) {
	s.logger.Warn(op+": Invalid request body", "err", err)
	s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "err", err, "status", code)
	}
	body := errorBody{Error: err.Error()}
	if k := domain.Classify(err); k != domain.ErrorInternal {
		body.Kind = string(k)
	}
	s.writeJSON(w, code, body)
}

// statusFor maps runtime errors to HTTP status codes.
func statusFor(err error) int {
	var (
		pe *domain.ParseError
		oe *domain.StateOverflowError
	)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionExists),
		errors.Is(err, domain.ErrNoPendingForm),
		errors.Is(err, domain.ErrFormMismatch):
		return http.StatusConflict
	case errors.As(err, &oe):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &pe),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidValue),
		errors.Is(err, domain.ErrInvalidSettings),
		errors.Is(err, domain.ErrUnknownBlock):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoLoader):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v before the status line goes out, so an unencodable
// value becomes a 500 instead of an empty 200.
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("response encode failed", "err", err)
		code = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Error: "response encode failed: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}
