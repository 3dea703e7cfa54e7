package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/livemd/internal/compiler"
	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/ports"
)

const (
	SessionsURI  = "livemd://sessions"
	DocumentsURI = "livemd://documents"
)

// Server wraps a livemd runtime and exposes it as an MCP Server.
type Server struct {
	rt        ports.Runtime
	loader    ports.DocumentLoader
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the MCP server.
type Option func(*Server)

// WithLoader exposes the loader's documents as a resource.
func WithLoader(loader ports.DocumentLoader) Option {
	return func(s *Server) {
		s.loader = loader
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(rt ports.Runtime, version string, opts ...Option) *Server {
	s := &Server{
		rt:        rt,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("livemd-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// -- Tool arguments --

type parseArgs struct {
	Document string `json:"document"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type executeArgs struct {
	SessionID  string         `json:"session_id"`
	Document   string         `json:"document"`
	DocumentID string         `json:"document_id"`
	Prior      map[string]any `json:"prior"`
	Carry      bool           `json:"carry"`
	Settings   map[string]any `json:"settings"`
}

type blockArgs struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Body      string `json:"body"`
}

type formArgs struct {
	SessionID string         `json:"session_id"`
	BlockID   string         `json:"block_id"`
	Answers   map[string]any `json:"answers"`
}

type stateArgs struct {
	SessionID string         `json:"session_id"`
	Values    map[string]any `json:"values"`
}

// SessionResponse reports the session a tool acted on.
type SessionResponse struct {
	SessionID string `json:"session_id" jsonschema_description:"The session the call acted on"`
}

// StateResponse is a snapshot of a session's variables.
type StateResponse struct {
	SessionID string                  `json:"session_id"`
	State     map[string]domain.Value `json:"state"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("parse",
		mcp.WithDescription("Parse a Markdown document and summarize its runtime blocks without executing it."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Markdown source")),
	), mcp.NewStructuredToolHandler(s.handleParse))

	s.mcpServer.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open a session with an empty variable store."),
		mcp.WithString("session_id", mcp.Description("Session ID (optional, generated when omitted)")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleOpen))

	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Close a session and discard its variables."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleClose))

	s.mcpServer.AddTool(mcp.NewTool("execute",
		mcp.WithDescription("Execute a Markdown document against a session. Stops at the first form block and reports it as pending_form."),
		mcp.WithString("session_id", mcp.Description("Session ID (optional, a new session is opened when omitted)")),
		mcp.WithString("document", mcp.Description("Markdown source")),
		mcp.WithString("document_id", mcp.Description("Document ID to load from the repository instead of document")),
		mcp.WithObject("prior", mcp.Description("Variables that replace the store before the pass")),
		mcp.WithBoolean("carry", mcp.Description("Keep the current variables instead of starting fresh")),
		mcp.WithObject("settings", mcp.Description("max_state_size_bytes and execution_timeout_ms for this pass")),
	), mcp.NewStructuredToolHandler(s.handleExecute))

	s.mcpServer.AddTool(mcp.NewTool("execute_block",
		mcp.WithDescription("Execute a single block body (state, set, if, nav, panel) against the session's current variables."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Block kind"), mcp.Enum("state", "set", "form", "if", "nav", "panel")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Block body without fences")),
	), mcp.NewStructuredToolHandler(s.handleExecuteBlock))

	s.mcpServer.AddTool(mcp.NewTool("submit_form",
		mcp.WithDescription("Submit answers for the pending form and resume the paused pass."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("ID of the pending form block")),
		mcp.WithObject("answers", mcp.Required(), mcp.Description("Field name to answer")),
	), mcp.NewStructuredToolHandler(s.handleSubmitForm))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Return a snapshot of the session's variables."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("set_state",
		mcp.WithDescription("Write variables into the session as one atomic batch."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithObject("values", mcp.Required(), mcp.Description("Variable name to string, number or boolean")),
	), mcp.NewStructuredToolHandler(s.handleSetState))

	s.mcpServer.AddTool(mcp.NewTool("reset_state",
		mcp.WithDescription("Clear the session's variables and remembered form answers."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleReset))
}

// Handler methods for structured tools

func (s *Server) handleParse(ctx context.Context, request mcp.CallToolRequest, args parseArgs) (compiler.Summary, error) {
	return compiler.Summarize(s.rt.Parse(args.Document)), nil
}

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (SessionResponse, error) {
	id, err := s.rt.Open(ctx, args.SessionID)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("open failed: %w", err)
	}
	return SessionResponse{SessionID: id}, nil
}

func (s *Server) handleClose(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (SessionResponse, error) {
	if err := s.rt.Close(ctx, args.SessionID); err != nil {
		return SessionResponse{}, fmt.Errorf("close failed: %w", err)
	}
	return SessionResponse{SessionID: args.SessionID}, nil
}

func (s *Server) handleExecute(ctx context.Context, request mcp.CallToolRequest, args executeArgs) (*domain.RenderResult, error) {
	prior, err := domain.Values(args.Prior)
	if err != nil {
		return nil, fmt.Errorf("prior rejected: %w", err)
	}
	id := args.SessionID
	if id == "" {
		if id, err = s.rt.Open(ctx, ""); err != nil {
			return nil, fmt.Errorf("open failed: %w", err)
		}
	}
	opts := domain.ExecuteOptions{Carry: args.Carry, Settings: args.Settings}
	if len(args.Prior) > 0 {
		opts.Prior = prior
	}

	var res *domain.RenderResult
	if args.DocumentID != "" {
		res, err = s.rt.ExecuteDocument(ctx, id, args.DocumentID, opts)
	} else {
		res, err = s.rt.Execute(ctx, id, args.Document, opts)
	}
	return s.partial("execute", res, err)
}

func (s *Server) handleExecuteBlock(ctx context.Context, request mcp.CallToolRequest, args blockArgs) (*domain.RenderResult, error) {
	res, err := s.rt.ExecuteBlock(ctx, args.SessionID, domain.BlockKind(args.Kind), args.Body)
	return s.partial("execute_block", res, err)
}

func (s *Server) handleSubmitForm(ctx context.Context, request mcp.CallToolRequest, args formArgs) (*domain.RenderResult, error) {
	res, err := s.rt.SubmitForm(ctx, args.SessionID, args.BlockID, args.Answers)
	return s.partial("submit_form", res, err)
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (StateResponse, error) {
	snap, err := s.rt.GetState(ctx, args.SessionID)
	if err != nil {
		return StateResponse{}, fmt.Errorf("get_state failed: %w", err)
	}
	return StateResponse{SessionID: args.SessionID, State: snap}, nil
}

func (s *Server) handleSetState(ctx context.Context, request mcp.CallToolRequest, args stateArgs) (StateResponse, error) {
	values, err := domain.Values(args.Values)
	if err != nil {
		return StateResponse{}, fmt.Errorf("values rejected: %w", err)
	}
	if err := s.rt.SetState(ctx, args.SessionID, values); err != nil {
		return StateResponse{}, fmt.Errorf("set_state failed: %w", err)
	}
	return s.handleGetState(ctx, request, sessionArgs{SessionID: args.SessionID})
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (SessionResponse, error) {
	if err := s.rt.Reset(ctx, args.SessionID); err != nil {
		return SessionResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return SessionResponse{SessionID: args.SessionID}, nil
}

// partial keeps the partial result of a timed out pass instead of failing the call.
func (s *Server) partial(tool string, res *domain.RenderResult, err error) (*domain.RenderResult, error) {
	var te *domain.TimeoutError
	if errors.As(err, &te) && res != nil {
		s.logger.Warn("MCP: pass timed out", "tool", tool, "session_id", res.SessionID, "skipped", te.Skipped)
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", tool, err)
	}
	return res, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Open Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(SessionsURI, s.rt.Sessions())
	})

	if s.loader == nil {
		return
	}
	s.mcpServer.AddResource(mcp.NewResource(DocumentsURI, "Available Documents",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.loader.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		return jsonResource(DocumentsURI, ids)
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
