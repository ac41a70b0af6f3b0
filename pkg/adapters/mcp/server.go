// Package mcp exposes signature parsing and graph validation as Model
// Context Protocol tools, so agents can check contracts before running them.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/orichalcum"
	"github.com/aretw0/orichalcum/internal/dto"
	"github.com/aretw0/orichalcum/internal/logging"
	"github.com/aretw0/orichalcum/internal/validator"
	"github.com/aretw0/orichalcum/pkg/schema"
)

// Tool names.
const (
	ToolParseSignature = "parse_signature"
	ToolValidateGraph  = "validate_graph"
)

// Server wraps an MCP server with the orichalcum tools registered.
type Server struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates the server. A nil logger discards output.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		mcpServer: server.NewMCPServer("orichalcum-mcp", orichalcum.Version),
		logger:    logger,
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over Server-Sent Events until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sigTool := mcp.NewTool(ToolParseSignature,
		mcp.WithDescription("Parse a task signature such as 'question: text, context? -> answer' and return its fields and structural hash."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Signature text")),
		mcp.WithOutputSchema[schema.Description](),
	)
	s.mcpServer.AddTool(sigTool, mcp.NewStructuredToolHandler(s.handleParseSignature))

	validateTool := mcp.NewTool(ToolValidateGraph,
		mcp.WithDescription("Check a graph document (YAML or JSON) for inputs that are not guaranteed, unrouted labels and unreachable nodes."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Graph document")),
		mcp.WithBoolean("strict", mcp.Description("Treat warnings and unreachable nodes as failures")),
		mcp.WithOutputSchema[validator.Summary](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidateGraph))
}

func (s *Server) handleParseSignature(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (schema.Description, error) {
	text, _ := args["text"].(string)
	sig, err := schema.Parse(text)
	if err != nil {
		return schema.Description{}, err
	}
	return schema.Describe(sig), nil
}

func (s *Server) handleValidateGraph(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (validator.Summary, error) {
	doc, _ := args["graph"].(string)
	strict, _ := args["strict"].(bool)

	g, err := dto.Parse([]byte(doc))
	if err != nil {
		return validator.Summary{}, fmt.Errorf("invalid graph document: %w", err)
	}
	report, err := validator.ValidateGraph(g)
	if err != nil {
		s.logger.Warn("MCP validate: graph rejected", "error", err)
		return validator.Summary{}, err
	}
	return report.Summary(strict), nil
}
