package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hession/sqlitemcp/internal/config"
	"github.com/hession/sqlitemcp/internal/logger"
	"github.com/hession/sqlitemcp/internal/observability"
	"github.com/hession/sqlitemcp/internal/tools"
)

const (
	SSEPath     = "/sse"
	MessagePath = "/message"
)

// Version is reported to clients during the MCP handshake
var Version = "0.1.0"

// Server hosts the registry's tools over MCP
type Server struct {
	cfg      *config.Config
	registry *tools.Registry
	mcp      *mcpserver.MCPServer
}

// New creates a server and registers every tool in registry
func New(cfg *config.Config, registry *tools.Registry) *Server {
	observability.RegisterMetrics()

	s := &Server{
		cfg:      cfg,
		registry: registry,
	}

	s.mcp = mcpserver.NewMCPServer(
		cfg.Server.Name,
		Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithToolHandlerMiddleware(s.invocationContext),
		mcpserver.WithRecovery(),
	)

	for _, tool := range registry.List() {
		s.mcp.AddTool(buildTool(tool), s.toolHandler(tool.Name()))
		logger.Debug("Registered tool %s", tool.Name())
	}

	return s
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// Run serves on the configured transport until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	switch s.cfg.Server.ServerType {
	case config.TransportStdio:
		return s.ServeStdio(ctx, os.Stdin, os.Stdout)
	case config.TransportSSE, "":
		return s.ServeSSE(ctx)
	default:
		return fmt.Errorf("unknown server type: %s", s.cfg.Server.ServerType)
	}
}

// ServeStdio speaks newline-delimited JSON-RPC on in/out
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	errorLog := io.Writer(os.Stderr)
	if l := logger.GetDefault(); l != nil {
		errorLog = l.GetWriter(logger.ERROR)
	}
	stdio.SetErrorLogger(log.New(errorLog, "", 0))

	logger.Info("Starting %s on stdio", s.cfg.Server.Name)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server failed: %w", err)
	}
	return nil
}

// SSEHandler returns the MCP event-stream handler. baseURL prefixes the
// message endpoint announced to clients.
func (s *Server) SSEHandler(baseURL string) *mcpserver.SSEServer {
	return mcpserver.NewSSEServer(s.mcp,
		mcpserver.WithBaseURL(baseURL),
		mcpserver.WithSSEEndpoint(SSEPath),
		mcpserver.WithMessageEndpoint(MessagePath),
	)
}

// ServeSSE listens on host:port with the event stream at /sse
func (s *Server) ServeSSE(ctx context.Context) error {
	sse := s.SSEHandler(s.cfg.BaseURL())

	httpServer := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Router(sse),
		// cancelling ctx also ends open event streams
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting %s on %s", s.cfg.Server.Name, s.cfg.SSEURL())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("sse server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down %s", s.cfg.Server.Name)
	timeout := time.Duration(s.cfg.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sse.Shutdown(shutdownCtx); err != nil {
		logger.Warn("SSE shutdown: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// Router mounts the MCP SSE handler next to health and metrics endpoints
func (s *Server) Router(sse http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		observability.RequestLogger(logger.Zerolog()),
		observability.RequestMetricsMiddleware(),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "name": s.cfg.Server.Name})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET(SSEPath, gin.WrapH(sse))
	router.POST(MessagePath, gin.WrapH(sse))

	return router
}

// invocationContext gives every tool call its own trace id and the
// caller's identity for logging
func (s *Server) invocationContext(next mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fields := logger.Fields{
			TraceID:  uuid.NewString(),
			ClientID: string(s.cfg.Server.ServerType),
			Username: s.cfg.Log.Username,
		}
		if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
			fields.ClientID = session.SessionID()
		}
		ctx = logger.WithFields(ctx, fields)

		start := time.Now()
		result, err := next(ctx, request)
		logger.DebugCtx(ctx, "Tool %s finished in %s", request.Params.Name, time.Since(start))
		return result, err
	}
}

func (s *Server) toolHandler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := s.registry.Execute(ctx, name, request.GetArguments())
		if err != nil {
			logger.WarnCtx(ctx, "Rejected %s call: %v", name, err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

// buildTool converts a registry tool into its MCP description
func buildTool(tool tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(tool.Description())}

	for _, param := range tool.Parameters() {
		props := []mcp.PropertyOption{mcp.Description(param.Description)}
		if param.Required {
			props = append(props, mcp.Required())
		}

		switch param.Type {
		case "number":
			if def, ok := param.Default.(float64); ok {
				props = append(props, mcp.DefaultNumber(def))
			}
			opts = append(opts, mcp.WithNumber(param.Name, props...))
		case "boolean":
			if def, ok := param.Default.(bool); ok {
				props = append(props, mcp.DefaultBool(def))
			}
			opts = append(opts, mcp.WithBoolean(param.Name, props...))
		default:
			if def, ok := param.Default.(string); ok {
				props = append(props, mcp.DefaultString(def))
			}
			opts = append(opts, mcp.WithString(param.Name, props...))
		}
	}

	return mcp.NewTool(tool.Name(), opts...)
}
