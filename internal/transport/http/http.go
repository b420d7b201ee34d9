// Package http implements the HTTP/JSON transport (spec §4.1): every
// request is translated into one dispatcher.Dispatch call, and every
// AIDISError is translated back to an HTTP status through
// internal/aidiserr's shared mapping table (property P2).
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/metrics"
	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
)

// PingFunc checks database connectivity, used by GET /readyz.
type PingFunc func(ctx context.Context) error

// Server wraps an Echo router over the shared dispatcher.
type Server struct {
	echo         *echo.Echo
	dispatcher   *dispatcher.Dispatcher
	catalog      *catalog.Catalog
	orchestrator *orchestrator.Orchestrator
	metrics      *metrics.Dispatch
	logger       *zap.Logger
	dbPing       PingFunc

	shutdownTimeout time.Duration
	bindAddr        string
}

// New builds a Server bound to addr, registering spec §4.1's routes.
// metricsHandler, if non-nil, is mounted at GET /metrics (set up by
// internal/metrics.SetupGlobalMeterProvider). dbPing, if non-nil, backs
// GET /readyz's connectivity check; a nil dbPing means readiness can
// never be verified, so /readyz always reports 503.
func New(bindAddr string, shutdownTimeout time.Duration, d *dispatcher.Dispatcher, cat *catalog.Catalog, orch *orchestrator.Orchestrator, m *metrics.Dispatch, metricsHandler http.Handler, dbPing PingFunc, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:            e,
		dispatcher:      d,
		catalog:         cat,
		orchestrator:    orch,
		metrics:         m,
		logger:          logger,
		dbPing:          dbPing,
		shutdownTimeout: shutdownTimeout,
		bindAddr:        bindAddr,
	}

	e.POST("/mcp/tools/:toolName", s.handleToolCall)
	e.GET("/mcp/tools", s.handleListTools)
	e.GET("/mcp/tools/schemas", s.handleToolSchemas)
	e.GET("/healthz", s.handleHealthz)
	e.GET("/readyz", s.handleReadyz)
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}
	return s
}

// sessionKey derives the per-connection session identity from the
// X-AIDIS-Session-Key header, falling back to the request's RequestID
// (spec §4.4: the HTTP transport has no persistent connection to key a
// session on, so each distinct caller must supply its own key).
func sessionKey(c echo.Context) string {
	if k := c.Request().Header.Get("X-AIDIS-Session-Key"); k != "" {
		return k
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// toolCallBody is the spec-required request envelope for
// POST /mcp/tools/{toolName}: {"arguments": {...}}.
type toolCallBody struct {
	Arguments map[string]interface{} `json:"arguments"`
}

func (s *Server) handleToolCall(c echo.Context) error {
	toolName := c.Param("toolName")

	var body toolCallBody
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&body); err != nil {
			return writeError(c, aidiserr.New(aidiserr.KindValidation, "malformed JSON body"))
		}
	}
	rawArgs := body.Arguments
	if rawArgs == nil {
		rawArgs = map[string]interface{}{}
	}

	ctx := c.Request().Context()
	key := sessionKey(c)

	if s.metrics != nil {
		s.metrics.IncrementActive(ctx, toolName)
		defer s.metrics.DecrementActive(ctx, toolName)
	}

	start := time.Now()
	result, err := s.dispatcher.Dispatch(ctx, key, toolName, rawArgs)
	if s.metrics != nil {
		s.metrics.RecordInvocation(ctx, toolName, time.Since(start), err)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "result": result.Value})
}

func (s *Server) handleListTools(c echo.Context) error {
	if category := c.QueryParam("category"); category != "" {
		return c.JSON(http.StatusOK, s.catalog.ListByCategory(catalog.Category(category)))
	}
	return c.JSON(http.StatusOK, s.catalog.List())
}

func (s *Server) handleToolSchemas(c echo.Context) error {
	tools := s.catalog.List()
	schemas := make(map[string]catalog.Schema, len(tools))
	for _, t := range tools {
		schemas[t.Name] = t.Schema
	}
	return c.JSON(http.StatusOK, schemas)
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// readyzTimeout bounds how long the inline connectivity check may take
// before /readyz gives up and reports 503.
const readyzTimeout = 5 * time.Second

func (s *Server) handleReadyz(c echo.Context) error {
	if s.dbPing == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": "not_ready"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), readyzTimeout)
	defer cancel()
	if err := s.dbPing(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": "not_ready"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          "ready",
		"active_sessions": s.orchestrator.ActiveSessionCount(),
	})
}

// writeError translates an AIDISError into the spec's HTTP error
// envelope (spec line 60: {"success": false, "error": "<message>"})
// through the shared status-code mapping table (property P2).
func writeError(c echo.Context, err error) error {
	ae, ok := aidiserr.As(err)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "internal error"})
	}
	return c.JSON(aidiserr.HTTPStatus(ae.Kind), map[string]interface{}{
		"success": false,
		"error":   aidiserr.PublicMessage(ae),
	})
}

// Start runs the HTTP server and blocks until ctx is cancelled, then
// performs a graceful shutdown bounded by shutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.bindAddr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return http.ErrServerClosed
	}
}
