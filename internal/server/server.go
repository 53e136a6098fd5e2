// Package server exposes the assistant over HTTP with echo.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"sales-assistant/internal/assistant"
	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/dispatch"
	"sales-assistant/internal/intent"

	apperrors "sales-assistant/internal/common/errors"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline is the part of the assistant the HTTP layer uses.
type Pipeline interface {
	Handle(ctx context.Context, req assistant.Request) *assistant.Outcome
	Classify(ctx context.Context, prompt string) intent.Result
	Dispatch(ctx context.Context, in intent.Intent, params map[string]interface{}) *dispatch.Result
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Checks       map[string]ReadinessCheck
}

type Server struct {
	echo     *echo.Echo
	pipeline Pipeline
	opts     Options
	logger   logger.Logger
}

func New(pipeline Pipeline, opts Options, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout

	s := &Server{
		echo:     e,
		pipeline: pipeline,
		opts:     opts,
		logger:   log.With(map[string]interface{}{"component": "http"}),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)

	e.GET("/health", s.health)
	e.GET("/ready", s.ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	v1.POST("/prompts", s.handlePrompt)
	v1.POST("/classify", s.handleClassify)
	v1.POST("/dispatch", s.handleDispatch)

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", map[string]interface{}{"address": s.opts.Address})
	if err := s.echo.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug("request", map[string]interface{}{
			"method":     c.Request().Method,
			"path":       c.Path(),
			"status":     c.Response().Status,
			"requestId":  c.Response().Header().Get(echo.HeaderXRequestID),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return nil
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	failing := map[string]string{}
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"checks": failing,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

type promptRequest struct {
	Prompt string                 `json:"prompt"`
	Params map[string]interface{} `json:"params"`
}

type dispatchRequest struct {
	Intent string                 `json:"intent"`
	Params map[string]interface{} `json:"params"`
}

func badRequest(c echo.Context, details string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"status": dispatch.StatusError,
		"error":  apperrors.NewInvalidRequestError(details),
	})
}

// handlePrompt runs the full pipeline. Workflow failures are reported in the
// body with status 200; only undecodable requests get 400.
func (s *Server) handlePrompt(c echo.Context) error {
	var req promptRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be a JSON object")
	}
	out := s.pipeline.Handle(c.Request().Context(), assistant.Request{Prompt: req.Prompt, Params: req.Params})
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleClassify(c echo.Context) error {
	var req promptRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be a JSON object")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return badRequest(c, "prompt is required")
	}
	return c.JSON(http.StatusOK, s.pipeline.Classify(c.Request().Context(), req.Prompt))
}

func (s *Server) handleDispatch(c echo.Context) error {
	var req dispatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be a JSON object")
	}
	res := s.pipeline.Dispatch(c.Request().Context(), intent.Intent(strings.TrimSpace(req.Intent)), req.Params)
	return c.JSON(http.StatusOK, res)
}
