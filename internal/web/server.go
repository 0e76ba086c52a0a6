// Package web is the HTTP binding over the orchestrator's command surface:
// the four clip commands, the SSE progress stream, and clip file serving.
package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thirdcoast.systems/clipforge/internal/jobs"
	"thirdcoast.systems/clipforge/internal/pubsub"
)

type Webserver struct {
	*echo.Echo
	sessionManager *SessionManager
	orch           *jobs.Orchestrator
	hub            *pubsub.Hub
	clipsDir       string
}

func NewWebserver(orch *jobs.Orchestrator, hub *pubsub.Hub, sessionManager *SessionManager, clipsDir string) *Webserver {
	e := echo.New()

	s := &Webserver{
		Echo:           e,
		sessionManager: sessionManager,
		orch:           orch,
		hub:            hub,
		clipsDir:       clipsDir,
	}

	s.setupMiddleware()
	s.registerRoutes()
	return s
}

func (s *Webserver) setupMiddleware() {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("2M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// SSE streams and media files must not be buffered by gzip.
			return c.Path() == "/api/clips/:id/stream" || c.Path() == "/clips/:file"
		},
	}))
}

func (s *Webserver) registerRoutes() {
	s.POST("/api/clips", s.handleCreate)
	s.GET("/api/clips/:id", s.handleQuery)
	s.POST("/api/clips/:id/captions", s.handleUpdateCaptions)
	s.GET("/api/clips/:id/refresh", s.handleRefresh)
	s.GET("/api/clips/:id/stream", s.handleStream)
	s.GET("/clips/:file", s.handleClipFile)
	s.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
}

// Start runs the server on the configured port.
func (s *Webserver) Start(port int) error {
	slog.Info("web server listening", "port", port)
	return s.Echo.Start(fmt.Sprintf(":%d", port))
}

// identify resolves the caller identity and runs pending promotion when the
// request carries both a user id and a leftover anonymous session.
func (s *Webserver) identify(c echo.Context) (jobs.Identity, error) {
	id, pendingAnon, err := s.sessionManager.Identity(c.Response(), c.Request())
	if err != nil {
		return jobs.Identity{}, err
	}
	if pendingAnon != "" && id.UserID != "" {
		if err := s.orch.Promote(c.Request().Context(), pendingAnon, id.UserID); err != nil {
			slog.Warn("promotion failed", "error", err)
		} else if err := s.sessionManager.ClearAnonymous(c.Response(), c.Request()); err != nil {
			slog.Warn("failed to clear anonymous session", "error", err)
		}
	}
	return id, nil
}

// httpError maps orchestrator error kinds onto status codes.
func httpError(err error) error {
	switch jobs.KindOf(err) {
	case jobs.KindInvalidInput, jobs.KindParseError:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case jobs.KindUnauthorized:
		return echo.NewHTTPError(http.StatusForbidden, "unauthorized")
	case jobs.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case jobs.KindBusy:
		return echo.NewHTTPError(http.StatusConflict, "busy")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
