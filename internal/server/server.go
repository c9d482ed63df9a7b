package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"basecfg/internal/editor"
	"basecfg/internal/logger"
	"basecfg/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Server struct {
	echo    *echo.Echo
	session *editor.Session
	events  *hub
	port    int
	stopCh  chan struct{}
}

type Option func(*Server)

// WithRegistry exposes reg on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.echo.GET("/metrics", echo.WrapHandler(metrics.HTTPHandler(reg)))
		}
	}
}

func NewServer(session *editor.Session, port int, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		session: session,
		events:  newHub(),
		port:    port,
		stopCh:  make(chan struct{}, 1),
	}
	s.registerRoutes()
	for _, opt := range opts {
		opt(s)
	}

	s.events.watch(session)
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)
	s.echo.GET("/events", s.handleEvents)

	b := s.echo.Group("/bases")
	b.GET("", s.handleListBases)
	b.GET("/:tag", s.handleGetBase)
	b.PATCH("/:tag", s.handlePatchBase)
	b.PUT("/:tag/fields/:field", s.handleSetBaseField)

	s.echo.POST("/selection", s.handleSelect)
	s.echo.DELETE("/selection", s.handleClearSelection)

	s.echo.GET("/settings", s.handleGetSettings)
	s.echo.PATCH("/settings", s.handlePatchSettings)

	c := s.echo.Group("/commands")
	c.GET("", s.handleListCommands)
	c.POST("/:name/invoke", s.handleInvoke)
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() {
	go func() {
		addr := ":" + strconv.Itoa(s.port)
		logger.Log.Info("api server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("api server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.events.close()
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) handleStatus(c echo.Context) error {
	snap := s.session.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"status":        snap.Status,
		"sending":       snap.Sending,
		"selected_base": snap.SelectedBase,
		"commands":      commandViews(s.session),
	})
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func errorJSON(c echo.Context, code int, err error) error {
	return c.JSON(code, map[string]string{"error": err.Error()})
}
