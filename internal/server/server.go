package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/predeshen/telegramscalperbot-sub001/internal/source"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/logger"
)

// Server exposes the operational surface: health, per-provider source
// status, manual circuit reset, and Prometheus metrics.
type Server struct {
	e   *echo.Echo
	src *source.UnifiedSource
	log *logger.Logger
}

func New(src *source.UnifiedSource, log *logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{e: e, src: src, log: log.Named("server")}

	e.GET("/healthz", s.health)
	e.GET("/status", s.status)
	e.POST("/status/:source/reset", s.resetSource)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, s.src.SourceStatus())
}

func (s *Server) resetSource(c echo.Context) error {
	name := c.Param("source")
	if err := s.src.ResetSourceStatus(name); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reset", "source": name})
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start(port int) error {
	s.log.Info("ops server listening", logger.Int("port", port))
	err := s.e.Start(fmt.Sprintf(":%d", port))
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
