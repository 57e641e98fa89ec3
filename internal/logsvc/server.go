package logsvc

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"forecast_srv/internal/errs"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

const serviceVersion = "0.1.0"

// Server is the log-access HTTP server.
type Server struct {
	echo    *echo.Echo
	service *LogService
	logger  *logrus.Logger
}

// NewServer creates the log-access HTTP server.
func NewServer(service *LogService, logger *logrus.Logger) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:    e,
		service: service,
		logger:  logger,
	}

	server.setupRoutes()
	return server
}

// Start starts the HTTP server.
func (s *Server) Start(address string) error {
	s.logger.WithField("address", address).Info("Starting logging service HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down logging service HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/", s.serviceInfo)
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/logs", s.getLogs)
	s.echo.POST("/logs/clear", s.clearLogs)
	s.echo.GET("/logs/download", s.downloadLogs)
}

func (s *Server) serviceInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "DemandForecastApp Logging Service",
		"version": serviceVersion,
		"status":  "running",
	})
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// getLogs returns the last N non-empty log lines. Out-of-range values of
// lines are clamped, not rejected.
func (s *Server) getLogs(c echo.Context) error {
	lines := 100
	if linesParam := c.QueryParam("lines"); linesParam != "" {
		parsed, err := strconv.Atoi(linesParam)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "lines must be an integer",
			})
		}
		lines = parsed
	}

	result, err := s.service.Tail(lines)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read logs")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to read logs",
		})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) clearLogs(c echo.Context) error {
	message, err := s.service.Clear()
	if err != nil {
		s.logger.WithError(err).Error("Failed to clear logs")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to clear logs",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

func (s *Server) downloadLogs(c echo.Context) error {
	reader, err := s.service.Open()
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Log file not found",
			})
		}
		s.logger.WithError(err).Error("Failed to open log file")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to download logs",
		})
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="app.log"`)
	return c.Stream(http.StatusOK, "text/plain", reader)
}
