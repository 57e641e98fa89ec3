package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"forecast_srv/internal/config"
	"forecast_srv/internal/errs"
	"forecast_srv/internal/models"
	"forecast_srv/internal/repository"
	"forecast_srv/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// Server represents the report service HTTP server.
type Server struct {
	echo    *echo.Echo
	service *service.ReportService
	logger  *logrus.Logger
}

// requestValidator plugs validator/v10 into echo.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return errs.Validationf("invalid request: %v", err)
	}
	return nil
}

// NewServer creates a new HTTP server.
func NewServer(cfg config.Config, reportService *service.ReportService, logger *logrus.Logger) *Server {
	e := echo.New()
	e.Debug = cfg.Server.Debug
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	server := &Server{
		echo:    e,
		service: reportService,
		logger:  logger,
	}

	server.setupRoutes()
	return server
}

// Start starts the HTTP server.
func (s *Server) Start(address string) error {
	s.logger.WithField("address", address).Info("Starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// setupRoutes configures the server routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	reports := s.echo.Group("/reports")
	{
		reports.POST("/pdf", s.createPDFReport)
		reports.POST("/xlsx", s.createXLSXReport)
		reports.GET("/download/:file_name", s.downloadReport)
		reports.GET("/history", s.reportHistory)
		reports.GET("/metrics", s.reportMetrics)
	}

	s.echo.POST("/templates", s.createTemplate)
	s.echo.GET("/templates", s.listTemplates)

	s.echo.GET("/cleanup/expired", s.cleanupExpired)
}

// reportRequest is the shared body of both report-creation endpoints.
// Inclusion flags default to true when omitted.
type reportRequest struct {
	StartDate         time.Time         `json:"start_date" validate:"required"`
	EndDate           time.Time         `json:"end_date" validate:"required"`
	ProductIDs        []uint            `json:"product_ids"`
	IncludeHistorical *bool             `json:"include_historical_data"`
	IncludeForecast   *bool             `json:"include_forecast"`
	TemplateName      string            `json:"template_name"`
	Title             string            `json:"title"`
	IncludeCharts     *bool             `json:"include_charts"`
	IncludePivot      *bool             `json:"include_pivot_tables"`
	SheetNames        map[string]string `json:"sheet_names"`
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// healthCheck handles health check requests.
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "report-service",
	})
}

// createPDFReport handles PDF report creation.
func (s *Server) createPDFReport(c echo.Context) error {
	return s.createReport(c, models.ReportTypePDF)
}

// createXLSXReport handles XLSX report creation.
func (s *Server) createXLSXReport(c echo.Context) error {
	return s.createReport(c, models.ReportTypeXLSX)
}

func (s *Server) createReport(c echo.Context, reportType models.ReportType) error {
	var req reportRequest
	if err := c.Bind(&req); err != nil {
		s.logger.WithError(err).Error("Failed to bind report request")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request format",
		})
	}
	if err := c.Validate(&req); err != nil {
		return s.errorResponse(c, err)
	}

	templateName := req.TemplateName
	if templateName == "" {
		templateName = "default_" + string(reportType)
	}
	title := req.Title
	if title == "" {
		title = "Demand Report"
	}

	result, err := s.service.Generate(c.Request().Context(), service.GenerateRequest{
		Type:              reportType,
		TemplateName:      templateName,
		Title:             title,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		ProductIDs:        req.ProductIDs,
		IncludeHistorical: boolOrDefault(req.IncludeHistorical, true),
		IncludeForecast:   boolOrDefault(req.IncludeForecast, true),
		IncludeCharts:     boolOrDefault(req.IncludeCharts, true),
		IncludePivot:      boolOrDefault(req.IncludePivot, true),
		SheetNames:        req.SheetNames,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to generate report")
		return s.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// downloadReport streams a generated report file.
func (s *Server) downloadReport(c echo.Context) error {
	fileName := c.Param("file_name")

	reader, _, err := s.service.Download(c.Request().Context(), fileName)
	if err != nil {
		return s.errorResponse(c, err)
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return c.Stream(http.StatusOK, "application/octet-stream", reader)
}

// reportHistory lists generated reports newest first.
func (s *Server) reportHistory(c echo.Context) error {
	filter := repository.HistoryFilter{Limit: 10, Offset: 0}

	if typeParam := c.QueryParam("type"); typeParam != "" {
		reportType := models.ReportType(typeParam)
		if !reportType.Valid() {
			return s.errorResponse(c, errs.Validationf("unknown report type: %s", typeParam))
		}
		filter.Type = &reportType
	}
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			return s.errorResponse(c, errs.Validationf("invalid limit: %s", limitParam))
		}
		filter.Limit = limit
	}
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil || offset < 0 {
			return s.errorResponse(c, errs.Validationf("invalid offset: %s", offsetParam))
		}
		filter.Offset = offset
	}

	history, err := s.service.History(c.Request().Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list report history")
		return s.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, history)
}

// reportMetrics returns aggregate report counters.
func (s *Server) reportMetrics(c echo.Context) error {
	metrics, err := s.service.Metrics(c.Request().Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to compute report metrics")
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, metrics)
}

// createTemplate handles template creation.
func (s *Server) createTemplate(c echo.Context) error {
	var req struct {
		Name         string            `json:"name" validate:"required"`
		Description  string            `json:"description"`
		Type         models.ReportType `json:"type" validate:"required"`
		TemplatePath string            `json:"template_path" validate:"required"`
		IsActive     *bool             `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		s.logger.WithError(err).Error("Failed to bind template request")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request format",
		})
	}
	if err := c.Validate(&req); err != nil {
		return s.errorResponse(c, err)
	}

	tmpl, err := s.service.CreateTemplate(c.Request().Context(), service.TemplateRequest{
		Name:         req.Name,
		Description:  req.Description,
		Type:         req.Type,
		TemplatePath: req.TemplatePath,
		IsActive:     boolOrDefault(req.IsActive, true),
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to create template")
		return s.errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, tmpl)
}

// listTemplates lists templates with optional type/is_active filters.
func (s *Server) listTemplates(c echo.Context) error {
	var filter repository.TemplateFilter

	if typeParam := c.QueryParam("type"); typeParam != "" {
		reportType := models.ReportType(typeParam)
		if !reportType.Valid() {
			return s.errorResponse(c, errs.Validationf("unknown report type: %s", typeParam))
		}
		filter.Type = &reportType
	}
	if activeParam := c.QueryParam("is_active"); activeParam != "" {
		active, err := strconv.ParseBool(activeParam)
		if err != nil {
			return s.errorResponse(c, errs.Validationf("invalid is_active: %s", activeParam))
		}
		filter.IsActive = &active
	}

	templates, err := s.service.ListTemplates(c.Request().Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list templates")
		return s.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, templates)
}

// cleanupExpired triggers the expiry sweep on demand.
func (s *Server) cleanupExpired(c echo.Context) error {
	removed, err := s.service.CleanupExpired(c.Request().Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to clean up expired reports")
		return s.errorResponse(c, err)
	}

	message := "No expired reports to clean up"
	if removed > 0 {
		message = "Expired reports cleaned up"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"removed": removed,
		"message": message,
	})
}

// errorResponse maps the error taxonomy onto HTTP statuses.
func (s *Server) errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
