package render

import (
	"context"
	"time"

	"forecast_srv/internal/errs"
	"forecast_srv/internal/fetch"
	"forecast_srv/internal/models"

	"github.com/sirupsen/logrus"
)

// Dataset is everything fetched for one report. Nil slices mean the facet
// was not requested.
type Dataset struct {
	Forecast   []fetch.ForecastPoint
	Historical []fetch.HistoricalPoint
}

// Params carries the request options that shape the rendered output.
type Params struct {
	Title          string
	StartDate      time.Time
	EndDate        time.Time
	GenerationTime time.Time
	IncludeCharts  bool
	IncludePivot   bool
	SheetNames     map[string]string
}

// Renderer turns a dataset plus parameters into report file bytes.
// Rendering happens fully in memory, so a failed render never leaves a
// partial file anywhere.
type Renderer struct {
	converter HTMLConverter
	logger    *logrus.Logger
}

// NewRenderer creates a renderer using converter for HTML to PDF.
func NewRenderer(converter HTMLConverter, logger *logrus.Logger) *Renderer {
	return &Renderer{converter: converter, logger: logger}
}

// Render produces the report bytes for the given format kind.
func (r *Renderer) Render(ctx context.Context, kind models.ReportType, templatePath string, data Dataset, params Params) ([]byte, error) {
	switch kind {
	case models.ReportTypePDF:
		return r.renderPDF(ctx, templatePath, data, params)
	case models.ReportTypeXLSX:
		return r.renderXLSX(templatePath, data, params)
	default:
		return nil, errs.Validationf("unsupported report type: %s", kind)
	}
}
