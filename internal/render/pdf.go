package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"forecast_srv/internal/errs"
	"forecast_srv/internal/fetch"
)

// HTMLConverter rasterizes a rendered HTML document into PDF bytes.
type HTMLConverter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// defaultPDFTemplate is used when the template asset at the stored path is
// missing.
const defaultPDFTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{ .Title }}</title>
    <style>
        body { font-family: Arial, sans-serif; }
        .header { text-align: center; margin-bottom: 20px; }
        .section { margin-top: 20px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        .footer { margin-top: 30px; text-align: center; font-size: 0.8em; }
        .green { color: green; }
        .yellow { color: orange; }
        .red { color: red; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{ .Title }}</h1>
        <p>Period: {{ formatDate .StartDate }} - {{ formatDate .EndDate }}</p>
    </div>

    {{ if .Historical }}
    <div class="section">
        <h2>Historical Data</h2>
        <table>
            <tr>
                <th>Product</th>
                <th>Date</th>
                <th>Actual Demand</th>
            </tr>
            {{ range .Historical }}
            <tr>
                <td>{{ .ProductName }}</td>
                <td>{{ formatDate .Date }}</td>
                <td>{{ formatNumber .ActualDemand }}</td>
            </tr>
            {{ end }}
        </table>
    </div>
    {{ end }}

    {{ if .Forecast }}
    <div class="section">
        <h2>Demand Forecast</h2>
        <table>
            <tr>
                <th>Product</th>
                <th>Date</th>
                <th>Forecast</th>
                <th>Confidence Interval</th>
                <th>Accuracy</th>
                <th>Status</th>
            </tr>
            {{ range .Forecast }}
            <tr>
                <td>{{ .ProductName }}</td>
                <td>{{ formatDate .Date }}</td>
                <td>{{ formatNumber .ForecastedDemand }}</td>
                <td>{{ formatNumber .ConfidenceLow }} - {{ formatNumber .ConfidenceHigh }}</td>
                <td>{{ formatAccuracy .Accuracy }}</td>
                <td class="{{ .Status }}">{{ upper .Status }}</td>
            </tr>
            {{ end }}
        </table>
    </div>
    {{ end }}

    <div class="footer">
        <p>Report generated: {{ formatTime .GenerationTime }}</p>
    </div>
</body>
</html>
`

// renderPDF fills the HTML template with the dataset and converts the
// result to PDF. Interpolated values are escaped by html/template.
func (r *Renderer) renderPDF(ctx context.Context, templatePath string, data Dataset, params Params) ([]byte, error) {
	content := defaultPDFTemplate
	if raw, err := os.ReadFile(templatePath); err == nil {
		content = string(raw)
	} else {
		r.logger.WithField("template_path", templatePath).
			Warn("Template asset not found, using built-in default")
	}

	tmpl, err := template.New("report").Funcs(pdfFuncs()).Parse(content)
	if err != nil {
		return nil, errs.Generationf(err, "failed to parse PDF template")
	}

	htmlCtx := struct {
		Title          string
		StartDate      time.Time
		EndDate        time.Time
		GenerationTime time.Time
		Historical     []fetch.HistoricalPoint
		Forecast       []fetch.ForecastPoint
	}{
		Title:          params.Title,
		StartDate:      params.StartDate,
		EndDate:        params.EndDate,
		GenerationTime: params.GenerationTime,
		Historical:     data.Historical,
		Forecast:       data.Forecast,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, htmlCtx); err != nil {
		return nil, errs.Generationf(err, "failed to render PDF template")
	}

	pdf, err := r.converter.Convert(ctx, buf.Bytes())
	if err != nil {
		return nil, errs.Generationf(err, "failed to convert HTML to PDF")
	}
	return pdf, nil
}

func pdfFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("02.01.2006")
		},
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		"formatNumber": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatAccuracy": func(a *float64) string {
			if a == nil {
				return "-"
			}
			return fmt.Sprintf("%.2f%%", *a*100)
		},
		"upper": strings.ToUpper,
	}
}
