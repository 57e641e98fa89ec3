package render

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"forecast_srv/internal/fetch"
	"forecast_srv/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// captureConverter records the HTML it was given and echoes it back.
type captureConverter struct {
	html []byte
}

func (c *captureConverter) Convert(ctx context.Context, html []byte) ([]byte, error) {
	c.html = html
	return html, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testDataset() Dataset {
	accuracy := 0.85
	return Dataset{
		Forecast: []fetch.ForecastPoint{
			{
				ProductID:        1,
				ProductName:      "Widget",
				Date:             time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
				ForecastedDemand: 150,
				ConfidenceLow:    120,
				ConfidenceHigh:   180,
				Accuracy:         &accuracy,
				Status:           "green",
			},
			{
				ProductID:        1,
				ProductName:      "Widget",
				Date:             time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC),
				ForecastedDemand: 50,
				ConfidenceLow:    40,
				ConfidenceHigh:   60,
				Status:           "red",
			},
			{
				ProductID:        2,
				ProductName:      "Gadget",
				Date:             time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
				ForecastedDemand: 30,
				ConfidenceLow:    20,
				ConfidenceHigh:   40,
				Status:           "yellow",
			},
		},
		Historical: []fetch.HistoricalPoint{
			{ProductID: 1, ProductName: "Widget", Date: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), ActualDemand: 142},
		},
	}
}

func testParams() Params {
	return Params{
		Title:          "October Demand",
		StartDate:      time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2023, 11, 30, 0, 0, 0, 0, time.UTC),
		GenerationTime: time.Date(2023, 12, 1, 12, 0, 0, 0, time.UTC),
		IncludeCharts:  true,
		IncludePivot:   true,
	}
}

func TestRenderPDFBuiltInTemplate(t *testing.T) {
	converter := &captureConverter{}
	r := NewRenderer(converter, testLogger())

	out, err := r.Render(context.Background(), models.ReportTypePDF, "missing/default.html", testDataset(), testParams())
	require.NoError(t, err)
	require.NotEmpty(t, out)

	html := string(converter.html)
	assert.Contains(t, html, "October Demand")
	assert.Contains(t, html, "Widget")
	assert.Contains(t, html, "01.09.2023")
	assert.Contains(t, html, "85.00%")
	assert.Contains(t, html, "GREEN")
	assert.Contains(t, html, "2023-12-01 12:00:00")
}

func TestRenderPDFEscapesData(t *testing.T) {
	converter := &captureConverter{}
	r := NewRenderer(converter, testLogger())

	data := testDataset()
	data.Forecast[0].ProductName = `<script>alert("x")</script>`

	_, err := r.Render(context.Background(), models.ReportTypePDF, "missing/default.html", data, testParams())
	require.NoError(t, err)

	html := string(converter.html)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderPDFCustomTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body>{{ .Title }}</body></html>"), 0o644))

	converter := &captureConverter{}
	r := NewRenderer(converter, testLogger())

	_, err := r.Render(context.Background(), models.ReportTypePDF, path, testDataset(), testParams())
	require.NoError(t, err)
	assert.Equal(t, "<html><body>October Demand</body></html>", string(converter.html))
}

func TestRenderXLSXWorkbook(t *testing.T) {
	r := NewRenderer(&captureConverter{}, testLogger())

	out, err := r.Render(context.Background(), models.ReportTypeXLSX, "missing/default.json", testDataset(), testParams())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Historical Data")
	assert.Contains(t, sheets, "Demand Forecast")
	assert.Contains(t, sheets, "Pivot")
	assert.Contains(t, sheets, "Info")
	assert.NotContains(t, sheets, "Sheet1")

	name, err := f.GetCellValue("Demand Forecast", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Widget", name)

	status, err := f.GetCellValue("Demand Forecast", "H2")
	require.NoError(t, err)
	assert.Equal(t, "GREEN", status)
}

func TestRenderXLSXSheetNameOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sheet_names":{"forecast":"Prognose"}}`), 0o644))

	r := NewRenderer(&captureConverter{}, testLogger())

	params := testParams()
	params.SheetNames = map[string]string{"info": "About"}

	out, err := r.Render(context.Background(), models.ReportTypeXLSX, path, testDataset(), params)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	// Template config renames the forecast sheet, the request renames info,
	// everything else keeps its default.
	assert.Contains(t, sheets, "Prognose")
	assert.Contains(t, sheets, "About")
	assert.Contains(t, sheets, "Historical Data")
}

func TestRenderXLSXOmitsUnrequestedFacets(t *testing.T) {
	r := NewRenderer(&captureConverter{}, testLogger())

	data := testDataset()
	data.Historical = nil
	params := testParams()
	params.IncludePivot = false

	out, err := r.Render(context.Background(), models.ReportTypeXLSX, "missing/default.json", data, params)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.NotContains(t, sheets, "Historical Data")
	assert.NotContains(t, sheets, "Pivot")
	assert.Contains(t, sheets, "Demand Forecast")
	assert.Contains(t, sheets, "Info")
}

func TestRenderUnknownType(t *testing.T) {
	r := NewRenderer(&captureConverter{}, testLogger())

	_, err := r.Render(context.Background(), models.ReportType("docx"), "", Dataset{}, Params{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported report type"))
}

func TestPivotForecast(t *testing.T) {
	rows := pivotForecast(testDataset().Forecast)
	require.Len(t, rows, 2)

	// Ordered by product name, then month; October values for Widget sum.
	assert.Equal(t, "Gadget", rows[0].productName)
	assert.Equal(t, 30.0, rows[0].total)

	assert.Equal(t, "Widget", rows[1].productName)
	assert.Equal(t, time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC), rows[1].month)
	assert.Equal(t, 200.0, rows[1].total)
}
