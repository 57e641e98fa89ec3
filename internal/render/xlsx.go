package render

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"forecast_srv/internal/errs"
	"forecast_srv/internal/fetch"

	"github.com/xuri/excelize/v2"
)

const (
	sheetKeyHistorical = "historical"
	sheetKeyForecast   = "forecast"
	sheetKeyPivot      = "pivot"
	sheetKeyInfo       = "info"
)

var defaultSheetNames = map[string]string{
	sheetKeyHistorical: "Historical Data",
	sheetKeyForecast:   "Demand Forecast",
	sheetKeyPivot:      "Pivot",
	sheetKeyInfo:       "Info",
}

// xlsxTemplateConfig is the JSON shape of an xlsx template asset.
type xlsxTemplateConfig struct {
	SheetNames map[string]string `json:"sheet_names"`
}

// xlsxStyles holds the style ids used across sheets.
type xlsxStyles struct {
	header int
	date   int
	number int
	green  int
	yellow int
	red    int
}

// renderXLSX builds the workbook: one sheet per present data facet plus
// the always-present info sheet.
func (r *Renderer) renderXLSX(templatePath string, data Dataset, params Params) ([]byte, error) {
	sheetNames := resolveSheetNames(templatePath, params.SheetNames)

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newXLSXStyles(f)
	if err != nil {
		return nil, errs.Generationf(err, "failed to create workbook styles")
	}

	if data.Historical != nil {
		if err := writeHistoricalSheet(f, sheetNames[sheetKeyHistorical], data.Historical, styles); err != nil {
			return nil, errs.Generationf(err, "failed to write historical sheet")
		}
	}

	if data.Forecast != nil {
		if err := writeForecastSheet(f, sheetNames[sheetKeyForecast], data.Forecast, styles); err != nil {
			return nil, errs.Generationf(err, "failed to write forecast sheet")
		}
	}

	if params.IncludePivot && data.Forecast != nil {
		if err := writePivotSheet(f, sheetNames[sheetKeyPivot], data.Forecast, styles); err != nil {
			return nil, errs.Generationf(err, "failed to write pivot sheet")
		}
	}

	if err := writeInfoSheet(f, sheetNames[sheetKeyInfo], data, params, styles); err != nil {
		return nil, errs.Generationf(err, "failed to write info sheet")
	}

	// The implicit default sheet is never used.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, errs.Generationf(err, "failed to drop default sheet")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errs.Generationf(err, "failed to serialize workbook")
	}
	return buf.Bytes(), nil
}

// resolveSheetNames layers defaults, the template config and per-request
// overrides, in that order.
func resolveSheetNames(templatePath string, overrides map[string]string) map[string]string {
	names := make(map[string]string, len(defaultSheetNames))
	for k, v := range defaultSheetNames {
		names[k] = v
	}

	if raw, err := os.ReadFile(templatePath); err == nil {
		var cfg xlsxTemplateConfig
		if err := json.Unmarshal(raw, &cfg); err == nil {
			for k, v := range cfg.SheetNames {
				if v != "" {
					names[k] = v
				}
			}
		}
	}

	for k, v := range overrides {
		if v != "" {
			names[k] = v
		}
	}
	return names
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	var styles xlsxStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}

	styles.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D7E4BC"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}

	dateFmt := "dd.mm.yyyy"
	styles.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return styles, err
	}

	// Built-in format 2 is "0.00".
	styles.number, err = f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return styles, err
	}

	statusFills := map[string]*int{
		"#C6EFCE": &styles.green,
		"#FFEB9C": &styles.yellow,
		"#FFC7CE": &styles.red,
	}
	for color, target := range statusFills {
		*target, err = f.NewStyle(&excelize.Style{
			NumFmt: 2,
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return styles, err
		}
	}

	return styles, nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string, styles xlsxStyles) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return err
		}
	}
	return nil
}

func writeHistoricalSheet(f *excelize.File, name string, points []fetch.HistoricalPoint, styles xlsxStyles) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	headers := []string{"Product ID", "Product Name", "Date", "Actual Demand"}
	if err := writeHeaders(f, name, headers, styles); err != nil {
		return err
	}

	for i, p := range points {
		row := i + 2
		cells := []interface{}{p.ProductID, p.ProductName, p.Date, p.ActualDemand}
		for col, value := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, value); err != nil {
				return err
			}
		}
		dateCell, _ := excelize.CoordinatesToCellName(3, row)
		if err := f.SetCellStyle(name, dateCell, dateCell, styles.date); err != nil {
			return err
		}
		numCell, _ := excelize.CoordinatesToCellName(4, row)
		if err := f.SetCellStyle(name, numCell, numCell, styles.number); err != nil {
			return err
		}
	}

	return f.SetColWidth(name, "A", "D", 20)
}

func writeForecastSheet(f *excelize.File, name string, points []fetch.ForecastPoint, styles xlsxStyles) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	headers := []string{
		"Product ID", "Product Name", "Date", "Forecast",
		"Confidence Low", "Confidence High", "Accuracy", "Status", "Manual Override",
	}
	if err := writeHeaders(f, name, headers, styles); err != nil {
		return err
	}

	for i, p := range points {
		row := i + 2

		forecastStyle := styles.number
		switch p.Status {
		case "green":
			forecastStyle = styles.green
		case "yellow":
			forecastStyle = styles.yellow
		case "red":
			forecastStyle = styles.red
		}

		set := func(col int, value interface{}, style int) error {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, value); err != nil {
				return err
			}
			if style != 0 {
				return f.SetCellStyle(name, cell, cell, style)
			}
			return nil
		}

		if err := set(1, p.ProductID, 0); err != nil {
			return err
		}
		if err := set(2, p.ProductName, 0); err != nil {
			return err
		}
		if err := set(3, p.Date, styles.date); err != nil {
			return err
		}
		if err := set(4, p.ForecastedDemand, forecastStyle); err != nil {
			return err
		}
		if err := set(5, p.ConfidenceLow, styles.number); err != nil {
			return err
		}
		if err := set(6, p.ConfidenceHigh, styles.number); err != nil {
			return err
		}
		if p.Accuracy != nil {
			if err := set(7, *p.Accuracy, styles.number); err != nil {
				return err
			}
		}
		if err := set(8, strings.ToUpper(p.Status), 0); err != nil {
			return err
		}
		manual := "No"
		if p.IsManual {
			manual = "Yes"
		}
		if err := set(9, manual, 0); err != nil {
			return err
		}
	}

	return f.SetColWidth(name, "A", "I", 18)
}

// pivotRow is one (product, calendar month) aggregate.
type pivotRow struct {
	productName string
	month       time.Time
	total       float64
}

func writePivotSheet(f *excelize.File, name string, points []fetch.ForecastPoint, styles xlsxStyles) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	headers := []string{"Product", "Month", "Forecast"}
	if err := writeHeaders(f, name, headers, styles); err != nil {
		return err
	}

	rows := pivotForecast(points)
	for i, r := range rows {
		row := i + 2
		cells := []interface{}{r.productName, r.month, r.total}
		for col, value := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, value); err != nil {
				return err
			}
		}
		monthCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellStyle(name, monthCell, monthCell, styles.date); err != nil {
			return err
		}
		totalCell, _ := excelize.CoordinatesToCellName(3, row)
		if err := f.SetCellStyle(name, totalCell, totalCell, styles.number); err != nil {
			return err
		}
	}

	return f.SetColWidth(name, "A", "C", 20)
}

// pivotForecast sums forecast values per (product, calendar month),
// ordered by product name then month.
func pivotForecast(points []fetch.ForecastPoint) []pivotRow {
	type key struct {
		productName string
		month       time.Time
	}
	grouped := make(map[key]float64)
	for _, p := range points {
		month := time.Date(p.Date.Year(), p.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		grouped[key{productName: p.ProductName, month: month}] += p.ForecastedDemand
	}

	rows := make([]pivotRow, 0, len(grouped))
	for k, total := range grouped {
		rows = append(rows, pivotRow{productName: k.productName, month: k.month, total: total})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].productName != rows[j].productName {
			return rows[i].productName < rows[j].productName
		}
		return rows[i].month.Before(rows[j].month)
	})
	return rows
}

func writeInfoSheet(f *excelize.File, name string, data Dataset, params Params, styles xlsxStyles) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	if err := writeHeaders(f, name, []string{"Parameter", "Value"}, styles); err != nil {
		return err
	}

	productSet := make(map[uint]struct{})
	for _, p := range data.Forecast {
		productSet[p.ProductID] = struct{}{}
	}

	entries := []struct {
		label string
		value interface{}
		style int
	}{
		{"Start Date", params.StartDate, styles.date},
		{"End Date", params.EndDate, styles.date},
		{"Generation Time", params.GenerationTime.Format("2006-01-02 15:04:05"), 0},
		{"Product Count", len(productSet), 0},
	}

	for i, e := range entries {
		row := i + 2
		labelCell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, labelCell, e.label); err != nil {
			return err
		}
		valueCell, err := excelize.CoordinatesToCellName(2, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, valueCell, e.value); err != nil {
			return err
		}
		if e.style != 0 {
			if err := f.SetCellStyle(name, valueCell, valueCell, e.style); err != nil {
				return err
			}
		}
	}

	return f.SetColWidth(name, "A", "B", 30)
}
