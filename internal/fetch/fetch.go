package fetch

import (
	"context"
	"time"
)

// ForecastPoint is one denormalized forecast row ready for rendering.
type ForecastPoint struct {
	ProductID        uint      `json:"product_id"`
	ProductName      string    `json:"product_name"`
	Date             time.Time `json:"date"`
	ForecastedDemand float64   `json:"forecasted_demand"`
	ConfidenceLow    float64   `json:"confidence_low"`
	ConfidenceHigh   float64   `json:"confidence_high"`
	Accuracy         *float64  `json:"accuracy,omitempty"`
	Status           string    `json:"status"`
	IsManual         bool      `json:"is_manual"`
}

// HistoricalPoint is the observed demand for one product on one day:
// the sum of order quantities for that product on that date.
type HistoricalPoint struct {
	ProductID    uint      `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Date         time.Time `json:"date"`
	ActualDemand float64   `json:"actual_demand"`
}

// Fetcher supplies the datasets reports are built from. Both filters are
// inclusive on [start, end]; an empty productIDs slice means all products.
// Implementations are selected at construction time, never probed at
// runtime.
type Fetcher interface {
	FetchForecast(ctx context.Context, productIDs []uint, start, end time.Time) ([]ForecastPoint, error)
	FetchHistorical(ctx context.Context, productIDs []uint, start, end time.Time) ([]HistoricalPoint, error)
}
