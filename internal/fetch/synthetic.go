package fetch

import (
	"context"
	"time"
)

// SyntheticFetcher serves a fixed fixture dataset. Used where the shared
// store holds no upstream data, e.g. demo environments and tests.
type SyntheticFetcher struct{}

// NewSyntheticFetcher returns the fixture-backed fetcher.
func NewSyntheticFetcher() *SyntheticFetcher {
	return &SyntheticFetcher{}
}

// FetchForecast returns the fixture forecast points falling inside the
// requested window and product filter.
func (s *SyntheticFetcher) FetchForecast(ctx context.Context, productIDs []uint, start, end time.Time) ([]ForecastPoint, error) {
	accuracy := 0.85
	fixture := []ForecastPoint{
		{
			ProductID:        1,
			ProductName:      "Sample Product 1",
			Date:             time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
			ForecastedDemand: 150.0,
			ConfidenceLow:    120.0,
			ConfidenceHigh:   180.0,
			Accuracy:         &accuracy,
			Status:           "green",
			IsManual:         false,
		},
	}

	points := make([]ForecastPoint, 0, len(fixture))
	for _, p := range fixture {
		if inWindow(p.Date, start, end) && matchesProduct(p.ProductID, productIDs) {
			points = append(points, p)
		}
	}
	return points, nil
}

// FetchHistorical returns the fixture historical points falling inside the
// requested window and product filter.
func (s *SyntheticFetcher) FetchHistorical(ctx context.Context, productIDs []uint, start, end time.Time) ([]HistoricalPoint, error) {
	fixture := []HistoricalPoint{
		{
			ProductID:    1,
			ProductName:  "Sample Product 1",
			Date:         time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
			ActualDemand: 142.0,
		},
		{
			ProductID:    1,
			ProductName:  "Sample Product 1",
			Date:         time.Date(2023, 9, 15, 0, 0, 0, 0, time.UTC),
			ActualDemand: 158.0,
		},
	}

	points := make([]HistoricalPoint, 0, len(fixture))
	for _, p := range fixture {
		if inWindow(p.Date, start, end) && matchesProduct(p.ProductID, productIDs) {
			points = append(points, p)
		}
	}
	return points, nil
}

func inWindow(date, start, end time.Time) bool {
	return !date.Before(start) && !date.After(end)
}

func matchesProduct(id uint, filter []uint) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == id {
			return true
		}
	}
	return false
}
