package fetch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"forecast_srv/internal/models"

	"gorm.io/gorm"
)

// DBFetcher reads forecast and order data straight from the shared
// relational store.
type DBFetcher struct {
	db *gorm.DB
}

// NewDBFetcher creates a fetcher backed by the database.
func NewDBFetcher(db *gorm.DB) *DBFetcher {
	return &DBFetcher{db: db}
}

// FetchForecast returns forecast points within [start, end], optionally
// filtered by product.
func (f *DBFetcher) FetchForecast(ctx context.Context, productIDs []uint, start, end time.Time) ([]ForecastPoint, error) {
	query := f.db.WithContext(ctx).Model(&models.Forecast{}).
		Where("date BETWEEN ? AND ?", start, end)
	if len(productIDs) > 0 {
		query = query.Where("product_id IN ?", productIDs)
	}

	var forecasts []models.Forecast
	if err := query.Order("product_id, date").Find(&forecasts).Error; err != nil {
		return nil, fmt.Errorf("failed to query forecasts: %w", err)
	}

	names, err := f.productNames(ctx, forecasts)
	if err != nil {
		return nil, err
	}

	points := make([]ForecastPoint, 0, len(forecasts))
	for _, fc := range forecasts {
		name, ok := names[fc.ProductID]
		if !ok {
			name = fmt.Sprintf("Product %d", fc.ProductID)
		}
		status := string(fc.Status)
		if status == "" {
			status = "unknown"
		}
		points = append(points, ForecastPoint{
			ProductID:        fc.ProductID,
			ProductName:      name,
			Date:             fc.Date,
			ForecastedDemand: fc.ForecastedDemand,
			ConfidenceLow:    fc.ConfidenceLow,
			ConfidenceHigh:   fc.ConfidenceHigh,
			Accuracy:         fc.Accuracy,
			Status:           status,
			IsManual:         fc.IsManualOverride,
		})
	}
	return points, nil
}

// FetchHistorical joins orders with their items and aggregates observed
// demand per product per calendar day.
func (f *DBFetcher) FetchHistorical(ctx context.Context, productIDs []uint, start, end time.Time) ([]HistoricalPoint, error) {
	type joinedRow struct {
		ProductID   uint
		ProductName string
		OrderDate   time.Time
		Quantity    float64
	}

	query := f.db.WithContext(ctx).Table("order_items").
		Select("order_items.product_id AS product_id, products.name AS product_name, orders.order_date AS order_date, order_items.quantity AS quantity").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.order_date BETWEEN ? AND ?", start, end)
	if len(productIDs) > 0 {
		query = query.Where("order_items.product_id IN ?", productIDs)
	}

	var rows []joinedRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query historical orders: %w", err)
	}

	type key struct {
		productID uint
		day       time.Time
	}
	grouped := make(map[key]*HistoricalPoint)
	for _, row := range rows {
		day := row.OrderDate.Truncate(24 * time.Hour)
		k := key{productID: row.ProductID, day: day}
		if point, ok := grouped[k]; ok {
			point.ActualDemand += row.Quantity
			continue
		}
		grouped[k] = &HistoricalPoint{
			ProductID:    row.ProductID,
			ProductName:  row.ProductName,
			Date:         day,
			ActualDemand: row.Quantity,
		}
	}

	points := make([]HistoricalPoint, 0, len(grouped))
	for _, point := range grouped {
		points = append(points, *point)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].ProductID != points[j].ProductID {
			return points[i].ProductID < points[j].ProductID
		}
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}

// productNames loads display names for every product referenced by the
// forecast rows.
func (f *DBFetcher) productNames(ctx context.Context, forecasts []models.Forecast) (map[uint]string, error) {
	ids := make([]uint, 0, len(forecasts))
	seen := make(map[uint]struct{}, len(forecasts))
	for _, fc := range forecasts {
		if _, ok := seen[fc.ProductID]; ok {
			continue
		}
		seen[fc.ProductID] = struct{}{}
		ids = append(ids, fc.ProductID)
	}
	if len(ids) == 0 {
		return map[uint]string{}, nil
	}

	var products []models.Product
	if err := f.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	names := make(map[uint]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}
