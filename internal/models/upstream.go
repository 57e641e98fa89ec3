package models

import "time"

// Upstream tables owned by the import and forecast services. The report
// service only ever reads them.

// ForecastStatus classifies a forecast point for visual reporting.
type ForecastStatus string

const (
	StatusGreen  ForecastStatus = "green"
	StatusYellow ForecastStatus = "yellow"
	StatusRed    ForecastStatus = "red"
)

// Product is a forecastable product.
type Product struct {
	ID   uint   `json:"id" gorm:"primarykey"`
	Name string `json:"name" gorm:"size:255;not null"`
}

// TableName specifies the table name for the Product model.
func (Product) TableName() string {
	return "products"
}

// Order is a historical customer order.
type Order struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	OrderDate time.Time `json:"order_date" gorm:"not null;index"`
}

// TableName specifies the table name for the Order model.
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a single product line within an order.
type OrderItem struct {
	ID        uint    `json:"id" gorm:"primarykey"`
	OrderID   uint    `json:"order_id" gorm:"not null;index"`
	ProductID uint    `json:"product_id" gorm:"not null;index"`
	Quantity  float64 `json:"quantity" gorm:"not null"`
}

// TableName specifies the table name for the OrderItem model.
func (OrderItem) TableName() string {
	return "order_items"
}

// Forecast is a demand forecast point produced by the forecast service.
type Forecast struct {
	ID               uint           `json:"id" gorm:"primarykey"`
	ProductID        uint           `json:"product_id" gorm:"not null;index"`
	Date             time.Time      `json:"date" gorm:"not null;index"`
	ForecastedDemand float64        `json:"forecasted_demand" gorm:"not null"`
	ConfidenceLow    float64        `json:"confidence_low"`
	ConfidenceHigh   float64        `json:"confidence_high"`
	Accuracy         *float64       `json:"accuracy,omitempty"`
	Status           ForecastStatus `json:"status" gorm:"size:20"`
	IsManualOverride bool           `json:"is_manual_override"`
}

// TableName specifies the table name for the Forecast model.
func (Forecast) TableName() string {
	return "forecasts"
}
