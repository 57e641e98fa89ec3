package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType identifies the output format of a report or template.
type ReportType string

const (
	ReportTypePDF  ReportType = "pdf"
	ReportTypeXLSX ReportType = "xlsx"
)

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool {
	return t == ReportTypePDF || t == ReportTypeXLSX
}

// Extension returns the file extension for the type, without the dot.
func (t ReportType) Extension() string {
	return string(t)
}

// ReportTemplate is a named layout asset for one report type.
type ReportTemplate struct {
	ID           uint       `json:"id" gorm:"primarykey"`
	Name         string     `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Description  string     `json:"description" gorm:"size:1000"`
	Type         ReportType `json:"type" gorm:"size:10;not null"`
	TemplatePath string     `json:"template_path" gorm:"size:512;not null"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the ReportTemplate model.
func (ReportTemplate) TableName() string {
	return "report_templates"
}

// ReportHistory records one successfully generated report file.
// A row exists only for files that were fully written; size_bytes equals
// the exact byte length of the file at insertion time.
type ReportHistory struct {
	ID         uint       `json:"id" gorm:"primarykey"`
	FileName   string     `json:"file_name" gorm:"size:255;not null;index"`
	FilePath   string     `json:"file_path" gorm:"size:512;not null"`
	TemplateID *uint      `json:"template_id,omitempty"`
	Type       ReportType `json:"type" gorm:"size:10;not null;index"`
	SizeBytes  int64      `json:"size_bytes" gorm:"not null"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index"`
	ExpiredAt  *time.Time `json:"expired_at,omitempty" gorm:"index"`
	Parameters JSON       `json:"parameters,omitempty" gorm:"type:jsonb"`

	Template *ReportTemplate `json:"-" gorm:"foreignKey:TemplateID;constraint:OnDelete:SET NULL"`
}

// TableName specifies the table name for the ReportHistory model.
func (ReportHistory) TableName() string {
	return "report_history"
}

// IsExpired reports whether the row's retention horizon has passed.
func (h *ReportHistory) IsExpired(now time.Time) bool {
	return h.ExpiredAt != nil && h.ExpiredAt.Before(now)
}

// JSON is a custom type for handling JSONB data.
type JSON map[string]interface{}

// Value implements the driver.Valuer interface for JSON.
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSON.
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}

	return json.Unmarshal(bytes, j)
}
