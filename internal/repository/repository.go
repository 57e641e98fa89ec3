package repository

import (
	"context"
	"errors"
	"time"

	"forecast_srv/internal/errs"
	"forecast_srv/internal/models"

	"gorm.io/gorm"
)

// TemplateFilter narrows template listings.
type TemplateFilter struct {
	Type     *models.ReportType
	IsActive *bool
}

// HistoryFilter narrows and pages history listings.
type HistoryFilter struct {
	Type   *models.ReportType
	Limit  int
	Offset int
}

// Metrics is the aggregate view over generated reports.
type Metrics struct {
	TotalReports        int64   `json:"total_reports"`
	PDFReports          int64   `json:"pdf_reports"`
	XLSXReports         int64   `json:"xlsx_reports"`
	AverageSizeBytes    int64   `json:"average_size_bytes"`
	MostPopularTemplate *string `json:"most_popular_template,omitempty"`
}

// ReportRepository is the gorm-backed report store.
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates the repository.
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// CreateTemplate inserts a template. A duplicate name fails with
// errs.ErrConflict and stores nothing.
func (r *ReportRepository) CreateTemplate(ctx context.Context, tmpl *models.ReportTemplate) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ReportTemplate{}).
		Where("name = ?", tmpl.Name).Count(&count).Error; err != nil {
		return errs.Storagef(err, "failed to check template name")
	}
	if count > 0 {
		return errs.Conflictf("template with name '%s' already exists", tmpl.Name)
	}

	if err := r.db.WithContext(ctx).Create(tmpl).Error; err != nil {
		return errs.Storagef(err, "failed to create template")
	}
	return nil
}

// GetTemplateByNameAndType resolves a template for report generation.
func (r *ReportRepository) GetTemplateByNameAndType(ctx context.Context, name string, reportType models.ReportType) (*models.ReportTemplate, error) {
	var tmpl models.ReportTemplate
	err := r.db.WithContext(ctx).
		Where("name = ? AND type = ?", name, reportType).
		First(&tmpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("report template '%s' of type %s not found", name, reportType)
		}
		return nil, errs.Storagef(err, "failed to get template")
	}
	return &tmpl, nil
}

// ListTemplates returns templates matching the optional filters.
func (r *ReportRepository) ListTemplates(ctx context.Context, filter TemplateFilter) ([]models.ReportTemplate, error) {
	query := r.db.WithContext(ctx).Model(&models.ReportTemplate{})
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var templates []models.ReportTemplate
	if err := query.Order("created_at DESC").Find(&templates).Error; err != nil {
		return nil, errs.Storagef(err, "failed to list templates")
	}
	return templates, nil
}

// CreateHistory inserts a history row. Insertion is the durability point
// of report generation: only fully written files get a row.
func (r *ReportRepository) CreateHistory(ctx context.Context, history *models.ReportHistory) error {
	if err := r.db.WithContext(ctx).Create(history).Error; err != nil {
		return errs.Storagef(err, "failed to create history record")
	}
	return nil
}

// GetHistoryByFileName resolves a history row for download.
func (r *ReportRepository) GetHistoryByFileName(ctx context.Context, fileName string) (*models.ReportHistory, error) {
	var history models.ReportHistory
	err := r.db.WithContext(ctx).Where("file_name = ?", fileName).First(&history).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("report '%s' not found or already deleted", fileName)
		}
		return nil, errs.Storagef(err, "failed to get history record")
	}
	return &history, nil
}

// ListHistory returns history rows newest first with limit/offset paging.
func (r *ReportRepository) ListHistory(ctx context.Context, filter HistoryFilter) ([]models.ReportHistory, error) {
	query := r.db.WithContext(ctx).Model(&models.ReportHistory{})
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}

	query = query.Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var history []models.ReportHistory
	if err := query.Find(&history).Error; err != nil {
		return nil, errs.Storagef(err, "failed to list history")
	}
	return history, nil
}

// ListExpired returns rows whose retention horizon has passed.
func (r *ReportRepository) ListExpired(ctx context.Context, now time.Time) ([]models.ReportHistory, error) {
	var expired []models.ReportHistory
	err := r.db.WithContext(ctx).
		Where("expired_at IS NOT NULL AND expired_at < ?", now).
		Find(&expired).Error
	if err != nil {
		return nil, errs.Storagef(err, "failed to list expired reports")
	}
	return expired, nil
}

// DeleteHistory removes a row by id. Deleting an already-deleted row is a
// no-op; the bool reports whether a row was actually removed.
func (r *ReportRepository) DeleteHistory(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.ReportHistory{}, id)
	if result.Error != nil {
		return false, errs.Storagef(result.Error, "failed to delete history record")
	}
	return result.RowsAffected > 0, nil
}

// Metrics computes the aggregate report counters. The most popular
// template is the one with most history rows, ties broken by name.
func (r *ReportRepository) Metrics(ctx context.Context) (*Metrics, error) {
	m := &Metrics{}

	if err := r.db.WithContext(ctx).Model(&models.ReportHistory{}).Count(&m.TotalReports).Error; err != nil {
		return nil, errs.Storagef(err, "failed to count reports")
	}
	if err := r.db.WithContext(ctx).Model(&models.ReportHistory{}).
		Where("type = ?", models.ReportTypePDF).Count(&m.PDFReports).Error; err != nil {
		return nil, errs.Storagef(err, "failed to count PDF reports")
	}
	if err := r.db.WithContext(ctx).Model(&models.ReportHistory{}).
		Where("type = ?", models.ReportTypeXLSX).Count(&m.XLSXReports).Error; err != nil {
		return nil, errs.Storagef(err, "failed to count XLSX reports")
	}

	if m.TotalReports > 0 {
		var totalSize int64
		err := r.db.WithContext(ctx).Model(&models.ReportHistory{}).
			Select("COALESCE(SUM(size_bytes), 0)").Scan(&totalSize).Error
		if err != nil {
			return nil, errs.Storagef(err, "failed to sum report sizes")
		}
		m.AverageSizeBytes = totalSize / m.TotalReports

		var popular struct {
			Name string
			Cnt  int64
		}
		err = r.db.WithContext(ctx).Model(&models.ReportHistory{}).
			Select("report_templates.name AS name, COUNT(report_history.id) AS cnt").
			Joins("JOIN report_templates ON report_templates.id = report_history.template_id").
			Group("report_templates.name").
			Order("cnt DESC, name ASC").
			Limit(1).
			Scan(&popular).Error
		if err != nil {
			return nil, errs.Storagef(err, "failed to compute most popular template")
		}
		if popular.Name != "" {
			m.MostPopularTemplate = &popular.Name
		}
	}

	return m, nil
}
