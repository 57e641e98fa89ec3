package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"forecast_srv/internal/database"
	"forecast_srv/internal/errs"
	"forecast_srv/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createTemplate(t *testing.T, repo *ReportRepository, name string, reportType models.ReportType) *models.ReportTemplate {
	tmpl := &models.ReportTemplate{
		Name:         name,
		Type:         reportType,
		TemplatePath: "templates/" + name,
		IsActive:     true,
	}
	require.NoError(t, repo.CreateTemplate(context.Background(), tmpl))
	return tmpl
}

func createHistory(t *testing.T, repo *ReportRepository, templateID *uint, reportType models.ReportType, size int64, expiredAt *time.Time) *models.ReportHistory {
	history := &models.ReportHistory{
		FileName:   "report_" + string(reportType) + "_" + time.Now().Format("150405.000000000") + "." + string(reportType),
		FilePath:   "reports",
		TemplateID: templateID,
		Type:       reportType,
		SizeBytes:  size,
		ExpiredAt:  expiredAt,
	}
	require.NoError(t, repo.CreateHistory(context.Background(), history))
	return history
}

func TestCreateTemplateDuplicateName(t *testing.T) {
	repo := NewReportRepository(setupTestDB(t))

	createTemplate(t, repo, "monthly", models.ReportTypePDF)

	err := repo.CreateTemplate(context.Background(), &models.ReportTemplate{
		Name:         "monthly",
		Type:         models.ReportTypeXLSX,
		TemplatePath: "templates/other",
	})
	assert.True(t, errors.Is(err, errs.ErrConflict))

	templates, err := repo.ListTemplates(context.Background(), TemplateFilter{})
	require.NoError(t, err)
	assert.Len(t, templates, 1)
}

func TestGetTemplateByNameAndType(t *testing.T) {
	repo := NewReportRepository(setupTestDB(t))

	createTemplate(t, repo, "monthly", models.ReportTypePDF)

	tmpl, err := repo.GetTemplateByNameAndType(context.Background(), "monthly", models.ReportTypePDF)
	require.NoError(t, err)
	assert.Equal(t, "monthly", tmpl.Name)

	// The name exists, but not for that type.
	_, err = repo.GetTemplateByNameAndType(context.Background(), "monthly", models.ReportTypeXLSX)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestListTemplatesFilters(t *testing.T) {
	repo := NewReportRepository(setupTestDB(t))

	createTemplate(t, repo, "pdf_a", models.ReportTypePDF)
	createTemplate(t, repo, "xlsx_a", models.ReportTypeXLSX)

	inactive := &models.ReportTemplate{
		Name:         "pdf_b",
		Type:         models.ReportTypePDF,
		TemplatePath: "templates/pdf_b",
		IsActive:     false,
	}
	require.NoError(t, repo.CreateTemplate(context.Background(), inactive))

	pdf := models.ReportTypePDF
	templates, err := repo.ListTemplates(context.Background(), TemplateFilter{Type: &pdf})
	require.NoError(t, err)
	assert.Len(t, templates, 2)

	active := true
	templates, err = repo.ListTemplates(context.Background(), TemplateFilter{Type: &pdf, IsActive: &active})
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "pdf_a", templates[0].Name)
}

func TestListHistoryPaging(t *testing.T) {
	repo := NewReportRepository(setupTestDB(t))
	tmpl := createTemplate(t, repo, "monthly", models.ReportTypePDF)

	for i := 0; i < 4; i++ {
		createHistory(t, repo, &tmpl.ID, models.ReportTypePDF, 100, nil)
	}

	page, err := repo.ListHistory(context.Background(), HistoryFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)

	// Newest first, id as the tie-breaker for equal timestamps.
	assert.True(t, page[0].ID > page[1].ID)
	assert.True(t, page[1].ID > page[2].ID)

	rest, err := repo.ListHistory(context.Background(), HistoryFilter{Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestListExpired(t *testing.T) {
	repo := NewReportRepository(setupTestDB(t))
	tmpl := createTemplate(t, repo, "monthly", models.ReportTypePDF)

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	expired := createHistory(t, repo, &tmpl.ID, models.ReportTypePDF, 100, &past)
	createHistory(t, repo, &tmpl.ID, models.ReportTypePDF, 100, &future)
	createHistory(t, repo, &tmpl.ID, models.ReportTypePDF, 100, nil)

	rows, err := repo.ListExpired(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, expired.ID, rows[0].ID)
}

func TestDeleteHistoryIdempotent(t *testing.T) {
	repo := NewReportRepository(setupTestDB(t))
	tmpl := createTemplate(t, repo, "monthly", models.ReportTypePDF)
	history := createHistory(t, repo, &tmpl.ID, models.ReportTypePDF, 100, nil)

	removed, err := repo.DeleteHistory(context.Background(), history.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.DeleteHistory(context.Background(), history.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMetrics(t *testing.T) {
	repo := NewReportRepository(setupTestDB(t))

	// Empty store: all counters zero, no popular template.
	m, err := repo.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.TotalReports)
	assert.Nil(t, m.MostPopularTemplate)

	monthly := createTemplate(t, repo, "monthly", models.ReportTypePDF)
	weekly := createTemplate(t, repo, "weekly", models.ReportTypeXLSX)

	createHistory(t, repo, &monthly.ID, models.ReportTypePDF, 100, nil)
	createHistory(t, repo, &monthly.ID, models.ReportTypePDF, 200, nil)
	createHistory(t, repo, &weekly.ID, models.ReportTypeXLSX, 401, nil)

	m, err = repo.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.TotalReports)
	assert.Equal(t, int64(2), m.PDFReports)
	assert.Equal(t, int64(1), m.XLSXReports)
	// 701 / 3 truncates to 233.
	assert.Equal(t, int64(233), m.AverageSizeBytes)
	require.NotNil(t, m.MostPopularTemplate)
	assert.Equal(t, "monthly", *m.MostPopularTemplate)
}

func TestMetricsPopularTieBreak(t *testing.T) {
	repo := NewReportRepository(setupTestDB(t))

	zeta := createTemplate(t, repo, "zeta", models.ReportTypePDF)
	alpha := createTemplate(t, repo, "alpha", models.ReportTypePDF)

	createHistory(t, repo, &zeta.ID, models.ReportTypePDF, 100, nil)
	createHistory(t, repo, &alpha.ID, models.ReportTypePDF, 100, nil)

	m, err := repo.Metrics(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m.MostPopularTemplate)
	assert.Equal(t, "alpha", *m.MostPopularTemplate)
}
