package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/healthscope/internal/models"
)

// ErrReportNotFound is returned when a report (or its final aggregate) does not exist
var ErrReportNotFound = errors.New("report not found")

// ReportStorage persists reports, per-specialist analyses and final aggregates
type ReportStorage interface {
	SaveReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, limit int) ([]*models.Report, error)
	DeleteReport(ctx context.Context, id string) error

	SaveAnalysis(ctx context.Context, analysis *models.Analysis) error
	ListAnalyses(ctx context.Context, reportID string) ([]*models.Analysis, error)

	SaveFinal(ctx context.Context, final *models.FinalReport) error
	GetFinal(ctx context.Context, reportID string) (*models.FinalReport, error)
}

// StorageManager owns the storage connection and exposes per-entity storages
type StorageManager interface {
	ReportStorage() ReportStorage
	Close() error
}
