package service

import (
	"context"
	"time"

	apperrors "github.com/rightwin/qr-portal-server/internal/errors"
	"github.com/rightwin/qr-portal-server/internal/model"
	"github.com/rightwin/qr-portal-server/internal/repository"
)

// AnalyticsService reads the scan ledger for dashboards. It never writes.
type AnalyticsService struct {
	codeRepo repository.CodeRepository
	scanRepo repository.ScanRepository
	settings *SettingsService
}

func NewAnalyticsService(
	codeRepo repository.CodeRepository,
	scanRepo repository.ScanRepository,
	settings *SettingsService,
) *AnalyticsService {
	return &AnalyticsService{codeRepo: codeRepo, scanRepo: scanRepo, settings: settings}
}

func (s *AnalyticsService) CodeStats(ctx context.Context, code *model.Code) (*model.CodeStats, error) {
	total, err := s.scanRepo.CountByCode(ctx, code.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	last, err := s.scanRepo.LastScanAt(ctx, code.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return &model.CodeStats{
		CodeID:     code.ID,
		Alias:      code.Alias,
		ScanCount:  total,
		LastScanAt: last,
	}, nil
}

func (s *AnalyticsService) RecentScans(ctx context.Context, codeID string, limit int) ([]model.ScanEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	events, err := s.scanRepo.ListRecentByCode(ctx, codeID, limit)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return events, nil
}

// OwnerSummary reports an owner's code count and rolling-window scan usage,
// including how much of the admin quota remains when one is configured.
func (s *AnalyticsService) OwnerSummary(ctx context.Context, ownerID string) (*model.OwnerSummary, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	limits := settings.Limits()

	codeCount, err := s.codeRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	since := time.Now().UTC().Add(-time.Duration(limits.OwnerWindowDays) * 24 * time.Hour)
	used, err := s.scanRepo.CountOwnerSince(ctx, ownerID, since)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	summary := &model.OwnerSummary{
		OwnerID:       ownerID,
		CodeCount:     codeCount,
		ScansInWindow: used,
		WindowDays:    limits.OwnerWindowDays,
	}
	if limits.MaxScansPerOwnerWindow > 0 {
		remaining := limits.MaxScansPerOwnerWindow - used
		if remaining < 0 {
			remaining = 0
		}
		summary.QuotaRemaining = &remaining
	}
	return summary, nil
}
