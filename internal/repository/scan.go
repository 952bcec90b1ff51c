package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rightwin/qr-portal-server/internal/model"
)

// ScanRepository reads the append-only scan ledger. Writes happen only
// through the ScanRecorder's atomic accept step.
type ScanRepository interface {
	// CountOwnerSince sums scans across all of an owner's codes with
	// scanned_at >= since. Consumed by the quota policy evaluator.
	CountOwnerSince(ctx context.Context, ownerID string, since time.Time) (int, error)
	CountByCode(ctx context.Context, codeID string) (int, error)
	LastScanAt(ctx context.Context, codeID string) (*time.Time, error)
	ListRecentByCode(ctx context.Context, codeID string, limit int) ([]model.ScanEvent, error)
	// DeleteBefore purges ledger rows older than cutoff. Retention only;
	// never called on the resolution path.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type scanRepo struct {
	db *sqlx.DB
}

func NewScanRepository(db *sqlx.DB) ScanRepository {
	return &scanRepo{db: db}
}

func (r *scanRepo) CountOwnerSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM qr_scans s
		JOIN qr_codes c ON c.id = s.code_id
		WHERE c.owner_id = $1 AND s.scanned_at >= $2
	`, ownerID, since)
	return count, err
}

func (r *scanRepo) CountByCode(ctx context.Context, codeID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM qr_scans WHERE code_id = $1
	`, codeID)
	return count, err
}

func (r *scanRepo) LastScanAt(ctx context.Context, codeID string) (*time.Time, error) {
	var last *time.Time
	err := r.db.GetContext(ctx, &last, `
		SELECT MAX(scanned_at) FROM qr_scans WHERE code_id = $1
	`, codeID)
	return last, err
}

func (r *scanRepo) ListRecentByCode(ctx context.Context, codeID string, limit int) ([]model.ScanEvent, error) {
	events := []model.ScanEvent{}
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM qr_scans
		WHERE code_id = $1
		ORDER BY scanned_at DESC
		LIMIT $2
	`, codeID, limit)
	return events, err
}

func (r *scanRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM qr_scans WHERE scanned_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
