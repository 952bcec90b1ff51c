package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/rightwin/qr-portal-server/internal/database"
	"github.com/rightwin/qr-portal-server/internal/model"
)

// errLimitClaimed signals inside the transaction that the conditional
// increment matched no row, i.e. a concurrent scan took the last slot.
var errLimitClaimed = errors.New("scan limit claimed")

// ScanRecorder performs the atomic accept step of a resolution: claim a
// counter slot under the effective limit and append the ledger row in one
// transaction. Either both happen or neither does.
type ScanRecorder interface {
	// RecordScan returns the post-increment scan count. limited is true
	// when the counter was already at effectiveLimit, in which case
	// nothing was written. effectiveLimit 0 means unconditional.
	RecordScan(ctx context.Context, effectiveLimit int, params model.AppendScanParams) (newCount int, limited bool, err error)
}

type scanRecorder struct {
	db *database.DB
}

func NewScanRecorder(db *database.DB) ScanRecorder {
	return &scanRecorder{db: db}
}

func (r *scanRecorder) RecordScan(ctx context.Context, effectiveLimit int, params model.AppendScanParams) (int, bool, error) {
	var newCount int

	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// The WHERE clause makes check-then-increment a single atomic
		// statement: two racing scans cannot both pass the limit.
		row := tx.QueryRowContext(ctx, `
			UPDATE qr_codes
			SET scan_count = scan_count + 1, updated_at = NOW()
			WHERE id = $1 AND ($2 = 0 OR scan_count < $2)
			RETURNING scan_count
		`, params.CodeID, effectiveLimit)
		if err := row.Scan(&newCount); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errLimitClaimed
			}
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO qr_scans (id, code_id, alias, scanned_at, ip, user_agent, referrer)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, params.ID, params.CodeID, params.Alias, params.ScannedAt,
			params.ClientIP, params.UserAgent, params.Referrer)
		return err
	})

	if errors.Is(err, errLimitClaimed) {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, err
	}
	return newCount, false, nil
}
