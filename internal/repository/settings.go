package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/rightwin/qr-portal-server/internal/model"
)

// SettingsRepository handles the single portal settings row
type SettingsRepository interface {
	Get(ctx context.Context) (*model.PortalSettings, error)
	Update(ctx context.Context, params model.UpdateSettingsParams) (*model.PortalSettings, error)
}

type settingsRepo struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) Get(ctx context.Context) (*model.PortalSettings, error) {
	var s model.PortalSettings
	err := r.db.GetContext(ctx, &s, `SELECT * FROM portal_settings WHERE id = 1`)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepo) Update(ctx context.Context, params model.UpdateSettingsParams) (*model.PortalSettings, error) {
	var s model.PortalSettings
	err := r.db.GetContext(ctx, &s, `
		UPDATE portal_settings SET
			max_scans_per_code         = COALESCE($1, max_scans_per_code),
			max_scans_per_owner_window = COALESCE($2, max_scans_per_owner_window),
			owner_window_days          = COALESCE($3, owner_window_days),
			max_codes_per_owner        = COALESCE($4, max_codes_per_owner),
			retention_days             = COALESCE($5, retention_days),
			updated_at                 = NOW()
		WHERE id = 1
		RETURNING *
	`, params.MaxScansPerCode, params.MaxScansPerOwnerWindow,
		params.OwnerWindowDays, params.MaxCodesPerOwner, params.RetentionDays)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
