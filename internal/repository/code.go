package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rightwin/qr-portal-server/internal/model"
)

// CodeRepository handles QR code registry data operations
type CodeRepository interface {
	// FindByAlias returns the published code registered under alias, or nil.
	// Unpublished (draft) codes are invisible to resolution.
	FindByAlias(ctx context.Context, alias string) (*model.Code, error)
	FindByID(ctx context.Context, id string) (*model.Code, error)
	AliasExists(ctx context.Context, alias string) (bool, error)
	Create(ctx context.Context, params model.CreateCodeParams) (*model.Code, error)
	Update(ctx context.Context, id string, params model.UpdateCodeParams) (*model.Code, error)
	UpdateStatus(ctx context.Context, id string, status model.CodeStatus) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]model.Code, error)
	ListAll(ctx context.Context, limit, offset int) ([]model.Code, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

type codeRepo struct {
	db *sqlx.DB
}

func NewCodeRepository(db *sqlx.DB) CodeRepository {
	return &codeRepo{db: db}
}

func (r *codeRepo) FindByAlias(ctx context.Context, alias string) (*model.Code, error) {
	var code model.Code
	err := r.db.GetContext(ctx, &code, `
		SELECT * FROM qr_codes WHERE alias = $1 AND published = TRUE
	`, alias)
	return HandleNotFound(&code, err)
}

func (r *codeRepo) FindByID(ctx context.Context, id string) (*model.Code, error) {
	var code model.Code
	err := r.db.GetContext(ctx, &code, `SELECT * FROM qr_codes WHERE id = $1`, id)
	return HandleNotFound(&code, err)
}

func (r *codeRepo) AliasExists(ctx context.Context, alias string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM qr_codes WHERE alias = $1)
	`, alias)
	return exists, err
}

func (r *codeRepo) Create(ctx context.Context, params model.CreateCodeParams) (*model.Code, error) {
	var code model.Code
	err := r.db.GetContext(ctx, &code, `
		INSERT INTO qr_codes (
			id, owner_id, alias, title, target_kind, target_value,
			status, published, start_at, end_at, scan_limit, scan_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0)
		RETURNING *
	`, params.ID, params.OwnerID, params.Alias, params.Title,
		params.TargetKind, params.TargetValue, model.CodeStatusActive,
		params.Published, params.StartAt, params.EndAt, params.ScanLimit)
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *codeRepo) Update(ctx context.Context, id string, params model.UpdateCodeParams) (*model.Code, error) {
	var code model.Code
	err := r.db.GetContext(ctx, &code, `
		UPDATE qr_codes SET
			title        = COALESCE($2, title),
			target_kind  = COALESCE($3, target_kind),
			target_value = COALESCE($4, target_value),
			published    = COALESCE($5, published),
			start_at     = CASE WHEN $8 THEN NULL ELSE COALESCE($6, start_at) END,
			end_at       = CASE WHEN $8 THEN NULL ELSE COALESCE($7, end_at) END,
			scan_limit   = COALESCE($9, scan_limit),
			updated_at   = NOW()
		WHERE id = $1
		RETURNING *
	`, id, params.Title, params.TargetKind, params.TargetValue,
		params.Published, params.StartAt, params.EndAt, params.ClearWindow,
		params.ScanLimit)
	return HandleNotFound(&code, err)
}

func (r *codeRepo) UpdateStatus(ctx context.Context, id string, status model.CodeStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE qr_codes SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, time.Now())
	return err
}

func (r *codeRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM qr_codes WHERE id = $1`, id)
	return err
}

func (r *codeRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Code, error) {
	codes := []model.Code{}
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM qr_codes WHERE owner_id = $1 ORDER BY created_at DESC
	`, ownerID)
	return codes, err
}

func (r *codeRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Code, error) {
	codes := []model.Code{}
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM qr_codes ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return codes, err
}

func (r *codeRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM qr_codes WHERE owner_id = $1
	`, ownerID)
	return count, err
}
