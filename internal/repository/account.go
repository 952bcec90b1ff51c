package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/rightwin/qr-portal-server/internal/model"
)

// AccountRepository handles portal account data operations
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
	// FindByTokenHash returns the enabled account owning the token, or nil.
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Account, error)
	Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	Disable(ctx context.Context, id string) error
}

type accountRepo struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE id = $1`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE token_hash = $1 AND disabled_at IS NULL
	`, tokenHash)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		INSERT INTO accounts (id, name, token_hash)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.ID, params.Name, params.TokenHash)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) List(ctx context.Context) ([]model.Account, error) {
	accounts := []model.Account{}
	err := r.db.SelectContext(ctx, &accounts, `
		SELECT * FROM accounts ORDER BY created_at DESC
	`)
	return accounts, err
}

func (r *accountRepo) Disable(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET disabled_at = NOW() WHERE id = $1 AND disabled_at IS NULL
	`, id)
	return err
}
