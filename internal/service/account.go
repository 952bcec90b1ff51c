package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/rightwin/qr-portal-server/internal/errors"
	"github.com/rightwin/qr-portal-server/internal/model"
	"github.com/rightwin/qr-portal-server/internal/repository"
	"github.com/rightwin/qr-portal-server/internal/util"
)

// AccountService provisions portal accounts. Tokens are returned exactly
// once at creation; only their hash is stored.
type AccountService struct {
	accountRepo repository.AccountRepository
}

func NewAccountService(accountRepo repository.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

func (s *AccountService) Create(ctx context.Context, name string) (*model.Account, string, error) {
	if name == "" {
		return nil, "", apperrors.MissingRequired("name")
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, "", apperrors.Internal("Failed to generate token").WithCause(err)
	}

	account, err := s.accountRepo.Create(ctx, model.CreateAccountParams{
		ID:        uuid.NewString(),
		Name:      name,
		TokenHash: util.HashToken(token),
	})
	if err != nil {
		return nil, "", apperrors.Database(err)
	}

	log.Info().Str("accountId", account.ID).Str("name", name).Msg("account created")
	return account, token, nil
}

func (s *AccountService) List(ctx context.Context) ([]model.Account, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return accounts, nil
}

func (s *AccountService) Disable(ctx context.Context, id string) error {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return apperrors.Database(err)
	}
	if account == nil {
		return apperrors.NotFound("Account")
	}
	if err := s.accountRepo.Disable(ctx, id); err != nil {
		return apperrors.Database(err)
	}
	log.Info().Str("accountId", id).Msg("account disabled")
	return nil
}
