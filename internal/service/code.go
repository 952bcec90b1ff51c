package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/rightwin/qr-portal-server/internal/errors"
	"github.com/rightwin/qr-portal-server/internal/model"
	"github.com/rightwin/qr-portal-server/internal/repository"
	"github.com/rightwin/qr-portal-server/internal/util"
)

const aliasSuffixAttempts = 50

// CodeService implements the authoring operations: everything that creates
// or reshapes codes outside the scan path.
type CodeService struct {
	codeRepo repository.CodeRepository
	settings *SettingsService
}

func NewCodeService(codeRepo repository.CodeRepository, settings *SettingsService) *CodeService {
	return &CodeService{codeRepo: codeRepo, settings: settings}
}

// Create registers a new code for ownerID. An empty alias is derived from
// the title; a taken alias gets a numeric suffix rather than failing.
func (s *CodeService) Create(ctx context.Context, ownerID string, params model.CreateCodeParams) (*model.Code, error) {
	if params.Title == "" {
		return nil, apperrors.MissingRequired("title")
	}
	if err := validateTarget(params.TargetKind, params.TargetValue); err != nil {
		return nil, err
	}
	if params.ScanLimit < 0 {
		return nil, apperrors.InvalidInput("scanLimit", "must not be negative")
	}
	if params.StartAt != nil && params.EndAt != nil && params.EndAt.Before(*params.StartAt) {
		return nil, apperrors.InvalidInput("endAt", "must not be before startAt")
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if settings.MaxCodesPerOwner > 0 {
		count, err := s.codeRepo.CountByOwner(ctx, ownerID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if count >= settings.MaxCodesPerOwner {
			return nil, apperrors.CodeQuotaReached(settings.MaxCodesPerOwner)
		}
	}

	seed := params.Alias
	if seed == "" {
		seed = params.Title
	}
	alias, err := s.uniqueAlias(ctx, seed)
	if err != nil {
		return nil, err
	}

	params.ID = uuid.NewString()
	params.OwnerID = ownerID
	params.Alias = alias

	code, err := s.codeRepo.Create(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("codeId", code.ID).
		Str("ownerId", ownerID).
		Str("alias", code.Alias).
		Str("targetKind", string(code.TargetKind)).
		Msg("qr code created")

	return code, nil
}

// uniqueAlias slugs the seed and suffixes -2, -3, ... until the alias is
// free, the same way the portal has always resolved name collisions.
func (s *CodeService) uniqueAlias(ctx context.Context, seed string) (string, error) {
	base := util.SlugifyAlias(seed)
	if base == "" {
		base = "qr"
	}
	if !util.IsValidAlias(base) {
		return "", apperrors.InvalidInput("alias", "must contain letters or digits")
	}

	alias := base
	for i := 2; i < aliasSuffixAttempts+2; i++ {
		taken, err := s.codeRepo.AliasExists(ctx, alias)
		if err != nil {
			return "", apperrors.Database(err)
		}
		if !taken {
			return alias, nil
		}
		alias = fmt.Sprintf("%s-%d", base, i)
	}
	return "", apperrors.AlreadyExists("Alias")
}

func (s *CodeService) Get(ctx context.Context, id string) (*model.Code, error) {
	code, err := s.codeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if code == nil {
		return nil, apperrors.NotFound("QR code")
	}
	return code, nil
}

// GetOwned returns the code only when it belongs to ownerID. A foreign code
// reads as not-found, never as forbidden, to avoid leaking alias ownership.
func (s *CodeService) GetOwned(ctx context.Context, id, ownerID string) (*model.Code, error) {
	code, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if code.OwnerID != ownerID {
		return nil, apperrors.NotFound("QR code")
	}
	return code, nil
}

func (s *CodeService) ListByOwner(ctx context.Context, ownerID string) ([]model.Code, error) {
	codes, err := s.codeRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return codes, nil
}

func (s *CodeService) ListAll(ctx context.Context, limit, offset int) ([]model.Code, error) {
	codes, err := s.codeRepo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return codes, nil
}

func (s *CodeService) Update(ctx context.Context, id, ownerID string, params model.UpdateCodeParams) (*model.Code, error) {
	if _, err := s.GetOwned(ctx, id, ownerID); err != nil {
		return nil, err
	}
	if params.TargetKind != nil {
		value := ""
		if params.TargetValue != nil {
			value = *params.TargetValue
		}
		if err := validateTarget(*params.TargetKind, value); err != nil {
			return nil, err
		}
	}
	if params.ScanLimit != nil && *params.ScanLimit < 0 {
		return nil, apperrors.InvalidInput("scanLimit", "must not be negative")
	}

	code, err := s.codeRepo.Update(ctx, id, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if code == nil {
		return nil, apperrors.NotFound("QR code")
	}

	log.Info().Str("codeId", id).Msg("qr code updated")
	return code, nil
}

// SetPaused toggles the owner-facing pause. An admin lock is sticky: the
// owner can neither pause over it nor resume out of it.
func (s *CodeService) SetPaused(ctx context.Context, id, ownerID string, paused bool) (*model.Code, error) {
	code, err := s.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if code.Status == model.CodeStatusAdminLocked {
		return nil, apperrors.Forbidden("QR code is locked by an administrator")
	}

	status := model.CodeStatusActive
	if paused {
		status = model.CodeStatusPaused
	}
	if err := s.codeRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, apperrors.Database(err)
	}
	code.Status = status

	log.Info().Str("codeId", id).Str("status", string(status)).Msg("qr code status changed")
	return code, nil
}

// SetAdminLock applies or clears the administrator lock. Unlocking returns
// the code to active regardless of its pre-lock state.
func (s *CodeService) SetAdminLock(ctx context.Context, id string, locked bool) (*model.Code, error) {
	code, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	status := model.CodeStatusActive
	if locked {
		status = model.CodeStatusAdminLocked
	}
	if err := s.codeRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, apperrors.Database(err)
	}
	code.Status = status

	log.Info().Str("codeId", id).Bool("locked", locked).Msg("qr code admin lock changed")
	return code, nil
}

// Delete removes the code definition. Its ledger rows stay; the alias
// simply stops resolving.
func (s *CodeService) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.GetOwned(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.codeRepo.Delete(ctx, id); err != nil {
		return apperrors.Database(err)
	}
	log.Info().Str("codeId", id).Msg("qr code deleted")
	return nil
}

func validateTarget(kind model.TargetKind, value string) error {
	if !kind.Valid() {
		return apperrors.InvalidInput("targetKind", "unknown kind")
	}
	switch kind {
	case model.TargetKindDirectURL:
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperrors.InvalidInput("targetValue", "must be an absolute http(s) URL")
		}
	case model.TargetKindLandingPage, model.TargetKindFormPage:
		if value == "" {
			return apperrors.MissingRequired("targetValue")
		}
	case model.TargetKindUnconfigured:
		if value != "" {
			return apperrors.InvalidInput("targetValue", "must be empty for an unconfigured code")
		}
	}
	return nil
}
