package service

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"

	"github.com/rightwin/qr-portal-server/internal/model"
	"github.com/rightwin/qr-portal-server/internal/repository"
)

const settingsCacheKey = "portal_settings"

// SettingsService serves the admin settings snapshot. The row is read on
// every resolution, so reads go through a short-TTL in-process cache;
// updates invalidate it immediately on this instance and age out within the
// TTL on others.
type SettingsService struct {
	repo  repository.SettingsRepository
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewSettingsService(repo repository.SettingsRepository, ttl time.Duration) (*SettingsService, error) {
	var cache *ristretto.Cache
	if ttl > 0 {
		var err error
		cache, err = ristretto.NewCache(&ristretto.Config{
			NumCounters: 64,
			MaxCost:     8,
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
	}
	return &SettingsService{repo: repo, cache: cache, ttl: ttl}, nil
}

// Current returns the settings snapshot, possibly up to the cache TTL stale.
func (s *SettingsService) Current(ctx context.Context) (*model.PortalSettings, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(settingsCacheKey); ok {
			return cached.(*model.PortalSettings), nil
		}
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetWithTTL(settingsCacheKey, settings, 1, s.ttl)
	}
	return settings, nil
}

func (s *SettingsService) Update(ctx context.Context, params model.UpdateSettingsParams) (*model.PortalSettings, error) {
	settings, err := s.repo.Update(ctx, params)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Del(settingsCacheKey)
	}

	log.Info().
		Int("maxScansPerCode", settings.MaxScansPerCode).
		Int("maxScansPerOwnerWindow", settings.MaxScansPerOwnerWindow).
		Int("ownerWindowDays", settings.OwnerWindowDays).
		Int("maxCodesPerOwner", settings.MaxCodesPerOwner).
		Int("retentionDays", settings.RetentionDays).
		Msg("portal settings updated")

	return settings, nil
}
