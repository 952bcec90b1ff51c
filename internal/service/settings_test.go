package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rightwin/qr-portal-server/internal/model"
)

func TestSettingsCurrent_NoCacheHitsRepoEveryTime(t *testing.T) {
	repo := new(mockSettingsRepo)
	repo.On("Get", mock.Anything).Return(defaultSettings(), nil).Times(3)

	svc, err := NewSettingsService(repo, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		settings, err := svc.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, settings.OwnerWindowDays)
	}
	repo.AssertExpectations(t)
}

func TestSettingsUpdate_InvalidatesCache(t *testing.T) {
	before := defaultSettings()
	after := defaultSettings()
	after.MaxScansPerCode = 100

	repo := new(mockSettingsRepo)
	repo.On("Get", mock.Anything).Return(before, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(after, nil)

	svc, err := NewSettingsService(repo, time.Minute)
	require.NoError(t, err)

	_, err = svc.Current(context.Background())
	require.NoError(t, err)

	limit := 100
	updated, err := svc.Update(context.Background(), model.UpdateSettingsParams{MaxScansPerCode: &limit})
	require.NoError(t, err)
	assert.Equal(t, 100, updated.MaxScansPerCode)
}

func TestSettingsLimits_ClampsWindowDays(t *testing.T) {
	s := defaultSettings()
	s.OwnerWindowDays = 0

	limits := s.Limits()
	assert.Equal(t, 1, limits.OwnerWindowDays)
}
