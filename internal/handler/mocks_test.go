package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rightwin/qr-portal-server/internal/model"
	"github.com/rightwin/qr-portal-server/internal/service"
)

// Mock repositories

type mockCodeRepo struct {
	mock.Mock
}

func (m *mockCodeRepo) FindByAlias(ctx context.Context, alias string) (*model.Code, error) {
	args := m.Called(ctx, alias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Code), args.Error(1)
}

func (m *mockCodeRepo) FindByID(ctx context.Context, id string) (*model.Code, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Code), args.Error(1)
}

func (m *mockCodeRepo) AliasExists(ctx context.Context, alias string) (bool, error) {
	args := m.Called(ctx, alias)
	return args.Bool(0), args.Error(1)
}

func (m *mockCodeRepo) Create(ctx context.Context, params model.CreateCodeParams) (*model.Code, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Code), args.Error(1)
}

func (m *mockCodeRepo) Update(ctx context.Context, id string, params model.UpdateCodeParams) (*model.Code, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Code), args.Error(1)
}

func (m *mockCodeRepo) UpdateStatus(ctx context.Context, id string, status model.CodeStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockCodeRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCodeRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Code, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]model.Code), args.Error(1)
}

func (m *mockCodeRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Code, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Code), args.Error(1)
}

func (m *mockCodeRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

type mockScanRepo struct {
	mock.Mock
}

func (m *mockScanRepo) CountOwnerSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	args := m.Called(ctx, ownerID, since)
	return args.Int(0), args.Error(1)
}

func (m *mockScanRepo) CountByCode(ctx context.Context, codeID string) (int, error) {
	args := m.Called(ctx, codeID)
	return args.Int(0), args.Error(1)
}

func (m *mockScanRepo) LastScanAt(ctx context.Context, codeID string) (*time.Time, error) {
	args := m.Called(ctx, codeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *mockScanRepo) ListRecentByCode(ctx context.Context, codeID string, limit int) ([]model.ScanEvent, error) {
	args := m.Called(ctx, codeID, limit)
	return args.Get(0).([]model.ScanEvent), args.Error(1)
}

func (m *mockScanRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordScan(ctx context.Context, effectiveLimit int, params model.AppendScanParams) (int, bool, error) {
	args := m.Called(ctx, effectiveLimit, params)
	return args.Int(0), args.Bool(1), args.Error(2)
}

type mockSettingsRepo struct {
	mock.Mock
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*model.PortalSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PortalSettings), args.Error(1)
}

func (m *mockSettingsRepo) Update(ctx context.Context, params model.UpdateSettingsParams) (*model.PortalSettings, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PortalSettings), args.Error(1)
}

func newTestSettings(t *testing.T) *service.SettingsService {
	t.Helper()
	repo := new(mockSettingsRepo)
	repo.On("Get", mock.Anything).Return(&model.PortalSettings{ID: 1, OwnerWindowDays: 7}, nil)
	svc, err := service.NewSettingsService(repo, 0)
	require.NoError(t, err)
	return svc
}
