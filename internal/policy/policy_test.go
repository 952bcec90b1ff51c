package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rightwin/qr-portal-server/internal/model"
)

type stubUsage struct {
	used int
	err  error

	calls     int
	lastOwner string
	lastSince time.Time
}

func (s *stubUsage) CountOwnerSince(_ context.Context, ownerID string, since time.Time) (int, error) {
	s.calls++
	s.lastOwner = ownerID
	s.lastSince = since
	return s.used, s.err
}

func activeCode() *model.Code {
	return &model.Code{
		ID:      "code-1",
		OwnerID: "owner-1",
		Alias:   "promo",
		Status:  model.CodeStatusActive,
	}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestEffectiveLimit(t *testing.T) {
	tests := []struct {
		perCode, adminMax, want int
	}{
		{0, 0, 0},
		{5, 0, 5},
		{0, 3, 3},
		{5, 3, 3},
		{3, 5, 3},
		{-1, 4, 4},
		{4, -1, 4},
	}

	for _, tc := range tests {
		got := EffectiveLimit(tc.perCode, tc.adminMax)
		assert.Equal(t, tc.want, got, "EffectiveLimit(%d, %d)", tc.perCode, tc.adminMax)
	}
}

func TestEvaluate_StatusChecks(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("active code allowed", func(t *testing.T) {
		d, err := Evaluate(ctx, activeCode(), model.AdminLimits{}, now, &stubUsage{})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("paused code denied", func(t *testing.T) {
		code := activeCode()
		code.Status = model.CodeStatusPaused
		d, err := Evaluate(ctx, code, model.AdminLimits{}, now, &stubUsage{})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonInactive, d.Reason)
	})

	t.Run("admin locked denied with same reason", func(t *testing.T) {
		code := activeCode()
		code.Status = model.CodeStatusAdminLocked
		d, err := Evaluate(ctx, code, model.AdminLimits{}, now, &stubUsage{})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonInactive, d.Reason)
	})

	t.Run("admin lock wins over window and limit checks", func(t *testing.T) {
		code := activeCode()
		code.Status = model.CodeStatusAdminLocked
		code.StartAt = datePtr(2026, 9, 10) // would also be not started
		code.ScanLimit = 1
		code.ScanCount = 5 // would also be over limit
		d, err := Evaluate(ctx, code, model.AdminLimits{}, now, &stubUsage{})
		require.NoError(t, err)
		assert.Equal(t, ReasonInactive, d.Reason)
	})
}

func TestEvaluate_WindowBoundaries(t *testing.T) {
	ctx := context.Background()

	code := activeCode()
	code.StartAt = datePtr(2024, 1, 10)
	code.EndAt = datePtr(2024, 1, 20)

	tests := []struct {
		day     int
		allowed bool
		reason  Reason
	}{
		{9, false, ReasonNotStarted},
		{10, true, ""},
		{15, true, ""},
		{20, true, ""}, // end date is inclusive all day
		{21, false, ReasonEnded},
	}

	for _, tc := range tests {
		now := time.Date(2024, 1, tc.day, 23, 30, 0, 0, time.UTC)
		d, err := Evaluate(ctx, code, model.AdminLimits{}, now, &stubUsage{})
		require.NoError(t, err)
		assert.Equal(t, tc.allowed, d.Allowed, "on day %d", tc.day)
		if !tc.allowed {
			assert.Equal(t, tc.reason, d.Reason, "on day %d", tc.day)
		}
	}

	t.Run("start equals end is a single valid day", func(t *testing.T) {
		code := activeCode()
		code.StartAt = datePtr(2024, 3, 5)
		code.EndAt = datePtr(2024, 3, 5)

		d, err := Evaluate(ctx, code, model.AdminLimits{}, time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC), &stubUsage{})
		require.NoError(t, err)
		assert.True(t, d.Allowed)

		d, err = Evaluate(ctx, code, model.AdminLimits{}, time.Date(2024, 3, 6, 1, 0, 0, 0, time.UTC), &stubUsage{})
		require.NoError(t, err)
		assert.Equal(t, ReasonEnded, d.Reason)
	})
}

func TestEvaluate_ScanLimit(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("denies at the limit, not only past it", func(t *testing.T) {
		code := activeCode()
		code.ScanLimit = 3
		code.ScanCount = 3
		d, err := Evaluate(ctx, code, model.AdminLimits{}, now, &stubUsage{})
		require.NoError(t, err)
		assert.Equal(t, ReasonLimitReached, d.Reason)
	})

	t.Run("allows below the limit", func(t *testing.T) {
		code := activeCode()
		code.ScanLimit = 3
		code.ScanCount = 2
		d, err := Evaluate(ctx, code, model.AdminLimits{}, now, &stubUsage{})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 3, d.EffectiveLimit)
	})

	t.Run("admin cap tightens an unlimited code", func(t *testing.T) {
		code := activeCode()
		code.ScanCount = 4
		d, err := Evaluate(ctx, code, model.AdminLimits{MaxScansPerCode: 4}, now, &stubUsage{})
		require.NoError(t, err)
		assert.Equal(t, ReasonLimitReached, d.Reason)
		assert.Equal(t, 4, d.EffectiveLimit)
	})

	t.Run("zero limits mean unlimited", func(t *testing.T) {
		code := activeCode()
		code.ScanCount = 1 << 20
		d, err := Evaluate(ctx, code, model.AdminLimits{}, now, &stubUsage{})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 0, d.EffectiveLimit)
	})
}

func TestEvaluate_OwnerQuota(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("ledger not consulted when quota disabled", func(t *testing.T) {
		usage := &stubUsage{used: 1 << 20}
		d, err := Evaluate(ctx, activeCode(), model.AdminLimits{}, now, usage)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Zero(t, usage.calls)
	})

	t.Run("denies when window usage at quota", func(t *testing.T) {
		usage := &stubUsage{used: 2}
		limits := model.AdminLimits{MaxScansPerOwnerWindow: 2, OwnerWindowDays: 1}
		d, err := Evaluate(ctx, activeCode(), limits, now, usage)
		require.NoError(t, err)
		assert.Equal(t, ReasonOwnerQuota, d.Reason)
		assert.Equal(t, "owner-1", usage.lastOwner)
		assert.Equal(t, now.Add(-24*time.Hour), usage.lastSince)
	})

	t.Run("allows once the window has rolled past old scans", func(t *testing.T) {
		usage := &stubUsage{used: 0}
		limits := model.AdminLimits{MaxScansPerOwnerWindow: 2, OwnerWindowDays: 1}
		d, err := Evaluate(ctx, activeCode(), limits, now, usage)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("window days below one is clamped", func(t *testing.T) {
		usage := &stubUsage{}
		limits := model.AdminLimits{MaxScansPerOwnerWindow: 5, OwnerWindowDays: 0}
		_, err := Evaluate(ctx, activeCode(), limits, now, usage)
		require.NoError(t, err)
		assert.Equal(t, now.Add(-24*time.Hour), usage.lastSince)
	})

	t.Run("ledger error surfaces with no decision", func(t *testing.T) {
		usage := &stubUsage{err: errors.New("connection refused")}
		limits := model.AdminLimits{MaxScansPerOwnerWindow: 2, OwnerWindowDays: 1}
		_, err := Evaluate(ctx, activeCode(), limits, now, usage)
		assert.Error(t, err)
	})
}
