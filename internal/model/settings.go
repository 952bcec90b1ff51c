package model

import (
	"time"
)

// PortalSettings is the single admin-maintained settings row. The resolution
// engine reads it on every request; only the admin API writes it.
type PortalSettings struct {
	ID int `db:"id" json:"-"`
	// MaxScansPerCode caps any single code's total scans. 0 = unlimited.
	// When both this and a code's own limit are set, the tighter one wins.
	MaxScansPerCode int `db:"max_scans_per_code" json:"maxScansPerCode"`
	// MaxScansPerOwnerWindow caps scans summed across all of an owner's
	// codes within OwnerWindowDays. 0 = unlimited.
	MaxScansPerOwnerWindow int `db:"max_scans_per_owner_window" json:"maxScansPerOwnerWindow"`
	OwnerWindowDays        int `db:"owner_window_days" json:"ownerWindowDays"`
	// MaxCodesPerOwner is enforced at creation time, not at scan time.
	MaxCodesPerOwner int `db:"max_codes_per_owner" json:"maxCodesPerOwner"`
	// RetentionDays bounds how long scan events are kept. 0 = forever.
	RetentionDays int       `db:"retention_days" json:"retentionDays"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// AdminLimits is the read-only snapshot handed to the quota policy
// evaluator.
type AdminLimits struct {
	MaxScansPerCode        int
	MaxScansPerOwnerWindow int
	OwnerWindowDays        int
}

func (s *PortalSettings) Limits() AdminLimits {
	days := s.OwnerWindowDays
	if days < 1 {
		days = 1
	}
	return AdminLimits{
		MaxScansPerCode:        s.MaxScansPerCode,
		MaxScansPerOwnerWindow: s.MaxScansPerOwnerWindow,
		OwnerWindowDays:        days,
	}
}

type UpdateSettingsParams struct {
	MaxScansPerCode        *int
	MaxScansPerOwnerWindow *int
	OwnerWindowDays        *int
	MaxCodesPerOwner       *int
	RetentionDays          *int
}
