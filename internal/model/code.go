package model

import (
	"time"
)

// Code is one dynamic QR code definition. The alias is the short string
// encoded in the printed QR; resolving it applies the code's status, window
// and limit before redirecting to its target.
type Code struct {
	ID         string     `db:"id" json:"id"`
	OwnerID    string     `db:"owner_id" json:"ownerId"`
	Alias      string     `db:"alias" json:"alias"`
	Title      string     `db:"title" json:"title"`
	TargetKind TargetKind `db:"target_kind" json:"targetKind"`
	// TargetValue holds a URL for kind "url" and a page id for kinds
	// "landing" and "form". Empty for "unconfigured".
	TargetValue string     `db:"target_value" json:"targetValue,omitempty"`
	Status      CodeStatus `db:"status" json:"status"`
	Published   bool       `db:"published" json:"published"`
	StartAt     *time.Time `db:"start_at" json:"startAt,omitempty"`
	EndAt       *time.Time `db:"end_at" json:"endAt,omitempty"`
	// ScanLimit caps total scans for this code. 0 = unlimited.
	ScanLimit int       `db:"scan_limit" json:"scanLimit"`
	ScanCount int       `db:"scan_count" json:"scanCount"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsActive reports whether the owner-facing status allows scans. Both
// "paused" and "admin_locked" deny resolution the same way.
func (c *Code) IsActive() bool {
	return c.Status == CodeStatusActive
}

type CreateCodeParams struct {
	ID          string
	OwnerID     string
	Alias       string
	Title       string
	TargetKind  TargetKind
	TargetValue string
	Published   bool
	StartAt     *time.Time
	EndAt       *time.Time
	ScanLimit   int
}

type UpdateCodeParams struct {
	Title       *string
	TargetKind  *TargetKind
	TargetValue *string
	Published   *bool
	StartAt     *time.Time
	EndAt       *time.Time
	ClearWindow bool
	ScanLimit   *int
}
