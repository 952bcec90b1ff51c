package model

import (
	"time"
)

// ScanEvent is one accepted scan, recorded once per honored resolution.
// Rows are immutable; the engine never updates or deletes them.
type ScanEvent struct {
	ID     string `db:"id" json:"id"`
	CodeID string `db:"code_id" json:"codeId"`
	// Alias is denormalized at scan time so events survive alias edits.
	Alias     string    `db:"alias" json:"alias"`
	ScannedAt time.Time `db:"scanned_at" json:"scannedAt"`
	ClientIP  string    `db:"ip" json:"ip,omitempty"`
	UserAgent string    `db:"user_agent" json:"userAgent,omitempty"`
	Referrer  string    `db:"referrer" json:"referrer,omitempty"`
}

type AppendScanParams struct {
	ID        string
	CodeID    string
	Alias     string
	ScannedAt time.Time
	ClientIP  string
	UserAgent string
	Referrer  string
}

// CodeStats is the per-code analytics summary.
type CodeStats struct {
	CodeID     string     `json:"codeId"`
	Alias      string     `json:"alias"`
	ScanCount  int        `json:"scanCount"`
	LastScanAt *time.Time `json:"lastScanAt,omitempty"`
}

// OwnerSummary aggregates scan volume across all of an owner's codes.
type OwnerSummary struct {
	OwnerID        string `json:"ownerId"`
	CodeCount      int    `json:"codeCount"`
	ScansInWindow  int    `json:"scansInWindow"`
	WindowDays     int    `json:"windowDays"`
	QuotaRemaining *int   `json:"quotaRemaining,omitempty"`
}
