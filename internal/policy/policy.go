// Package policy decides whether a scan of a QR code is honored. It has no
// side effects: callers supply the code record, the admin limits snapshot,
// the clock, and a read-only view of the scan ledger.
package policy

import (
	"context"
	"time"

	"github.com/rightwin/qr-portal-server/internal/model"
)

type Reason string

const (
	ReasonInactive     Reason = "inactive"
	ReasonNotStarted   Reason = "not_started"
	ReasonEnded        Reason = "ended"
	ReasonLimitReached Reason = "limit_reached"
	ReasonOwnerQuota   Reason = "owner_quota"
)

// Decision is the outcome of evaluating one scan attempt.
type Decision struct {
	Allowed bool
	Reason  Reason
	// EffectiveLimit is the tighter of the code's own limit and the admin
	// per-code cap, 0 meaning unlimited. Populated on every decision so the
	// accept step can enforce the same bound atomically.
	EffectiveLimit int
}

func allow(limit int) Decision {
	return Decision{Allowed: true, EffectiveLimit: limit}
}

func deny(reason Reason, limit int) Decision {
	return Decision{Reason: reason, EffectiveLimit: limit}
}

// OwnerUsage is the slice of the scan ledger the evaluator reads: total
// scans across all of an owner's codes since a point in time.
type OwnerUsage interface {
	CountOwnerSince(ctx context.Context, ownerID string, since time.Time) (int, error)
}

// EffectiveLimit combines a code's own scan limit with the admin-wide
// per-code cap. Zero means unlimited on either side; when both are set the
// tighter one wins.
func EffectiveLimit(perCodeLimit, adminMax int) int {
	switch {
	case perCodeLimit <= 0:
		return max(adminMax, 0)
	case adminMax <= 0:
		return perCodeLimit
	case adminMax < perCodeLimit:
		return adminMax
	default:
		return perCodeLimit
	}
}

// Evaluate runs the ordered checks for one scan attempt: lifecycle status,
// activation window, per-code limit, owner rolling-window quota. The first
// failing check wins. The ledger is consulted only when the owner quota is
// configured; a ledger read error is returned as-is and means no decision.
func Evaluate(
	ctx context.Context,
	code *model.Code,
	limits model.AdminLimits,
	now time.Time,
	usage OwnerUsage,
) (Decision, error) {
	effLimit := EffectiveLimit(code.ScanLimit, limits.MaxScansPerCode)

	if !code.IsActive() {
		return deny(ReasonInactive, effLimit), nil
	}

	// Window checks compare calendar dates in UTC: both boundary days are
	// fully inside the window.
	today := dateOnly(now)
	if code.StartAt != nil && today.Before(dateOnly(*code.StartAt)) {
		return deny(ReasonNotStarted, effLimit), nil
	}
	if code.EndAt != nil && today.After(dateOnly(*code.EndAt)) {
		return deny(ReasonEnded, effLimit), nil
	}

	// Reaching the limit exhausts it: scanCount == limit already denies.
	if effLimit > 0 && code.ScanCount >= effLimit {
		return deny(ReasonLimitReached, effLimit), nil
	}

	if limits.MaxScansPerOwnerWindow > 0 {
		windowDays := limits.OwnerWindowDays
		if windowDays < 1 {
			windowDays = 1
		}
		since := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
		used, err := usage.CountOwnerSince(ctx, code.OwnerID, since)
		if err != nil {
			return Decision{}, err
		}
		if used >= limits.MaxScansPerOwnerWindow {
			return deny(ReasonOwnerQuota, effLimit), nil
		}
	}

	return allow(effLimit), nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
