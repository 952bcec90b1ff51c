package model

type CodeStatus string

const (
	// CodeStatusActive means the code resolves normally.
	CodeStatusActive CodeStatus = "active"
	// CodeStatusPaused is set by the owner and can be cleared by the owner.
	CodeStatusPaused CodeStatus = "paused"
	// CodeStatusAdminLocked is a stronger pause that only an admin can clear.
	CodeStatusAdminLocked CodeStatus = "admin_locked"
)

type TargetKind string

const (
	TargetKindDirectURL    TargetKind = "url"
	TargetKindLandingPage  TargetKind = "landing"
	TargetKindFormPage     TargetKind = "form"
	TargetKindUnconfigured TargetKind = "unconfigured"
)

func (k TargetKind) Valid() bool {
	switch k {
	case TargetKindDirectURL, TargetKindLandingPage, TargetKindFormPage, TargetKindUnconfigured:
		return true
	}
	return false
}
