package service

import (
	"context"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/rightwin/qr-portal-server/internal/errors"
	"github.com/rightwin/qr-portal-server/internal/model"
	"github.com/rightwin/qr-portal-server/internal/policy"
	"github.com/rightwin/qr-portal-server/internal/repository"
	"github.com/rightwin/qr-portal-server/internal/util"
)

// Request metadata is best-effort analytics context, never required for
// correctness. Long header values are truncated before storage.
const metaMaxLen = 500

type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// Resolution is the successful outcome of a scan: either a redirect target
// or a soft "nothing configured" page. The scan has already been counted.
type Resolution struct {
	Code         *model.Code
	RedirectURL  string
	Unconfigured bool
	ScanCount    int
}

// ScanPublisher fans accepted scans out to live dashboard listeners.
type ScanPublisher interface {
	PublishScan(ctx context.Context, ownerID string, event model.ScanEvent) error
}

// Resolver is the alias resolution engine: lookup, policy evaluation,
// atomic scan recording, target resolution.
type Resolver struct {
	codeRepo  repository.CodeRepository
	scanRepo  repository.ScanRepository
	recorder  repository.ScanRecorder
	settings  *SettingsService
	publisher ScanPublisher
	baseURL   string

	now func() time.Time
}

func NewResolver(
	codeRepo repository.CodeRepository,
	scanRepo repository.ScanRepository,
	recorder repository.ScanRecorder,
	settings *SettingsService,
	publisher ScanPublisher,
	baseURL string,
) *Resolver {
	return &Resolver{
		codeRepo:  codeRepo,
		scanRepo:  scanRepo,
		recorder:  recorder,
		settings:  settings,
		publisher: publisher,
		baseURL:   baseURL,
		now:       time.Now,
	}
}

// Resolve handles one inbound alias lookup. Denials return an AppError and
// leave no trace in the ledger or the counter; an accepted scan is recorded
// exactly once before the target is resolved, so even an unconfigured
// target consumes the limit.
func (s *Resolver) Resolve(ctx context.Context, rawAlias string, meta RequestMeta) (*Resolution, error) {
	alias := util.NormalizeAlias(rawAlias)
	if alias == "" {
		return nil, apperrors.NotFound("QR code")
	}

	code, err := s.codeRepo.FindByAlias(ctx, alias)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if code == nil {
		return nil, apperrors.NotFound("QR code")
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	now := s.now().UTC()
	decision, err := policy.Evaluate(ctx, code, settings.Limits(), now, s.scanRepo)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if !decision.Allowed {
		log.Debug().
			Str("alias", alias).
			Str("codeId", code.ID).
			Str("reason", string(decision.Reason)).
			Msg("scan denied")
		return nil, denialError(decision.Reason)
	}

	event := model.AppendScanParams{
		ID:        uuid.NewString(),
		CodeID:    code.ID,
		Alias:     alias,
		ScannedAt: now,
		ClientIP:  truncate(meta.ClientIP, 45),
		UserAgent: truncate(meta.UserAgent, metaMaxLen),
		Referrer:  truncate(meta.Referrer, metaMaxLen),
	}

	newCount, limited, err := s.recorder.RecordScan(ctx, decision.EffectiveLimit, event)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if limited {
		// A concurrent scan took the last slot between the policy read
		// and the conditional increment.
		return nil, apperrors.ScanLimitReached()
	}

	log.Info().
		Str("alias", alias).
		Str("codeId", code.ID).
		Int("scanCount", newCount).
		Msg("scan recorded")

	s.publish(ctx, code.OwnerID, event)

	resolution := &Resolution{Code: code, ScanCount: newCount}
	switch code.TargetKind {
	case model.TargetKindDirectURL:
		resolution.RedirectURL = code.TargetValue
	case model.TargetKindLandingPage, model.TargetKindFormPage:
		resolution.RedirectURL = s.viewURL(code.TargetValue)
	default:
		resolution.Unconfigured = true
	}
	return resolution, nil
}

// viewURL builds the renderer's canonical page URL. src=scan tells the
// renderer this visit is already counted, so it must not log it again.
func (s *Resolver) viewURL(pageID string) string {
	return fmt.Sprintf("%s/v/%s?src=scan", s.baseURL, url.PathEscape(pageID))
}

func (s *Resolver) publish(ctx context.Context, ownerID string, params model.AppendScanParams) {
	if s.publisher == nil {
		return
	}
	event := model.ScanEvent{
		ID:        params.ID,
		CodeID:    params.CodeID,
		Alias:     params.Alias,
		ScannedAt: params.ScannedAt,
		ClientIP:  params.ClientIP,
		UserAgent: params.UserAgent,
		Referrer:  params.Referrer,
	}
	if err := s.publisher.PublishScan(ctx, ownerID, event); err != nil {
		// The ledger row is already durable; the live feed is best effort.
		log.Warn().Err(err).Str("codeId", params.CodeID).Msg("failed to publish scan event")
	}
}

func denialError(reason policy.Reason) *apperrors.AppError {
	switch reason {
	case policy.ReasonInactive:
		return apperrors.CodeInactive()
	case policy.ReasonNotStarted:
		return apperrors.CodeNotStarted()
	case policy.ReasonEnded:
		return apperrors.CodeEnded()
	case policy.ReasonLimitReached:
		return apperrors.ScanLimitReached()
	case policy.ReasonOwnerQuota:
		return apperrors.OwnerQuotaReached()
	default:
		return apperrors.Internal("Unknown denial reason")
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune,
// so the value stays valid for a Postgres TEXT column.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
