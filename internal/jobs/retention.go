package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/rightwin/qr-portal-server/internal/audit"
	"github.com/rightwin/qr-portal-server/internal/repository"
	"github.com/rightwin/qr-portal-server/internal/service"
)

const purgeTimeout = 5 * time.Minute

// RetentionJob purges ledger rows older than the configured retention
// window on a cron schedule. A retention of zero days keeps scans forever.
type RetentionJob struct {
	scanRepo repository.ScanRepository
	settings *service.SettingsService
	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

func NewRetentionJob(scanRepo repository.ScanRepository, settings *service.SettingsService, schedule string) *RetentionJob {
	return &RetentionJob{
		scanRepo: scanRepo,
		settings: settings,
		schedule: schedule,
		cron:     cron.New(),
		now:      time.Now,
	}
}

func (j *RetentionJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.RunOnce); err != nil {
		return err
	}
	j.cron.Start()
	log.Info().Str("schedule", j.schedule).Msg("retention job started")
	return nil
}

func (j *RetentionJob) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("retention job stopped")
}

func (j *RetentionJob) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	settings, err := j.settings.Current(ctx)
	if err != nil {
		log.Error().Err(err).Msg("retention: failed to load settings")
		return
	}

	if settings.RetentionDays <= 0 {
		log.Debug().Msg("retention disabled, keeping all scans")
		return
	}

	cutoff := j.now().UTC().AddDate(0, 0, -settings.RetentionDays)
	count, err := j.scanRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Msg("retention: purge failed")
		return
	}

	if count > 0 {
		audit.Log(ctx, audit.Event{
			Type: audit.EventRetentionPurge,
			Details: map[string]interface{}{
				"purged":        count,
				"retentionDays": settings.RetentionDays,
			},
		})
		log.Info().Int64("count", count).Time("cutoff", cutoff).Msg("purged expired scans")
	}
}
