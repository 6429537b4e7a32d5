package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ReportRunner regenerates the reports due at now and returns how many ran.
type ReportRunner func(ctx context.Context, now time.Time) (int, error)

// StartReportScheduler ticks every interval and runs the due recurring reports.
// It stops when ctx is cancelled.
func StartReportScheduler(ctx context.Context, interval time.Duration, run ReportRunner) {
	if interval <= 0 {
		log.Info().Msg("report_scheduler: disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("report_scheduler: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("report_scheduler: shutting down")
				return
			case now := <-ticker.C:
				tick(ctx, now, run)
			}
		}
	}()
}

func tick(ctx context.Context, now time.Time, run ReportRunner) {
	n, err := run(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("report_scheduler: run failed")
		return
	}
	if n > 0 {
		log.Info().Int("reportes", n).Msg("report_scheduler: reports regenerated")
	}
}
