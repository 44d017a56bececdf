package app

import (
	"context"
	"time"

	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/interfaces"
	"github.com/bobmcallan/putscan/internal/models"
)

// startScanScheduler rescans the default universe on a fixed interval,
// running once immediately so the first request has a report to read.
func startScanScheduler(ctx context.Context, scanService interfaces.ScanService, publish func(*models.ScanReport), logger *common.Logger, interval time.Duration) {
	runScheduledScan(ctx, scanService, publish, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Scan scheduler: stopped")
			return
		case <-ticker.C:
			runScheduledScan(ctx, scanService, publish, logger)
		}
	}
}

func runScheduledScan(ctx context.Context, scanService interfaces.ScanService, publish func(*models.ScanReport), logger *common.Logger) {
	start := time.Now()

	report, err := scanService.Scan(ctx, models.ScanRequest{})
	if err != nil {
		logger.Warn().Err(err).Msg("Scheduled scan failed")
		return
	}
	publish(report)

	logger.Info().
		Int("tickers", report.Scanned).
		Int("succeeded", report.Succeeded).
		Dur("elapsed", time.Since(start)).
		Msg("Scheduled scan: complete")
}
