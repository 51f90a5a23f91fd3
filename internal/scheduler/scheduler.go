// Package scheduler runs the periodic metric sync.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/templui/goalpulse/internal/service"
)

// Syncer is the part of MetricSyncService the scheduler drives.
type Syncer interface {
	SyncAll(ctx context.Context) (*service.SyncReport, error)
}

// Start registers sync on spec (robfig cron syntax, e.g. "@every 6h" or "0 */6 * * *") and starts the cron.
// Overlapping runs are skipped. Call Stop on the returned cron at shutdown.
func Start(spec string, sync Syncer, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	_, err := c.AddFunc(spec, func() { run(sync, timeout) })
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}

	c.Start()
	slog.Info("metric sync scheduled", "schedule", spec)
	return c, nil
}

func run(sync Syncer, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	report, err := sync.SyncAll(ctx)
	if err != nil {
		slog.Error("scheduled metric sync failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	slog.Info("scheduled metric sync done",
		"checked", report.Checked,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
