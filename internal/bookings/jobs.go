package bookings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tourly/pkg/logger"

	"github.com/robfig/cron/v3"
)

// JobProcessor runs the booking sweeps on a cron schedule
type JobProcessor struct {
	service Service
	config  *JobConfig
	cron    *cron.Cron
	log     *logger.Logger
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	HoldSweepInterval  time.Duration
	CompletionInterval time.Duration
	BatchSize          int
}

func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		HoldSweepInterval:  time.Minute,
		CompletionInterval: time.Hour,
		BatchSize:          100,
	}
}

func NewJobProcessor(service Service, config *JobConfig) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}
	return &JobProcessor{
		service: service,
		config:  config,
		// An overrunning sweep skips its next tick instead of stacking up.
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		log:  logger.GetDefault(),
	}
}

// Start schedules the sweeps. They stop when ctx is cancelled or Stop is called.
func (jp *JobProcessor) Start(ctx context.Context) error {
	if _, err := jp.cron.AddFunc(every(jp.config.HoldSweepInterval), func() { jp.ExpireHolds(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule hold sweep: %w", err)
	}
	if _, err := jp.cron.AddFunc(every(jp.config.CompletionInterval), func() { jp.CompleteDepartures(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule completion sweep: %w", err)
	}
	jp.cron.Start()

	go func() {
		<-ctx.Done()
		jp.Stop()
	}()

	jp.log.Info("booking background jobs started",
		slog.String("hold_sweep_interval", jp.config.HoldSweepInterval.String()),
		slog.String("completion_interval", jp.config.CompletionInterval.String()),
	)
	return nil
}

// Stop waits for running sweeps to finish.
func (jp *JobProcessor) Stop() {
	<-jp.cron.Stop().Done()
}

func (jp *JobProcessor) ExpireHolds(ctx context.Context) int {
	expired, err := jp.service.ExpireStaleHolds(ctx, jp.config.BatchSize)
	if err != nil {
		jp.log.ErrorContext(ctx, "hold sweep failed", slog.String("error", err.Error()))
		return 0
	}
	if expired > 0 {
		jp.log.InfoContext(ctx, "expired unpaid bookings", slog.Int("count", expired))
	}
	return expired
}

func (jp *JobProcessor) CompleteDepartures(ctx context.Context) int {
	completed, err := jp.service.CompleteDeparted(ctx, jp.config.BatchSize)
	if err != nil {
		jp.log.ErrorContext(ctx, "completion sweep failed", slog.String("error", err.Error()))
		return 0
	}
	if completed > 0 {
		jp.log.InfoContext(ctx, "completed departed bookings", slog.Int("count", completed))
	}
	return completed
}

func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{
		"hold_sweep_interval": jp.config.HoldSweepInterval.String(),
		"completion_interval": jp.config.CompletionInterval.String(),
		"batch_size":          jp.config.BatchSize,
		"scheduled_entries":   len(jp.cron.Entries()),
	}
}

func every(d time.Duration) string {
	return "@every " + d.String()
}
