package connection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Resyncer re-runs Controller.Sync on an interval so a long-running page
// notices snaps installed or removed behind its back.
type Resyncer struct {
	scheduler gocron.Scheduler
	ctl       *Controller
	interval  time.Duration
}

// NewResyncer creates a stopped resyncer. A nil clock uses the real clock.
func NewResyncer(ctl *Controller, interval time.Duration, clock clockwork.Clock) (*Resyncer, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("resync interval must be positive, got %s", interval)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Resyncer{scheduler: s, ctl: ctl, interval: interval}, nil
}

// Start schedules the job and starts the scheduler. Each run uses ctx.
func (r *Resyncer) Start(ctx context.Context) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() { r.run(ctx) }),
		gocron.WithName("resync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create resync job: %w", err)
	}
	slog.Info("Starting resync", slog.Duration("interval", r.interval))
	r.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for a running sync to finish.
func (r *Resyncer) Stop() error {
	slog.Info("Stopping resync")
	return r.scheduler.Shutdown()
}

func (r *Resyncer) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s := r.ctl.Sync(ctx)
	slog.Debug("Resync complete",
		slog.Bool("flask_detected", s.FlaskDetected),
		slog.Bool("state_installed", s.InstalledState != nil),
		slog.Bool("encrypt_installed", s.InstalledEncrypt != nil))
}
