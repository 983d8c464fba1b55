package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/judo-pairings/services"
	"github.com/go-co-op/gocron/v2"
)

const defaultExportTimeout = 2 * time.Minute

// CompetitionLister is the part of the pairings store the worker needs.
type CompetitionLister interface {
	ListCompetitionIDs(ctx context.Context) ([]string, error)
}

// MedalExportWorker periodically publishes the medal table of every competition.
type MedalExportWorker struct {
	scheduler gocron.Scheduler
	lister    CompetitionLister
	exporter  services.MedalExportService
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

func NewMedalExportWorker(lister CompetitionLister, exporter services.MedalExportService, interval time.Duration, logger *slog.Logger) (*MedalExportWorker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("medal export interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &MedalExportWorker{
		scheduler: sched,
		lister:    lister,
		exporter:  exporter,
		interval:  interval,
		timeout:   defaultExportTimeout,
		logger:    logger,
	}, nil
}

// Start registers the export job and starts the scheduler.
func (w *MedalExportWorker) Start() error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			defer cancel()
			w.RunOnce(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule medal export: %w", err)
	}
	w.scheduler.Start()
	w.logger.Info("medal export worker started", slog.Duration("interval", w.interval))
	return nil
}

func (w *MedalExportWorker) Stop() error {
	return w.scheduler.Shutdown()
}

// RunOnce exports every competition and returns how many exports succeeded.
// A failed competition does not stop the others.
func (w *MedalExportWorker) RunOnce(ctx context.Context) int {
	ids, err := w.lister.ListCompetitionIDs(ctx)
	if err != nil {
		w.logger.Error("medal export: failed to list competitions", slog.Any("error", err))
		return 0
	}

	exported := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			w.logger.Warn("medal export: run interrupted", slog.Any("error", ctx.Err()))
			break
		}
		if _, err := w.exporter.ExportMedals(ctx, id); err != nil {
			w.logger.Error("medal export failed", slog.String("competition_id", id), slog.Any("error", err))
			continue
		}
		exported++
	}
	w.logger.Info("medal export run finished", slog.Int("competitions", len(ids)), slog.Int("exported", exported))
	return exported
}
