package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/surveillance-api/internal/email"
	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/service/training"
	"github.com/jwalitptl/surveillance-api/pkg/lock"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
	"github.com/jwalitptl/surveillance-api/pkg/messaging"
	"github.com/jwalitptl/surveillance-api/pkg/metrics"
)

// ErrSkipped is returned by RunOnce when another trainer holds the lock.
var ErrSkipped = stderrors.New("retrain skipped: another run in progress")

type RetrainWorker struct {
	trainer  training.Service
	locker   lock.Locker
	broker   messaging.Broker
	mailer   email.Service
	reportTo string
	interval time.Duration
	lockTTL  time.Duration
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

type RetrainOptions struct {
	// Broker and Mailer are optional.
	Broker   messaging.Broker
	Mailer   email.Service
	ReportTo string
	Interval time.Duration
	// LockTTL bounds a training run so it cannot outlive the lock lease.
	LockTTL time.Duration
}

func NewRetrainWorker(trainer training.Service, locker lock.Locker, m *metrics.Metrics, log *logger.Logger, opts RetrainOptions) *RetrainWorker {
	return &RetrainWorker{
		trainer:  trainer,
		locker:   locker,
		broker:   opts.Broker,
		mailer:   opts.Mailer,
		reportTo: opts.ReportTo,
		interval: opts.Interval,
		lockTTL:  opts.LockTTL,
		metrics:  m,
		logger:   log,
	}
}

// Start runs immediately and then on every tick until ctx is done. A failed
// run is logged and retried on the next tick.
func (w *RetrainWorker) Start(ctx context.Context) {
	w.runLogged(ctx)
	if w.interval <= 0 {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Retrain worker shutting down")
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *RetrainWorker) runLogged(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil {
		if stderrors.Is(err, ErrSkipped) {
			w.logger.Info("Another trainer holds the lock, skipping run")
			return
		}
		w.logger.Error(err, "Retrain run failed")
	}
}

// RunOnce takes the trainer lock, trains every disease and announces the new
// models. It returns ErrSkipped without training if the lock is held.
func (w *RetrainWorker) RunOnce(ctx context.Context) (*model.TrainingReport, error) {
	release, err := w.locker.Acquire(ctx)
	if stderrors.Is(err, lock.ErrNotAcquired) {
		w.metrics.TrainingRuns.WithLabelValues("skipped").Inc()
		return nil, ErrSkipped
	}
	if err != nil {
		w.metrics.TrainingRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to acquire trainer lock: %w", err)
	}
	defer func() {
		// Release on a fresh context so shutdown does not strand the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			w.logger.Warn("Failed to release trainer lock", "error", err.Error())
		}
	}()

	trainCtx, cancel := w.leaseContext(ctx)
	defer cancel()

	timer := prometheus.NewTimer(w.metrics.TrainingDuration)
	report, err := w.trainer.Train(trainCtx)
	timer.ObserveDuration()
	if err != nil {
		w.metrics.TrainingRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	w.metrics.TrainingRuns.WithLabelValues("success").Inc()

	w.announce(ctx, report)
	w.sendReport(ctx, report)

	return report, nil
}

// leaseContext expires the run when the lock lease does, so a second trainer
// that takes the expired lock never overlaps with this one.
func (w *RetrainWorker) leaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.lockTTL <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, w.lockTTL)
}

func (w *RetrainWorker) announce(ctx context.Context, report *model.TrainingReport) {
	if w.broker == nil {
		return
	}
	evt := messaging.ModelsRetrained{
		Diseases:  report.Trained,
		Skipped:   report.Skipped,
		TrainedAt: report.FinishedAt,
	}
	if err := w.broker.Publish(ctx, messaging.ChannelModelsRetrained, evt); err != nil {
		// API instances fall back to their cache TTL.
		w.logger.Warn("Failed to publish retrain event", "error", err.Error())
	}
}

func (w *RetrainWorker) sendReport(ctx context.Context, report *model.TrainingReport) {
	if w.mailer == nil || w.reportTo == "" {
		return
	}
	if err := w.mailer.SendTrainingReport(ctx, w.reportTo, report); err != nil {
		w.logger.Warn("Failed to email training report", "to", w.reportTo, "error", err.Error())
	}
}
