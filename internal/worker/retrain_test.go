package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/pkg/lock"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
	"github.com/jwalitptl/surveillance-api/pkg/messaging"
	"github.com/jwalitptl/surveillance-api/pkg/metrics"
)

type fakeTrainer struct {
	calls    int
	err      error
	deadline time.Time
}

func (f *fakeTrainer) Train(ctx context.Context) (*model.TrainingReport, error) {
	f.calls++
	f.deadline, _ = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &model.TrainingReport{
		Trained:    []string{"Cholera", "Malaria"},
		Skipped:    []string{},
		FinishedAt: time.Date(2026, 10, 16, 3, 0, 0, 0, time.UTC),
	}, nil
}

// unreachableLocker behaves like a Redis lock whose server is down.
type unreachableLocker struct {
	attempts int
}

func (l *unreachableLocker) Acquire(context.Context) (lock.Release, error) {
	l.attempts++
	return nil, stderrors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

type fakeMailer struct {
	to []string
}

func (f *fakeMailer) SendTrainingReport(_ context.Context, to string, _ *model.TrainingReport) error {
	f.to = append(f.to, to)
	return nil
}

func (f *fakeMailer) SendCustom(context.Context, string, string, string) error { return nil }

func TestRunOncePublishesAndReports(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker := messaging.NewMemoryBroker()
	defer broker.Close()
	events, err := broker.Subscribe(ctx, messaging.ChannelModelsRetrained)
	require.NoError(t, err)

	trainer := &fakeTrainer{}
	mailer := &fakeMailer{}
	m := metrics.NewNop()
	w := NewRetrainWorker(trainer, lock.NewLocalLock(), m, logger.Nop(), RetrainOptions{
		Broker:   broker,
		Mailer:   mailer,
		ReportTo: "ops@example.org",
	})

	report, err := w.RunOnce(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"Cholera", "Malaria"}, report.Trained)
	assert.Equal(t, []string{"ops@example.org"}, mailer.to)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("success")))

	select {
	case raw := <-events:
		var evt messaging.ModelsRetrained
		require.NoError(t, json.Unmarshal(raw, &evt))
		assert.Equal(t, []string{"Cholera", "Malaria"}, evt.Diseases)
	case <-time.After(time.Second):
		t.Fatal("retrain event not published")
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	locker := lock.NewLocalLock()
	release, err := locker.Acquire(context.Background())
	require.NoError(t, err)
	defer release(context.Background())

	trainer := &fakeTrainer{}
	m := metrics.NewNop()
	w := NewRetrainWorker(trainer, locker, m, logger.Nop(), RetrainOptions{})

	_, err = w.RunOnce(context.Background())

	assert.ErrorIs(t, err, ErrSkipped)
	assert.Equal(t, 0, trainer.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("skipped")))
}

func TestRunOnceReleasesLockAfterFailure(t *testing.T) {
	locker := lock.NewLocalLock()
	trainer := &fakeTrainer{err: stderrors.New("store down")}
	w := NewRetrainWorker(trainer, locker, metrics.NewNop(), logger.Nop(), RetrainOptions{})

	_, err := w.RunOnce(context.Background())
	require.Error(t, err)

	release, err := locker.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}

func TestStartWithoutIntervalRunsOnce(t *testing.T) {
	trainer := &fakeTrainer{}
	w := NewRetrainWorker(trainer, lock.NewLocalLock(), metrics.NewNop(), logger.Nop(), RetrainOptions{})

	w.Start(context.Background())

	assert.Equal(t, 1, trainer.calls)
}

func TestRunOnceAbortsWhenLockUnavailable(t *testing.T) {
	locker := &unreachableLocker{}
	trainer := &fakeTrainer{}
	m := metrics.NewNop()
	w := NewRetrainWorker(trainer, locker, m, logger.Nop(), RetrainOptions{})

	_, err := w.RunOnce(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSkipped)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, trainer.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("error")))
}

func TestStartRetriesLockOnEveryTick(t *testing.T) {
	locker := &unreachableLocker{}
	trainer := &fakeTrainer{}
	w := NewRetrainWorker(trainer, locker, metrics.NewNop(), logger.Nop(), RetrainOptions{
		Interval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	assert.GreaterOrEqual(t, locker.attempts, 2)
	assert.Equal(t, 0, trainer.calls)
}

func TestRunOnceBoundsTrainingByLockTTL(t *testing.T) {
	trainer := &fakeTrainer{}
	w := NewRetrainWorker(trainer, lock.NewLocalLock(), metrics.NewNop(), logger.Nop(), RetrainOptions{
		LockTTL: time.Minute,
	})

	before := time.Now()
	_, err := w.RunOnce(context.Background())

	require.NoError(t, err)
	require.False(t, trainer.deadline.IsZero(), "training must run under a deadline")
	assert.WithinDuration(t, before.Add(time.Minute), trainer.deadline, 5*time.Second)
}
