package forecast

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/repository"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
	"github.com/jwalitptl/surveillance-api/pkg/messaging"
	"github.com/jwalitptl/surveillance-api/pkg/metrics"
)

var today = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

type fakeModels struct {
	mu       sync.Mutex
	diseases []string
	models   map[string]*model.TrendModel
	loads    int
}

func (f *fakeModels) SaveModel(_ context.Context, m *model.TrendModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models[m.Disease] = m
	return nil
}

func (f *fakeModels) LoadModel(_ context.Context, disease string) (*model.TrendModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	m, ok := f.models[disease]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeModels) SaveDiseases(_ context.Context, diseases []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diseases = diseases
	return nil
}

func (f *fakeModels) LoadDiseases(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.diseases...), nil
}

func (f *fakeModels) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

type fakeCases struct {
	records []model.CaseRecord
	err     error
}

func (f *fakeCases) FetchAll(context.Context) ([]model.CaseRecord, error) {
	return f.records, f.err
}

func (f *fakeCases) FetchSince(_ context.Context, since time.Time) ([]model.CaseRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.CaseRecord
	for _, r := range f.records {
		if !r.Date.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeCases) Create(_ context.Context, r *model.CaseRecord) error {
	f.records = append(f.records, *r)
	return nil
}

func intPtr(i int) *int { return &i }

func choleraWeek() []model.CaseRecord {
	var records []model.CaseRecord
	for d := 13; d >= 0; d-- {
		n := 10
		if d >= 7 {
			n = 2
		}
		for i := 0; i < n; i++ {
			records = append(records, model.CaseRecord{
				Disease:  "Cholera",
				Location: "Kibera",
				Date:     today.AddDate(0, 0, -d),
			})
		}
	}
	return records
}

func newTestService(models *fakeModels, cases *fakeCases) Service {
	return NewService(models, cases, metrics.NewNop(), logger.Nop(),
		WithClock(func() time.Time { return today.Add(9 * time.Hour) }))
}

func defaultModels() *fakeModels {
	return &fakeModels{
		diseases: []string{"Cholera", "Malaria"},
		models: map[string]*model.TrendModel{
			"Cholera": {Disease: "Cholera", Slope: 0, Intercept: 10, StartDate: today.AddDate(0, 0, -30)},
		},
	}
}

func TestPredictSingleOffset(t *testing.T) {
	models := defaultModels()
	models.models["Cholera"] = &model.TrendModel{Disease: "Cholera", Slope: 2, Intercept: 1, StartDate: today.AddDate(0, 0, -10)}
	svc := newTestService(models, &fakeCases{})

	pred, err := svc.Predict(context.Background(), model.PredictRequest{Disease: "Cholera", DaysFromNow: intPtr(3)})

	require.NoError(t, err)
	require.NotNil(t, pred.Single)
	assert.Nil(t, pred.Range)
	assert.Equal(t, "Cholera", pred.Single.Disease)
	assert.Equal(t, 3, pred.Single.DaysFromNow)
	// days since start = 10 + 3
	assert.InDelta(t, 27.0, pred.Single.PredictedCases, 1e-9)
}

func TestPredictUnknownDiseaseListsAlternatives(t *testing.T) {
	svc := newTestService(defaultModels(), &fakeCases{})

	_, err := svc.Predict(context.Background(), model.PredictRequest{Disease: "Ebola", DaysFromNow: intPtr(1)})

	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
	assert.Equal(t, map[string]interface{}{"available_diseases": []string{"Cholera", "Malaria"}}, appErr.Detail)
}

func TestPredictListedDiseaseWithoutModelIsNotFound(t *testing.T) {
	svc := newTestService(defaultModels(), &fakeCases{})

	_, err := svc.Predict(context.Background(), model.PredictRequest{Disease: "Malaria", Range: intPtr(7)})

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNotFoundKind))
}

func TestPredictRequiresExactlyOneMode(t *testing.T) {
	svc := newTestService(defaultModels(), &fakeCases{})

	_, err := svc.Predict(context.Background(), model.PredictRequest{Disease: "Cholera"})
	assert.True(t, stderrors.Is(err, errors.ErrBadRequestKind))

	_, err = svc.Predict(context.Background(), model.PredictRequest{Disease: "Cholera", Range: intPtr(0)})
	assert.True(t, stderrors.Is(err, errors.ErrBadRequestKind))

	_, err = svc.Predict(context.Background(), model.PredictRequest{Disease: ""})
	assert.True(t, stderrors.Is(err, errors.ErrBadRequestKind))
}

func TestPredictRangeTakesPrecedence(t *testing.T) {
	svc := newTestService(defaultModels(), &fakeCases{})

	pred, err := svc.Predict(context.Background(), model.PredictRequest{
		Disease:     "Cholera",
		DaysFromNow: intPtr(5),
		Range:       intPtr(3),
	})

	require.NoError(t, err)
	assert.Nil(t, pred.Single)
	require.NotNil(t, pred.Range)
	require.Len(t, pred.Range.Predictions, 3)
	for i, p := range pred.Range.Predictions {
		assert.Equal(t, i, p.DaysFromNow)
	}
}

func TestPredictRangeRisingCholera(t *testing.T) {
	svc := newTestService(defaultModels(), &fakeCases{records: choleraWeek()})

	pred, err := svc.Predict(context.Background(), model.PredictRequest{Disease: "Cholera", Range: intPtr(7)})

	require.NoError(t, err)
	require.NotNil(t, pred.Range)
	require.NotNil(t, pred.Range.TrendExplanation)
	assert.Equal(t, "rising", *pred.Range.TrendExplanation)
	require.Len(t, pred.Range.Predictions, 7)
	for _, p := range pred.Range.Predictions {
		assert.InDelta(t, 10.0, p.PredictedCases, 1e-9)
		// flat last week: no spread, no anomalies
		require.NotNil(t, p.Anomaly)
		assert.False(t, *p.Anomaly)
	}
}

func TestPredictRangeShortRangeHasNoTrend(t *testing.T) {
	svc := newTestService(defaultModels(), &fakeCases{records: choleraWeek()})

	pred, err := svc.Predict(context.Background(), model.PredictRequest{Disease: "Cholera", Range: intPtr(3)})

	require.NoError(t, err)
	assert.Nil(t, pred.Range.TrendExplanation)
	assert.Len(t, pred.Range.Predictions, 3)
}

func TestPredictRangeDegradesWhenStoreFails(t *testing.T) {
	svc := newTestService(defaultModels(), &fakeCases{err: stderrors.New("connection refused")})

	pred, err := svc.Predict(context.Background(), model.PredictRequest{Disease: "Cholera", Range: intPtr(14)})

	require.NoError(t, err)
	require.Len(t, pred.Range.Predictions, 14)
	assert.Nil(t, pred.Range.TrendExplanation)
	for _, p := range pred.Range.Predictions {
		assert.Nil(t, p.Anomaly)
	}
}

func TestPredictCachesModelsUntilInvalidated(t *testing.T) {
	models := defaultModels()
	svc := newTestService(models, &fakeCases{})
	req := model.PredictRequest{Disease: "Cholera", DaysFromNow: intPtr(0)}

	_, err := svc.Predict(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, models.loadCount())

	svc.InvalidateCache()
	_, err = svc.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, models.loadCount())
}

func TestWatchRetrainsFlushesCache(t *testing.T) {
	models := defaultModels()
	svc := newTestService(models, &fakeCases{})
	broker := messaging.NewMemoryBroker()
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.WatchRetrains(ctx, broker))

	diseases, err := svc.Diseases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cholera", "Malaria"}, diseases)

	require.NoError(t, models.SaveDiseases(ctx, []string{"Typhoid"}))
	require.NoError(t, broker.Publish(ctx, messaging.ChannelModelsRetrained, messaging.ModelsRetrained{Diseases: []string{"Typhoid"}}))

	assert.Eventually(t, func() bool {
		diseases, err := svc.Diseases(ctx)
		return err == nil && len(diseases) == 1 && diseases[0] == "Typhoid"
	}, time.Second, 10*time.Millisecond)
}
