package forecast

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/surveillance-api/internal/analytics"
	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/repository"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
	"github.com/jwalitptl/surveillance-api/pkg/messaging"
	"github.com/jwalitptl/surveillance-api/pkg/metrics"
)

const (
	diseasesKey    = "diseases"
	modelKeyPrefix = "model:"
	defaultTTL     = 10 * time.Minute
	defaultRange   = 365
)

type Service interface {
	Predict(ctx context.Context, req model.PredictRequest) (*model.Prediction, error)
	Diseases(ctx context.Context) ([]string, error)
	// InvalidateCache drops every cached model and the disease list.
	InvalidateCache()
	// WatchRetrains flushes the cache whenever a retrain event arrives, until
	// ctx is done.
	WatchRetrains(ctx context.Context, broker messaging.Broker) error
}

type service struct {
	models   repository.ModelRepository
	cases    repository.CaseRepository
	cache    *cache.Cache
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
	maxRange int
}

type Option func(*service)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithMaxRange caps the range parameter. Non-positive values keep the default.
func WithMaxRange(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.maxRange = n
		}
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.cache = cache.New(ttl, 2*ttl)
		}
	}
}

func NewService(models repository.ModelRepository, cases repository.CaseRepository, m *metrics.Metrics, log *logger.Logger, opts ...Option) Service {
	s := &service{
		models:   models,
		cases:    cases,
		cache:    cache.New(defaultTTL, 2*defaultTTL),
		metrics:  m,
		log:      log,
		now:      time.Now,
		maxRange: defaultRange,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Predict(ctx context.Context, req model.PredictRequest) (*model.Prediction, error) {
	disease := strings.TrimSpace(req.Disease)
	if disease == "" {
		return nil, errors.NewBadRequest("disease is required", nil)
	}

	diseases, err := s.Diseases(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(diseases, disease) {
		return nil, errors.NewNotFound(fmt.Sprintf("disease %q", disease), nil).
			WithDetail(map[string]interface{}{"available_diseases": diseases})
	}

	m, err := s.loadModel(ctx, disease)
	if err != nil {
		return nil, err
	}

	today := analytics.Day(s.now())
	base := m.DaysSinceStart(today)

	switch {
	case req.Range != nil:
		n := *req.Range
		if n < 1 {
			return nil, errors.NewBadRequest("range must be at least 1", nil)
		}
		if n > s.maxRange {
			return nil, errors.NewBadRequest(fmt.Sprintf("range must not exceed %d", s.maxRange), nil)
		}
		s.metrics.PredictionsServed.WithLabelValues("range").Inc()
		return &model.Prediction{Range: s.predictRange(ctx, m, base, n, today)}, nil

	case req.DaysFromNow != nil:
		offset := *req.DaysFromNow
		s.metrics.PredictionsServed.WithLabelValues("single").Inc()
		return &model.Prediction{Single: &model.SinglePrediction{
			Disease:        disease,
			PredictedCases: m.Predict(base + offset),
			DaysFromNow:    offset,
		}}, nil

	default:
		return nil, errors.NewBadRequest("either days_from_now or range must be provided", nil)
	}
}

func (s *service) predictRange(ctx context.Context, m *model.TrendModel, base, n int, today time.Time) *model.RangePrediction {
	values := make([]float64, n)
	for i := range values {
		values[i] = m.Predict(base + i)
	}

	recent := s.recentActuals(ctx, m.Disease, today)
	flags := analytics.AnomalyFlags(values, recent)

	out := &model.RangePrediction{
		Disease:     m.Disease,
		Predictions: make([]model.PredictedPoint, n),
	}
	for i, v := range values {
		out.Predictions[i] = model.PredictedPoint{DaysFromNow: i, PredictedCases: v}
		if flags != nil {
			flag := flags[i]
			out.Predictions[i].Anomaly = &flag
		}
	}

	if trend := analytics.TrendNarrative(values, recent); trend != nil {
		explanation := string(*trend)
		out.TrendExplanation = &explanation
	}

	return out
}

// recentActuals returns the last fourteen days of observed counts. A store
// failure degrades to an empty series so the prediction is still served.
func (s *service) recentActuals(ctx context.Context, disease string, today time.Time) analytics.DailySeries {
	start := analytics.WindowStart(today, analytics.TrendLookbackDays-1)

	records, err := s.cases.FetchSince(ctx, start)
	if err != nil {
		s.metrics.DegradedResponses.WithLabelValues("predict").Inc()
		s.log.Warn("recent case data unavailable, serving predictions without enrichment",
			"disease", disease, "error", err.Error())
		return analytics.DailySeries{Disease: disease}
	}

	return analytics.Aggregate(records, disease, nil, start, today)
}

func (s *service) Diseases(ctx context.Context) ([]string, error) {
	if cached, ok := s.cache.Get(diseasesKey); ok {
		s.metrics.ModelCacheHits.WithLabelValues("hit").Inc()
		return cached.([]string), nil
	}
	s.metrics.ModelCacheHits.WithLabelValues("miss").Inc()

	diseases, err := s.models.LoadDiseases(ctx)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to load disease list: %w", err))
	}
	sort.Strings(diseases)

	s.cache.SetDefault(diseasesKey, diseases)
	return diseases, nil
}

func (s *service) loadModel(ctx context.Context, disease string) (*model.TrendModel, error) {
	key := modelKeyPrefix + disease
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.ModelCacheHits.WithLabelValues("hit").Inc()
		return cached.(*model.TrendModel), nil
	}
	s.metrics.ModelCacheHits.WithLabelValues("miss").Inc()

	m, err := s.models.LoadModel(ctx, disease)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewNotFound(fmt.Sprintf("model for disease %q", disease), err)
	}
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to load model for %s: %w", disease, err))
	}

	s.cache.SetDefault(key, m)
	return m, nil
}

func (s *service) InvalidateCache() {
	s.cache.Flush()
}

func (s *service) WatchRetrains(ctx context.Context, broker messaging.Broker) error {
	events, err := broker.Subscribe(ctx, messaging.ChannelModelsRetrained)
	if err != nil {
		return fmt.Errorf("failed to subscribe to retrain events: %w", err)
	}

	go func() {
		for raw := range events {
			var evt messaging.ModelsRetrained
			if err := json.Unmarshal(raw, &evt); err != nil {
				s.log.Warn("ignoring malformed retrain event", "error", err.Error())
				continue
			}
			s.InvalidateCache()
			s.log.Info("models retrained, cache flushed",
				"diseases", len(evt.Diseases), "trained_at", evt.TrainedAt)
		}
	}()

	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
