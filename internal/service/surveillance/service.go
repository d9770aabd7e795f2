package surveillance

import (
	"context"
	"time"

	"github.com/jwalitptl/surveillance-api/internal/analytics"
	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/repository"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
	"github.com/jwalitptl/surveillance-api/pkg/metrics"
)

// Service answers the risk, hotspot and advisory questions over case data.
// When the case store cannot be read every method serves an empty (or
// generic) answer instead of failing.
type Service interface {
	Risk(ctx context.Context, location *string, days int) (*model.RiskResponse, error)
	Hotspots(ctx context.Context, days, minCases int) (*model.HotspotResponse, error)
	Tips(ctx context.Context, location *string) (*model.Advisory, error)
}

type service struct {
	cases   repository.CaseRepository
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewService(cases repository.CaseRepository, m *metrics.Metrics, log *logger.Logger) Service {
	return NewServiceWithClock(cases, m, log, time.Now)
}

func NewServiceWithClock(cases repository.CaseRepository, m *metrics.Metrics, log *logger.Logger, now func() time.Time) Service {
	return &service{cases: cases, metrics: m, log: log, now: now}
}

func (s *service) Risk(ctx context.Context, location *string, days int) (*model.RiskResponse, error) {
	if days < 1 {
		return nil, errors.NewBadRequest("days must be at least 1", nil)
	}

	// The daily average needs the full history, not just the window.
	records, err := s.fetchAll(ctx, "risk")
	if err != nil {
		return nil, err
	}

	return &model.RiskResponse{
		Location:   location,
		RiskScores: analytics.ScoreRisk(records, location, days, s.today()),
	}, nil
}

func (s *service) Hotspots(ctx context.Context, days, minCases int) (*model.HotspotResponse, error) {
	if days < 1 {
		return nil, errors.NewBadRequest("days must be at least 1", nil)
	}
	if minCases < 0 {
		return nil, errors.NewBadRequest("min_cases must not be negative", nil)
	}

	today := s.today()
	records, err := s.fetchSince(ctx, "hotspots", analytics.WindowStart(today, days))
	if err != nil {
		return nil, err
	}

	return &model.HotspotResponse{
		Hotspots: analytics.DetectHotspots(records, days, minCases, today),
	}, nil
}

func (s *service) Tips(ctx context.Context, location *string) (*model.Advisory, error) {
	today := s.today()
	records, err := s.fetchSince(ctx, "tips", analytics.WindowStart(today, analytics.AdvisoryWindowDays))
	if err != nil {
		return nil, err
	}

	advisory := analytics.Advise(records, location, today)
	return &advisory, nil
}

func (s *service) today() time.Time {
	return analytics.Day(s.now())
}

func (s *service) fetchAll(ctx context.Context, endpoint string) ([]model.CaseRecord, error) {
	records, err := s.cases.FetchAll(ctx)
	return s.degrade(ctx, endpoint, records, err)
}

func (s *service) fetchSince(ctx context.Context, endpoint string, since time.Time) ([]model.CaseRecord, error) {
	records, err := s.cases.FetchSince(ctx, since)
	return s.degrade(ctx, endpoint, records, err)
}

// degrade turns a store failure into "no data". A cancelled request is still
// reported as an error.
func (s *service) degrade(ctx context.Context, endpoint string, records []model.CaseRecord, err error) ([]model.CaseRecord, error) {
	if err == nil {
		return records, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	unavailable := errors.NewDataUnavailable(endpoint, err)
	s.metrics.DegradedResponses.WithLabelValues(endpoint).Inc()
	s.log.Warn("serving empty analytics", "endpoint", endpoint, "error", unavailable.Error())
	return nil, nil
}
