package training

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/jwalitptl/surveillance-api/internal/analytics"
	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/repository"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
	"github.com/jwalitptl/surveillance-api/pkg/metrics"
)

type Service interface {
	// Train fits one trend model per disease from the full case history,
	// saves every model and then replaces the canonical disease list.
	Train(ctx context.Context) (*model.TrainingReport, error)
}

type service struct {
	cases   repository.CaseRepository
	models  repository.ModelRepository
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewService(cases repository.CaseRepository, models repository.ModelRepository, m *metrics.Metrics, log *logger.Logger) Service {
	return NewServiceWithClock(cases, models, m, log, time.Now)
}

func NewServiceWithClock(cases repository.CaseRepository, models repository.ModelRepository, m *metrics.Metrics, log *logger.Logger, now func() time.Time) Service {
	return &service{
		cases:   cases,
		models:  models,
		metrics: m,
		log:     log,
		now:     now,
	}
}

func (s *service) Train(ctx context.Context) (*model.TrainingReport, error) {
	startedAt := s.now().UTC()
	today := analytics.Day(startedAt)

	records, err := s.cases.FetchAll(ctx)
	if err != nil {
		return nil, errors.NewDataUnavailable("train", err)
	}

	byDisease := make(map[string][]model.CaseRecord)
	for _, r := range records {
		byDisease[r.Disease] = append(byDisease[r.Disease], r)
	}

	diseases := make([]string, 0, len(byDisease))
	for d := range byDisease {
		diseases = append(diseases, d)
	}
	sort.Strings(diseases)

	report := &model.TrainingReport{
		StartedAt: startedAt,
		Trained:   []string{},
		Skipped:   []string{},
		Models:    make(map[string]*model.TrendModel),
		Records:   len(records),
	}

	for _, disease := range diseases {
		m, err := s.fit(disease, byDisease[disease], today, startedAt)
		if err != nil {
			s.log.Warn("skipping disease", "disease", disease, "reason", err.Error())
			report.Skipped = append(report.Skipped, disease)
			continue
		}
		report.Models[disease] = m
		report.Trained = append(report.Trained, disease)
	}

	for _, disease := range report.Trained {
		if err := s.models.SaveModel(ctx, report.Models[disease]); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("failed to save model for %s: %w", disease, err))
		}
	}

	// The list is written last so it never names a model this run failed to save.
	if err := s.models.SaveDiseases(ctx, report.Trained); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to save disease list: %w", err))
	}

	report.FinishedAt = s.now().UTC()
	s.metrics.ModelsTrained.Set(float64(len(report.Trained)))
	s.metrics.DiseasesSkipped.Set(float64(len(report.Skipped)))

	s.log.Info("training complete",
		"records", report.Records,
		"trained", len(report.Trained),
		"skipped", len(report.Skipped))

	return report, nil
}

func (s *service) fit(disease string, records []model.CaseRecord, today, trainedAt time.Time) (*model.TrendModel, error) {
	// The disease list is newline separated.
	if strings.IndexFunc(disease, unicode.IsControl) >= 0 {
		return nil, fmt.Errorf("disease name %q contains control characters", disease)
	}

	days := analytics.DistinctDays(records)
	if len(days) < 2 {
		return nil, fmt.Errorf("only %d distinct report day(s)", len(days))
	}

	first := today
	for d := range days {
		if d.Before(first) {
			first = d
		}
	}

	series := analytics.Aggregate(records, disease, nil, first, today)
	fit, err := analytics.FitTrend(series)
	if err != nil {
		return nil, err
	}

	return &model.TrendModel{
		Disease:     disease,
		Slope:       fit.Line.Slope,
		Intercept:   fit.Line.Intercept,
		StartDate:   first,
		TrainedAt:   trainedAt,
		TrainPoints: fit.TrainPoints,
		TestMSE:     fit.TestMSE,
	}, nil
}
