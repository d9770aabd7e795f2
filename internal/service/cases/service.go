package cases

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/jwalitptl/surveillance-api/internal/analytics"
	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/repository"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
)

const dateLayout = "2006-01-02"

type Service interface {
	Report(ctx context.Context, req *model.ReportCaseRequest) (*model.CaseRecord, error)
}

type service struct {
	repo repository.CaseRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo repository.CaseRepository, log *logger.Logger) Service {
	return &service{repo: repo, log: log, now: time.Now}
}

func (s *service) Report(ctx context.Context, req *model.ReportCaseRequest) (*model.CaseRecord, error) {
	record, err := s.toRecord(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to store case: %w", err))
	}

	s.log.Info("case reported", "id", record.ID.String(), "disease", record.Disease, "location", record.Location)
	return record, nil
}

func (s *service) toRecord(req *model.ReportCaseRequest) (*model.CaseRecord, error) {
	disease := strings.TrimSpace(req.Disease)
	location := strings.TrimSpace(req.Location)
	if disease == "" || location == "" {
		return nil, errors.NewBadRequest("disease and location are required", nil)
	}
	// Disease names key model files and lines of the disease list.
	if hasControl(disease) || hasControl(location) {
		return nil, errors.NewBadRequest("disease and location must not contain control characters", nil)
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, errors.NewBadRequest("date must be formatted as YYYY-MM-DD", err)
	}
	if date.After(analytics.Day(s.now())) {
		return nil, errors.NewBadRequest("date must not be in the future", nil)
	}

	var patientCode *string
	if req.PatientCode != nil {
		if code := strings.TrimSpace(*req.PatientCode); code != "" {
			patientCode = &code
		}
	}

	return &model.CaseRecord{
		ID:          uuid.New(),
		Disease:     disease,
		Location:    location,
		Date:        date,
		AgeGroup:    strings.TrimSpace(req.AgeGroup),
		Gender:      strings.ToLower(strings.TrimSpace(req.Gender)),
		Symptoms:    strings.TrimSpace(req.Symptoms),
		PatientCode: patientCode,
		DoctorName:  strings.TrimSpace(req.DoctorName),
		ClinicName:  strings.TrimSpace(req.ClinicName),
		CreatedAt:   s.now().UTC(),
	}, nil
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
