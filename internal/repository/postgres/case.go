package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/repository"
)

const caseColumns = `id, disease, location, date, age_group, gender, symptoms,
	patient_code, doctor_name, clinic_name, created_at`

type caseRepository struct {
	BaseRepository
}

func NewCaseRepository(base BaseRepository) repository.CaseRepository {
	return &caseRepository{base}
}

func (r *caseRepository) FetchAll(ctx context.Context) (records []model.CaseRecord, err error) {
	start := time.Now()
	defer func() { r.observe("fetch_all", start, err) }()

	query := `SELECT ` + caseColumns + ` FROM cases ORDER BY date, created_at`
	if err = r.GetDB().SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to fetch cases: %w", err)
	}
	return records, nil
}

func (r *caseRepository) FetchSince(ctx context.Context, since time.Time) (records []model.CaseRecord, err error) {
	start := time.Now()
	defer func() { r.observe("fetch_since", start, err) }()

	query := `SELECT ` + caseColumns + ` FROM cases WHERE date >= $1 ORDER BY date, created_at`
	if err = r.GetDB().SelectContext(ctx, &records, query, since.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("failed to fetch cases since %s: %w", since.Format("2006-01-02"), err)
	}
	return records, nil
}

func (r *caseRepository) Create(ctx context.Context, record *model.CaseRecord) (err error) {
	start := time.Now()
	defer func() { r.observe("create", start, err) }()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO cases (` + caseColumns + `)
		VALUES (:id, :disease, :location, :date, :age_group, :gender, :symptoms,
			:patient_code, :doctor_name, :clinic_name, :created_at)
	`
	if _, err = r.GetDB().NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}
