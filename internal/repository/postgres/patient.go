package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) GetContacts(ctx context.Context, ids []uuid.UUID) (contacts map[uuid.UUID]model.PatientContact, err error) {
	start := time.Now()
	defer func() { r.observe("get_contacts", start, err) }()

	contacts = make(map[uuid.UUID]model.PatientContact, len(ids))
	if len(ids) == 0 {
		return contacts, nil
	}

	query, args, err := sqlx.In(`SELECT id, name, phone FROM patients WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build contact query: %w", err)
	}

	var rows []model.PatientContact
	if err = r.GetDB().SelectContext(ctx, &rows, r.GetDB().Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get patient contacts: %w", err)
	}

	for _, row := range rows {
		contacts[row.ID] = row
	}
	return contacts, nil
}
