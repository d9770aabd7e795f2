package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/surveillance-api/internal/model"
)

// ErrNotFound is returned by stores when the requested item does not exist.
var ErrNotFound = errors.New("not found")

// All repository interfaces in one file
type (
	// CaseRepository reads and appends case reports.
	CaseRepository interface {
		FetchAll(ctx context.Context) ([]model.CaseRecord, error)
		// FetchSince returns records dated on or after since.
		FetchSince(ctx context.Context, since time.Time) ([]model.CaseRecord, error)
		Create(ctx context.Context, record *model.CaseRecord) error
	}

	PatientRepository interface {
		// GetContacts resolves patient ids to contacts. Unknown ids are absent
		// from the returned map.
		GetContacts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.PatientContact, error)
	}

	// ModelRepository persists trained models and the canonical disease list.
	ModelRepository interface {
		SaveModel(ctx context.Context, m *model.TrendModel) error
		// LoadModel returns ErrNotFound when no model is stored for disease.
		LoadModel(ctx context.Context, disease string) (*model.TrendModel, error)
		SaveDiseases(ctx context.Context, diseases []string) error
		// LoadDiseases returns an empty list when nothing has been trained yet.
		LoadDiseases(ctx context.Context) ([]string, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		// DeleteBefore removes entries older than cutoff and returns how many
		// were removed.
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
)
