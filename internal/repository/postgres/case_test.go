package postgres

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/pkg/metrics"
)

var caseRowColumns = []string{
	"id", "disease", "location", "date", "age_group", "gender", "symptoms",
	"patient_code", "doctor_name", "clinic_name", "created_at",
}

func newMockRepo(t *testing.T) (*caseRepository, sqlmock.Sqlmock, *metrics.Metrics) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := metrics.NewNop()
	repo := NewCaseRepository(NewBaseRepository(sqlx.NewDb(db, "postgres"), m)).(*caseRepository)
	return repo, mock, m
}

func TestFetchSinceFiltersByCalendarDate(t *testing.T) {
	repo, mock, m := newMockRepo(t)
	day := time.Date(2026, 10, 9, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	mock.ExpectQuery(`FROM cases WHERE date >= \$1 ORDER BY date, created_at`).
		WithArgs("2026-10-09").
		WillReturnRows(sqlmock.NewRows(caseRowColumns).
			AddRow(id.String(), "Cholera", "Kibera", day, "18-35", "female", "diarrhoea",
				nil, "Dr. Otieno", "Kibera Health Centre", day))

	records, err := repo.FetchSince(context.Background(), time.Date(2026, 10, 9, 17, 30, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, "Cholera", records[0].Disease)
	assert.Nil(t, records[0].PatientCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("fetch_since", "success")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchAllReportsStoreError(t *testing.T) {
	repo, mock, m := newMockRepo(t)

	mock.ExpectQuery(`FROM cases ORDER BY date, created_at`).
		WillReturnError(stderrors.New("connection reset"))

	_, err := repo.FetchAll(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("fetch_all", "error")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFillsDefaults(t *testing.T) {
	repo, mock, _ := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO cases`).
		WithArgs(sqlmock.AnyArg(), "Malaria", "Kisumu", sqlmock.AnyArg(), "0-5", "male", "",
			nil, "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := &model.CaseRecord{
		Disease:  "Malaria",
		Location: "Kisumu",
		Date:     time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		AgeGroup: "0-5",
		Gender:   "male",
	}
	before := time.Now().UTC()

	require.NoError(t, repo.Create(context.Background(), record))

	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.False(t, record.CreatedAt.Before(before.Add(-time.Second)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateKeepsProvidedID(t *testing.T) {
	repo, mock, _ := newMockRepo(t)
	id := uuid.New()
	createdAt := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO cases`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := &model.CaseRecord{ID: id, Disease: "Typhoid", Location: "Nakuru", CreatedAt: createdAt}
	require.NoError(t, repo.Create(context.Background(), record))

	assert.Equal(t, id, record.ID)
	assert.True(t, record.CreatedAt.Equal(createdAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
