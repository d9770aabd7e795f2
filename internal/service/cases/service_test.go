package cases

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
)

type fakeRepo struct {
	created []model.CaseRecord
	err     error
}

func (f *fakeRepo) FetchAll(context.Context) ([]model.CaseRecord, error) { return f.created, nil }

func (f *fakeRepo) FetchSince(context.Context, time.Time) ([]model.CaseRecord, error) {
	return f.created, nil
}

func (f *fakeRepo) Create(_ context.Context, r *model.CaseRecord) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *r)
	return nil
}

func newTestService(repo *fakeRepo) Service {
	return &service{
		repo: repo,
		log:  logger.Nop(),
		now:  func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) },
	}
}

func validRequest() *model.ReportCaseRequest {
	code := " P-001 "
	return &model.ReportCaseRequest{
		Disease:     " Cholera ",
		Symptoms:    "diarrhoea",
		Location:    "Kibera",
		AgeGroup:    "18-35",
		Gender:      "Female",
		Date:        "2026-10-15",
		PatientCode: &code,
		DoctorName:  "Dr. Otieno",
		ClinicName:  "Kibera Health Centre",
	}
}

func TestReportStoresNormalizedRecord(t *testing.T) {
	repo := &fakeRepo{}

	record, err := newTestService(repo).Report(context.Background(), validRequest())

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "Cholera", record.Disease)
	assert.Equal(t, "female", record.Gender)
	assert.True(t, record.Date.Equal(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, record.PatientCode)
	assert.Equal(t, "P-001", *record.PatientCode)
	assert.NotEqual(t, [16]byte{}, [16]byte(record.ID))
}

func TestReportRejectsFutureDate(t *testing.T) {
	req := validRequest()
	req.Date = "2026-10-17"

	_, err := newTestService(&fakeRepo{}).Report(context.Background(), req)

	assert.True(t, stderrors.Is(err, errors.ErrBadRequestKind))
}

func TestReportRejectsMalformedDate(t *testing.T) {
	req := validRequest()
	req.Date = "15/10/2026"

	_, err := newTestService(&fakeRepo{}).Report(context.Background(), req)

	assert.True(t, stderrors.Is(err, errors.ErrBadRequestKind))
}

func TestReportRejectsControlCharacters(t *testing.T) {
	for _, tc := range []struct {
		name     string
		disease  string
		location string
	}{
		{"newline in disease", "Chol\nera", "Kibera"},
		{"tab in location", "Cholera", "Kib\tera"},
		{"nul in disease", "Cholera\x00", "Kibera"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			req := validRequest()
			req.Disease = tc.disease
			req.Location = tc.location

			_, err := newTestService(repo).Report(context.Background(), req)

			assert.True(t, stderrors.Is(err, errors.ErrBadRequestKind))
			assert.Empty(t, repo.created)
		})
	}
}

func TestReportWrapsStoreFailure(t *testing.T) {
	_, err := newTestService(&fakeRepo{err: stderrors.New("insert failed")}).Report(context.Background(), validRequest())

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrInternal, appErr.Code)
}
