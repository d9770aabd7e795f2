package cases

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/validator"
)

func init() {
	if err := validator.RegisterWithGin(); err != nil {
		panic(err)
	}
}

type fakeService struct {
	got *model.ReportCaseRequest
	err error
	id  uuid.UUID
}

func (f *fakeService) Report(_ context.Context, req *model.ReportCaseRequest) (*model.CaseRecord, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.CaseRecord{ID: f.id, Disease: req.Disease}, nil
}

func post(svc *fakeService, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(&r.RouterGroup)

	req := httptest.NewRequest(http.MethodPost, "/report-case", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validReport = `{
	"disease": "Cholera",
	"symptoms": "diarrhoea, vomiting",
	"location": "Nairobi",
	"age_group": "18-35",
	"gender": "female",
	"date": "2025-03-14",
	"doctor_name": "Dr. Achieng",
	"clinic_name": "Kibera Health Centre"
}`

func TestReportCaseCreated(t *testing.T) {
	svc := &fakeService{id: uuid.New()}

	w := post(svc, validReport)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.got)
	assert.Equal(t, "Cholera", svc.got.Disease)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, svc.id.String(), body.Data.ID)
}

func TestReportCaseValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing disease", `{"location":"Nairobi","age_group":"18-35","gender":"male","date":"2026-10-15"}`},
		{"bad gender", `{"disease":"Cholera","location":"Nairobi","age_group":"18-35","gender":"x","date":"2026-10-15"}`},
		{"bad date", `{"disease":"Cholera","location":"Nairobi","age_group":"18-35","gender":"male","date":"15/10/2026"}`},
		{"future date", `{"disease":"Cholera","location":"Nairobi","age_group":"18-35","gender":"male","date":"2999-01-01"}`},
		{"not json", `disease=Cholera`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			w := post(svc, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Nil(t, svc.got)
		})
	}
}

func TestReportCaseServiceError(t *testing.T) {
	svc := &fakeService{err: errors.NewBadRequest("date must not be in the future", nil)}

	w := post(svc, validReport)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "date must not be in the future")
}
