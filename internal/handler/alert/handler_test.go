package alert

import (
	"context"
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
)

type fakeService struct {
	got *model.SendAlertRequest
	err error
}

func (f *fakeService) Send(_ context.Context, req *model.SendAlertRequest) (*model.SendAlertResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	results := make([]model.DispatchResult, 0, len(req.PatientIDs))
	for _, id := range req.PatientIDs {
		results = append(results, model.DispatchResult{
			PatientID: id,
			Contact:   "+254700000001",
			Dispatch:  model.Dispatch{Status: model.DispatchStatusSent, ProviderID: "SM1"},
		})
	}
	return &model.SendAlertResponse{Sent: len(results), Results: results}, nil
}

func post(svc *fakeService, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(&r.RouterGroup)

	req := httptest.NewRequest(http.MethodPost, "/send-alert", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendAlert(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{}

	w := post(svc, `{"patient_ids":["`+id.String()+`"],"message":"Boil drinking water.","channel":"sms"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.got)
	assert.Equal(t, model.Channel("sms"), svc.got.Channel)
	assert.JSONEq(t, `{"sent":1,"failed":0,"results":[{"patient_id":"`+id.String()+`","contact":"+254700000001","status":"sent","provider_id":"SM1"}]}`, w.Body.String())
}

func TestSendAlertValidation(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		name string
		body string
	}{
		{"no patients", `{"patient_ids":[],"message":"hi","channel":"sms"}`},
		{"bad channel", `{"patient_ids":["` + id + `"],"message":"hi","channel":"email"}`},
		{"no message", `{"patient_ids":["` + id + `"],"channel":"sms"}`},
		{"bad id", `{"patient_ids":["not-a-uuid"],"message":"hi","channel":"sms"}`},
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

func TestSendAlertContactsUnavailable(t *testing.T) {
	svc := &fakeService{err: errors.NewDataUnavailable("send-alert", assert.AnError)}

	w := post(svc, `{"patient_ids":["`+uuid.New().String()+`"],"message":"hi","channel":"whatsapp"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
