package payment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/service/audit"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
)

type fakeGateway struct {
	phone  string
	amount int
	err    error
}

func (f *fakeGateway) Token(context.Context) (*model.AccessToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.AccessToken{AccessToken: "tok", ExpiresIn: "3599"}, nil
}

func (f *fakeGateway) STKPush(_ context.Context, phone string, amount int) (*model.STKPushResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.phone, f.amount = phone, amount
	return &model.STKPushResponse{CheckoutRequestID: "ws_CO_1", ResponseCode: "0"}, nil
}

type fakeAudit struct {
	logs []*model.AuditLog
}

func (f *fakeAudit) Create(_ context.Context, log *model.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func newTestService(gw *fakeGateway) (Service, *fakeAudit) {
	repo := &fakeAudit{}
	return NewService(gw, audit.NewService(repo, logger.Nop()), logger.Nop()), repo
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"0712345678":    "254712345678",
		"+254712345678": "254712345678",
		"254712345678":  "254712345678",
		"712345678":     "254712345678",
	}
	for in, want := range tests {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "12345", "07123abc78", "+1555000111122"} {
		_, err := NormalizePhone(bad)
		assert.Error(t, err, bad)
	}
}

func TestInitiateAuditsMaskedPhone(t *testing.T) {
	gw := &fakeGateway{}
	svc, repo := newTestService(gw)

	resp, err := svc.Initiate(context.Background(), &model.STKPushRequest{Phone: "0712345678", Amount: 250})

	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", resp.CheckoutRequestID)
	assert.Equal(t, "254712345678", gw.phone)
	assert.Equal(t, 250, gw.amount)

	require.Len(t, repo.logs, 1)
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(repo.logs[0].Details, &details))
	assert.Equal(t, "********5678", details["phone"])
	assert.Equal(t, "ws_CO_1", details["checkout_request_id"])
}

func TestInitiateGatewayFailure(t *testing.T) {
	svc, repo := newTestService(&fakeGateway{err: stderrors.New("daraja non-2xx")})

	_, err := svc.Initiate(context.Background(), &model.STKPushRequest{Phone: "0712345678", Amount: 1})

	assert.True(t, stderrors.Is(err, errors.ErrUpstreamDispatchKind))
	require.Len(t, repo.logs, 1)
}

func TestHandleCallbackAuditsPayload(t *testing.T) {
	svc, repo := newTestService(&fakeGateway{})
	body := json.RawMessage(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"ok"}}}`)

	require.NoError(t, svc.HandleCallback(context.Background(), body))

	require.Len(t, repo.logs, 1)
	assert.Equal(t, model.AuditActionPaymentCallback, repo.logs[0].Action)
	assert.JSONEq(t, string(body), string(repo.logs[0].Details))
}

func TestHandleCallbackRejectsNonJSON(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{})

	err := svc.HandleCallback(context.Background(), json.RawMessage(`not json`))

	assert.True(t, stderrors.Is(err, errors.ErrBadRequestKind))
}

func (f *fakeAudit) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }
