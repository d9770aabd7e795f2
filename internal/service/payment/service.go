package payment

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/service/audit"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
)

const (
	auditActor    = "api_key"
	callbackActor = "mpesa"
)

// Gateway is the mobile-money provider.
type Gateway interface {
	Token(ctx context.Context) (*model.AccessToken, error)
	STKPush(ctx context.Context, phone string, amount int) (*model.STKPushResponse, error)
}

type Service interface {
	Token(ctx context.Context) (*model.AccessToken, error)
	Initiate(ctx context.Context, req *model.STKPushRequest) (*model.STKPushResponse, error)
	HandleCallback(ctx context.Context, payload json.RawMessage) error
}

type service struct {
	gateway Gateway
	auditor *audit.Service
	log     *logger.Logger
}

func NewService(gateway Gateway, auditor *audit.Service, log *logger.Logger) Service {
	return &service{gateway: gateway, auditor: auditor, log: log}
}

func (s *service) Token(ctx context.Context) (*model.AccessToken, error) {
	s.auditor.LogBestEffort(ctx, model.AuditActionPaymentToken, auditActor, nil)

	token, err := s.gateway.Token(ctx)
	if err != nil {
		return nil, errors.NewUpstreamDispatch("mpesa", err)
	}
	return token, nil
}

func (s *service) Initiate(ctx context.Context, req *model.STKPushRequest) (*model.STKPushResponse, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, errors.NewBadRequest("amount must be positive", nil)
	}

	details := map[string]interface{}{
		"phone":  maskPhone(phone),
		"amount": req.Amount,
	}

	resp, err := s.gateway.STKPush(ctx, phone, req.Amount)
	if err != nil {
		details["error"] = err.Error()
		s.auditor.LogBestEffort(ctx, model.AuditActionPaymentInitiate, auditActor, details)
		return nil, errors.NewUpstreamDispatch("mpesa", err)
	}

	details["checkout_request_id"] = resp.CheckoutRequestID
	details["response_code"] = resp.ResponseCode
	s.auditor.LogBestEffort(ctx, model.AuditActionPaymentInitiate, auditActor, details)

	s.log.Info("stk push initiated", "checkout_request_id", resp.CheckoutRequestID, "amount", req.Amount)
	return resp, nil
}

// HandleCallback records the provider's payment result. Malformed bodies are
// still audited so nothing the provider sent is lost.
func (s *service) HandleCallback(ctx context.Context, payload json.RawMessage) error {
	if len(payload) == 0 || !json.Valid(payload) {
		return errors.NewBadRequest("callback body must be JSON", nil)
	}

	var cb model.STKCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		s.log.Warn("unrecognized mpesa callback", "error", err.Error())
	}

	if err := s.auditor.Log(ctx, model.AuditActionPaymentCallback, callbackActor, payload); err != nil {
		return errors.NewInternal(err)
	}

	result := cb.Body.StkCallback
	s.log.Info("mpesa callback received",
		"checkout_request_id", result.CheckoutRequestID,
		"result_code", result.ResultCode,
		"result_desc", result.ResultDesc)
	return nil
}

// NormalizePhone converts 07XXXXXXXX, 7XXXXXXXX and +2547XXXXXXXX into the
// 2547XXXXXXXX form Daraja accepts.
func NormalizePhone(phone string) (string, error) {
	p := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	switch {
	case strings.HasPrefix(p, "254") && len(p) == 12:
	case strings.HasPrefix(p, "0") && len(p) == 10:
		p = "254" + p[1:]
	case len(p) == 9:
		p = "254" + p
	default:
		return "", errors.NewBadRequest("phone must be a Kenyan mobile number", nil)
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", errors.NewBadRequest("phone must contain digits only", nil)
		}
	}
	return p, nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
