package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/repository"
	"github.com/jwalitptl/surveillance-api/internal/service/audit"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
	"github.com/jwalitptl/surveillance-api/pkg/metrics"
)

const auditActor = "api_key"

// Gateway delivers one message and returns the provider's message id.
type Gateway interface {
	Send(ctx context.Context, to, body string, channel model.Channel) (string, error)
}

type Service interface {
	// Send dispatches the message to every patient and reports the outcome
	// per recipient. One failed recipient never aborts the others.
	Send(ctx context.Context, req *model.SendAlertRequest) (*model.SendAlertResponse, error)
}

type service struct {
	patients    repository.PatientRepository
	gateway     Gateway
	auditor     *audit.Service
	metrics     *metrics.Metrics
	log         *logger.Logger
	concurrency int
}

func NewService(patients repository.PatientRepository, gateway Gateway, auditor *audit.Service, m *metrics.Metrics, log *logger.Logger, concurrency int) Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &service{
		patients:    patients,
		gateway:     gateway,
		auditor:     auditor,
		metrics:     m,
		log:         log,
		concurrency: concurrency,
	}
}

func (s *service) Send(ctx context.Context, req *model.SendAlertRequest) (*model.SendAlertResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	ids := dedupe(req.PatientIDs)
	contacts, err := s.patients.GetContacts(ctx, ids)
	if err != nil {
		return nil, errors.NewDataUnavailable("send-alert", err)
	}

	results := make([]model.DispatchResult, len(ids))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = s.dispatch(ctx, id, contacts, req)
			return nil
		})
	}
	_ = g.Wait()

	resp := &model.SendAlertResponse{Results: results}
	for _, r := range results {
		if r.Status == model.DispatchStatusSent {
			resp.Sent++
		} else {
			resp.Failed++
		}
	}

	if s.auditor != nil {
		s.auditor.LogBestEffort(ctx, model.AuditActionAlertSend, auditActor, map[string]interface{}{
			"channel":    req.Channel,
			"recipients": len(ids),
			"sent":       resp.Sent,
			"failed":     resp.Failed,
		})
	}

	s.log.Info("alert dispatched", "channel", string(req.Channel), "sent", resp.Sent, "failed", resp.Failed)
	return resp, nil
}

func (s *service) dispatch(ctx context.Context, id uuid.UUID, contacts map[uuid.UUID]model.PatientContact, req *model.SendAlertRequest) model.DispatchResult {
	result := model.DispatchResult{PatientID: id}

	contact, ok := contacts[id]
	if !ok || strings.TrimSpace(contact.Phone) == "" {
		result.Status = model.DispatchStatusError
		result.Error = "no phone number on file"
		s.metrics.Dispatches.WithLabelValues(string(req.Channel), "no_contact").Inc()
		return result
	}
	result.Contact = contact.Phone

	providerID, err := s.gateway.Send(ctx, contact.Phone, req.Message, req.Channel)
	if err != nil {
		dispatchErr := errors.NewUpstreamDispatch(id.String(), err)
		s.log.Warn("alert dispatch failed", "patient_id", id.String(), "error", dispatchErr.Error())
		result.Status = model.DispatchStatusError
		result.Error = err.Error()
		s.metrics.Dispatches.WithLabelValues(string(req.Channel), "error").Inc()
		return result
	}

	result.Status = model.DispatchStatusSent
	result.ProviderID = providerID
	s.metrics.Dispatches.WithLabelValues(string(req.Channel), "sent").Inc()
	return result
}

func validate(req *model.SendAlertRequest) error {
	if req == nil || len(req.PatientIDs) == 0 {
		return errors.NewBadRequest("patient_ids must not be empty", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return errors.NewBadRequest("message must not be empty", nil)
	}
	if !req.Channel.Valid() {
		return errors.NewBadRequest(fmt.Sprintf("unsupported channel %q", req.Channel), nil)
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
