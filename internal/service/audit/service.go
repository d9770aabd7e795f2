package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/repository"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
)

type contextKey string

const clientIPKey contextKey = "client_ip"

// WithClientIP stores the caller's address for audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok {
		return ip
	}
	return ""
}

type Service struct {
	repo repository.AuditRepository
	log  *logger.Logger
}

func NewService(repo repository.AuditRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Log creates an audit log entry
func (s *Service) Log(ctx context.Context, action, actor string, details interface{}) error {
	var raw json.RawMessage
	if details != nil {
		var err error
		raw, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}

	entry := &model.AuditLog{
		ID:        uuid.New(),
		Action:    action,
		Actor:     actor,
		Details:   raw,
		IPAddress: clientIP(ctx),
		CreatedAt: time.Now().UTC(),
	}

	return s.repo.Create(ctx, entry)
}

// LogBestEffort records the entry and only logs a failure. Used where the
// audited action has already happened and must still be reported.
func (s *Service) LogBestEffort(ctx context.Context, action, actor string, details interface{}) {
	if err := s.Log(ctx, action, actor, details); err != nil {
		s.log.Error(err, "failed to write audit log", "action", action)
	}
}
