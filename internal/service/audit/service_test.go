package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
)

type fakeRepo struct {
	logs []*model.AuditLog
	err  error
}

func (f *fakeRepo) Create(_ context.Context, log *model.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, log)
	return nil
}

func TestLogRecordsDetailsAndClientIP(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, logger.Nop())
	ctx := WithClientIP(context.Background(), "10.0.0.7")

	err := svc.Log(ctx, model.AuditActionPaymentInitiate, "api_key", map[string]interface{}{"amount": 100})

	require.NoError(t, err)
	require.Len(t, repo.logs, 1)
	entry := repo.logs[0]
	assert.Equal(t, model.AuditActionPaymentInitiate, entry.Action)
	assert.Equal(t, "10.0.0.7", entry.IPAddress)

	var details map[string]int
	require.NoError(t, json.Unmarshal(entry.Details, &details))
	assert.Equal(t, 100, details["amount"])
}

func TestLogBestEffortSwallowsErrors(t *testing.T) {
	svc := NewService(&fakeRepo{err: errors.New("db down")}, logger.Nop())

	assert.NotPanics(t, func() {
		svc.LogBestEffort(context.Background(), model.AuditActionAlertSend, "api_key", nil)
	})
}

func (f *fakeRepo) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }
