package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only record of a sensitive action (payments).
type AuditLog struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Action    string          `json:"action" db:"action"`
	Actor     string          `json:"actor" db:"actor"`
	Details   json.RawMessage `json:"details" db:"details"`
	IPAddress string          `json:"ip_address" db:"ip_address"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

const (
	AuditActionPaymentToken    = "payment_token"
	AuditActionPaymentInitiate = "payment_initiate"
	AuditActionPaymentCallback = "payment_callback"
	AuditActionAlertSend       = "alert_send"
)
