package model

import "github.com/google/uuid"

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelWhatsApp
}

type DispatchStatus string

const (
	DispatchStatusSent  DispatchStatus = "sent"
	DispatchStatusError DispatchStatus = "error"
)

type SendAlertRequest struct {
	PatientIDs []uuid.UUID `json:"patient_ids" binding:"required,min=1,max=500"`
	Message    string      `json:"message" binding:"required,max=1600"`
	Channel    Channel     `json:"channel" binding:"required,oneof=sms whatsapp"`
}

// Dispatch is the gateway's answer for one recipient.
type Dispatch struct {
	Status     DispatchStatus `json:"status"`
	ProviderID string         `json:"provider_id,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type DispatchResult struct {
	PatientID uuid.UUID `json:"patient_id"`
	Contact   string    `json:"contact,omitempty"`
	Dispatch
}

type SendAlertResponse struct {
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Results []DispatchResult `json:"results"`
}
