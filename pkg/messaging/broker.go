package messaging

import (
	"context"
	"time"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels used between the trainer and the API.
const (
	ChannelModelsRetrained = "surveillance.models.retrained"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ModelsRetrained is published after a training run has written every model
// and the disease list.
type ModelsRetrained struct {
	Diseases  []string  `json:"diseases"`
	Skipped   []string  `json:"skipped"`
	TrainedAt time.Time `json:"trained_at"`
}
