// Package notify delivers reminder requests to whatever facility actually
// shows notifications: in-process timers, a webhook bridge, or a Kafka topic.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRejected is returned by gateways that refuse to schedule, e.g. when
// notification permission has not been granted.
var ErrRejected = errors.New("notification request rejected")

// Gateway schedules and cancels notification requests. Cancel must treat an
// unknown request id as success.
type Gateway interface {
	Schedule(ctx context.Context, requestID string, fireAt time.Time, payload Payload) (Handle, error)
	Cancel(ctx context.Context, requestID string) error
}

// Handle is the gateway's own reference for a scheduled request.
type Handle string

// Payload is what the notification is about. Wording is left to the gateway.
type Payload struct {
	ActivityID      string     `json:"activity_id"`
	ActivityName    string     `json:"activity_name"`
	IntervalDays    int        `json:"interval_days"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

// Options configure NewGateway.
type Options struct {
	Kind         string // "local", "webhook", "kafka", "memory"
	WebhookURL   string
	KafkaBrokers []string
	KafkaTopic   string
	Timeout      time.Duration
}

// NewGateway creates a gateway for the configured kind.
func NewGateway(opts Options) (Gateway, error) {
	switch opts.Kind {
	case "", "local":
		return NewLocal(nil), nil
	case "memory":
		return NewMemory(), nil
	case "webhook":
		if opts.WebhookURL == "" {
			return nil, fmt.Errorf("webhook gateway requires a webhook url")
		}
		return NewWebhook(opts.WebhookURL, opts.Timeout), nil
	case "kafka":
		if len(opts.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka gateway requires at least one broker")
		}
		topic := opts.KafkaTopic
		if topic == "" {
			topic = "tend.reminders"
		}
		return NewKafka(NewKafkaWriter(opts.KafkaBrokers, topic)), nil
	default:
		return nil, fmt.Errorf("unknown notification gateway: %q", opts.Kind)
	}
}
