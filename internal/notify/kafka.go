package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Command is the message published for every schedule or cancel. Messages are
// keyed by request id so a compacted topic keeps only the latest command.
type Command struct {
	Action    string     `json:"action"` // "schedule" or "cancel"
	RequestID string     `json:"request_id"`
	FireAt    *time.Time `json:"fire_at,omitempty"`
	Payload   *Payload   `json:"payload,omitempty"`
	SentAt    time.Time  `json:"sent_at"`
}

// Kafka publishes reminder commands for a downstream push service.
type Kafka struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaWriter builds a synchronous writer for the reminder topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}
}

// NewKafka wraps a writer as a Gateway.
func NewKafka(w messageWriter) *Kafka {
	return &Kafka{writer: w, now: time.Now}
}

// Schedule publishes a schedule command. The handle is the request id; the
// consumer owns delivery.
func (k *Kafka) Schedule(ctx context.Context, requestID string, fireAt time.Time, payload Payload) (Handle, error) {
	at := fireAt.UTC()
	if err := k.publish(ctx, Command{
		Action:    "schedule",
		RequestID: requestID,
		FireAt:    &at,
		Payload:   &payload,
	}); err != nil {
		return "", err
	}
	return Handle(requestID), nil
}

// Cancel publishes a cancel command. Consumers ignore unknown ids.
func (k *Kafka) Cancel(ctx context.Context, requestID string) error {
	return k.publish(ctx, Command{Action: "cancel", RequestID: requestID})
}

func (k *Kafka) publish(ctx context.Context, cmd Command) error {
	cmd.SentAt = k.now().UTC()
	value, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal %s command: %w", cmd.Action, err)
	}
	msg := kafka.Message{
		Key:   []byte(cmd.RequestID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(cmd.Action)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka %s %s: %w", cmd.Action, cmd.RequestID, err)
	}
	return nil
}

// Close closes the underlying writer when it supports it.
func (k *Kafka) Close() error {
	if c, ok := k.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
