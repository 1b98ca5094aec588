package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// PushPayload is the abbreviated notification sent to devices.
type PushPayload struct {
	NotificationID string `json:"notification_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Link           string `json:"link,omitempty"`
}

// Pusher hands payloads to the external push delivery system.
type Pusher interface {
	Push(ctx context.Context, recipientID string, payload PushPayload) error
}

// KafkaPusher writes payloads to a topic keyed by recipient, so one
// recipient's pushes stay on one partition.
type KafkaPusher struct {
	writer *kafka.Writer
}

// NewKafkaPusher returns nil when no brokers are configured.
func NewKafkaPusher(brokers []string, topic string) *KafkaPusher {
	if len(brokers) == 0 {
		log.Printf("push disabled: no kafka brokers configured")
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	log.Printf("push enabled: topic=%s brokers=%v", topic, brokers)
	return &KafkaPusher{writer: writer}
}

func (p *KafkaPusher) Push(ctx context.Context, recipientID string, payload PushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(recipientID),
		Value: body,
	})
}

func (p *KafkaPusher) Close() error {
	return p.writer.Close()
}
