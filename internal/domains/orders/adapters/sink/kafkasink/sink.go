// Package kafkasink forwards committed status changes to a Kafka topic for downstream systems.
package kafkasink

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/localborga/milling-orders/internal/domains/orders/adapters/notify"
	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

// DefaultTopic receives status events when no topic is configured.
const DefaultTopic = "borga.order-status"

// MessageWriter is the subset of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ ports.Publisher = (*Sink)(nil)

// Sink writes one message per event keyed by order id, so a partition keeps per-order ordering.
type Sink struct {
	writer MessageWriter
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewWriter builds a hash-balanced writer for topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func New(writer MessageWriter) *Sink {
	return &Sink{writer: writer}
}

func (s *Sink) Publish(ctx context.Context, event domain.StatusChanged) error {
	payload, err := notify.Encode(event)
	if err != nil {
		return err
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.EventName())},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka status sink: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	return s.writer.Close()
}
