package kafka

import (
	"context"
	"encoding/json"
	"time"

	"webhook-service/models"

	"github.com/segmentio/kafka-go"
)

// Publisher is the interface the webhook controller publishes through;
// satisfied by BillingEventProducer and mocked in tests.
type Publisher interface {
	SendBillingEvent(event models.BillingEvent) error
}

type BillingEventProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewBillingEventProducer(brokers []string, topic string) *BillingEventProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &BillingEventProducer{writer: w, topic: topic}
}

func (p *BillingEventProducer) SendBillingEvent(event models.BillingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EventID),
		Value: data,
	})
}

func (p *BillingEventProducer) Close() error {
	return p.writer.Close()
}
