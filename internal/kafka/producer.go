package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"valet-ticketing/internal/config"
	"valet-ticketing/internal/models"
)

type Producer struct {
	Writer *kafka.Writer
	Topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Topics: topics}
}

// Publish writes one message to the given topic.
func (p *Producer) Publish(topic, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishCarIn streams the ticket-created event. Keyed by point so a
// point's lifecycle events stay ordered within a partition.
func (p *Producer) PublishCarIn(ticket models.Ticket) error {
	msgBytes, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return p.Publish(p.Topics.CarIn, ticket.PointID, msgBytes)
}

// PublishCarOut streams the ticket-closed event.
func (p *Producer) PublishCarOut(ticket models.Ticket) error {
	msgBytes, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return p.Publish(p.Topics.CarOut, ticket.PointID, msgBytes)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
