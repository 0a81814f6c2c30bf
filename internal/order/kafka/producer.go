package kafka

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"event-ticketing/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer streams order lifecycle events for downstream consumers
// (receipts, analytics).
type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// PublishOrderCreated streams a completed checkout to Kafka, keyed by
// order ID.
func (p *Producer) PublishOrderCreated(order models.Order) error {
	msgBytes, err := json.Marshal(order)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(order.ID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// EnsureTopicExists creates the topic on the cluster controller when it is
// missing, so first publishes do not fail on a fresh broker.
func EnsureTopicExists(brokers []string, topic string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", controller.Host)
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			log.Printf("Topic %s already exists", topic)
			return nil
		}
		return err
	}

	// Give the cluster a moment to settle the new topic.
	time.Sleep(1 * time.Second)
	return nil
}
