package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrDisabled is returned by NewKafka when no brokers are configured.
var ErrDisabled = errors.New("kafka disabled")

// Client holds the broker addresses.
type Client struct {
	Brokers []string
}

// NewClient parses a comma separated broker list.
func NewClient(brokersCSV string) *Client {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

// Enabled reports whether any broker is configured.
func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewWriter returns a writer for topic that hashes keys onto partitions.
func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// Kafka publishes events to one topic, keyed by order id so that every event
// of an order lands on the same partition in order.
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka returns a publisher for topic, or ErrDisabled when c has no brokers.
func NewKafka(c *Client, topic string) (*Kafka, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	return &Kafka{writer: c.NewWriter(topic)}, nil
}

// Publish writes e as JSON keyed by its order id.
func (k *Kafka) Publish(ctx context.Context, e Event) error {
	msg, err := message(e)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func message(e Event) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(e.OrderID, 10)),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}, nil
}
