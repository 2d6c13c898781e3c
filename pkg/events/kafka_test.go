package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientParsesBrokers(t *testing.T) {
	c := NewClient(" kafka-1:9092, ,kafka-2:9092 ")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.Brokers)
	assert.True(t, c.Enabled())

	assert.False(t, NewClient("").Enabled())
}

func TestNewKafkaDisabled(t *testing.T) {
	_, err := NewKafka(NewClient(""), "orders.events")
	require.ErrorIs(t, err, ErrDisabled)
}

func TestNewWriter(t *testing.T) {
	w := NewClient("localhost:9092").NewWriter("orders.events")
	assert.Equal(t, "orders.events", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
}

func TestMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := New(TypeOrderConfirmed, 42, at)
	e.Status = "CONFIRMED"
	e.Total = "34.00"

	msg, err := message(e)
	require.NoError(t, err)

	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypeOrderConfirmed, string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "order.confirmed", decoded["type"])
	assert.EqualValues(t, 42, decoded["order_id"])
	assert.Equal(t, "34.00", decoded["total"])
	assert.NotContains(t, decoded, "item_id")
	assert.NotEmpty(t, decoded["event_id"])
}
