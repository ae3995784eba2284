// Package kafka wraps confluent-kafka-go with the producer and consumer used
// to ship and replay dead-lettered mutations.
package kafka

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Message is a kafka message decoupled from the client library types
type Message struct {
	Value          []byte
	Key            []byte
	Timestamp      time.Time
	TopicPartition TopicPartition
	Headers        []Header
}

// GetHeader returns the first header value stored under k
func (m *Message) GetHeader(k string) []byte {
	for _, header := range m.Headers {
		if header.Key == k {
			return header.Value
		}
	}
	return nil
}

// PartitionAny lets the producer pick the partition
const PartitionAny = kafka.PartitionAny

// TopicPartition is the topic, partition and offset of a message
type TopicPartition struct {
	Topic     *string
	Partition int32
	Offset    Offset
}

// Offset is a partition offset
type Offset int64

// Header is a message header
type Header struct {
	Key   string
	Value []byte
}

// ConsumerMsgHandler handles a single message. A nil error commits the offset.
type ConsumerMsgHandler func(ctx context.Context, msg *Message) error

// Consumer consumes messages from the subscribed topics
type Consumer interface {
	// Start runs the consume loops in the background until ctx is done or Close is called
	Start(ctx context.Context, handler ConsumerMsgHandler) error
	Close() error
}

// Producer produces messages
type Producer interface {
	// Produce enqueues msg, delivery failures are only logged
	Produce(ctx context.Context, msg *Message) error
	// ProduceSync produces msg and waits for the broker acknowledgement
	ProduceSync(ctx context.Context, msg *Message) error
	Close() error
}
