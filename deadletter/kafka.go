package deadletter

import (
	"context"
	"sync/atomic"

	"github.com/dailyyoga/cachedkv/kafka"
	"github.com/dailyyoga/cachedkv/logger"
	"go.uber.org/zap"
)

// Header names set on every dead-letter message
const (
	HeaderOp = "cachedkv-op"
	HeaderID = "cachedkv-id"
)

// DefaultTopic is the topic letters are produced to when none is configured
const DefaultTopic = "cachedkv.deadletter"

type kafkaSink struct {
	logger   logger.Logger
	producer kafka.Producer
	topic    string
	closed   atomic.Bool
}

// NewKafkaSink produces letters to topic, keyed by the mutation key so letters
// for one key stay ordered. The sink owns producer and closes it.
func NewKafkaSink(log logger.Logger, producer kafka.Producer, topic string) (Sink, error) {
	if producer == nil {
		return nil, ErrInvalidConfig("kafka producer is required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafkaSink{
		logger:   logger.OrNop(log),
		producer: producer,
		topic:    topic,
	}, nil
}

func (s *kafkaSink) Put(ctx context.Context, l Letter) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}
	data, err := Encode(l)
	if err != nil {
		return err
	}
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.topic, Partition: kafka.PartitionAny},
		Key:            []byte(l.Mutation.Key),
		Value:          data,
		Timestamp:      l.FailedAt,
		Headers: []kafka.Header{
			{Key: HeaderOp, Value: []byte(l.Mutation.Op)},
			{Key: HeaderID, Value: []byte(l.Mutation.ID)},
		},
	}
	if err := s.producer.ProduceSync(ctx, msg); err != nil {
		return err
	}
	s.logger.Debug("dead letter produced",
		zap.String("topic", s.topic),
		zap.String("id", l.Mutation.ID),
	)
	return nil
}

func (s *kafkaSink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.producer.Close()
}
