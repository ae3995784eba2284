package kafka

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/cachedkv/logger"
	"github.com/dailyyoga/cachedkv/routine"
	"go.uber.org/zap"
)

type defaultProducer struct {
	logger       logger.Logger
	p            *kafka.Producer
	flushTimeout time.Duration

	runner   routine.Runner
	done     chan struct{}
	doneOnce sync.Once
	closed   atomic.Bool
}

// NewProducer validates the cluster and creates a producer
func NewProducer(log logger.Logger, config *ProducerConfig) (Producer, error) {
	if config == nil {
		config = DefaultProducerConfig()
	} else {
		config = config.MergeDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)

	if err := validateKafkaCluster(log, config.Brokers); err != nil {
		return nil, err
	}

	var (
		producer *kafka.Producer
		err      error
	)
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		if producer, err = kafka.NewProducer(config.BuildConfigMap()); err == nil {
			break
		}
		if i < maxRetries-1 {
			log.Warn("failed to create kafka producer, retrying...",
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("max_retries", maxRetries),
			)
			time.Sleep(3 * time.Second)
		}
	}
	if err != nil {
		return nil, ErrConnection(fmt.Errorf("create producer after %d attempts: %w", maxRetries, err))
	}

	kp := &defaultProducer{
		logger:       log,
		p:            producer,
		flushTimeout: config.FlushTimeout,
		runner:       routine.New(log),
		done:         make(chan struct{}),
	}
	kp.runner.GoNamed(context.Background(), "kafka-delivery-reports", kp.handleDeliveryReports)

	log.Info("kafka producer initialized", zap.Strings("brokers", config.Brokers))
	return kp, nil
}

func (kp *defaultProducer) stopReports() {
	kp.doneOnce.Do(func() { close(kp.done) })
}

// handleDeliveryReports logs reports of messages produced without a delivery channel
func (kp *defaultProducer) handleDeliveryReports(_ context.Context) {
	for {
		select {
		case <-kp.done:
			return
		case e, ok := <-kp.p.Events():
			if !ok {
				return
			}
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					kp.logger.Error("failed to deliver message",
						zap.Error(ev.TopicPartition.Error),
						zap.String("topic", topicName(ev.TopicPartition.Topic)),
					)
				} else {
					kp.logger.Debug("message delivered",
						zap.String("topic", topicName(ev.TopicPartition.Topic)),
						zap.Int32("partition", ev.TopicPartition.Partition),
						zap.Int64("offset", int64(ev.TopicPartition.Offset)),
					)
				}
			case kafka.Error:
				kp.logger.Error("kafka producer error",
					zap.Int("code", int(ev.Code())),
					zap.String("error", ev.String()),
				)
				if ev.Code() == kafka.ErrAllBrokersDown {
					kp.logger.Error("all kafka brokers are down", zap.Error(ev))
					kp.stopReports()
					return
				}
			default:
				kp.logger.Debug("received unknown event", zap.String("type", fmt.Sprintf("%T", ev)))
			}
		}
	}
}

func (kp *defaultProducer) Produce(ctx context.Context, msg *Message) error {
	message, err := kp.build(ctx, msg)
	if err != nil {
		return err
	}
	return kp.p.Produce(message, nil)
}

func (kp *defaultProducer) ProduceSync(ctx context.Context, msg *Message) error {
	message, err := kp.build(ctx, msg)
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	if err := kp.p.Produce(message, delivery); err != nil {
		return err
	}

	select {
	case e := <-delivery:
		m, ok := e.(*kafka.Message)
		if !ok {
			return ErrDelivery(topicName(message.TopicPartition.Topic), fmt.Errorf("unexpected event %T", e))
		}
		if m.TopicPartition.Error != nil {
			return ErrDelivery(topicName(m.TopicPartition.Topic), m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (kp *defaultProducer) build(ctx context.Context, msg *Message) (*kafka.Message, error) {
	if kp.closed.Load() {
		return nil, ErrProducerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateMessage(msg); err != nil {
		return nil, err
	}
	return toKafkaMessage(msg), nil
}

func (kp *defaultProducer) Close() error {
	if !kp.closed.CompareAndSwap(false, true) {
		return nil
	}
	kp.stopReports()
	kp.runner.Wait()

	if remaining := kp.p.Flush(int(kp.flushTimeout.Milliseconds())); remaining > 0 {
		kp.logger.Warn("producer closed with undelivered messages", zap.Int("remaining", remaining))
	}
	kp.p.Close()
	return nil
}

func validateMessage(msg *Message) error {
	if msg == nil || msg.TopicPartition.Topic == nil || *msg.TopicPartition.Topic == "" {
		return ErrMissingTopic
	}
	if msg.Value == nil {
		return ErrMissingValue
	}
	return nil
}

func toKafkaMessage(msg *Message) *kafka.Message {
	message := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     msg.TopicPartition.Topic,
			Partition: kafka.PartitionAny,
		},
		Value: msg.Value,
		Key:   msg.Key,
	}
	if msg.TopicPartition.Partition != PartitionAny {
		message.TopicPartition.Partition = msg.TopicPartition.Partition
	}
	if !msg.Timestamp.IsZero() {
		message.Timestamp = msg.Timestamp
	}
	for _, header := range msg.Headers {
		message.Headers = append(message.Headers, kafka.Header{Key: header.Key, Value: header.Value})
	}
	return message
}

func topicName(topic *string) string {
	if topic == nil {
		return ""
	}
	return *topic
}
