package kafka

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/cachedkv/logger"
	"github.com/dailyyoga/cachedkv/routine"
	"go.uber.org/zap"
)

// consumeInstance is a single consumer of the group
type consumeInstance struct {
	logger logger.Logger
	config *ConsumerConfig
	name   string
	c      *kafka.Consumer

	stopping atomic.Bool
	closed   atomic.Bool
}

func newConsumeInstance(name string, config *ConsumerConfig, log logger.Logger) (*consumeInstance, error) {
	consumer, err := kafka.NewConsumer(config.BuildConfigMap())
	if err != nil {
		return nil, ErrConnection(err)
	}
	if err := consumer.SubscribeTopics(config.Topics, nil); err != nil {
		consumer.Close()
		return nil, ErrSubscribe(config.Topics, err)
	}
	return &consumeInstance{
		logger: log,
		config: config,
		name:   name,
		c:      consumer,
	}, nil
}

func (c *consumeInstance) Start(ctx context.Context, runner routine.Runner, handler ConsumerMsgHandler) {
	runner.GoNamed(ctx, c.name, func(ctx context.Context) {
		if err := c.consumeLoop(ctx, handler); err != nil {
			c.logger.Error("kafka consumer loop exited with error",
				zap.String("instance_name", c.name),
				zap.Error(err))
		}
	})
	c.logger.Info("kafka consumer instance started", zap.String("instance_name", c.name))
}

func (c *consumeInstance) stop() {
	c.stopping.Store(true)
}

func (c *consumeInstance) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := c.c.Close(); err != nil {
		return err
	}
	c.logger.Info("kafka consumer instance closed", zap.String("instance_name", c.name))
	return nil
}

func (c *consumeInstance) consumeLoop(ctx context.Context, handler ConsumerMsgHandler) error {
	pollMs := int(c.config.PollTimeout.Milliseconds())
	for !c.stopping.Load() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		ev := c.c.Poll(pollMs)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			// a failed message is logged and skipped, its offset is not committed
			if err := c.handleMessage(ctx, e, handler); err != nil {
				c.logger.Error("kafka consumer handle message failed",
					zap.String("topic", topicName(e.TopicPartition.Topic)),
					zap.Int32("partition", e.TopicPartition.Partition),
					zap.Int64("offset", int64(e.TopicPartition.Offset)),
					zap.Error(err),
				)
			}
		case kafka.Error:
			c.logger.Error("kafka consumer error", zap.Int("code", int(e.Code())), zap.String("error", e.String()))
			if e.Code() == kafka.ErrAllBrokersDown {
				return ErrConsume(e)
			}
		case kafka.OffsetsCommitted:
			if e.Error != nil {
				c.logger.Error("failed to commit offsets", zap.Error(e.Error))
			}
		default:
			c.logger.Debug("received unknown event", zap.String("type", fmt.Sprintf("%T", e)))
		}
	}
	return nil
}

func toMessage(msg *kafka.Message) *Message {
	message := &Message{
		Value:     msg.Value,
		Key:       msg.Key,
		Timestamp: msg.Timestamp,
		TopicPartition: TopicPartition{
			Topic:     msg.TopicPartition.Topic,
			Partition: msg.TopicPartition.Partition,
			Offset:    Offset(msg.TopicPartition.Offset),
		},
		Headers: make([]Header, len(msg.Headers)),
	}
	for i, header := range msg.Headers {
		message.Headers[i] = Header{Key: header.Key, Value: header.Value}
	}
	return message
}

func (c *consumeInstance) handleMessage(ctx context.Context, msg *kafka.Message, handler ConsumerMsgHandler) error {
	start := time.Now()

	var err error
	for i := 0; i < c.config.MaxRetries; i++ {
		if err = routine.Safe(func() error { return handler(ctx, toMessage(msg)) }); err == nil {
			break
		}
	}
	if err != nil {
		return err
	}

	if !c.config.EnableAutoCommit {
		if _, err := c.c.CommitMessage(msg); err != nil {
			return ErrCommit(err)
		}
	}

	c.logger.Debug("kafka message processed",
		zap.String("instance_name", c.name),
		zap.String("topic", topicName(msg.TopicPartition.Topic)),
		zap.Int32("partition", msg.TopicPartition.Partition),
		zap.Int64("offset", int64(msg.TopicPartition.Offset)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
