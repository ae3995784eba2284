package deadletter

import (
	"context"

	"github.com/dailyyoga/cachedkv/kafka"
	"github.com/dailyyoga/cachedkv/logger"
	"github.com/dailyyoga/cachedkv/store"
	"go.uber.org/zap"
)

// Handler returns a consumer handler that decodes each message and re-applies
// the mutation to durable. Messages that cannot be decoded are logged and
// acknowledged, a failed apply is returned so the consumer retries it.
func Handler(log logger.Logger, durable store.Store) kafka.ConsumerMsgHandler {
	log = logger.OrNop(log)
	return func(ctx context.Context, msg *kafka.Message) error {
		l, err := Decode(msg.Value)
		if err != nil {
			log.Error("skipping undecodable dead letter",
				zap.Int64("offset", int64(msg.TopicPartition.Offset)),
				zap.Error(err),
			)
			return nil
		}
		return ReplayLetter(ctx, log, durable, l)
	}
}

// ReplayLetter re-applies one letter to durable
func ReplayLetter(ctx context.Context, log logger.Logger, durable store.Store, l Letter) error {
	if err := l.Mutation.Apply(ctx, durable); err != nil {
		return ErrReplay(l.Mutation.ID, err)
	}
	logger.OrNop(log).Info("dead letter replayed",
		zap.String("id", l.Mutation.ID),
		zap.String("op", string(l.Mutation.Op)),
		zap.String("key", l.Mutation.Key),
		zap.Time("failed_at", l.FailedAt),
	)
	return nil
}

// Replay consumes dead letters and re-applies them to durable until ctx is done.
// The consumer is closed before Replay returns.
func Replay(ctx context.Context, log logger.Logger, consumer kafka.Consumer, durable store.Store) error {
	if err := consumer.Start(ctx, Handler(log, durable)); err != nil {
		_ = consumer.Close()
		return err
	}
	<-ctx.Done()
	return consumer.Close()
}
