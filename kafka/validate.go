package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/cachedkv/logger"
	"go.uber.org/zap"
)

// validateKafkaCluster fetches cluster metadata to make sure the brokers are reachable
func validateKafkaCluster(log logger.Logger, brokers []string) error {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(brokers, ","),
		"request.timeout.ms": 10000,
	}

	const maxRetries = 3
	var (
		adminClient *kafka.AdminClient
		err         error
	)
	for i := 0; i < maxRetries; i++ {
		if adminClient, err = kafka.NewAdminClient(configMap); err == nil {
			break
		}
		if i < maxRetries-1 {
			log.Warn("failed to create kafka admin client, retrying...",
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("max_retries", maxRetries),
			)
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return ErrConnection(fmt.Errorf("create admin client after %d attempts: %w", maxRetries, err))
	}
	defer adminClient.Close()

	if _, err := adminClient.GetMetadata(nil, true, int((10 * time.Second).Milliseconds())); err != nil {
		return ErrConnection(err)
	}

	log.Info("kafka brokers connection validated", zap.Strings("brokers", brokers))
	return nil
}
