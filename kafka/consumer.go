package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dailyyoga/cachedkv/logger"
	"github.com/dailyyoga/cachedkv/routine"
)

type defaultConsumer struct {
	instances []*consumeInstance
	runner    routine.Runner
	closed    atomic.Bool
}

// NewConsumer validates the cluster and creates InstanceNum consumers in the group
func NewConsumer(log logger.Logger, config *ConsumerConfig) (Consumer, error) {
	if config == nil {
		config = DefaultConsumerConfig()
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

	instances := make([]*consumeInstance, 0, config.InstanceNum)
	for i := 0; i < config.InstanceNum; i++ {
		name := fmt.Sprintf("%s-instance-%d", config.GroupID, i+1)
		instance, err := newConsumeInstance(name, config, log)
		if err != nil {
			for _, created := range instances {
				created.Close()
			}
			return nil, err
		}
		instances = append(instances, instance)
	}

	return &defaultConsumer{
		instances: instances,
		runner:    routine.New(log),
	}, nil
}

func (c *defaultConsumer) Start(ctx context.Context, handler ConsumerMsgHandler) error {
	if len(c.instances) == 0 {
		return ErrNoConsumerInstances
	}
	for _, instance := range c.instances {
		instance.Start(ctx, c.runner, handler)
	}
	return nil
}

// Close stops every consume loop, waits for them and closes the clients
func (c *defaultConsumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, instance := range c.instances {
		instance.stop()
	}
	c.runner.Wait()

	var errs []error
	for _, instance := range c.instances {
		if err := instance.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
