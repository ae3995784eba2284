package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// ConsumerConfig is the configuration for kafka consumer
type ConsumerConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	Topics  []string `mapstructure:"topics"`

	// MaxRetries is how many times the handler is invoked for one message
	// default: 3
	MaxRetries int `mapstructure:"max_retries"`

	// InstanceNum is the number of consumers started in the group
	// default: 1
	InstanceNum int `mapstructure:"instance_num"`

	// AutoOffsetReset is "earliest" or "latest", used when the group has no committed offset.
	// Replaying dead letters wants "earliest".
	// default: "earliest"
	AutoOffsetReset string `mapstructure:"auto_offset_reset"`

	// default: false (offsets are committed after the handler succeeds)
	EnableAutoCommit bool `mapstructure:"enable_auto_commit"`
	// default: 5s
	AutoCommitInterval time.Duration `mapstructure:"auto_commit_interval"`
	// default: 30s
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	// default: 120s
	MaxPollInterval time.Duration `mapstructure:"max_poll_interval"`

	// PollTimeout bounds a single poll so the loop notices cancellation
	// default: 100ms
	PollTimeout time.Duration `mapstructure:"poll_timeout"`

	// only PLAINTEXT is supported for now
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol"`

	Debug bool `mapstructure:"debug"`
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		MaxRetries:         3,
		InstanceNum:        1,
		AutoOffsetReset:    "earliest",
		AutoCommitInterval: 5 * time.Second,
		SessionTimeout:     30 * time.Second,
		MaxPollInterval:    120 * time.Second,
		PollTimeout:        100 * time.Millisecond,
		SecurityProtocol:   "PLAINTEXT",
	}
}

// MergeDefaults fills zero fields with defaults and returns the config
func (c *ConsumerConfig) MergeDefaults() *ConsumerConfig {
	d := DefaultConsumerConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.InstanceNum == 0 {
		c.InstanceNum = d.InstanceNum
	}
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = d.AutoOffsetReset
	}
	if c.AutoCommitInterval == 0 {
		c.AutoCommitInterval = d.AutoCommitInterval
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.MaxPollInterval == 0 {
		c.MaxPollInterval = d.MaxPollInterval
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.SecurityProtocol == "" {
		c.SecurityProtocol = d.SecurityProtocol
	}
	return c
}

func (c *ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	if c.GroupID == "" {
		return ErrInvalidConfig("group_id is required")
	}
	if len(c.Topics) == 0 {
		return ErrInvalidConfig("topics are required")
	}
	if c.MaxRetries <= 0 {
		return ErrInvalidConfig("max_retries must be greater than 0")
	}
	if c.InstanceNum <= 0 {
		return ErrInvalidConfig("instance_num must be greater than 0")
	}
	if c.AutoOffsetReset != "earliest" && c.AutoOffsetReset != "latest" {
		return ErrInvalidConfig(
			fmt.Sprintf("invalid auto_offset_reset: %s, must be either 'earliest' or 'latest'", c.AutoOffsetReset),
		)
	}
	if c.EnableAutoCommit && c.AutoCommitInterval <= 0 {
		return ErrInvalidConfig("auto_commit_interval must be greater than 0 when enable_auto_commit is true")
	}
	if c.SessionTimeout <= 0 {
		return ErrInvalidConfig("session_timeout must be greater than 0")
	}
	if c.MaxPollInterval <= 0 {
		return ErrInvalidConfig("max_poll_interval must be greater than 0")
	}
	if c.PollTimeout <= 0 {
		return ErrInvalidConfig("poll_timeout must be greater than 0")
	}
	return nil
}

func (c *ConsumerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":    strings.Join(c.Brokers, ","),
		"group.id":             c.GroupID,
		"auto.offset.reset":    strings.ToLower(c.AutoOffsetReset),
		"enable.auto.commit":   c.EnableAutoCommit,
		"session.timeout.ms":   int(c.SessionTimeout.Milliseconds()),
		"max.poll.interval.ms": int(c.MaxPollInterval.Milliseconds()),
		"security.protocol":    c.SecurityProtocol,
	}
	if c.EnableAutoCommit {
		_ = configMap.SetKey("auto.commit.interval.ms", int(c.AutoCommitInterval.Milliseconds()))
	}
	if c.Debug {
		_ = configMap.SetKey("debug", "consumer,cgrp,topic,fetch")
	}
	return configMap
}

// ProducerConfig is the configuration for kafka producer
type ProducerConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`

	// Acks is "all", "1" or "0". Dead letters are the last copy of a write, keep "all".
	// default: "all"
	Acks string `mapstructure:"acks"`

	// Compression is none, gzip, snappy, lz4 or zstd
	// default: "none"
	Compression string `mapstructure:"compression"`

	// default: 0 (send immediately)
	LingerMs int `mapstructure:"linger_ms"`
	// default: 100KB
	BatchSize int `mapstructure:"batch_size"`

	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol"`

	// default: 3
	MaxRetries int `mapstructure:"max_retries"`

	// FlushTimeout bounds the flush performed by Close
	// default: 10s
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Acks:             "all",
		Compression:      "none",
		BatchSize:        100 * 1024,
		SecurityProtocol: "PLAINTEXT",
		MaxRetries:       3,
		FlushTimeout:     10 * time.Second,
	}
}

// MergeDefaults fills zero fields with defaults and returns the config
func (p *ProducerConfig) MergeDefaults() *ProducerConfig {
	d := DefaultProducerConfig()
	if p.Acks == "" {
		p.Acks = d.Acks
	}
	if p.Compression == "" {
		p.Compression = d.Compression
	}
	if p.BatchSize == 0 {
		p.BatchSize = d.BatchSize
	}
	if p.SecurityProtocol == "" {
		p.SecurityProtocol = d.SecurityProtocol
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = d.MaxRetries
	}
	if p.FlushTimeout == 0 {
		p.FlushTimeout = d.FlushTimeout
	}
	return p
}

func (p *ProducerConfig) Validate() error {
	if len(p.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	switch strings.ToLower(p.Acks) {
	case "all", "-1", "1", "0":
	default:
		return ErrInvalidConfig(fmt.Sprintf("invalid acks: %s", p.Acks))
	}
	if p.LingerMs < 0 || p.BatchSize < 0 || p.MaxRetries < 0 {
		return ErrInvalidConfig("linger_ms, batch_size and max_retries cannot be negative")
	}
	if p.FlushTimeout < 0 {
		return ErrInvalidConfig("flush_timeout cannot be negative")
	}
	return nil
}

func (p *ProducerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(p.Brokers, ","),
		"compression.type":  strings.ToLower(p.Compression),
		"acks":              strings.ToLower(p.Acks),
		"linger.ms":         p.LingerMs,
		"batch.size":        p.BatchSize,
		"retries":           p.MaxRetries,
		"security.protocol": p.SecurityProtocol,
	}
	if p.ClientID != "" {
		_ = configMap.SetKey("client.id", p.ClientID)
	}
	return configMap
}
