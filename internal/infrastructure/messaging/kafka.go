package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"

	"github.com/chessforge/gamecore/internal/shared/logger"
)

// KafkaConfig holds producer settings.
type KafkaConfig struct {
	Brokers      []string
	ClientID     string
	Retries      int
	WriteTimeout time.Duration
}

// ParseBrokers splits a comma separated bootstrap list.
func ParseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer writes keyed messages with acks=all, one batch in flight and
// snappy compression. Keys are hashed onto partitions so that every message
// for a game (or match, or user pool) lands on the same partition.
type KafkaProducer struct {
	writer  messageWriter
	retries int
	logger  logger.Interface
}

func NewKafkaProducer(cfg KafkaConfig, log logger.Interface) *KafkaProducer {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		MaxAttempts:            1,
		BatchSize:              1,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{ClientID: cfg.ClientID},
	}
	return newKafkaProducer(w, cfg.Retries, log)
}

func newKafkaProducer(w messageWriter, retries int, log logger.Interface) *KafkaProducer {
	return &KafkaProducer{writer: w, retries: retries, logger: log}
}

// Publish retries transient write failures with exponential backoff.
func (p *KafkaProducer) Publish(ctx context.Context, topic, key string, payload []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := p.writer.WriteMessages(ctx, msg)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return struct{}{}, backoff.Permanent(err)
		}
		p.logger.Warnw("kafka write failed",
			"topic", topic,
			"key", key,
			"attempt", attempt,
			"error", err,
		)
		return struct{}{}, err
	},
		backoff.WithBackOff(newPublishBackOff()),
		backoff.WithMaxTries(uint(p.retries)),
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	p.logger.Debugw("message published", "topic", topic, "key", key)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func newPublishBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}
