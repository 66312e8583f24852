package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"

	"github.com/chessforge/gamecore/internal/shared/logger"
)

// Handler processes one message. Returning a PermanentError skips the
// message; any other error is retried before the offset is committed.
type Handler func(ctx context.Context, msg kafka.Message) error

// PermanentError marks a message that can never be processed, such as one
// that does not decode.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Skip wraps err so the consumer commits past the message.
func Skip(err error) error {
	return &PermanentError{Err: err}
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds consumer group settings.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// KafkaConsumer reads a topic as part of a consumer group and commits each
// offset only after the handler succeeded.
type KafkaConsumer struct {
	reader     messageReader
	handler    Handler
	maxBackoff time.Duration
	logger     logger.Interface
}

func NewKafkaConsumer(cfg ConsumerConfig, handler Handler, log logger.Interface) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	return newKafkaConsumer(r, handler, log)
}

func newKafkaConsumer(r messageReader, handler Handler, log logger.Interface) *KafkaConsumer {
	return &KafkaConsumer{
		reader:     r,
		handler:    handler,
		maxBackoff: 30 * time.Second,
		logger:     log,
	}
}

// Run blocks until ctx is done or the reader fails.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warnw("failed to close kafka reader", "error", err)
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := c.process(ctx, msg); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

// process retries transient failures until they succeed or ctx ends.
func (c *KafkaConsumer) process(ctx context.Context, msg kafka.Message) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = c.maxBackoff

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.handler(ctx, msg)
		if err == nil {
			return struct{}{}, nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return struct{}{}, backoff.Permanent(err)
		}
		c.logger.Warnw("message handling failed, will retry",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		return nil
	}

	var perm *PermanentError
	if errors.As(err, &perm) {
		c.logger.Errorw("skipping unprocessable message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", perm.Err,
		)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
