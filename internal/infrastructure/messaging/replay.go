package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/chessforge/gamecore/internal/shared/logger"
)

// ReplayFunc receives one historical message. Returning an error stops the replay.
type ReplayFunc func(ctx context.Context, msg kafka.Message) error

// Replayer reads a topic's history between two instants.
type Replayer interface {
	Replay(ctx context.Context, topic string, from, to time.Time, fn ReplayFunc) error
}

// KafkaReplayer walks every partition of a topic from the offset nearest to
// from until a message newer than to, or until the partition goes idle.
// It reads outside any consumer group so live offsets are untouched.
type KafkaReplayer struct {
	brokers []string
	idle    time.Duration
	logger  logger.Interface
}

func NewKafkaReplayer(brokers []string, idle time.Duration, log logger.Interface) *KafkaReplayer {
	if idle <= 0 {
		idle = 5 * time.Second
	}
	return &KafkaReplayer{brokers: brokers, idle: idle, logger: log}
}

func (r *KafkaReplayer) Replay(ctx context.Context, topic string, from, to time.Time, fn ReplayFunc) error {
	if len(r.brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	partitions, err := kafka.LookupPartitions(ctx, "tcp", r.brokers[0], topic)
	if err != nil {
		return fmt.Errorf("failed to look up partitions of %s: %w", topic, err)
	}

	for _, p := range partitions {
		if err := r.replayPartition(ctx, topic, p.ID, from, to, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *KafkaReplayer) replayPartition(ctx context.Context, topic string, partition int, from, to time.Time, fn ReplayFunc) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   r.brokers,
		Topic:     topic,
		Partition: partition,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, from); err != nil {
		return fmt.Errorf("failed to seek partition %d: %w", partition, err)
	}

	read := 0
	for {
		readCtx, cancel := context.WithTimeout(ctx, r.idle)
		msg, err := reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return fmt.Errorf("failed to read partition %d: %w", partition, err)
		}
		if !msg.Time.IsZero() && msg.Time.After(to) {
			break
		}
		if err := fn(ctx, msg); err != nil {
			return err
		}
		read++
	}

	r.logger.Infow("partition replayed",
		"topic", topic,
		"partition", partition,
		"messages", read,
	)
	return nil
}

// TopicReplay binds a Replayer to one topic and hands callers raw payloads.
type TopicReplay struct {
	replayer Replayer
	topic    string
}

func NewTopicReplay(r Replayer, topic string) *TopicReplay {
	return &TopicReplay{replayer: r, topic: topic}
}

func (t *TopicReplay) Replay(ctx context.Context, from, to time.Time, fn func(ctx context.Context, payload []byte) error) error {
	return t.replayer.Replay(ctx, t.topic, from, to, func(ctx context.Context, msg kafka.Message) error {
		return fn(ctx, msg.Value)
	})
}
