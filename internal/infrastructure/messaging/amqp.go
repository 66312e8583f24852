package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/chessforge/gamecore/internal/shared/id"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

// AMQPPublisher publishes to a topic exchange, using the bus topic as the
// routing key. The connection is re-dialled lazily after a failure.
type AMQPPublisher struct {
	url      string
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel

	logger logger.Interface
}

func NewAMQPPublisher(url, exchange string, log logger.Interface) *AMQPPublisher {
	if exchange == "" {
		exchange = "gamecore.events"
	}
	return &AMQPPublisher{url: url, exchange: exchange, logger: log}
}

func (p *AMQPPublisher) connect() error {
	if p.channel != nil {
		return nil
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 30 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	p.conn = conn
	p.channel = ch
	p.logger.Infow("connected to amqp broker", "exchange", p.exchange)
	return nil
}

func (p *AMQPPublisher) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn = nil
	p.channel = nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return err
	}
	err := p.channel.Publish(p.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id.New(),
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{"partition_key": key},
		Body:         payload,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	p.channel = nil
	return err
}
