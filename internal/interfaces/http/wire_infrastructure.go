package http

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chessforge/gamecore/internal/infrastructure/auth"
	"github.com/chessforge/gamecore/internal/infrastructure/breaker"
	"github.com/chessforge/gamecore/internal/infrastructure/config"
	"github.com/chessforge/gamecore/internal/infrastructure/messaging"
	"github.com/chessforge/gamecore/internal/infrastructure/metrics"
	"github.com/chessforge/gamecore/internal/infrastructure/pubsub"
	"github.com/chessforge/gamecore/internal/infrastructure/wsbroker"
	sharedConfig "github.com/chessforge/gamecore/internal/shared/config"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	outboxSinkKafka = "kafka"
	outboxSinkAMQP  = "amqp"
	outboxSinkNone  = "none"
)

func (c *Container) initInfrastructure() error {
	cfg := c.cfg

	client, err := initRedis(cfg, c.log)
	if err != nil {
		return err
	}
	c.redis = client

	c.repos = newRepositories(c.db, time.Duration(cfg.Database.QueryTimeout)*time.Second, c.log)

	c.jwtSvc = auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpMinutes)
	c.breakers = breaker.NewRegistry(breakerSettings(&cfg.Breaker, c.metrics), c.log)

	c.publisher = messaging.NewTopicRenamer(newEventPublisher(cfg, c.log), map[string]string{
		messaging.TopicGameEvents: cfg.Kafka.GameEventsTopic,
		messaging.TopicMatches:    cfg.Kafka.MatchesTopic,
	})
	c.eventBus = messaging.NewEventBus(c.publisher, c.log)

	c.gameBus = pubsub.NewRedisGameBus(c.redis, c.log)
	c.broker = wsbroker.NewBroker(c.redis, c.gameBus, c.instanceID, c.log)
	return nil
}

// initRedis creates the Redis client and checks the connection. REDIS_URL
// takes precedence over host and port.
func initRedis(cfg *config.Config, log logger.Interface) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.URL != "" {
		parsed, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Infow("redis connection established", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}

// breakerSettings applies the configured thresholds to every breaker and
// mirrors state changes into the breaker gauge.
func breakerSettings(cfg *sharedConfig.BreakerConfig, m *metrics.Metrics) func(name string) breaker.Settings {
	return func(name string) breaker.Settings {
		st := breaker.DefaultSettings(name)
		if cfg.FailureThreshold > 0 {
			st.FailureThreshold = uint32(cfg.FailureThreshold)
		}
		if cfg.SuccessThreshold > 0 {
			st.SuccessThreshold = uint32(cfg.SuccessThreshold)
		}
		if cfg.TimeoutSeconds > 0 {
			st.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		st.OnStateChange = func(name string, _, to breaker.State) {
			m.SetBreakerState(name, string(to))
		}
		m.SetBreakerState(name, string(breaker.StateClosed))
		return st
	}
}

func newEventPublisher(cfg *config.Config, log logger.Interface) messaging.Publisher {
	if !cfg.Kafka.Enabled {
		log.Warnw("kafka disabled, domain events are not published")
		return messaging.NewNopPublisher(log)
	}
	return messaging.NewKafkaProducer(messaging.KafkaConfig{
		Brokers:      messaging.ParseBrokers(cfg.Kafka.BootstrapServers),
		ClientID:     cfg.Kafka.ClientID,
		Retries:      cfg.Kafka.PublishRetries,
		WriteTimeout: time.Duration(cfg.Kafka.WriteTimeoutMS) * time.Millisecond,
	}, log)
}

// newOutboxSink picks where rating.updated events go. The Kafka sink
// reuses the event publisher.
func (c *Container) newOutboxSink() messaging.Publisher {
	switch c.cfg.Rating.OutboxSink {
	case outboxSinkAMQP:
		return messaging.NewAMQPPublisher(c.cfg.AMQP.URL, c.cfg.AMQP.Exchange, c.log)
	case outboxSinkNone:
		return messaging.NewNopPublisher(c.log)
	default:
		return c.publisher
	}
}
