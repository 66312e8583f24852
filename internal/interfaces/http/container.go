package http

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	gameUsecases "github.com/chessforge/gamecore/internal/application/game/usecases"
	ratingUsecases "github.com/chessforge/gamecore/internal/application/rating/usecases"
	"github.com/chessforge/gamecore/internal/infrastructure/auth"
	"github.com/chessforge/gamecore/internal/infrastructure/breaker"
	"github.com/chessforge/gamecore/internal/infrastructure/config"
	"github.com/chessforge/gamecore/internal/infrastructure/messaging"
	"github.com/chessforge/gamecore/internal/infrastructure/metrics"
	"github.com/chessforge/gamecore/internal/infrastructure/pubsub"
	"github.com/chessforge/gamecore/internal/infrastructure/scheduler"
	"github.com/chessforge/gamecore/internal/infrastructure/wsbroker"
	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

// Container holds the infrastructure, repositories, use cases, handlers and
// background workers of one process, wired together. Shutdown releases them
// in reverse order.
type Container struct {
	// Core infrastructure
	engine  *gin.Engine
	db      *gorm.DB
	cfg     *config.Config
	log     logger.Interface
	redis   *redis.Client
	metrics *metrics.Metrics

	instanceID string

	// Messaging
	publisher    messaging.Publisher
	outboxSink   messaging.Publisher
	eventBus     *messaging.EventBus
	gameConsumer *messaging.KafkaConsumer
	replayer     *messaging.KafkaReplayer

	breakers *breaker.Registry
	gameBus  *pubsub.RedisGameBus
	broker   *wsbroker.Broker

	repos *repositories
	ucs   *allUseCases
	hdlrs *allHandlers

	// Middlewares
	jwtSvc          *auth.JWTService
	authMiddleware  *middleware.AuthMiddleware
	ipRateLimiter   *middleware.RateLimiter
	moveRateLimiter *middleware.RateLimiter

	botDispatcher    *gameUsecases.BotMoveDispatcher
	schedulerManager *scheduler.SchedulerManager

	runMu     sync.Mutex
	runCancel context.CancelFunc
	runGroup  *errgroup.Group
}

// NewContainer wires every component. db must already be open; the
// container does not close it.
func NewContainer(cfg *config.Config, db *gorm.DB, log logger.Interface) (*Container, error) {
	c := &Container{
		engine:     gin.New(),
		db:         db,
		cfg:        cfg,
		log:        log,
		metrics:    metrics.New(),
		instanceID: cfg.Server.InstanceID,
	}
	if c.instanceID == "" {
		c.instanceID = uuid.NewString()
	}

	// Section 1: Infrastructure - Redis, breakers, messaging, repositories
	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	// Section 2: Ratings - ingestion, outbox, consumer, backfill
	c.initRatings()

	// Section 3: Bots - decision pipeline and bot mover
	c.initBots()

	// Section 4: Live games - use cases, bot dispatch
	c.initGames()

	// Section 5: Matchmaking - tickets, proposals, failed match queue, challenges
	c.initMatchmaking()
	c.initChallenges()

	// Section 6: Handlers, middlewares and scheduled jobs
	c.initHandlers()
	if err := c.initScheduler(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Container) Engine() *gin.Engine { return c.engine }

func (c *Container) Metrics() *metrics.Metrics { return c.metrics }

func (c *Container) Backfill() *ratingUsecases.BackfillUseCase { return c.ucs.backfill }

// Migrations are run by the migrate command; seeding the default pools is
// idempotent and safe on every start.
func (c *Container) SeedPools(ctx context.Context) error {
	return c.ucs.seedPools(ctx)
}

// RunOptions selects the background workers Start launches.
type RunOptions struct {
	Jobs      bool
	Consumers bool
	WSRelay   bool
}

// Start launches the background workers. They stop on Shutdown or when ctx
// is cancelled.
func (c *Container) Start(ctx context.Context, opts RunOptions) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.runGroup != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	c.runCancel = cancel
	c.runGroup = g

	if opts.Jobs {
		c.schedulerManager.Start()
	}
	if opts.Consumers && c.gameConsumer != nil {
		g.Go(func() error {
			c.log.Infow("game events consumer started", "topic", c.cfg.Kafka.GameEventsTopic)
			return c.gameConsumer.Run(gctx)
		})
	}
	if opts.WSRelay {
		g.Go(func() error {
			return c.broker.Run(gctx, c.gameBus)
		})
	}
}

// Shutdown stops the workers and releases connections.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error

	if c.schedulerManager != nil && c.schedulerManager.IsStarted() {
		if err := c.schedulerManager.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}
	}

	c.runMu.Lock()
	cancel, g := c.runCancel, c.runGroup
	c.runCancel, c.runGroup = nil, nil
	c.runMu.Unlock()
	if cancel != nil {
		cancel()
		done := make(chan error, 1)
		go func() { done <- g.Wait() }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, fmt.Errorf("workers: %w", err))
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("workers: %w", ctx.Err()))
		}
	}

	if c.botDispatcher != nil {
		c.botDispatcher.Close()
	}
	if c.ucs != nil && c.ucs.backfill != nil {
		c.ucs.backfill.Shutdown()
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if c.outboxSink != nil && c.outboxSink != c.publisher {
		if err := c.outboxSink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("outbox sink: %w", err))
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		c.log.Errorw("shutdown finished with errors", "error", err)
	} else {
		c.log.Infow("container shut down")
	}
	return err
}
