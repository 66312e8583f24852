package http

import (
	"context"
	"time"

	botUsecases "github.com/chessforge/gamecore/internal/application/bot/usecases"
	challengeUsecases "github.com/chessforge/gamecore/internal/application/challenge/usecases"
	gameUsecases "github.com/chessforge/gamecore/internal/application/game/usecases"
	ratingUsecases "github.com/chessforge/gamecore/internal/application/rating/usecases"
	ticketUsecases "github.com/chessforge/gamecore/internal/application/ticket/usecases"
	"github.com/chessforge/gamecore/internal/domain/bot"
	"github.com/chessforge/gamecore/internal/domain/game"
	"github.com/chessforge/gamecore/internal/domain/rating"
	"github.com/chessforge/gamecore/internal/domain/ticket"
	"github.com/chessforge/gamecore/internal/infrastructure/cache"
	"github.com/chessforge/gamecore/internal/infrastructure/clients"
	"github.com/chessforge/gamecore/internal/infrastructure/matchqueue"
	"github.com/chessforge/gamecore/internal/infrastructure/messaging"
	"github.com/chessforge/gamecore/internal/infrastructure/replay"
	"github.com/chessforge/gamecore/internal/shared/biztime"
)

// allUseCases holds every use case instance of the process.
type allUseCases struct {
	// Matchmaking
	enqueueUC      *ticketUsecases.EnqueueUseCase
	heartbeatUC    *ticketUsecases.HeartbeatUseCase
	cancelTicketUC *ticketUsecases.CancelTicketUseCase
	updateTicketUC *ticketUsecases.UpdateSoftConstraintsUseCase
	getTicketUC    *ticketUsecases.GetTicketUseCase
	acceptUC       *ticketUsecases.AcceptProposalUseCase
	declineUC      *ticketUsecases.DeclineProposalUseCase
	matchCycleUC   *ticketUsecases.RunMatchCycleUseCase
	reapTicketsUC  *ticketUsecases.ReapTicketsUseCase
	retryFailedUC  *ticketUsecases.RetryFailedMatchesUseCase
	failedMatches  *matchqueue.Queue
	gameCreator    ticketUsecases.GameCreator

	// Live games
	createChallengeUC *gameUsecases.CreateChallengeUseCase
	createGameUC      *gameUsecases.CreateGameUseCase
	createBotGameUC   *gameUsecases.CreateBotGameUseCase
	joinGameUC        *gameUsecases.JoinGameUseCase
	playMoveUC        *gameUsecases.PlayMoveUseCase
	resignUC          *gameUsecases.ResignUseCase
	takebackUC        *gameUsecases.TakebackUseCase
	setPositionUC     *gameUsecases.SetPositionUseCase
	updateRatedUC     *gameUsecases.UpdateRatedUseCase
	drawUC            *gameUsecases.DrawUseCase
	getGameUC         *gameUsecases.GetGameUseCase
	expireGamesUC     *gameUsecases.ExpireGamesUseCase

	// Direct challenges
	sendChallengeUC    *challengeUsecases.CreateChallengeUseCase
	acceptChallengeUC  *challengeUsecases.AcceptChallengeUseCase
	declineChallengeUC *challengeUsecases.DeclineChallengeUseCase
	cancelChallengeUC  *challengeUsecases.CancelChallengeUseCase
	getChallengeUC     *challengeUsecases.GetChallengeUseCase
	incomingUC         *challengeUsecases.ListIncomingChallengesUseCase
	expireChallengesUC *challengeUsecases.ExpireChallengesUseCase

	// Ratings
	ingestUC        *ratingUsecases.IngestGameResultUseCase
	getRatingsUC    *ratingUsecases.GetRatingsUseCase
	leaderboardUC   *ratingUsecases.GetLeaderboardUseCase
	gameEnded       *ratingUsecases.GameEndedHandler
	publishOutboxUC *ratingUsecases.PublishOutboxUseCase
	backfill        *ratingUsecases.BackfillUseCase

	// Bots
	chooseMoveUC  *botUsecases.ChooseMoveUseCase
	recentMovesUC *botUsecases.ListRecentMovesUseCase
	botMover      gameUsecases.BotMover

	pools     rating.PoolRepository
	glickoTau float64
}

// seedPools makes sure the default rating pools exist.
func (u *allUseCases) seedPools(ctx context.Context) error {
	pools := make([]rating.Pool, len(rating.DefaultPoolCodes))
	for i, code := range rating.DefaultPoolCodes {
		pools[i] = rating.NewPool(code, u.glickoTau)
	}
	return u.pools.EnsureExists(ctx, pools...)
}

func (c *Container) initRatings() {
	cfg := c.cfg
	r := c.repos
	log := c.log.Named("rating")

	c.ucs = &allUseCases{pools: r.ratingPoolRepo, glickoTau: cfg.Rating.GlickoTau}
	u := c.ucs

	u.ingestUC = ratingUsecases.NewIngestGameResultUseCase(
		r.ratingPoolRepo,
		r.userRatingRepo,
		r.ratingIngestionRepo,
		r.ratingEventRepo,
		r.eventOutboxRepo,
		r.leaderboardRepo,
		r.txMgr,
		log,
	)
	u.getRatingsUC = ratingUsecases.NewGetRatingsUseCase(r.ratingPoolRepo, r.userRatingRepo, log)
	u.leaderboardUC = ratingUsecases.NewGetLeaderboardUseCase(r.ratingPoolRepo, r.leaderboardRepo, log)
	u.gameEnded = ratingUsecases.NewGameEndedHandler(u.ingestUC, log)

	if cfg.Rating.OutboxEnabled {
		c.outboxSink = c.newOutboxSink()
		u.publishOutboxUC = ratingUsecases.NewPublishOutboxUseCase(
			r.eventOutboxRepo,
			c.outboxSink,
			cfg.Kafka.RatingTopic,
			r.txMgr,
			log,
		).WithBatchSize(cfg.Rating.OutboxBatchSize)
	}

	if cfg.Kafka.Enabled {
		brokers := messaging.ParseBrokers(cfg.Kafka.BootstrapServers)
		c.replayer = messaging.NewKafkaReplayer(brokers, time.Duration(cfg.Kafka.BackfillIdleMS)*time.Millisecond, log)
		u.backfill = ratingUsecases.NewBackfillUseCase(
			r.backfillJobRepo,
			messaging.NewTopicReplay(c.replayer, cfg.Kafka.GameEventsTopic),
			u.gameEnded,
			log,
		)
		if cfg.Rating.ConsumerEnabled {
			c.gameConsumer = messaging.NewKafkaConsumer(messaging.ConsumerConfig{
				Brokers: brokers,
				Topic:   cfg.Kafka.GameEventsTopic,
				GroupID: cfg.Kafka.ConsumerGroup,
			}, gameEndedConsumer(u.gameEnded, log), log)
		}
	} else {
		u.backfill = ratingUsecases.NewBackfillUseCase(r.backfillJobRepo, noReplay{}, u.gameEnded, log)
		if cfg.Rating.ConsumerEnabled {
			c.eventBus = messaging.NewEventBus(newLocalGameEventRelay(c.publisher, u.gameEnded, log), c.log)
		}
	}
}

func (c *Container) initBots() {
	cfg := c.cfg
	u := c.ucs
	log := c.log.Named("bot")

	moves := bot.NewMoveLog(bot.DefaultMoveLogSize)
	engine := clients.NewEngineClient(
		cfg.Bot.EngineURL,
		time.Duration(cfg.Bot.EngineTimeoutSeconds)*time.Second,
		c.breakers.Get(clients.BreakerEngine),
		log,
	)
	knowledge := clients.NewKnowledgeClient(
		cfg.Bot.KnowledgeURL,
		time.Duration(cfg.Bot.KnowledgeTimeoutSeconds)*time.Second,
		c.breakers.Get(clients.BreakerKnowledge),
		log,
	)
	u.chooseMoveUC = botUsecases.NewChooseMoveUseCase(
		botUsecases.BuiltinSpecs{},
		engine,
		knowledge,
		moves,
		botUsecases.Timeouts{
			Total:     time.Duration(cfg.Bot.TotalTimeoutSeconds) * time.Second,
			Knowledge: time.Duration(cfg.Bot.KnowledgeTimeoutSeconds) * time.Second,
			Engine:    time.Duration(cfg.Bot.EngineTimeoutSeconds) * time.Second,
		},
		log,
	)
	u.recentMovesUC = botUsecases.NewListRecentMovesUseCase(moves)

	// A configured orchestrator URL moves bot decisions out of process.
	if cfg.Game.BotOrchestratorURL != "" {
		u.botMover = clients.NewBotClient(
			cfg.Game.BotOrchestratorURL,
			time.Duration(cfg.Game.BotMoveTimeoutSeconds)*time.Second,
			c.breakers.Get(clients.BreakerBot),
			log,
		)
	} else {
		u.botMover = u.chooseMoveUC
	}
}

func (c *Container) initGames() {
	cfg := c.cfg
	r := c.repos
	u := c.ucs
	log := c.log.Named("game")

	deps := gameUsecases.Dependencies{
		Games:       r.gameRepo,
		TxMgr:       r.txMgr,
		Cache:       cache.NewRedisGameCache(c.redis, time.Duration(cfg.Game.CacheTTLSeconds)*time.Second, log),
		Events:      c.eventBus,
		Broadcaster: c.broker,
		Policy: game.RatingPolicy{
			MaxRatingGap:        cfg.Game.MaxRatedRatingDifference,
			AllowCustomFENRated: cfg.Game.AllowCustomFENRated,
			AllowOddsRated:      cfg.Game.AllowOddsRated,
		},
		Clock:  biztime.SystemClock,
		Logger: log,
	}
	c.botDispatcher = gameUsecases.NewBotMoveDispatcher(deps, u.botMover)
	deps.Bots = c.botDispatcher

	replays := replay.NewStore(c.redis, time.Duration(cfg.Game.ReplayTTLSeconds)*time.Second)

	u.createChallengeUC = gameUsecases.NewCreateChallengeUseCase(deps)
	u.createGameUC = gameUsecases.NewCreateGameUseCase(deps)
	u.createBotGameUC = gameUsecases.NewCreateBotGameUseCase(deps)
	u.joinGameUC = gameUsecases.NewJoinGameUseCase(deps, u.getRatingsUC)
	u.playMoveUC = gameUsecases.NewPlayMoveUseCase(deps, replays)
	u.resignUC = gameUsecases.NewResignUseCase(deps)
	u.takebackUC = gameUsecases.NewTakebackUseCase(deps)
	u.setPositionUC = gameUsecases.NewSetPositionUseCase(deps)
	u.updateRatedUC = gameUsecases.NewUpdateRatedUseCase(deps)
	u.drawUC = gameUsecases.NewDrawUseCase(deps)
	u.getGameUC = gameUsecases.NewGetGameUseCase(deps)
	u.expireGamesUC = gameUsecases.NewExpireGamesUseCase(deps, time.Duration(cfg.Game.AbandonAfterSeconds)*time.Second).
		WithBatchSize(cfg.Game.ExpirySweepBatchSize)
}

func (c *Container) initMatchmaking() {
	cfg := c.cfg
	mm := &cfg.Matchmaking
	r := c.repos
	u := c.ucs
	log := c.log.Named("matchmaking")

	u.failedMatches = matchqueue.NewQueue(
		c.redis,
		time.Duration(mm.FailedMatchRetryDelay)*time.Second,
		mm.FailedMatchMaxRetries,
		log,
	)

	liveGameBreaker := c.breakers.Get(clients.BreakerLiveGame)
	liveGameTimeout := time.Duration(mm.LiveGameTimeoutSeconds) * time.Second
	if mm.LiveGameURL != "" {
		u.gameCreator = clients.NewLiveGameClient(mm.LiveGameURL, liveGameTimeout, liveGameBreaker, log)
	} else {
		u.gameCreator = ticketUsecases.NewLocalGameCreator(u.createGameUC, liveGameBreaker)
	}

	deps := ticketUsecases.Dependencies{
		Tickets: r.ticketRepo,
		Matches: r.matchRecordRepo,
		TxMgr:   r.txMgr,
		Mirror:  cache.NewTicketMirror(c.redis, mm.HeartbeatTimeout()),
		Locks:   cache.NewPoolLock(c.redis, poolLockTTL(mm.CycleIntervalMS)),
		Games:   u.gameCreator,
		Failed:  u.failedMatches,
		Events:  c.eventBus,
		Settings: ticketUsecases.Settings{
			HeartbeatTimeout:  mm.HeartbeatTimeout(),
			ProposalTimeout:   mm.ProposalTimeout(),
			MaxQueueTime:      mm.MaxQueueTime(),
			GameCreateTimeout: liveGameTimeout,
			DefaultRegion:     mm.DefaultRegion,
			Limits: ticket.Limits{
				MaxPartySize:      mm.MaxPartySize,
				MaxPartyMMRSpread: mm.MaxPartyMMRSpread,
			},
			Widening: ticket.WideningPolicy{
				InitialWindow: mm.InitialRatingWindow,
				Step:          mm.WideningStep,
				Interval:      mm.WideningInterval(),
				MaxWindow:     mm.MaxRatingWindow,
			},
		},
		Clock:  biztime.SystemClock,
		Logger: log,
	}

	u.enqueueUC = ticketUsecases.NewEnqueueUseCase(deps)
	u.heartbeatUC = ticketUsecases.NewHeartbeatUseCase(deps)
	u.cancelTicketUC = ticketUsecases.NewCancelTicketUseCase(deps)
	u.updateTicketUC = ticketUsecases.NewUpdateSoftConstraintsUseCase(deps)
	u.getTicketUC = ticketUsecases.NewGetTicketUseCase(r.ticketRepo, log)
	u.acceptUC = ticketUsecases.NewAcceptProposalUseCase(deps)
	u.declineUC = ticketUsecases.NewDeclineProposalUseCase(deps)
	u.matchCycleUC = ticketUsecases.NewRunMatchCycleUseCase(deps)
	u.reapTicketsUC = ticketUsecases.NewReapTicketsUseCase(deps)
	u.retryFailedUC = ticketUsecases.NewRetryFailedMatchesUseCase(deps)
}

// initChallenges needs the game creator from initMatchmaking.
func (c *Container) initChallenges() {
	cfg := c.cfg
	u := c.ucs

	deps := challengeUsecases.Dependencies{
		Challenges:        c.repos.challengeRepo,
		TxMgr:             c.repos.txMgr,
		Games:             u.gameCreator,
		Ratings:           u.getRatingsUC,
		TTL:               time.Duration(cfg.Challenge.TTLSeconds) * time.Second,
		GameCreateTimeout: time.Duration(cfg.Matchmaking.LiveGameTimeoutSeconds) * time.Second,
		Clock:             biztime.SystemClock,
		Logger:            c.log.Named("challenge"),
	}
	u.sendChallengeUC = challengeUsecases.NewCreateChallengeUseCase(deps)
	u.acceptChallengeUC = challengeUsecases.NewAcceptChallengeUseCase(deps)
	u.declineChallengeUC = challengeUsecases.NewDeclineChallengeUseCase(deps)
	u.cancelChallengeUC = challengeUsecases.NewCancelChallengeUseCase(deps)
	u.getChallengeUC = challengeUsecases.NewGetChallengeUseCase(deps)
	u.incomingUC = challengeUsecases.NewListIncomingChallengesUseCase(deps)
	u.expireChallengesUC = challengeUsecases.NewExpireChallengesUseCase(deps)
}

// poolLockTTL outlives a few match cycles so a crashed leader is replaced
// quickly without two leaders overlapping.
func poolLockTTL(cycleMS int) time.Duration {
	ttl := 5 * time.Duration(cycleMS) * time.Millisecond
	return max(ttl, 5*time.Second)
}
