package http

import (
	"time"

	"github.com/chessforge/gamecore/internal/infrastructure/ratelimit"
	bothandlers "github.com/chessforge/gamecore/internal/interfaces/http/handlers/bot"
	challengehandlers "github.com/chessforge/gamecore/internal/interfaces/http/handlers/challenge"
	gamehandlers "github.com/chessforge/gamecore/internal/interfaces/http/handlers/game"
	ratinghandlers "github.com/chessforge/gamecore/internal/interfaces/http/handlers/rating"
	tickethandlers "github.com/chessforge/gamecore/internal/interfaces/http/handlers/ticket"
	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
)

type allHandlers struct {
	ticket    *tickethandlers.Handler
	challenge *challengehandlers.Handler
	game      *gamehandlers.Handler
	ws        *gamehandlers.WSHandler
	rating    *ratinghandlers.Handler
	bot       *bothandlers.Handler
}

func (c *Container) initHandlers() {
	cfg := c.cfg
	u := c.ucs

	c.authMiddleware = middleware.NewAuthMiddleware(c.jwtSvc, c.log)

	if rl := &cfg.RateLimit; rl.Enabled {
		limiter := ratelimit.NewRedisLimiter(c.redis)
		c.ipRateLimiter = middleware.NewRateLimiter(
			limiter, rl.IPLimit, time.Duration(rl.IPWindowSeconds)*time.Second, middleware.ByIP, c.log,
		)
		c.moveRateLimiter = middleware.NewRateLimiter(
			limiter, rl.MoveLimit, time.Duration(rl.MoveWindowSeconds)*time.Second, middleware.ByMoveSubmitter, c.log,
		)
	}

	gameUC := gamehandlers.UseCases{
		CreateChallenge: u.createChallengeUC,
		CreateGame:      u.createGameUC,
		CreateBotGame:   u.createBotGameUC,
		Join:            u.joinGameUC,
		Move:            u.playMoveUC,
		Resign:          u.resignUC,
		Takeback:        u.takebackUC,
		SetPosition:     u.setPositionUC,
		UpdateRated:     u.updateRatedUC,
		Draw:            u.drawUC,
		Get:             u.getGameUC,
	}

	ws := gamehandlers.NewWSHandler(c.broker, u.getGameUC, c.jwtSvc, c.metrics, c.log.Named("ws"))
	if cfg.RateLimit.Enabled {
		ws = ws.WithInboundLimit(float64(cfg.RateLimit.WSMessagesPerSecond), cfg.RateLimit.WSBurst)
	}

	c.hdlrs = &allHandlers{
		ticket: tickethandlers.NewHandler(tickethandlers.UseCases{
			Enqueue:   u.enqueueUC,
			Heartbeat: u.heartbeatUC,
			Cancel:    u.cancelTicketUC,
			Update:    u.updateTicketUC,
			Get:       u.getTicketUC,
			Accept:    u.acceptUC,
			Decline:   u.declineUC,
		}, c.log),
		challenge: challengehandlers.NewHandler(challengehandlers.UseCases{
			Create:   u.sendChallengeUC,
			Accept:   u.acceptChallengeUC,
			Decline:  u.declineChallengeUC,
			Cancel:   u.cancelChallengeUC,
			Get:      u.getChallengeUC,
			Incoming: u.incomingUC,
		}, c.log),
		game: gamehandlers.NewHandler(gameUC, c.log),
		ws:   ws,
		rating: ratinghandlers.NewHandler(ratinghandlers.UseCases{
			Ingest:      u.ingestUC,
			Ratings:     u.getRatingsUC,
			Leaderboard: u.leaderboardUC,
			Backfill:    u.backfill,
		}, c.log),
		bot: bothandlers.NewHandler(u.chooseMoveUC, u.recentMovesUC, c.log),
	}
}
