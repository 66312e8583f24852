package game

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	"github.com/chessforge/gamecore/internal/domain/shared/events"
	"github.com/chessforge/gamecore/internal/shared/id"
)

const DefaultVariant = "standard"

// CoinFlip decides random colour assignment. It returns true for white.
type CoinFlip func() bool

func defaultCoin() bool {
	return rand.IntN(2) == 0
}

// Game is the aggregate root of one chess match. All transitions go through
// its methods and record the domain events to publish after commit.
type Game struct {
	id             string
	creatorID      string
	whiteID        string
	blackID        string
	botID          string
	botColor       vo.Color
	status         vo.GameStatus
	rated          bool
	decisionReason vo.DecisionReason
	variant        string
	timeControl    vo.TimeControl
	whiteClockMS   int64
	blackClockMS   int64
	sideToMove     vo.Color
	fen            string
	startingFEN    string
	isOdds         bool
	isLocal        bool
	moves          []Move
	result         vo.Result
	endReason      vo.EndReason
	drawOfferBy    vo.Color
	createdAt      time.Time
	startedAt      *time.Time
	endedAt        *time.Time
	updatedAt      time.Time

	events []events.DomainEvent
}

type ChallengeParams struct {
	CreatorID       string
	TimeControl     vo.TimeControl
	Variant         string
	ColorPreference vo.ColorPreference
	StartingFEN     string
	IsOdds          bool
	IsLocal         bool
	Decision        Decision
	Now             time.Time
	Coin            CoinFlip
}

// NewChallenge creates a game waiting for an opponent. The creator is seated
// immediately; the other seat is filled by Join.
func NewChallenge(p ChallengeParams) (*Game, error) {
	if p.CreatorID == "" {
		return nil, fmt.Errorf("creator ID is required")
	}
	fen, err := startPosition(p.StartingFEN)
	if err != nil {
		return nil, err
	}
	if p.Coin == nil {
		p.Coin = defaultCoin
	}

	g := newGame(p.TimeControl, p.Variant, fen, p.Now)
	g.creatorID = p.CreatorID
	g.startingFEN = strings.TrimSpace(p.StartingFEN)
	g.isOdds = p.IsOdds
	g.isLocal = p.IsLocal
	g.applyDecision(p.Decision)

	switch p.ColorPreference {
	case vo.PreferWhite:
		g.whiteID = p.CreatorID
	case vo.PreferBlack:
		g.blackID = p.CreatorID
	default:
		if p.Coin() {
			g.whiteID = p.CreatorID
		} else {
			g.blackID = p.CreatorID
		}
	}

	g.recordCreated()
	return g, nil
}

type MatchedParams struct {
	WhiteID     string
	BlackID     string
	TimeControl vo.TimeControl
	Variant     string
	Decision    Decision
	Now         time.Time
}

// NewMatchedGame creates a game for a matchmaking pairing. Both seats are
// filled, so the game starts at creation.
func NewMatchedGame(p MatchedParams) (*Game, error) {
	if p.WhiteID == "" || p.BlackID == "" {
		return nil, fmt.Errorf("both players are required")
	}
	if p.WhiteID == p.BlackID {
		return nil, fmt.Errorf("a player cannot be paired with themselves")
	}

	g := newGame(p.TimeControl, p.Variant, StandardFEN, p.Now)
	g.creatorID = p.WhiteID
	g.whiteID = p.WhiteID
	g.blackID = p.BlackID
	g.applyDecision(p.Decision)

	g.recordCreated()
	g.start(p.Now)
	return g, nil
}

type BotGameParams struct {
	CreatorID   string
	Bot         BotIdentity
	PlayerColor vo.ColorPreference
	TimeControl vo.TimeControl
	Now         time.Time
	Coin        CoinFlip
}

// NewBotGame seats the creator against a bot and starts immediately.
// Bot games are never rated.
func NewBotGame(p BotGameParams) (*Game, error) {
	if p.CreatorID == "" {
		return nil, fmt.Errorf("creator ID is required")
	}
	if p.Bot.ID == "" {
		return nil, fmt.Errorf("bot is required")
	}
	if p.Coin == nil {
		p.Coin = defaultCoin
	}

	humanColor := vo.White
	switch p.PlayerColor {
	case vo.PreferBlack:
		humanColor = vo.Black
	case vo.PreferRandom, "":
		if !p.Coin() {
			humanColor = vo.Black
		}
	}

	g := newGame(p.TimeControl, DefaultVariant, StandardFEN, p.Now)
	g.creatorID = p.CreatorID
	g.botID = p.Bot.ID
	g.botColor = humanColor.Opposite()
	g.seat(humanColor, p.CreatorID)
	g.seat(g.botColor, p.Bot.ID)
	g.applyDecision(RatingPolicy{}.Decide(DecisionInput{IsBotGame: true}))

	g.recordCreated()
	g.start(p.Now)
	return g, nil
}

func newGame(tc vo.TimeControl, variant, fen string, now time.Time) *Game {
	if variant == "" {
		variant = DefaultVariant
	}
	return &Game{
		id:           id.New(),
		status:       vo.StatusWaiting,
		variant:      variant,
		timeControl:  tc,
		whiteClockMS: tc.InitialMS,
		blackClockMS: tc.InitialMS,
		sideToMove:   SideToMove(fen),
		fen:          fen,
		moves:        []Move{},
		createdAt:    now,
		updatedAt:    now,
	}
}

func startPosition(fen string) (string, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return StandardFEN, nil
	}
	if err := ValidateFEN(fen); err != nil {
		return "", ErrInvalidFEN
	}
	return fen, nil
}

// ReconstructGame rebuilds an aggregate from persisted state.
func ReconstructGame(s State) (*Game, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("game ID is required")
	}
	if !s.Status.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", s.Status)
	}
	moves := make([]Move, len(s.Moves))
	copy(moves, s.Moves)

	return &Game{
		id:             s.ID,
		creatorID:      s.CreatorID,
		whiteID:        s.WhiteID,
		blackID:        s.BlackID,
		botID:          s.BotID,
		botColor:       s.BotColor,
		status:         s.Status,
		rated:          s.Rated,
		decisionReason: s.DecisionReason,
		variant:        s.Variant,
		timeControl:    s.TimeControl,
		whiteClockMS:   s.WhiteClockMS,
		blackClockMS:   s.BlackClockMS,
		sideToMove:     s.SideToMove,
		fen:            s.FEN,
		startingFEN:    s.StartingFEN,
		isOdds:         s.IsOdds,
		isLocal:        s.IsLocal,
		moves:          moves,
		result:         s.Result,
		endReason:      s.EndReason,
		drawOfferBy:    s.DrawOfferBy,
		createdAt:      s.CreatedAt,
		startedAt:      s.StartedAt,
		endedAt:        s.EndedAt,
		updatedAt:      s.UpdatedAt,
	}, nil
}

func (g *Game) ID() string                        { return g.id }
func (g *Game) CreatorID() string                 { return g.creatorID }
func (g *Game) WhiteID() string                   { return g.whiteID }
func (g *Game) BlackID() string                   { return g.blackID }
func (g *Game) BotID() string                     { return g.botID }
func (g *Game) BotColor() vo.Color                { return g.botColor }
func (g *Game) Status() vo.GameStatus             { return g.status }
func (g *Game) Rated() bool                       { return g.rated }
func (g *Game) DecisionReason() vo.DecisionReason { return g.decisionReason }
func (g *Game) Variant() string                   { return g.variant }
func (g *Game) TimeControl() vo.TimeControl       { return g.timeControl }
func (g *Game) WhiteClockMS() int64               { return g.whiteClockMS }
func (g *Game) BlackClockMS() int64               { return g.blackClockMS }
func (g *Game) SideToMove() vo.Color              { return g.sideToMove }
func (g *Game) FEN() string                       { return g.fen }
func (g *Game) StartingFEN() string               { return g.startingFEN }
func (g *Game) IsOdds() bool                      { return g.isOdds }
func (g *Game) IsLocal() bool                     { return g.isLocal }
func (g *Game) Result() vo.Result                 { return g.result }
func (g *Game) EndReason() vo.EndReason           { return g.endReason }
func (g *Game) DrawOfferBy() vo.Color             { return g.drawOfferBy }
func (g *Game) CreatedAt() time.Time              { return g.createdAt }
func (g *Game) StartedAt() *time.Time             { return g.startedAt }
func (g *Game) EndedAt() *time.Time               { return g.endedAt }
func (g *Game) UpdatedAt() time.Time              { return g.updatedAt }

func (g *Game) Moves() []Move {
	out := make([]Move, len(g.moves))
	copy(out, g.moves)
	return out
}

func (g *Game) MoveCount() int {
	return len(g.moves)
}

func (g *Game) LastMove() *Move {
	if len(g.moves) == 0 {
		return nil
	}
	m := g.moves[len(g.moves)-1]
	return &m
}

func (g *Game) IsBotGame() bool {
	return g.botID != ""
}

// IsBotTurn reports whether the bot must move next.
func (g *Game) IsBotTurn() bool {
	return g.IsBotGame() && g.status == vo.StatusInProgress && g.sideToMove == g.botColor
}

// ColorOf returns the seat of playerID.
func (g *Game) ColorOf(playerID string) (vo.Color, bool) {
	switch {
	case playerID == "":
		return "", false
	case g.whiteID == playerID:
		return vo.White, true
	case g.blackID == playerID:
		return vo.Black, true
	}
	return "", false
}

func (g *Game) IsParticipant(playerID string) bool {
	_, ok := g.ColorOf(playerID)
	return ok
}

// PlayerFor returns the account seated on colour c.
func (g *Game) PlayerFor(c vo.Color) string {
	if c == vo.White {
		return g.whiteID
	}
	return g.blackID
}

// DecisionInput describes this game to the rating decision engine.
func (g *Game) DecisionInput(requestedRated bool) DecisionInput {
	return DecisionInput{
		RequestedRated: requestedRated,
		IsLocal:        g.isLocal,
		HasCustomFEN:   g.startingFEN != "",
		IsOdds:         g.isOdds,
		IsBotGame:      g.IsBotGame(),
	}
}

// Join seats opponentID in the open seat and starts the game. The open seat
// decides the colour; pref only has to be a valid preference.
func (g *Game) Join(opponentID string, pref vo.ColorPreference, now time.Time) error {
	if opponentID == "" {
		return fmt.Errorf("opponent ID is required")
	}
	if g.status != vo.StatusWaiting {
		return ErrGameFull
	}
	if g.IsParticipant(opponentID) || opponentID == g.creatorID {
		return ErrCannotJoinOwnGame
	}
	if _, err := vo.NewColorPreference(string(pref)); err != nil {
		return err
	}

	switch {
	case g.whiteID == "":
		g.whiteID = opponentID
	case g.blackID == "":
		g.blackID = opponentID
	default:
		return ErrGameFull
	}

	g.start(now)
	return nil
}

// RecheckRated downgrades a manual rated game once both ratings are known.
// It must run before the game starts.
func (g *Game) RecheckRated(policy RatingPolicy, whiteRating, blackRating *int) {
	if g.status != vo.StatusWaiting || !g.rated {
		return
	}
	in := g.DecisionInput(true)
	in.Player1Rating = whiteRating
	in.Player2Rating = blackRating
	g.applyDecision(policy.Decide(in))
}

func (g *Game) start(now time.Time) {
	g.status = vo.StatusInProgress
	g.whiteClockMS = g.timeControl.InitialMS
	g.blackClockMS = g.timeControl.InitialMS
	g.sideToMove = SideToMove(g.fen)
	started := now
	g.startedAt = &started
	g.updatedAt = now

	g.events = append(g.events, GameStartedEvent{
		BaseEvent: events.NewBaseEvent(EventGameStarted, g.id, now),
		WhiteID:   g.whiteID,
		BlackID:   g.blackID,
		StartedAt: now,
	})
}

// PlayMove validates and applies a move by playerID. A nil move with a nil
// error means the mover's flag had already fallen and the game ended on time.
func (g *Game) PlayMove(playerID, from, to, promotion string, now time.Time) (*Move, error) {
	if g.status != vo.StatusInProgress {
		return nil, ErrNotInProgress
	}
	color, ok := g.ColorOf(playerID)
	if !ok {
		return nil, ErrNotAPlayer
	}
	if color != g.sideToMove {
		return nil, ErrNotYourTurn
	}

	elapsed := g.elapsedSinceLastMove(now)
	if g.clockOf(color)-elapsed <= 0 {
		g.setClock(color, 0)
		g.end(vo.WinFor(color.Opposite()), vo.EndTimeout, now)
		return nil, nil
	}

	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	promotion = strings.ToLower(strings.TrimSpace(promotion))
	applied, err := ApplyMove(g.fen, from+to+promotion, g.positionHistory())
	if err != nil {
		return nil, ErrIllegalMove
	}

	move := Move{
		Ply:        len(g.moves) + 1,
		MoveNumber: FullmoveNumber(g.fen),
		Color:      color,
		FromSquare: from,
		ToSquare:   to,
		Promotion:  promotion,
		SAN:        applied.SAN,
		FENAfter:   applied.FENAfter,
		PlayedAt:   now,
		ElapsedMS:  elapsed,
	}

	g.setClock(color, g.clockOf(color)-elapsed+g.timeControl.IncrementMS)
	g.moves = append(g.moves, move)
	g.fen = applied.FENAfter
	g.sideToMove = color.Opposite()
	g.drawOfferBy = ""
	g.updatedAt = now

	g.events = append(g.events, MovePlayedEvent{
		BaseEvent:    events.NewBaseEvent(EventMovePlayed, g.id, now),
		Move:         move,
		FEN:          g.fen,
		WhiteClockMS: g.whiteClockMS,
		BlackClockMS: g.blackClockMS,
	})

	if applied.Termination.Over {
		g.end(applied.Termination.Result, applied.Termination.Reason, now)
	}
	return &move, nil
}

// Resign ends the game in favour of the opponent of playerID.
func (g *Game) Resign(playerID string, now time.Time) error {
	if g.status != vo.StatusInProgress {
		return ErrNotInProgress
	}
	color, ok := g.ColorOf(playerID)
	if !ok {
		return ErrNotAPlayer
	}
	g.end(vo.WinFor(color.Opposite()), vo.EndResignation, now)
	return nil
}

// Takeback pops the last move of an unrated game and returns it.
func (g *Game) Takeback(playerID string, now time.Time) (*Move, error) {
	if g.status != vo.StatusInProgress {
		return nil, ErrNotInProgress
	}
	if !g.IsParticipant(playerID) {
		return nil, ErrNotAPlayer
	}
	if g.rated {
		return nil, ErrTakebackNotAllowed
	}
	if len(g.moves) == 0 {
		return nil, ErrNothingToTakeBack
	}

	last := g.moves[len(g.moves)-1]
	g.moves = g.moves[:len(g.moves)-1]
	if len(g.moves) > 0 {
		g.fen = g.moves[len(g.moves)-1].FENAfter
	} else if g.startingFEN != "" {
		g.fen = g.startingFEN
	} else {
		g.fen = StandardFEN
	}
	g.sideToMove = g.sideToMove.Opposite()
	g.drawOfferBy = ""
	g.updatedAt = now
	return &last, nil
}

// SetPosition replaces the starting position before the game begins.
func (g *Game) SetPosition(playerID, fen string, now time.Time) error {
	if playerID != g.creatorID {
		return ErrCreatorOnly
	}
	if g.rated {
		return ErrBoardEditNotAllowed
	}
	if g.status != vo.StatusWaiting {
		return ErrAlreadyStarted
	}
	fen = strings.TrimSpace(fen)
	if err := ValidateFEN(fen); err != nil {
		return ErrInvalidFEN
	}

	g.startingFEN = fen
	g.fen = fen
	g.sideToMove = SideToMove(fen)
	g.updatedAt = now
	return nil
}

// UpdateRated stores the decision computed for the creator's request.
func (g *Game) UpdateRated(playerID string, d Decision, now time.Time) error {
	if playerID != g.creatorID {
		return ErrCreatorOnly
	}
	if g.status != vo.StatusWaiting {
		return ErrRatedLocked
	}
	g.applyDecision(d)
	g.updatedAt = now
	return nil
}

// OfferDraw records a pending draw offer from playerID. Bots never accept.
func (g *Game) OfferDraw(playerID string, now time.Time) error {
	if g.status != vo.StatusInProgress {
		return ErrNotInProgress
	}
	color, ok := g.ColorOf(playerID)
	if !ok {
		return ErrNotAPlayer
	}
	if g.IsBotGame() {
		return ErrBotDeclinesDraw
	}
	g.drawOfferBy = color
	g.updatedAt = now
	return nil
}

// AcceptDraw ends the game drawn when the opponent has an offer pending.
func (g *Game) AcceptDraw(playerID string, now time.Time) error {
	if g.status != vo.StatusInProgress {
		return ErrNotInProgress
	}
	color, ok := g.ColorOf(playerID)
	if !ok {
		return ErrNotAPlayer
	}
	if g.drawOfferBy == "" || g.drawOfferBy == color {
		return ErrNoDrawOffer
	}
	g.end(vo.ResultDraw, vo.EndDrawAgreed, now)
	return nil
}

// CheckTimeout ends the game when the side to move has run out of time.
func (g *Game) CheckTimeout(now time.Time) bool {
	if g.status != vo.StatusInProgress {
		return false
	}
	if g.clockOf(g.sideToMove)-g.elapsedSinceLastMove(now) > 0 {
		return false
	}
	g.setClock(g.sideToMove, 0)
	g.end(vo.WinFor(g.sideToMove.Opposite()), vo.EndTimeout, now)
	return true
}

// Stalled reports whether Expire would end the game at now.
func (g *Game) Stalled(now time.Time, abandonAfter time.Duration) bool {
	if g.status != vo.StatusInProgress {
		return false
	}
	elapsed := g.elapsedSinceLastMove(now)
	if abandonAfter > 0 && len(g.moves) < 2 && elapsed >= abandonAfter.Milliseconds() {
		return true
	}
	return g.clockOf(g.sideToMove)-elapsed <= 0
}

// Expire ends a game nobody is moving in. A side that never made its first
// move within abandonAfter abandons the game, which carries no result.
// Otherwise the game ends on time once the mover's clock is spent.
func (g *Game) Expire(now time.Time, abandonAfter time.Duration) bool {
	if g.status != vo.StatusInProgress {
		return false
	}
	if abandonAfter > 0 && len(g.moves) < 2 && g.elapsedSinceLastMove(now) >= abandonAfter.Milliseconds() {
		g.end("", vo.EndAbandoned, now)
		return true
	}
	return g.CheckTimeout(now)
}

// ClocksAt returns both clocks as they read at now, running the mover's clock.
func (g *Game) ClocksAt(now time.Time) (white, black int64) {
	white, black = g.whiteClockMS, g.blackClockMS
	if g.status != vo.StatusInProgress {
		return white, black
	}
	elapsed := g.elapsedSinceLastMove(now)
	if g.sideToMove == vo.White {
		white = max(white-elapsed, 0)
	} else {
		black = max(black-elapsed, 0)
	}
	return white, black
}

// PullEvents returns and clears the events recorded since the last call.
func (g *Game) PullEvents() []events.DomainEvent {
	out := g.events
	g.events = nil
	return out
}

func (g *Game) end(result vo.Result, reason vo.EndReason, now time.Time) {
	g.status = vo.StatusEnded
	g.result = result
	g.endReason = reason
	ended := now
	g.endedAt = &ended
	g.drawOfferBy = ""
	g.updatedAt = now

	g.events = append(g.events, GameEndedEvent{
		BaseEvent:   events.NewBaseEvent(EventGameEnded, g.id, now),
		WhiteID:     g.whiteID,
		BlackID:     g.blackID,
		BotID:       g.botID,
		Result:      result,
		EndReason:   reason,
		TimeControl: g.timeControl,
		Variant:     g.variant,
		Rated:       g.rated,
		MoveCount:   len(g.moves),
		EndedAt:     now,
	})
}

func (g *Game) recordCreated() {
	g.events = append(g.events, GameCreatedEvent{
		BaseEvent:      events.NewBaseEvent(EventGameCreated, g.id, g.createdAt),
		CreatorID:      g.creatorID,
		WhiteID:        g.whiteID,
		BlackID:        g.blackID,
		BotID:          g.botID,
		Variant:        g.variant,
		TimeControl:    g.timeControl,
		Rated:          g.rated,
		DecisionReason: g.decisionReason,
	})
}

func (g *Game) applyDecision(d Decision) {
	if d.Reason == "" {
		d.Reason = vo.DecisionManual
	}
	g.rated = d.Rated && d.Reason == vo.DecisionManual
	g.decisionReason = d.Reason
}

func (g *Game) seat(c vo.Color, playerID string) {
	if c == vo.White {
		g.whiteID = playerID
	} else {
		g.blackID = playerID
	}
}

func (g *Game) clockOf(c vo.Color) int64 {
	if c == vo.White {
		return g.whiteClockMS
	}
	return g.blackClockMS
}

func (g *Game) setClock(c vo.Color, ms int64) {
	if c == vo.White {
		g.whiteClockMS = ms
	} else {
		g.blackClockMS = ms
	}
}

func (g *Game) elapsedSinceLastMove(now time.Time) int64 {
	var since time.Time
	switch {
	case len(g.moves) > 0:
		since = g.moves[len(g.moves)-1].PlayedAt
	case g.startedAt != nil:
		since = *g.startedAt
	default:
		return 0
	}
	elapsed := now.Sub(since).Milliseconds()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// positionHistory lists every position before the current one, oldest first.
func (g *Game) positionHistory() []string {
	if len(g.moves) == 0 {
		return nil
	}
	start := StandardFEN
	if g.startingFEN != "" {
		start = g.startingFEN
	}
	history := make([]string, 0, len(g.moves))
	history = append(history, start)
	for i := 0; i < len(g.moves)-1; i++ {
		history = append(history, g.moves[i].FENAfter)
	}
	return history
}
