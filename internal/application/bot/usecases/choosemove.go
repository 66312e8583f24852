package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chessforge/gamecore/internal/domain/bot"
	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	DefaultTotalTimeout     = 30 * time.Second
	DefaultKnowledgeTimeout = 5 * time.Second
	DefaultEngineTimeout    = 20 * time.Second
)

const noteCircuitOpen = "circuit_open"

// EngineClient asks the engine cluster for candidate lines.
type EngineClient interface {
	Evaluate(ctx context.Context, fen, sideToMove string, q bot.EngineQuery) ([]bot.Candidate, error)
}

// KnowledgeClient looks positions up in the opening book and tablebases.
// A miss is "", nil.
type KnowledgeClient interface {
	BookMove(ctx context.Context, fen, repertoire string) (string, error)
	TablebaseMove(ctx context.Context, fen string) (string, error)
}

type SpecProvider interface {
	Spec(ctx context.Context, botID string) (bot.Spec, error)
}

type Timeouts struct {
	Total     time.Duration
	Knowledge time.Duration
	Engine    time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Total <= 0 {
		t.Total = DefaultTotalTimeout
	}
	if t.Knowledge <= 0 {
		t.Knowledge = DefaultKnowledgeTimeout
	}
	if t.Engine <= 0 {
		t.Engine = DefaultEngineTimeout
	}
	return t
}

type ChooseMoveCommand struct {
	BotID   string
	Request bot.MoveRequest
}

// ChooseMoveUseCase runs the bot decision pipeline: book, tablebase, engine,
// mistake model and style. It always answers with a legal move unless the
// position has none.
type ChooseMoveUseCase struct {
	specs     SpecProvider
	engine    EngineClient
	knowledge KnowledgeClient
	moves     *bot.MoveLog
	timeouts  Timeouts
	logger    logger.Interface
}

func NewChooseMoveUseCase(
	specs SpecProvider,
	engine EngineClient,
	knowledge KnowledgeClient,
	moves *bot.MoveLog,
	timeouts Timeouts,
	logger logger.Interface,
) *ChooseMoveUseCase {
	return &ChooseMoveUseCase{
		specs:     specs,
		engine:    engine,
		knowledge: knowledge,
		moves:     moves,
		timeouts:  timeouts.withDefaults(),
		logger:    logger,
	}
}

func (uc *ChooseMoveUseCase) Execute(ctx context.Context, cmd ChooseMoveCommand) (*bot.MoveResponse, error) {
	req := cmd.Request
	uc.logger.Infow("executing choose move use case",
		"bot_id", cmd.BotID,
		"game_id", req.GameID,
		"move_number", req.MoveNumber,
	)

	if err := game.ValidateFEN(req.FEN); err != nil {
		return nil, apperrors.NewValidationError("invalid fen", err.Error()).WithReason(apperrors.ReasonInvalidFEN)
	}
	spec, err := uc.specs.Spec(ctx, cmd.BotID)
	if err != nil {
		return nil, err
	}

	pipeCtx, cancel := context.WithTimeout(ctx, uc.timeouts.Total)
	defer cancel()

	type outcome struct {
		resp *bot.MoveResponse
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := uc.choose(pipeCtx, cmd.BotID, spec, req)
		done <- outcome{resp, err}
	}()

	var resp *bot.MoveResponse
	select {
	case o := <-done:
		resp, err = o.resp, o.err
	case <-pipeCtx.Done():
		err = pipeCtx.Err()
	}
	if err != nil {
		if ctx.Err() != nil || pipeCtx.Err() == nil {
			return nil, err
		}
		uc.logger.Warnw("bot move timed out, using fallback move",
			"bot_id", cmd.BotID,
			"game_id", req.GameID,
			"timeout", uc.timeouts.Total,
		)
		resp, err = uc.fallback(cmd.BotID, req, int(uc.timeouts.Total/time.Millisecond))
		if err != nil {
			return nil, err
		}
	}

	uc.moves.Record(*resp, biztime.NowUTC())
	return resp, nil
}

// RequestMove lets the live-game side call the pipeline in process, with the
// same contract as the remote bot client.
func (uc *ChooseMoveUseCase) RequestMove(ctx context.Context, botID string, req bot.MoveRequest) (*bot.MoveResponse, error) {
	return uc.Execute(ctx, ChooseMoveCommand{BotID: botID, Request: req})
}

func (uc *ChooseMoveUseCase) choose(ctx context.Context, botID string, spec bot.Spec, req bot.MoveRequest) (*bot.MoveResponse, error) {
	phase := bot.DetectPhase(req.MoveNumber)
	var notes []string

	if phase.UseBook && spec.Opening.UseBookUntilPly >= 2*req.MoveNumber {
		move, err := uc.lookup(ctx, func(ctx context.Context) (string, error) {
			return uc.knowledge.BookMove(ctx, req.FEN, spec.Opening.Repertoire)
		})
		if err != nil {
			notes = uc.noteFailure(notes, "opening book", err)
		} else if move != "" && game.IsLegal(req.FEN, move) {
			return knowledgeResponse(botID, req, move, bot.PhaseOpening, bot.BookThinkingMS), nil
		}
	}

	if phase.UseTablebase && spec.Endgame.AllowTablebases {
		move, err := uc.lookup(ctx, func(ctx context.Context) (string, error) {
			return uc.knowledge.TablebaseMove(ctx, req.FEN)
		})
		if err != nil {
			notes = uc.noteFailure(notes, "tablebase", err)
		} else if move != "" && spec.Endgame.ReduceMistakesInSimpleEndings && game.IsLegal(req.FEN, move) {
			return knowledgeResponse(botID, req, move, bot.PhaseEndgame, bot.TablebaseThinkingMS), nil
		}
	}

	remaining := req.RemainingMS()
	query := bot.DecideEngineParams(spec.Search, remaining, phase.Phase)
	thinking := query.TimeLimitMS

	engineCtx, cancel := context.WithTimeout(ctx, uc.timeouts.Engine)
	candidates, err := uc.engine.Evaluate(engineCtx, req.FEN, sideName(req.FEN), query)
	cancel()
	switch {
	case err == nil && len(candidates) > 0:
	case apperrors.HasReason(err, apperrors.ReasonCircuitOpen):
		candidates, err = mockCandidates(req.FEN, query.MultiPV)
		if err != nil {
			return nil, err
		}
		thinking = spec.Search.ThinkTimeMSMin
		notes = append(notes, noteCircuitOpen)
		uc.logger.Warnw("engine circuit open, using mocked candidates", "bot_id", botID, "game_id", req.GameID)
	default:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		uc.logger.Warnw("engine evaluation failed, using fallback move", "bot_id", botID, "error", err)
		return uc.fallback(botID, req, query.TimeLimitMS)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Eval > candidates[j].Eval })

	rng := bot.NewRand(req.Seed)
	mistake := bot.SampleMistake(spec.MistakeModel, remaining, rng)
	allowed := bot.MistakeBand(candidates, mistake)
	if len(allowed) == 0 {
		allowed = candidates
	}
	chosen, label := bot.ApplyStyle(allowed, spec.Style, rng)

	resp := &bot.MoveResponse{
		GameID:         req.GameID,
		BotID:          botID,
		Move:           chosen.Move,
		ThinkingTimeMS: thinking,
	}
	if req.Debug {
		resp.Debug = &bot.DebugInfo{
			Phase:       phase.Phase,
			MistakeType: mistake,
			EngineQuery: &query,
			Candidates:  allowed,
			Chosen: &bot.ChosenReason{
				StyleBias: label,
				EvalLoss:  math.Round((allowed[0].Eval-chosen.Eval)*100) / 100,
			},
			Notes: notes,
		}
	}
	return resp, nil
}

func (uc *ChooseMoveUseCase) lookup(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeouts.Knowledge)
	defer cancel()
	return fn(ctx)
}

func (uc *ChooseMoveUseCase) noteFailure(notes []string, source string, err error) []string {
	uc.logger.Warnw(source+" query failed, continuing to engine", "error", err)
	if apperrors.HasReason(err, apperrors.ReasonCircuitOpen) {
		return append(notes, noteCircuitOpen)
	}
	return notes
}

// fallback plays a uniformly random legal move.
func (uc *ChooseMoveUseCase) fallback(botID string, req bot.MoveRequest, thinkingMS int) (*bot.MoveResponse, error) {
	legal, err := game.LegalMoves(req.FEN)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid fen", err.Error()).WithReason(apperrors.ReasonInvalidFEN)
	}
	if len(legal) == 0 {
		return nil, apperrors.NewValidationError("position has no legal moves")
	}
	rng := bot.NewRand(req.Seed)
	resp := &bot.MoveResponse{
		GameID:         req.GameID,
		BotID:          botID,
		Move:           legal[rng.IntN(len(legal))],
		ThinkingTimeMS: thinkingMS,
	}
	if req.Debug {
		resp.Debug = &bot.DebugInfo{Phase: bot.PhaseFallback, MistakeType: bot.MistakeNone}
	}
	return resp, nil
}

func knowledgeResponse(botID string, req bot.MoveRequest, move string, phase bot.Phase, thinkingMS int) *bot.MoveResponse {
	resp := &bot.MoveResponse{GameID: req.GameID, BotID: botID, Move: move, ThinkingTimeMS: thinkingMS}
	if req.Debug {
		resp.Debug = &bot.DebugInfo{Phase: phase, MistakeType: bot.MistakeNone}
	}
	return resp
}

// mockCandidates stands in for the engine while its circuit is open. The
// first legal moves get gently decreasing evaluations so the mistake model
// still has a spread to work with.
func mockCandidates(fen string, n int) ([]bot.Candidate, error) {
	legal, err := game.LegalMoves(fen)
	if err != nil {
		return nil, fmt.Errorf("mock candidates: %w", err)
	}
	if len(legal) == 0 {
		return nil, errors.New("position has no legal moves")
	}
	n = max(min(n, len(legal)), 1)
	out := make([]bot.Candidate, n)
	for i := range n {
		out[i] = bot.Candidate{Move: legal[i], Eval: 0.30 - 0.15*float64(i), Depth: 1}
	}
	return out, nil
}

func sideName(fen string) string {
	if game.SideToMove(fen) == vo.Black {
		return "black"
	}
	return "white"
}
