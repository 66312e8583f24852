package usecases

import (
	"context"

	"github.com/chessforge/gamecore/internal/domain/bot"
)

type mockEngine struct {
	EvaluateFunc func(ctx context.Context, fen, side string, q bot.EngineQuery) ([]bot.Candidate, error)
	queries      []bot.EngineQuery
}

func (m *mockEngine) Evaluate(ctx context.Context, fen, side string, q bot.EngineQuery) ([]bot.Candidate, error) {
	m.queries = append(m.queries, q)
	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(ctx, fen, side, q)
	}
	return nil, nil
}

type mockKnowledge struct {
	BookMoveFunc      func(ctx context.Context, fen, repertoire string) (string, error)
	TablebaseMoveFunc func(ctx context.Context, fen string) (string, error)
}

func (m *mockKnowledge) BookMove(ctx context.Context, fen, repertoire string) (string, error) {
	if m.BookMoveFunc != nil {
		return m.BookMoveFunc(ctx, fen, repertoire)
	}
	return "", nil
}

func (m *mockKnowledge) TablebaseMove(ctx context.Context, fen string) (string, error) {
	if m.TablebaseMoveFunc != nil {
		return m.TablebaseMoveFunc(ctx, fen)
	}
	return "", nil
}
