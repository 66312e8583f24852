package bot

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/application/bot/usecases"
	domain "github.com/chessforge/gamecore/internal/domain/bot"
	"github.com/chessforge/gamecore/internal/interfaces/http/handlers/testutil"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type mockChooser struct {
	got usecases.ChooseMoveCommand
}

func (m *mockChooser) Execute(_ context.Context, cmd usecases.ChooseMoveCommand) (*domain.MoveResponse, error) {
	m.got = cmd
	if cmd.BotID == "bot-ghost-1" {
		return nil, usecases.ErrBotNotConfigured
	}
	return &domain.MoveResponse{GameID: cmd.Request.GameID, BotID: cmd.BotID, Move: "e2e4", ThinkingTimeMS: 250}, nil
}

type mockRecent struct {
	botID string
	limit int
}

func (m *mockRecent) Execute(_ context.Context, botID string, limit int) []domain.RecordedMove {
	m.botID, m.limit = botID, limit
	return []domain.RecordedMove{{MoveResponse: domain.MoveResponse{BotID: "bot-easy-800", Move: "e2e4"}}}
}

func TestChooseMove(t *testing.T) {
	chooser := &mockChooser{}
	h := NewHandler(chooser, &mockRecent{}, logger.NewNopLogger())

	c, w := testutil.NewTestContext(http.MethodPost, "/v1/bots/bot-easy-800/move", map[string]any{
		"game_id":     "g-1",
		"fen":         startFEN,
		"move_number": 1,
		"bot_color":   "w",
		"clocks":      map[string]int64{"white_ms": 60000, "black_ms": 60000},
		"metadata":    map[string]any{"seed": 42},
	})
	testutil.SetURLParam(c, "bot_id", "bot-easy-800")
	h.ChooseMove(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, chooser.got.Request.Seed)
	assert.Equal(t, uint64(42), *chooser.got.Request.Seed)
	assert.Equal(t, int64(60000), chooser.got.Request.Clocks.WhiteMS)

	var resp domain.MoveResponse
	_, err := testutil.Decode(w, &resp)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", resp.Move)
}

func TestChooseMoveErrors(t *testing.T) {
	h := NewHandler(&mockChooser{}, &mockRecent{}, logger.NewNopLogger())

	c, w := testutil.NewTestContext(http.MethodPost, "/v1/bots/bot-ghost-1/move", map[string]any{
		"game_id": "g-1", "fen": startFEN, "bot_color": "b",
	})
	testutil.SetURLParam(c, "bot_id", "bot-ghost-1")
	h.ChooseMove(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = testutil.NewTestContext(http.MethodPost, "/v1/bots/bot-easy-800/move", map[string]any{
		"game_id": "g-1", "fen": "not a fen", "bot_color": "b",
	})
	testutil.SetURLParam(c, "bot_id", "bot-easy-800")
	h.ChooseMove(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecentMoves(t *testing.T) {
	recent := &mockRecent{}
	h := NewHandler(&mockChooser{}, recent, logger.NewNopLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/v1/bots/moves/recent?bot_id=bot-easy-800&limit=5", nil)
	h.RecentMoves(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bot-easy-800", recent.botID)
	assert.Equal(t, 5, recent.limit)

	c, w = testutil.NewTestContext(http.MethodGet, "/v1/bots/moves/recent?limit=abc", nil)
	h.RecentMoves(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
