package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corentings/chess/v2"

	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
)

// StandardFEN is the initial position of a standard game.
const StandardFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Termination describes how a position ends the game, if it does.
type Termination struct {
	Over   bool
	Result vo.Result
	Reason vo.EndReason
}

// AppliedMove is the outcome of applying one UCI move to a position.
type AppliedMove struct {
	UCI         string
	SAN         string
	FENAfter    string
	Termination Termination
}

var errIllegalMove = fmt.Errorf("move is not legal in this position")

func loadPosition(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN: %w", err)
	}
	return chess.NewGame(opt), nil
}

// ValidateFEN reports whether fen is a well-formed position.
func ValidateFEN(fen string) error {
	if len(strings.Fields(fen)) != 6 {
		return fmt.Errorf("invalid FEN: expected 6 fields")
	}
	_, err := loadPosition(fen)
	return err
}

// LegalMoves lists every legal move of fen in UCI notation.
func LegalMoves(fen string) ([]string, error) {
	g, err := loadPosition(fen)
	if err != nil {
		return nil, err
	}
	valid := g.ValidMoves()
	out := make([]string, 0, len(valid))
	for _, m := range valid {
		out = append(out, m.String())
	}
	return out, nil
}

// IsLegal reports whether uci is a legal move in fen.
func IsLegal(fen, uci string) bool {
	moves, err := LegalMoves(fen)
	if err != nil {
		return false
	}
	for _, m := range moves {
		if m == uci {
			return true
		}
	}
	return false
}

// ApplyMove plays uci on fen. history holds the FEN of every earlier position
// of the game, oldest first, and is used for repetition detection.
func ApplyMove(fen, uci string, history []string) (*AppliedMove, error) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	g, err := loadPosition(fen)
	if err != nil {
		return nil, err
	}

	var mv *chess.Move
	valid := g.ValidMoves()
	for i := range valid {
		if valid[i].String() == uci {
			m := valid[i]
			mv = &m
			break
		}
	}
	if mv == nil {
		return nil, errIllegalMove
	}

	san := chess.AlgebraicNotation{}.Encode(g.Position(), mv)
	mover := SideToMove(fen)
	if err := g.Move(mv, nil); err != nil {
		return nil, errIllegalMove
	}
	after := g.FEN()

	return &AppliedMove{
		UCI:         uci,
		SAN:         san,
		FENAfter:    after,
		Termination: terminationOf(g, mover, after, append(append([]string(nil), history...), fen)),
	}, nil
}

func terminationOf(g *chess.Game, mover vo.Color, after string, history []string) Termination {
	if g.Outcome() != chess.NoOutcome {
		switch g.Method() {
		case chess.Checkmate:
			return Termination{Over: true, Result: vo.WinFor(mover), Reason: vo.EndCheckmate}
		case chess.Stalemate:
			return Termination{Over: true, Result: vo.ResultDraw, Reason: vo.EndStalemate}
		case chess.InsufficientMaterial:
			return Termination{Over: true, Result: vo.ResultDraw, Reason: vo.EndInsufficientMaterial}
		case chess.FivefoldRepetition:
			return Termination{Over: true, Result: vo.ResultDraw, Reason: vo.EndThreefoldRepetition}
		case chess.SeventyFiveMoveRule:
			return Termination{Over: true, Result: vo.ResultDraw, Reason: vo.EndFiftyMoveRule}
		}
	}

	if HalfmoveClock(after) >= 100 {
		return Termination{Over: true, Result: vo.ResultDraw, Reason: vo.EndFiftyMoveRule}
	}

	key := positionKey(after)
	seen := 1
	for _, f := range history {
		if positionKey(f) == key {
			seen++
		}
	}
	if seen >= 3 {
		return Termination{Over: true, Result: vo.ResultDraw, Reason: vo.EndThreefoldRepetition}
	}
	return Termination{}
}

// positionKey keeps the FEN fields that define position identity for
// repetition: placement, side to move, castling rights and en passant square.
func positionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return fen
	}
	return strings.Join(fields[:4], " ")
}

// SideToMove reads the active colour field of fen.
func SideToMove(fen string) vo.Color {
	fields := strings.Fields(fen)
	if len(fields) >= 2 && fields[1] == "b" {
		return vo.Black
	}
	return vo.White
}

func HalfmoveClock(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 5 {
		return 0
	}
	n, _ := strconv.Atoi(fields[4])
	return n
}

func FullmoveNumber(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
