package usecases

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/clients"
	"github.com/chessforge/gamecore/internal/infrastructure/matchqueue"
	"github.com/chessforge/gamecore/internal/infrastructure/messaging"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/id"
)

// MatchResult describes a finalized pairing. GameID is empty while game
// creation waits in the retry queue.
type MatchResult struct {
	MatchID string `json:"match_id"`
	GameID  string `json:"game_id,omitempty"`
	WhiteID string `json:"white_user_id"`
	BlackID string `json:"black_user_id"`
	Pending bool   `json:"pending"`
}

func coinFlip() bool {
	return rand.IntN(2) == 0
}

// finalize turns a fully accepted proposal into a match: tickets become
// matched, the game is created and the match is recorded and published.
// When the game cannot be created the pairing is parked in the failed
// matches queue and the result is marked pending.
func (m *matchmaker) finalize(ctx context.Context, proposalID string) (*MatchResult, error) {
	var (
		record  *ticket.MatchRecord
		tickets []*ticket.Ticket
	)
	err := m.inTx(ctx, "finalize", func(ctx context.Context, now time.Time) error {
		locked, err := m.Tickets.ListByProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if len(locked) != 2 || !ticket.AllAccepted(locked) {
			return ticket.ErrProposalNotFound
		}

		white, black := ticket.Seats(locked[0], locked[1], m.Coin)
		record = &ticket.MatchRecord{
			MatchID:   id.New(),
			WhiteID:   white.Leader().PlayerID,
			BlackID:   black.Leader().PlayerID,
			PoolKey:   white.PoolKey(),
			Hard:      white.Hard(),
			Region:    ticket.MatchRegion(locked[0], locked[1]),
			TicketIDs: []string{locked[0].ID(), locked[1].ID()},
			RatingSnapshot: ticket.RatingSnapshot{
				White: white.Rating(),
				Black: black.Rating(),
			},
			CreatedAt: now.UTC(),
		}
		for _, t := range locked {
			if err := t.MarkMatched(record.MatchID, now); err != nil {
				return err
			}
			if err := m.Tickets.Update(ctx, t); err != nil {
				return err
			}
		}
		tickets = locked
		return nil
	})
	if err != nil {
		m.Logger.Warnw("failed to finalize proposal", "proposal_id", proposalID, "error", err)
		return nil, err
	}
	m.mirror(ctx, tickets...)

	result := &MatchResult{MatchID: record.MatchID, WhiteID: record.WhiteID, BlackID: record.BlackID}
	gameID, err := m.createGame(ctx, record)
	if err != nil {
		m.Logger.Warnw("game creation failed, queueing match for retry",
			"match_id", record.MatchID,
			"error", err,
		)
		m.parkFailed(ctx, proposalID, record, err)
		result.Pending = true
		return result, nil
	}

	record.GameID = gameID
	if err := m.completeMatch(ctx, record); err != nil {
		return nil, err
	}
	result.GameID = gameID
	return result, nil
}

// createGame asks the live-game side for the pairing's game.
func (m *matchmaker) createGame(ctx context.Context, record *ticket.MatchRecord) (string, error) {
	if m.Games == nil {
		return "", apperrors.NewUnavailableError("no game creator configured")
	}
	ctx, cancel := context.WithTimeout(ctx, m.Settings.GameCreateTimeout)
	defer cancel()
	return m.Games.CreateMatchedGame(ctx, clients.MatchedGameRequest{
		MatchID:     record.MatchID,
		WhiteUserID: record.WhiteID,
		BlackUserID: record.BlackID,
		TimeControl: record.Hard.TimeControl,
		Mode:        record.Hard.Mode,
		Variant:     record.Hard.Variant,
		RatingSnapshot: map[string]int{
			"white": record.RatingSnapshot.White,
			"black": record.RatingSnapshot.Black,
		},
		Metadata: map[string]any{
			"pool_key":   record.PoolKey,
			"region":     record.Region,
			"ticket_ids": record.TicketIDs,
		},
	})
}

// completeMatch stores the match record and publishes match.created.
func (m *matchmaker) completeMatch(ctx context.Context, record *ticket.MatchRecord) error {
	if err := m.Matches.Create(ctx, record); err != nil {
		m.Logger.Errorw("failed to save match record",
			"match_id", record.MatchID,
			"game_id", record.GameID,
			"error", err,
		)
		return err
	}
	if m.Events != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		m.Events.PublishEvents(pubCtx, messaging.TopicMatches, ticket.NewMatchCreatedEvent(record, m.now()))
	}
	m.Logger.Infow("match created",
		"match_id", record.MatchID,
		"game_id", record.GameID,
		"white_id", record.WhiteID,
		"black_id", record.BlackID,
		"pool_key", record.PoolKey,
	)
	return nil
}

func (m *matchmaker) parkFailed(ctx context.Context, proposalID string, record *ticket.MatchRecord, cause error) {
	if m.Failed == nil {
		m.Logger.Errorw("dropping match without retry queue", "match_id", record.MatchID, "error", cause)
		return
	}
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	err := m.Failed.Enqueue(qctx, &matchqueue.FailedMatch{
		MatchID:        record.MatchID,
		ProposalID:     proposalID,
		TicketIDs:      record.TicketIDs,
		WhiteID:        record.WhiteID,
		BlackID:        record.BlackID,
		PoolKey:        record.PoolKey,
		TimeControl:    record.Hard.TimeControl,
		Mode:           record.Hard.Mode,
		Variant:        record.Hard.Variant,
		Region:         record.Region,
		RatingSnapshot: map[string]int{"white": record.RatingSnapshot.White, "black": record.RatingSnapshot.Black},
		FailureReason:  cause.Error(),
		FailedAt:       m.now(),
	})
	if err != nil {
		m.Logger.Errorw("failed to queue failed match", "match_id", record.MatchID, "error", err)
	}
}

func recordFromFailed(fm *matchqueue.FailedMatch, now time.Time) *ticket.MatchRecord {
	return &ticket.MatchRecord{
		MatchID: fm.MatchID,
		WhiteID: fm.WhiteID,
		BlackID: fm.BlackID,
		PoolKey: fm.PoolKey,
		Hard: vo.HardConstraints{
			TimeControl: fm.TimeControl,
			Mode:        fm.Mode,
			Variant:     fm.Variant,
			Region:      fm.Region,
		},
		Region:    fm.Region,
		TicketIDs: fm.TicketIDs,
		RatingSnapshot: ticket.RatingSnapshot{
			White: fm.RatingSnapshot["white"],
			Black: fm.RatingSnapshot["black"],
		},
		CreatedAt: now.UTC(),
	}
}
