package usecases

import (
	"context"
)

type RetryFailedMatchesResult struct {
	Attempted int
	Created   int
	Abandoned int
}

// RetryFailedMatchesUseCase drains due entries of the failed matches queue,
// re-dispatching game creation for each.
type RetryFailedMatchesUseCase struct {
	m *matchmaker
}

func NewRetryFailedMatchesUseCase(deps Dependencies) *RetryFailedMatchesUseCase {
	return &RetryFailedMatchesUseCase{m: newMatchmaker(deps)}
}

func (uc *RetryFailedMatchesUseCase) Execute(ctx context.Context) (*RetryFailedMatchesResult, error) {
	res := &RetryFailedMatchesResult{}
	if uc.m.Failed == nil {
		return res, nil
	}
	now := uc.m.now()
	due, err := uc.m.Failed.DequeueReady(ctx, now, uc.m.Settings.RetryBatchSize)
	if err != nil {
		return nil, err
	}

	for _, fm := range due {
		res.Attempted++
		record := recordFromFailed(fm, now)
		gameID, err := uc.m.createGame(ctx, record)
		if err != nil {
			kept, qerr := uc.m.Failed.IncrementRetry(ctx, fm, err.Error(), now)
			if qerr != nil {
				uc.m.Logger.Errorw("failed to reschedule failed match", "match_id", fm.MatchID, "error", qerr)
				continue
			}
			if !kept {
				res.Abandoned++
				uc.m.Logger.Errorw("abandoning match after repeated game creation failures",
					"match_id", fm.MatchID,
					"ticket_ids", fm.TicketIDs,
					"last_error", err,
				)
			}
			continue
		}

		record.GameID = gameID
		// The game exists now; a failed record write must not cause a second create.
		if err := uc.m.completeMatch(ctx, record); err != nil {
			uc.m.Logger.Warnw("failed to complete retried match",
				"match_id", record.MatchID,
				"game_id", gameID,
				"error", err,
			)
		}
		if err := uc.m.Failed.Remove(ctx, fm.MatchID); err != nil {
			uc.m.Logger.Warnw("failed to remove retried match", "match_id", fm.MatchID, "error", err)
		}
		res.Created++
	}

	if res.Attempted > 0 {
		uc.m.Logger.Infow("failed match retry pass finished",
			"attempted", res.Attempted,
			"created", res.Created,
			"abandoned", res.Abandoned,
		)
	}
	return res, nil
}
