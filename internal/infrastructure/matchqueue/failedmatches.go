// Package matchqueue holds pairings whose game could not be created, so a
// scheduled job can retry them with exponential back-off.
package matchqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	queueKey = "failed_matches:queue"
	dataKey  = "failed_matches:data"

	DefaultBaseDelay  = 60 * time.Second
	DefaultMaxRetries = 5
)

// FailedMatch is everything needed to retry game creation for a pairing.
type FailedMatch struct {
	MatchID        string         `json:"match_id"`
	ProposalID     string         `json:"proposal_id"`
	TicketIDs      []string       `json:"ticket_ids"`
	WhiteID        string         `json:"white_user_id"`
	BlackID        string         `json:"black_user_id"`
	PoolKey        string         `json:"pool_key"`
	TimeControl    string         `json:"time_control"`
	Mode           string         `json:"mode"`
	Variant        string         `json:"variant"`
	Region         string         `json:"region"`
	RatingSnapshot map[string]int `json:"rating_snapshot"`
	FailureReason  string         `json:"failure_reason"`
	RetryCount     int            `json:"retry_count"`
	FailedAt       time.Time      `json:"failed_at"`
}

// Queue is a Redis sorted set of match ids scored by their next attempt
// time, with the payloads kept in a hash.
type Queue struct {
	client     redis.UniversalClient
	baseDelay  time.Duration
	maxRetries int
	logger     logger.Interface
}

func NewQueue(client redis.UniversalClient, baseDelay time.Duration, maxRetries int, log logger.Interface) *Queue {
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Queue{client: client, baseDelay: baseDelay, maxRetries: maxRetries, logger: log}
}

func (q *Queue) MaxRetries() int { return q.maxRetries }

// Delay is baseDelay * 2^retryCount.
func (q *Queue) Delay(retryCount int) time.Duration {
	return q.baseDelay << min(retryCount, 16)
}

// Enqueue schedules fm for its next attempt at FailedAt + Delay(RetryCount).
func (q *Queue) Enqueue(ctx context.Context, fm *FailedMatch) error {
	if fm.FailedAt.IsZero() {
		fm.FailedAt = time.Now().UTC()
	}
	body, err := json.Marshal(fm)
	if err != nil {
		return fmt.Errorf("failed to encode failed match: %w", err)
	}
	due := fm.FailedAt.Add(q.Delay(fm.RetryCount))

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, dataKey, fm.MatchID, body)
	pipe.ZAdd(ctx, queueKey, redis.Z{Score: float64(due.UnixMilli()), Member: fm.MatchID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to queue failed match: %w", err)
	}

	q.logger.Infow("queued failed match for retry",
		"match_id", fm.MatchID,
		"retry_count", fm.RetryCount,
		"due_at", due,
		"failure_reason", fm.FailureReason,
	)
	return nil
}

// DequeueReady returns up to limit matches due at or before now, oldest
// first. Entries stay queued until Remove or IncrementRetry.
func (q *Queue) DequeueReady(ctx context.Context, now time.Time, limit int) ([]*FailedMatch, error) {
	ids, err := q.client.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read failed matches: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	bodies, err := q.client.HMGet(ctx, dataKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load failed matches: %w", err)
	}
	out := make([]*FailedMatch, 0, len(ids))
	for i, raw := range bodies {
		s, ok := raw.(string)
		var fm FailedMatch
		if !ok || json.Unmarshal([]byte(s), &fm) != nil {
			q.logger.Warnw("dropping unreadable failed match", "match_id", ids[i])
			_ = q.Remove(ctx, ids[i])
			continue
		}
		out = append(out, &fm)
	}
	return out, nil
}

func (q *Queue) Remove(ctx context.Context, matchID string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, queueKey, matchID)
	pipe.HDel(ctx, dataKey, matchID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove failed match: %w", err)
	}
	return nil
}

// IncrementRetry bumps the attempt counter and reschedules fm. It reports
// false, and drops fm, once the retry budget is spent.
func (q *Queue) IncrementRetry(ctx context.Context, fm *FailedMatch, reason string, now time.Time) (bool, error) {
	fm.RetryCount++
	fm.FailureReason = reason
	fm.FailedAt = now.UTC()
	if fm.RetryCount >= q.maxRetries {
		q.logger.Warnw("giving up on failed match", "match_id", fm.MatchID, "retry_count", fm.RetryCount)
		return false, q.Remove(ctx, fm.MatchID)
	}
	return true, q.Enqueue(ctx, fm)
}

func (q *Queue) Size(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, queueKey).Result()
}
