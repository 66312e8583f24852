// Package challenge models direct player-to-player game invitations. A
// challenge names its opponent, waits a bounded time for an answer and turns
// into a started game when accepted.
package challenge

import (
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
	gamevo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/id"
)

// DefaultTTL is how long the opponent has to answer.
const DefaultTTL = 5 * time.Minute

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsTerminal() bool {
	return s != StatusPending
}

type Challenge struct {
	ID              string
	ChallengerID    string
	OpponentID      string
	TimeControl     string
	Variant         string
	Rated           bool
	ColorPreference gamevo.ColorPreference
	Status          Status
	GameID          string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	UpdatedAt       time.Time
}

type Params struct {
	ChallengerID    string
	OpponentID      string
	TimeControl     string
	Variant         string
	Rated           bool
	ColorPreference gamevo.ColorPreference
	TTL             time.Duration
	Now             time.Time
}

func New(p Params) (*Challenge, error) {
	if p.ChallengerID == "" || p.OpponentID == "" {
		return nil, apperrors.NewValidationError("challenger and opponent are required")
	}
	if p.ChallengerID == p.OpponentID {
		return nil, ErrSelfChallenge
	}
	tc, err := gamevo.ParseTimeControl(p.TimeControl)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	variant := p.Variant
	if variant == "" {
		variant = game.DefaultVariant
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	pref := p.ColorPreference
	if pref == "" {
		pref = gamevo.PreferRandom
	}
	now := biztime.ToUTC(p.Now)
	return &Challenge{
		ID:              id.New(),
		ChallengerID:    p.ChallengerID,
		OpponentID:      p.OpponentID,
		TimeControl:     tc.String(),
		Variant:         variant,
		Rated:           p.Rated,
		ColorPreference: pref,
		Status:          StatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
		UpdatedAt:       now,
	}, nil
}

// IsExpired compares in UTC; a challenge is expired from ExpiresAt on.
func (c *Challenge) IsExpired(now time.Time) bool {
	return !biztime.ToUTC(now).Before(biztime.ToUTC(c.ExpiresAt))
}

func (c *Challenge) IsPending() bool {
	return c.Status == StatusPending
}

// CheckAnswerable reports why userID cannot answer the challenge at now.
func (c *Challenge) CheckAnswerable(userID string, now time.Time) error {
	if c.OpponentID != userID {
		return ErrNotRecipient
	}
	if !c.IsPending() {
		return ErrNotPending
	}
	if c.IsExpired(now) {
		return ErrExpired
	}
	return nil
}

// Accept claims the challenge for game creation. The game id is attached
// once the game exists.
func (c *Challenge) Accept(userID string, now time.Time) error {
	if err := c.CheckAnswerable(userID, now); err != nil {
		return err
	}
	c.transition(StatusAccepted, now)
	return nil
}

func (c *Challenge) AttachGame(gameID string, now time.Time) error {
	if c.Status != StatusAccepted || c.GameID != "" {
		return ErrNotPending
	}
	c.GameID = gameID
	c.UpdatedAt = biztime.ToUTC(now)
	return nil
}

// Reopen hands an accepted challenge without a game back to its opponent
// after game creation failed.
func (c *Challenge) Reopen(now time.Time) {
	if c.Status != StatusAccepted || c.GameID != "" {
		return
	}
	c.transition(StatusPending, now)
}

func (c *Challenge) Decline(userID string, now time.Time) error {
	if c.OpponentID != userID {
		return ErrNotRecipient
	}
	if !c.IsPending() {
		return ErrNotPending
	}
	c.transition(StatusDeclined, now)
	return nil
}

func (c *Challenge) Cancel(userID string, now time.Time) error {
	if c.ChallengerID != userID {
		return ErrNotChallenger
	}
	if !c.IsPending() {
		return ErrNotPending
	}
	c.transition(StatusCancelled, now)
	return nil
}

// Expire marks a pending challenge past its deadline as expired.
func (c *Challenge) Expire(now time.Time) bool {
	if !c.IsPending() || !c.IsExpired(now) {
		return false
	}
	c.transition(StatusExpired, now)
	return true
}

func (c *Challenge) transition(to Status, now time.Time) {
	c.Status = to
	c.UpdatedAt = biztime.ToUTC(now)
}
