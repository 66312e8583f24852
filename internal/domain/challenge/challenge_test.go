package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gamevo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
)

var t0 = time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

func newChallenge(t *testing.T) *Challenge {
	t.Helper()
	c, err := New(Params{
		ChallengerID: "alice",
		OpponentID:   "bob",
		TimeControl:  "3+2",
		Rated:        true,
		Now:          t0,
	})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	c := newChallenge(t)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, gamevo.PreferRandom, c.ColorPreference)
	assert.Equal(t, "3+2", c.TimeControl)
	assert.Equal(t, "standard", c.Variant)
	assert.Equal(t, t0.Add(DefaultTTL), c.ExpiresAt)

	_, err := New(Params{ChallengerID: "alice", OpponentID: "alice", TimeControl: "3+2", Now: t0})
	assert.ErrorIs(t, err, ErrSelfChallenge)

	_, err = New(Params{ChallengerID: "alice", OpponentID: "bob", TimeControl: "blitz", Now: t0})
	assert.Error(t, err)
}

func TestIsExpired_ComparesInUTC(t *testing.T) {
	c := newChallenge(t)
	tokyo := time.FixedZone("JST", 9*60*60)

	assert.False(t, c.IsExpired(t0.Add(DefaultTTL-time.Millisecond).In(tokyo)))
	assert.True(t, c.IsExpired(t0.Add(DefaultTTL).In(tokyo)))
	assert.True(t, c.IsExpired(t0.Add(time.Hour)))
}

func TestAccept(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		at      time.Time
		prepare func(c *Challenge)
		wantErr error
	}{
		{name: "opponent in time", userID: "bob", at: t0.Add(time.Minute)},
		{name: "challenger", userID: "alice", at: t0, wantErr: ErrNotRecipient},
		{name: "stranger", userID: "carol", at: t0, wantErr: ErrNotRecipient},
		{name: "after deadline", userID: "bob", at: t0.Add(DefaultTTL), wantErr: ErrExpired},
		{
			name:    "already declined",
			userID:  "bob",
			at:      t0,
			prepare: func(c *Challenge) { require.NoError(t, c.Decline("bob", t0)) },
			wantErr: ErrNotPending,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChallenge(t)
			if tt.prepare != nil {
				tt.prepare(c)
			}
			err := c.Accept(tt.userID, tt.at)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusAccepted, c.Status)
		})
	}
}

func TestAcceptThenAttachOrReopen(t *testing.T) {
	c := newChallenge(t)
	require.NoError(t, c.Accept("bob", t0))

	c.Reopen(t0.Add(time.Second))
	assert.Equal(t, StatusPending, c.Status)

	require.NoError(t, c.Accept("bob", t0.Add(2*time.Second)))
	require.NoError(t, c.AttachGame("g1", t0.Add(3*time.Second)))
	assert.Equal(t, "g1", c.GameID)

	c.Reopen(t0.Add(4 * time.Second))
	assert.Equal(t, StatusAccepted, c.Status, "a challenge with a game stays accepted")
	assert.ErrorIs(t, c.AttachGame("g2", t0), ErrNotPending)
}

func TestDeclineAndCancel(t *testing.T) {
	c := newChallenge(t)
	assert.ErrorIs(t, c.Decline("alice", t0), ErrNotRecipient)
	assert.ErrorIs(t, c.Cancel("bob", t0), ErrNotChallenger)

	require.NoError(t, c.Cancel("alice", t0))
	assert.Equal(t, StatusCancelled, c.Status)
	assert.ErrorIs(t, c.Decline("bob", t0), ErrNotPending)
}

func TestExpire(t *testing.T) {
	c := newChallenge(t)
	assert.False(t, c.Expire(t0.Add(time.Minute)))
	assert.True(t, c.Expire(t0.Add(DefaultTTL)))
	assert.Equal(t, StatusExpired, c.Status)
	assert.False(t, c.Expire(t0.Add(time.Hour)))
}
