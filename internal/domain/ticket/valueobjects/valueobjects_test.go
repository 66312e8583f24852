package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to TicketStatus
		want     bool
	}{
		{StatusQueued, StatusProposing, true},
		{StatusSearching, StatusProposing, true},
		{StatusProposing, StatusQueued, true},
		{StatusProposing, StatusMatched, true},
		{StatusQueued, StatusMatched, false},
		{StatusMatched, StatusQueued, false},
		{StatusCancelled, StatusQueued, false},
		{StatusExpired, StatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, StatusProposing.IsActive())
	assert.False(t, StatusProposing.IsProposable())
	assert.True(t, StatusExpired.IsTerminal())
	_, err := NewTicketStatus("timed_out")
	assert.Error(t, err)
}

func TestPoolKey(t *testing.T) {
	h, err := HardConstraints{TimeControl: "3+2", Mode: "Casual", Region: "EU_WEST"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "standard_3+2_casual_EU_WEST", h.PoolKey())
	assert.False(t, h.Rated())

	back, err := ParsePoolKey(h.PoolKey())
	require.NoError(t, err)
	assert.Equal(t, h, back)

	_, err = ParsePoolKey("standard_5+0")
	assert.Error(t, err)
}

func TestSoftConstraints_Merge(t *testing.T) {
	base := SoftConstraints{"preferred_region": "EU", "rating_window": 100}
	merged := base.Merge(SoftConstraints{"rating_window": 150.0, "color_preference": "White"})

	assert.Equal(t, 100, base["rating_window"], "merge does not mutate the receiver")
	w, ok := merged.RatingWindow()
	assert.True(t, ok)
	assert.Equal(t, 150, w)
	assert.Equal(t, "EU", merged.PreferredRegion())
	assert.Equal(t, "white", merged.ColorPreference())

	_, ok = SoftConstraints{}.MaxLatencyMS()
	assert.False(t, ok)
}
