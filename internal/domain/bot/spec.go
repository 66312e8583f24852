// Package bot holds the move-selection model for engine opponents: playing
// profiles, phase detection, mistake sampling and style weighting.
package bot

import (
	"fmt"
	"strconv"
	"strings"
)

type SearchSpec struct {
	ThinkTimeMSMin int `json:"think_time_ms_min"`
	ThinkTimeMSMax int `json:"think_time_ms_max"`
	DepthMin       int `json:"depth_min"`
	DepthMax       int `json:"depth_max"`
	MultiPV        int `json:"multi_pv"`
}

type OpeningSpec struct {
	UseBookUntilPly int    `json:"use_book_until_ply"`
	Repertoire      string `json:"repertoire"`
}

type EndgameSpec struct {
	AllowTablebases               bool `json:"allow_tablebases"`
	ReduceMistakesInSimpleEndings bool `json:"reduce_mistakes_in_simple_endgames"`
}

// MistakeModel gives per-move probabilities of each error class.
type MistakeModel struct {
	InaccuracyProb float64 `json:"inaccuracy_prob"`
	MistakeProb    float64 `json:"mistake_prob"`
	BlunderProb    float64 `json:"blunder_prob"`
}

type StyleSpec struct {
	WeightAttack float64 `json:"weight_attack"`
	WeightSafety float64 `json:"weight_safety"`
}

// Spec is a bot's playing profile.
type Spec struct {
	BotID        string       `json:"bot_id"`
	Rating       int          `json:"rating"`
	Search       SearchSpec   `json:"search"`
	Opening      OpeningSpec  `json:"opening"`
	Endgame      EndgameSpec  `json:"endgame"`
	MistakeModel MistakeModel `json:"mistake_model"`
	Style        StyleSpec    `json:"style"`
}

type profile struct {
	search  SearchSpec
	book    int
	tb      bool
	mistake MistakeModel
	style   StyleSpec
}

var profiles = map[string]profile{
	"beginner": {
		search:  SearchSpec{ThinkTimeMSMin: 200, ThinkTimeMSMax: 800, DepthMin: 1, DepthMax: 4, MultiPV: 5},
		book:    4,
		mistake: MistakeModel{InaccuracyProb: 0.30, MistakeProb: 0.20, BlunderProb: 0.15},
		style:   StyleSpec{WeightAttack: 0.6, WeightSafety: 0.2},
	},
	"easy": {
		search:  SearchSpec{ThinkTimeMSMin: 300, ThinkTimeMSMax: 1200, DepthMin: 2, DepthMax: 6, MultiPV: 5},
		book:    6,
		mistake: MistakeModel{InaccuracyProb: 0.25, MistakeProb: 0.12, BlunderProb: 0.06},
		style:   StyleSpec{WeightAttack: 0.5, WeightSafety: 0.3},
	},
	"medium": {
		search:  SearchSpec{ThinkTimeMSMin: 400, ThinkTimeMSMax: 2000, DepthMin: 4, DepthMax: 10, MultiPV: 4},
		book:    10,
		tb:      true,
		mistake: MistakeModel{InaccuracyProb: 0.15, MistakeProb: 0.06, BlunderProb: 0.02},
		style:   StyleSpec{WeightAttack: 0.4, WeightSafety: 0.4},
	},
	"hard": {
		search:  SearchSpec{ThinkTimeMSMin: 500, ThinkTimeMSMax: 3000, DepthMin: 8, DepthMax: 14, MultiPV: 3},
		book:    14,
		tb:      true,
		mistake: MistakeModel{InaccuracyProb: 0.08, MistakeProb: 0.03, BlunderProb: 0.01},
		style:   StyleSpec{WeightAttack: 0.4, WeightSafety: 0.5},
	},
	"expert": {
		search:  SearchSpec{ThinkTimeMSMin: 700, ThinkTimeMSMax: 4000, DepthMin: 12, DepthMax: 18, MultiPV: 3},
		book:    18,
		tb:      true,
		mistake: MistakeModel{InaccuracyProb: 0.04, MistakeProb: 0.01, BlunderProb: 0.003},
		style:   StyleSpec{WeightAttack: 0.3, WeightSafety: 0.5},
	},
	"master": {
		search:  SearchSpec{ThinkTimeMSMin: 1000, ThinkTimeMSMax: 6000, DepthMin: 16, DepthMax: 24, MultiPV: 2},
		book:    24,
		tb:      true,
		mistake: MistakeModel{InaccuracyProb: 0.02, MistakeProb: 0.005, BlunderProb: 0.001},
		style:   StyleSpec{WeightAttack: 0.3, WeightSafety: 0.3},
	},
}

// ParseBotID splits "bot-<difficulty>-<rating>".
func ParseBotID(botID string) (difficulty string, rating int, err error) {
	rest, ok := strings.CutPrefix(botID, "bot-")
	if !ok {
		return "", 0, fmt.Errorf("invalid bot id %q", botID)
	}
	i := strings.LastIndex(rest, "-")
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid bot id %q", botID)
	}
	rating, err = strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid bot rating in %q", botID)
	}
	return rest[:i], rating, nil
}

// SpecFor returns the built-in profile of botID.
func SpecFor(botID string) (Spec, error) {
	difficulty, rating, err := ParseBotID(botID)
	if err != nil {
		return Spec{}, err
	}
	p, ok := profiles[difficulty]
	if !ok {
		return Spec{}, fmt.Errorf("unknown bot difficulty %q", difficulty)
	}
	return Spec{
		BotID:        botID,
		Rating:       rating,
		Search:       p.search,
		Opening:      OpeningSpec{UseBookUntilPly: p.book, Repertoire: "main"},
		Endgame:      EndgameSpec{AllowTablebases: p.tb, ReduceMistakesInSimpleEndings: p.tb},
		MistakeModel: p.mistake,
		Style:        p.style,
	}, nil
}
