package bot

import (
	"math/rand/v2"
)

type Phase string

const (
	PhaseOpening    Phase = "opening"
	PhaseMiddlegame Phase = "middlegame"
	PhaseEndgame    Phase = "endgame"
	PhaseFallback   Phase = "fallback"
)

const (
	openingMaxMove = 7
	endgameMinMove = 35
)

// Nominal thinking times reported for knowledge hits.
const (
	BookThinkingMS      = 50
	TablebaseThinkingMS = 40
)

type PhaseDecision struct {
	Phase        Phase
	UseBook      bool
	UseTablebase bool
}

func DetectPhase(moveNumber int) PhaseDecision {
	switch {
	case moveNumber <= openingMaxMove:
		return PhaseDecision{Phase: PhaseOpening, UseBook: true}
	case moveNumber >= endgameMinMove:
		return PhaseDecision{Phase: PhaseEndgame, UseTablebase: true}
	default:
		return PhaseDecision{Phase: PhaseMiddlegame}
	}
}

func phaseFactor(p Phase) float64 {
	switch p {
	case PhaseOpening:
		return 0.010
	case PhaseMiddlegame:
		return 0.015
	default:
		return 0.012
	}
}

// EngineQuery is the search budget sent to the engine cluster.
type EngineQuery struct {
	TimeLimitMS int `json:"time_limit_ms"`
	MaxDepth    int `json:"max_depth"`
	MultiPV     int `json:"multi_pv"`
}

// DecideEngineParams spends a phase-dependent share of the remaining clock,
// clamped to the profile's think-time range.
func DecideEngineParams(s SearchSpec, clockMS int64, p Phase) EngineQuery {
	budget := int(float64(clockMS) * phaseFactor(p))
	budget = min(max(budget, s.ThinkTimeMSMin), s.ThinkTimeMSMax)
	depth := min(max(s.DepthMin+budget/100, s.DepthMin), s.DepthMax)
	return EngineQuery{TimeLimitMS: budget, MaxDepth: depth, MultiPV: s.MultiPV}
}

type MistakeType string

const (
	MistakeNone       MistakeType = "none"
	MistakeInaccuracy MistakeType = "inaccuracy"
	MistakeMistake    MistakeType = "mistake"
	MistakeBlunder    MistakeType = "blunder"
)

// pressure shrinks the chance of a clean move as the clock runs down.
func pressure(clockMS int64) float64 {
	switch {
	case clockMS > 20_000:
		return 1.0
	case clockMS > 10_000:
		return 0.5
	default:
		return 0.25
	}
}

// SampleMistake draws an error class for this move.
func SampleMistake(m MistakeModel, clockMS int64, rng *rand.Rand) MistakeType {
	p := pressure(clockMS)
	weights := []struct {
		kind MistakeType
		w    float64
	}{
		{MistakeNone, max(0, 1-(m.InaccuracyProb+m.MistakeProb+m.BlunderProb)) * p},
		{MistakeInaccuracy, m.InaccuracyProb / p},
		{MistakeMistake, m.MistakeProb / p},
		{MistakeBlunder, m.BlunderProb / p},
	}

	total := 0.0
	for _, w := range weights {
		total += w.w
	}
	if total == 0 {
		total = 1
	}
	r := rng.Float64() * total
	acc := 0.0
	for _, w := range weights {
		acc += w.w
		if r <= acc {
			return w.kind
		}
	}
	return MistakeNone
}

var mistakeBands = map[MistakeType]float64{
	MistakeNone:       0.01,
	MistakeInaccuracy: 0.20,
	MistakeMistake:    0.60,
	MistakeBlunder:    2.00,
}

// Candidate is one engine line, evaluated in pawns from the mover's side.
type Candidate struct {
	Move  string   `json:"move"`
	Eval  float64  `json:"eval"`
	Depth int      `json:"depth,omitempty"`
	PV    []string `json:"pv,omitempty"`
}

// MistakeBand keeps the candidates within the class's loss from the best.
// candidates must be sorted best first.
func MistakeBand(candidates []Candidate, m MistakeType) []Candidate {
	if len(candidates) == 0 {
		return nil
	}
	threshold, ok := mistakeBands[m]
	if !ok {
		threshold = mistakeBands[MistakeNone]
	}
	best := candidates[0].Eval
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if best-c.Eval <= threshold {
			out = append(out, c)
		}
	}
	return out
}

// ApplyStyle picks from the top three according to the attack/safety bias.
func ApplyStyle(candidates []Candidate, s StyleSpec, rng *rand.Rand) (Candidate, string) {
	bias := s.WeightAttack - s.WeightSafety
	idx := 0
	if len(candidates) >= 2 && rng.Float64() < 0.3+0.2*bias {
		idx = 1
	}
	if len(candidates) >= 3 && rng.Float64() < max(0, 0.1+0.1*bias) {
		idx = 2
	}
	idx = min(idx, len(candidates)-1)

	label := "solid"
	switch {
	case bias > 0:
		label = "slightly aggressive"
	case bias < 0:
		label = "safety-first"
	}
	return candidates[idx], label
}

// NewRand seeds a generator from seed, or randomly when seed is nil.
func NewRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(*seed, *seed))
}
