package rating

import "fmt"

const (
	SystemGlicko2 = "glicko2"

	DefaultInitialRating = 1500.0
	DefaultRD            = 350.0
	DefaultVolatility    = 0.06
	DefaultTau           = 0.5

	ProvisionalGames = 10
)

// Pool is a rating context such as blitz_standard.
type Pool struct {
	Code          string
	RatingSystem  string
	InitialRating float64
	Tau           float64
	DefaultRD     float64
}

func NewPool(code string, tau float64) Pool {
	if tau <= 0 {
		tau = DefaultTau
	}
	return Pool{
		Code:          code,
		RatingSystem:  SystemGlicko2,
		InitialRating: DefaultInitialRating,
		Tau:           tau,
		DefaultRD:     DefaultRD,
	}
}

// InitialState is the rating a player starts with in p.
func (p Pool) InitialState() State {
	return State{Rating: p.InitialRating, RD: p.DefaultRD, Volatility: DefaultVolatility}
}

// Speed classes, by initial clock.
const (
	SpeedBullet    = "bullet"
	SpeedBlitz     = "blitz"
	SpeedRapid     = "rapid"
	SpeedClassical = "classical"
)

// DefaultPoolCodes lists the pools seeded at startup.
var DefaultPoolCodes = []string{
	"bullet_standard",
	"blitz_standard",
	"rapid_standard",
	"classical_standard",
}

// SpeedForInitial classifies a game by its initial clock in milliseconds.
func SpeedForInitial(initialMS int64) string {
	minutes := float64(initialMS) / 60000
	switch {
	case minutes <= 1:
		return SpeedBullet
	case minutes <= 5:
		return SpeedBlitz
	case minutes <= 15:
		return SpeedRapid
	default:
		return SpeedClassical
	}
}

// PoolCodeFor derives the pool of a finished game.
func PoolCodeFor(initialMS int64, variant string) string {
	if variant == "" {
		variant = "standard"
	}
	return fmt.Sprintf("%s_%s", SpeedForInitial(initialMS), variant)
}
