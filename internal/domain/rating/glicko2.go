package rating

import "math"

const (
	glickoScale    = 173.7178
	glickoCenter   = 1500.0
	convergenceEps = 1e-6
)

// State is one player's rating triple on the public (1500-centred) scale.
type State struct {
	Rating     float64 `json:"rating"`
	RD         float64 `json:"rating_deviation"`
	Volatility float64 `json:"volatility"`
}

// Glicko2 applies Glickman's Glicko-2 update for a single rating period.
type Glicko2 struct {
	Tau float64
}

func NewGlicko2(tau float64) Glicko2 {
	if tau <= 0 {
		tau = DefaultTau
	}
	return Glicko2{Tau: tau}
}

func g(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

func expected(mu, muJ, phiJ float64) float64 {
	return 1 / (1 + math.Exp(-g(phiJ)*(mu-muJ)))
}

// ExpectedScore is the probability that player beats opponent.
func (Glicko2) ExpectedScore(player, opponent State) float64 {
	mu := (player.Rating - glickoCenter) / glickoScale
	muJ := (opponent.Rating - glickoCenter) / glickoScale
	return expected(mu, muJ, opponent.RD/glickoScale)
}

// Update returns player's state after the games against opponents with the
// given scores (1, 0.5 or 0). Opponent states must be their pre-period values.
func (e Glicko2) Update(player State, opponents []State, scores []float64) State {
	if len(opponents) == 0 || len(opponents) != len(scores) {
		return player
	}

	mu := (player.Rating - glickoCenter) / glickoScale
	phi := player.RD / glickoScale
	sigma := player.Volatility

	var vInv, deltaSum float64
	for i, opp := range opponents {
		muJ := (opp.Rating - glickoCenter) / glickoScale
		phiJ := opp.RD / glickoScale
		gj := g(phiJ)
		E := expected(mu, muJ, phiJ)
		vInv += gj * gj * E * (1 - E)
		deltaSum += gj * (scores[i] - E)
	}
	v := 1 / vInv
	delta := v * deltaSum

	newSigma := e.volatility(phi, sigma, v, delta)

	phiStar := math.Sqrt(phi*phi + newSigma*newSigma)
	phiPrime := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muPrime := mu + phiPrime*phiPrime*deltaSum

	return State{
		Rating:     glickoScale*muPrime + glickoCenter,
		RD:         glickoScale * phiPrime,
		Volatility: newSigma,
	}
}

// volatility solves for sigma' with the Illinois variant of regula falsi.
func (e Glicko2) volatility(phi, sigma, v, delta float64) float64 {
	tau := e.Tau
	a := math.Log(sigma * sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (delta*delta - phi*phi - v - ex)
		den := 2 * math.Pow(phi*phi+v+ex, 2)
		return num/den - (x-a)/(tau*tau)
	}

	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 {
			k++
		}
		B = a - k*tau
	}

	fA, fB := f(A), f(B)
	for math.Abs(B-A) > convergenceEps {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if fC*fB < 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}
