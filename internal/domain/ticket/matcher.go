package ticket

import (
	"sort"
	"time"

	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
)

// WideningPolicy controls how a ticket's rating window grows while it waits.
type WideningPolicy struct {
	InitialWindow int
	Step          int
	Interval      time.Duration
	// MaxWindow caps the widened window; zero leaves it unbounded.
	MaxWindow int
}

func DefaultWideningPolicy() WideningPolicy {
	return WideningPolicy{InitialWindow: 100, Step: 25, Interval: 10 * time.Second, MaxWindow: 500}
}

// Stage adds the whole intervals waited to the stored widening stage, so a
// stalled proposal widens on top of the time already spent queueing.
func (p WideningPolicy) Stage(t *Ticket, now time.Time) int {
	stage := t.wideningStage
	if p.Interval > 0 {
		stage += int(t.WaitTime(now) / p.Interval)
	}
	return stage
}

// Window returns the ticket's current rating window, capped at MaxWindow. The
// base comes from the soft rating_window, then the ticket's widening config,
// then the policy.
func (p WideningPolicy) Window(t *Ticket, now time.Time) int {
	base := p.InitialWindow
	if w, ok := t.soft.RatingWindow(); ok {
		base = w
	} else if t.widening.RatingWindow != nil && *t.widening.RatingWindow > 0 {
		base = *t.widening.RatingWindow
	}
	w := base + p.Stage(t, now)*p.Step
	if p.MaxWindow > 0 && w > p.MaxWindow {
		return max(base, p.MaxWindow)
	}
	return w
}

// Pair is a proposed pairing of two tickets.
type Pair struct {
	First      *Ticket
	Second     *Ticket
	Region     string
	RatingDiff int
}

func (p Pair) TicketIDs() []string {
	return []string{p.First.ID(), p.Second.ID()}
}

// FindPairs greedily pairs proposable tickets of one pool. Tickets are
// visited oldest first; each takes the compatible candidate with the
// smallest rating difference that lies inside both windows, ties going to
// the earlier ticket.
func (p WideningPolicy) FindPairs(tickets []*Ticket, now time.Time) []Pair {
	candidates := make([]*Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.status.IsProposable() && !t.HeartbeatLapsed(now) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) < 2 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].createdAt.Equal(candidates[j].createdAt) {
			return candidates[i].id < candidates[j].id
		}
		return candidates[i].createdAt.Before(candidates[j].createdAt)
	})

	windows := make([]int, len(candidates))
	for i, t := range candidates {
		windows[i] = p.Window(t, now)
	}

	used := make([]bool, len(candidates))
	var pairs []Pair
	for i, entry := range candidates {
		if used[i] {
			continue
		}
		best, bestDiff := -1, 0
		for j := i + 1; j < len(candidates); j++ {
			if used[j] {
				continue
			}
			cand := candidates[j]
			if cand.Size() != entry.Size() || sharesPlayer(entry, cand) {
				continue
			}
			diff := abs(entry.Rating() - cand.Rating())
			if diff > windows[i] || diff > windows[j] {
				continue
			}
			if !RegionsCompatible(entry, cand) {
				continue
			}
			region := MatchRegion(entry, cand)
			if !withinLatencyBudget(entry, region) || !withinLatencyBudget(cand, region) {
				continue
			}
			if best == -1 || diff < bestDiff {
				best, bestDiff = j, diff
			}
		}
		if best == -1 {
			continue
		}
		used[i], used[best] = true, true
		pairs = append(pairs, Pair{
			First:      entry,
			Second:     candidates[best],
			Region:     MatchRegion(entry, candidates[best]),
			RatingDiff: bestDiff,
		})
	}
	return pairs
}

// RegionsCompatible is false only when both tickets name different
// preferred regions.
func RegionsCompatible(a, b *Ticket) bool {
	pa, pb := a.soft.PreferredRegion(), b.soft.PreferredRegion()
	return pa == "" || pb == "" || pa == pb
}

// MatchRegion picks the region a pairing is hosted in: a shared preference,
// then either ticket's preference, then the pool region.
func MatchRegion(a, b *Ticket) string {
	pa, pb := a.soft.PreferredRegion(), b.soft.PreferredRegion()
	switch {
	case pa != "":
		return pa
	case pb != "":
		return pb
	case a.hard.Region != "":
		return a.hard.Region
	default:
		return b.hard.Region
	}
}

func withinLatencyBudget(t *Ticket, region string) bool {
	budget, ok := t.soft.MaxLatencyMS()
	if !ok && t.widening.MaxLatencyMS != nil {
		budget, ok = *t.widening.MaxLatencyMS, *t.widening.MaxLatencyMS > 0
	}
	if !ok {
		return true
	}
	for _, pl := range t.players {
		if latency, known := pl.LatencyTo(region); known && latency > budget {
			return false
		}
	}
	return true
}

func sharesPlayer(a, b *Ticket) bool {
	for _, pl := range a.players {
		if b.HasPlayer(pl.PlayerID) {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Seats decides which ticket plays white. A colour preference wins unless
// both tickets ask for the same colour; otherwise coin decides.
func Seats(a, b *Ticket, coin func() bool) (white, black *Ticket) {
	pa, pb := a.soft.ColorPreference(), b.soft.ColorPreference()
	switch {
	case pa == "white" && pb != "white", pb == "black" && pa != "black":
		return a, b
	case pb == "white" && pa != "white", pa == "black" && pb != "black":
		return b, a
	}
	if coin() {
		return a, b
	}
	return b, a
}

// AllAccepted reports whether every ticket of a proposal has accepted.
func AllAccepted(tickets []*Ticket) bool {
	if len(tickets) == 0 {
		return false
	}
	for _, t := range tickets {
		if t.status != vo.StatusProposing || !t.IsAccepted() {
			return false
		}
	}
	return true
}
