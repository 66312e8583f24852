package ticket

import (
	"fmt"
	"strings"
	"time"

	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/id"
)

// Limits bound party rosters at enqueue time.
type Limits struct {
	MaxPartySize      int
	MaxPartyMMRSpread int
}

func DefaultLimits() Limits {
	return Limits{MaxPartySize: 4, MaxPartyMMRSpread: 400}
}

// Ticket is a request by one player (solo) or a group (party) to be paired
// in a single pool.
type Ticket struct {
	id                 string
	enqueueKey         string
	mutationSeq        int64
	poolKey            string
	status             vo.TicketStatus
	ticketType         vo.TicketType
	hard               vo.HardConstraints
	soft               vo.SoftConstraints
	widening           vo.WideningConfig
	searchParams       map[string]any
	wideningStage      int
	lastHeartbeatAt    *time.Time
	heartbeatTimeoutAt *time.Time
	proposalID         string
	proposalTimeoutAt  *time.Time
	acceptedAt         *time.Time
	matchID            string
	players            []Player
	createdAt          time.Time
	updatedAt          time.Time
}

type EnqueueParams struct {
	EnqueueKey       string
	MutationSeq      int64
	Hard             vo.HardConstraints
	Soft             vo.SoftConstraints
	Widening         vo.WideningConfig
	SearchParams     map[string]any
	Players          []Player
	Limits           Limits
	HeartbeatTimeout time.Duration
	Now              time.Time
}

func NewTicket(p EnqueueParams) (*Ticket, error) {
	if strings.TrimSpace(p.EnqueueKey) == "" {
		return nil, ErrEnqueueKeyMissing
	}
	hard, err := p.Hard.Normalize()
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := validateRoster(p.Players, p.Limits); err != nil {
		return nil, err
	}

	now := p.Now.UTC()
	players := make([]Player, len(p.Players))
	for i, pl := range p.Players {
		pl.Status = vo.StatusQueued
		pl.CreatedAt = now
		players[i] = pl
	}

	t := &Ticket{
		id:              id.New(),
		enqueueKey:      p.EnqueueKey,
		mutationSeq:     p.MutationSeq,
		poolKey:         hard.PoolKey(),
		status:          vo.StatusQueued,
		ticketType:      vo.TypeForSize(len(players)),
		hard:            hard,
		soft:            vo.SoftConstraints{}.Merge(p.Soft),
		widening:        p.Widening,
		searchParams:    p.SearchParams,
		lastHeartbeatAt: &now,
		players:         players,
		createdAt:       now,
		updatedAt:       now,
	}
	if t.searchParams == nil {
		t.searchParams = map[string]any{}
	}
	if p.HeartbeatTimeout > 0 {
		deadline := now.Add(p.HeartbeatTimeout)
		t.heartbeatTimeoutAt = &deadline
	}
	return t, nil
}

func validateRoster(players []Player, limits Limits) error {
	if len(players) == 0 {
		return ErrNoPlayers
	}
	if limits.MaxPartySize > 0 && len(players) > limits.MaxPartySize {
		return apperrors.NewValidationError(
			fmt.Sprintf("party size %d exceeds max of %d", len(players), limits.MaxPartySize))
	}

	seen := make(map[string]bool, len(players))
	lo, hi := players[0].MMR, players[0].MMR
	for _, pl := range players {
		if strings.TrimSpace(pl.PlayerID) == "" {
			return apperrors.NewValidationError("player_id is required")
		}
		if seen[pl.PlayerID] {
			return ErrDuplicatePlayer
		}
		seen[pl.PlayerID] = true
		lo, hi = min(lo, pl.MMR), max(hi, pl.MMR)
	}
	if limits.MaxPartyMMRSpread > 0 && hi-lo > limits.MaxPartyMMRSpread {
		return apperrors.NewValidationError(
			fmt.Sprintf("party MMR spread %d exceeds allowed %d", hi-lo, limits.MaxPartyMMRSpread))
	}
	return nil
}

// State is the persisted shape of a ticket.
type State struct {
	ID                 string             `json:"id"`
	EnqueueKey         string             `json:"enqueue_key"`
	MutationSeq        int64              `json:"mutation_seq"`
	PoolKey            string             `json:"pool_key"`
	Status             vo.TicketStatus    `json:"status"`
	Type               vo.TicketType      `json:"type"`
	Hard               vo.HardConstraints `json:"constraints"`
	Soft               vo.SoftConstraints `json:"soft_constraints"`
	Widening           vo.WideningConfig  `json:"widening_config"`
	SearchParams       map[string]any     `json:"search_params"`
	WideningStage      int                `json:"widening_stage"`
	LastHeartbeatAt    *time.Time         `json:"last_heartbeat_at,omitempty"`
	HeartbeatTimeoutAt *time.Time         `json:"heartbeat_timeout_at,omitempty"`
	ProposalID         string             `json:"proposal_id,omitempty"`
	ProposalTimeoutAt  *time.Time         `json:"proposal_timeout_at,omitempty"`
	AcceptedAt         *time.Time         `json:"accepted_at,omitempty"`
	MatchID            string             `json:"match_id,omitempty"`
	Players            []Player           `json:"players"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func ReconstructTicket(s State) (*Ticket, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("ticket ID is required")
	}
	if !s.Status.IsValid() {
		return nil, fmt.Errorf("invalid ticket status %q", s.Status)
	}
	if len(s.Players) == 0 {
		return nil, fmt.Errorf("ticket %s has no players", s.ID)
	}
	if s.Soft == nil {
		s.Soft = vo.SoftConstraints{}
	}
	if s.SearchParams == nil {
		s.SearchParams = map[string]any{}
	}
	if !s.Type.IsValid() {
		s.Type = vo.TypeForSize(len(s.Players))
	}
	return &Ticket{
		id:                 s.ID,
		enqueueKey:         s.EnqueueKey,
		mutationSeq:        s.MutationSeq,
		poolKey:            s.PoolKey,
		status:             s.Status,
		ticketType:         s.Type,
		hard:               s.Hard,
		soft:               s.Soft,
		widening:           s.Widening,
		searchParams:       s.SearchParams,
		wideningStage:      s.WideningStage,
		lastHeartbeatAt:    s.LastHeartbeatAt,
		heartbeatTimeoutAt: s.HeartbeatTimeoutAt,
		proposalID:         s.ProposalID,
		proposalTimeoutAt:  s.ProposalTimeoutAt,
		acceptedAt:         s.AcceptedAt,
		matchID:            s.MatchID,
		players:            append([]Player(nil), s.Players...),
		createdAt:          s.CreatedAt,
		updatedAt:          s.UpdatedAt,
	}, nil
}

// State returns a snapshot safe to serialize.
func (t *Ticket) State() State {
	return State{
		ID:                 t.id,
		EnqueueKey:         t.enqueueKey,
		MutationSeq:        t.mutationSeq,
		PoolKey:            t.poolKey,
		Status:             t.status,
		Type:               t.ticketType,
		Hard:               t.hard,
		Soft:               t.Soft(),
		Widening:           t.widening,
		SearchParams:       t.searchParams,
		WideningStage:      t.wideningStage,
		LastHeartbeatAt:    t.lastHeartbeatAt,
		HeartbeatTimeoutAt: t.heartbeatTimeoutAt,
		ProposalID:         t.proposalID,
		ProposalTimeoutAt:  t.proposalTimeoutAt,
		AcceptedAt:         t.acceptedAt,
		MatchID:            t.matchID,
		Players:            t.Players(),
		CreatedAt:          t.createdAt,
		UpdatedAt:          t.updatedAt,
	}
}

func (t *Ticket) ID() string                     { return t.id }
func (t *Ticket) EnqueueKey() string             { return t.enqueueKey }
func (t *Ticket) MutationSeq() int64             { return t.mutationSeq }
func (t *Ticket) PoolKey() string                { return t.poolKey }
func (t *Ticket) Status() vo.TicketStatus        { return t.status }
func (t *Ticket) Type() vo.TicketType            { return t.ticketType }
func (t *Ticket) Hard() vo.HardConstraints       { return t.hard }
func (t *Ticket) Widening() vo.WideningConfig    { return t.widening }
func (t *Ticket) WideningStage() int             { return t.wideningStage }
func (t *Ticket) LastHeartbeatAt() *time.Time    { return t.lastHeartbeatAt }
func (t *Ticket) HeartbeatTimeoutAt() *time.Time { return t.heartbeatTimeoutAt }
func (t *Ticket) ProposalID() string             { return t.proposalID }
func (t *Ticket) ProposalTimeoutAt() *time.Time  { return t.proposalTimeoutAt }
func (t *Ticket) AcceptedAt() *time.Time         { return t.acceptedAt }
func (t *Ticket) MatchID() string                { return t.matchID }
func (t *Ticket) CreatedAt() time.Time           { return t.createdAt }
func (t *Ticket) UpdatedAt() time.Time           { return t.updatedAt }
func (t *Ticket) SearchParams() map[string]any   { return t.searchParams }
func (t *Ticket) IsActive() bool                 { return t.status.IsActive() }
func (t *Ticket) Soft() vo.SoftConstraints       { return vo.SoftConstraints{}.Merge(t.soft) }
func (t *Ticket) Players() []Player              { return append([]Player(nil), t.players...) }
func (t *Ticket) Leader() Player                 { return t.players[0] }
func (t *Ticket) Size() int                      { return len(t.players) }
func (t *Ticket) IsAccepted() bool               { return t.acceptedAt != nil }

// IdempotencyKey is enqueue_key:mutation_seq.
func (t *Ticket) IdempotencyKey() string {
	return fmt.Sprintf("%s:%d", t.enqueueKey, t.mutationSeq)
}

func (t *Ticket) PlayerIDs() []string {
	ids := make([]string, len(t.players))
	for i, p := range t.players {
		ids[i] = p.PlayerID
	}
	return ids
}

func (t *Ticket) HasPlayer(playerID string) bool {
	for _, p := range t.players {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

// Rating is the roster's mean MMR.
func (t *Ticket) Rating() int {
	sum := 0
	for _, p := range t.players {
		sum += p.MMR
	}
	return sum / len(t.players)
}

// IsReplayOf reports whether an enqueue with enqueueKey into poolKey should
// return this ticket instead of creating a new one.
func (t *Ticket) IsReplayOf(enqueueKey, poolKey string) bool {
	return t.enqueueKey == enqueueKey && t.poolKey == poolKey
}

func (t *Ticket) WaitTime(now time.Time) time.Duration {
	if now.Before(t.createdAt) {
		return 0
	}
	return now.Sub(t.createdAt)
}

func (t *Ticket) HeartbeatLapsed(now time.Time) bool {
	return t.heartbeatTimeoutAt != nil && !now.Before(*t.heartbeatTimeoutAt)
}

func (t *Ticket) ProposalExpired(now time.Time) bool {
	return t.status == vo.StatusProposing && t.proposalTimeoutAt != nil && !now.Before(*t.proposalTimeoutAt)
}

// UpdateSoftConstraints merges soft into the ticket's preferences. seq must
// be strictly greater than the last applied mutation.
func (t *Ticket) UpdateSoftConstraints(seq int64, soft vo.SoftConstraints, stage *int, now time.Time) error {
	if seq <= t.mutationSeq {
		return ErrStale
	}
	if !t.status.IsActive() {
		return ErrTicketNotActive
	}
	if stage != nil && *stage < 0 {
		return apperrors.NewValidationError("widening_stage must be >= 0")
	}
	t.soft = t.soft.Merge(soft)
	t.mutationSeq = seq
	if stage != nil {
		t.wideningStage = *stage
	}
	t.touch(now)
	return nil
}

func (t *Ticket) Heartbeat(at time.Time, timeout time.Duration) error {
	if !t.status.IsActive() {
		return ErrTicketNotActive
	}
	at = at.UTC()
	deadline := at.Add(timeout)
	t.lastHeartbeatAt = &at
	t.heartbeatTimeoutAt = &deadline
	t.touch(at)
	return nil
}

// Cancel is a no-op on an already cancelled ticket.
func (t *Ticket) Cancel(now time.Time) error {
	if t.status == vo.StatusCancelled {
		return nil
	}
	return t.transition(vo.StatusCancelled, now)
}

func (t *Ticket) Expire(now time.Time) error {
	return t.transition(vo.StatusExpired, now)
}

// Propose puts the ticket into a ready-check under proposalID.
func (t *Ticket) Propose(proposalID string, timeoutAt, now time.Time) error {
	if !t.status.IsProposable() {
		return ErrTicketNotActive
	}
	if err := t.transition(vo.StatusProposing, now); err != nil {
		return err
	}
	timeoutAt = timeoutAt.UTC()
	t.proposalID = proposalID
	t.proposalTimeoutAt = &timeoutAt
	return nil
}

// Accept records the ticket's ready-check acceptance.
func (t *Ticket) Accept(now time.Time) error {
	if t.status != vo.StatusProposing {
		return ErrNotProposing
	}
	if t.acceptedAt == nil {
		at := now.UTC()
		t.acceptedAt = &at
		t.touch(now)
	}
	return nil
}

// ReturnToQueue drops the proposal and requeues the ticket. When stall is
// set the widening stage advances so the next cycle searches wider.
func (t *Ticket) ReturnToQueue(stall bool, now time.Time) error {
	if t.status != vo.StatusProposing {
		return ErrNotProposing
	}
	if err := t.transition(vo.StatusQueued, now); err != nil {
		return err
	}
	if stall {
		t.wideningStage++
	}
	return nil
}

func (t *Ticket) MarkMatched(matchID string, now time.Time) error {
	if t.status != vo.StatusProposing {
		return ErrNotProposing
	}
	if err := t.transition(vo.StatusMatched, now); err != nil {
		return err
	}
	t.matchID = matchID
	return nil
}

func (t *Ticket) transition(to vo.TicketStatus, now time.Time) error {
	if !t.status.CanTransitionTo(to) {
		if t.status.IsTerminal() {
			return ErrTicketNotActive
		}
		return apperrors.NewConflictError(fmt.Sprintf("cannot transition ticket from %s to %s", t.status, to))
	}
	for i := range t.players {
		if t.players[i].Status.IsActive() {
			t.players[i].Status = to
		}
	}
	t.status = to
	if to != vo.StatusProposing {
		t.proposalID = ""
		t.proposalTimeoutAt = nil
		t.acceptedAt = nil
	}
	t.touch(now)
	return nil
}

func (t *Ticket) touch(now time.Time) {
	t.updatedAt = now.UTC()
}
