package valueobjects

import "fmt"

type TicketStatus string

const (
	StatusQueued    TicketStatus = "queued"
	StatusSearching TicketStatus = "searching"
	StatusProposing TicketStatus = "proposing"
	StatusMatched   TicketStatus = "matched"
	StatusCancelled TicketStatus = "cancelled"
	StatusExpired   TicketStatus = "expired"
)

var validTicketStatuses = map[TicketStatus]bool{
	StatusQueued:    true,
	StatusSearching: true,
	StatusProposing: true,
	StatusMatched:   true,
	StatusCancelled: true,
	StatusExpired:   true,
}

var ticketStatusTransitions = map[TicketStatus][]TicketStatus{
	StatusQueued: {
		StatusSearching,
		StatusProposing,
		StatusCancelled,
		StatusExpired,
	},
	StatusSearching: {
		StatusQueued,
		StatusProposing,
		StatusCancelled,
		StatusExpired,
	},
	StatusProposing: {
		StatusQueued,
		StatusMatched,
		StatusCancelled,
		StatusExpired,
	},
	StatusMatched:   {},
	StatusCancelled: {},
	StatusExpired:   {},
}

func (ts TicketStatus) String() string {
	return string(ts)
}

func (ts TicketStatus) IsValid() bool {
	return validTicketStatuses[ts]
}

func (ts TicketStatus) CanTransitionTo(newStatus TicketStatus) bool {
	for _, allowed := range ticketStatusTransitions[ts] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// IsActive reports whether the ticket still occupies its players' queue slot.
func (ts TicketStatus) IsActive() bool {
	return ts == StatusQueued || ts == StatusSearching || ts == StatusProposing
}

// IsProposable reports whether the matcher may pair the ticket.
func (ts TicketStatus) IsProposable() bool {
	return ts == StatusQueued || ts == StatusSearching
}

func (ts TicketStatus) IsTerminal() bool {
	return ts == StatusMatched || ts == StatusCancelled || ts == StatusExpired
}

// ActiveStatuses lists the statuses that count against the one-active-ticket rule.
func ActiveStatuses() []string {
	return []string{string(StatusQueued), string(StatusSearching), string(StatusProposing)}
}

func ProposableStatuses() []string {
	return []string{string(StatusQueued), string(StatusSearching)}
}

func NewTicketStatus(s string) (TicketStatus, error) {
	ts := TicketStatus(s)
	if !ts.IsValid() {
		return "", fmt.Errorf("invalid ticket status: %s", s)
	}
	return ts, nil
}

type TicketType string

const (
	TypeSolo  TicketType = "solo"
	TypeParty TicketType = "party"
)

func (t TicketType) IsValid() bool {
	return t == TypeSolo || t == TypeParty
}

// TypeForSize classifies a roster: one player is solo, more is a party.
func TypeForSize(n int) TicketType {
	if n > 1 {
		return TypeParty
	}
	return TypeSolo
}
