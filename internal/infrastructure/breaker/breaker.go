// Package breaker guards calls to downstream services (live-game, engine
// cluster, knowledge service, bot orchestrator) with a three-state circuit
// breaker.
package breaker

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

// ErrCircuitOpen is returned without invoking the call while the circuit is
// open, or while another half-open trial call is in flight.
var ErrCircuitOpen = errors.NewUnavailableError("circuit breaker is open").WithReason(errors.ReasonCircuitOpen)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Settings configures one breaker.
type Settings struct {
	Name             string
	FailureThreshold uint32
	SuccessThreshold uint32
	Timeout          time.Duration
	// IsExpected decides whether an error counts against the circuit. Errors
	// it rejects are passed through and count as a healthy response.
	IsExpected    func(err error) bool
	OnStateChange func(name string, from, to State)
}

// DefaultSettings mirrors the production defaults: five expected failures trip
// the circuit, it stays open for sixty seconds, two half-open successes close it.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
	}
}

// Snapshot is the observable state of a breaker.
type Snapshot struct {
	Name            string     `json:"name"`
	State           State      `json:"state"`
	FailureCount    uint32     `json:"failure_count"`
	SuccessCount    uint32     `json:"success_count"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
	LastStateChange time.Time  `json:"last_state_change"`
}

// Breaker admits a single trial call at a time while half-open and closes
// after SuccessThreshold consecutive trial successes. gobreaker runs with
// MaxRequests 1, so its half-open state ends on the first trial; the
// remaining confirmations are tracked here, during which the breaker still
// reports half-open and any expected failure reopens it.
type Breaker struct {
	name       string
	cb         *gobreaker.CircuitBreaker[any]
	isExpected func(error) bool
	hook       func(name string, from, to State)
	needed     uint32
	logger     logger.Interface

	mu              sync.Mutex
	lastFailure     time.Time
	lastStateChange time.Time
	confirming      bool
	confirmations   uint32
	trialInFlight   bool
}

func New(st Settings, log logger.Interface) *Breaker {
	if st.FailureThreshold == 0 {
		st.FailureThreshold = 5
	}
	if st.SuccessThreshold == 0 {
		st.SuccessThreshold = 2
	}
	if st.Timeout <= 0 {
		st.Timeout = 60 * time.Second
	}
	if st.IsExpected == nil {
		st.IsExpected = IsExpectedFailure
	}

	b := &Breaker{
		name:            st.Name,
		isExpected:      st.IsExpected,
		hook:            st.OnStateChange,
		needed:          st.SuccessThreshold - 1,
		logger:          log.With("breaker", st.Name),
		lastStateChange: time.Now().UTC(),
	}

	threshold := st.FailureThreshold
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        st.Name,
		MaxRequests: 1,
		Timeout:     st.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= threshold {
				return true
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			return b.confirming && counts.ConsecutiveFailures > 0
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !st.IsExpected(err)
		},
		OnStateChange: b.onStateChange,
	})
	return b
}

// onStateChange runs under gobreaker's lock.
func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	f, t := fromGobreaker(from), fromGobreaker(to)

	b.mu.Lock()
	if b.confirming {
		f = StateHalfOpen
		b.confirming = false
	}
	if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed && b.needed > 0 {
		b.confirming = true
		b.confirmations = 0
		b.mu.Unlock()
		b.logger.Infow("circuit breaker trial call succeeded", "confirmations_needed", b.needed)
		return
	}
	b.lastStateChange = time.Now().UTC()
	b.mu.Unlock()

	b.transitioned(name, f, t)
}

func (b *Breaker) transitioned(name string, from, to State) {
	b.logger.Warnw("circuit breaker state changed", "from", from, "to", to)
	if b.hook != nil {
		b.hook(name, from, to)
	}
}

// admit reserves the single trial slot while confirming recovery. trial
// reports whether the call counts towards closing the circuit.
func (b *Breaker) admit() (release func(), trial, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.confirming {
		return func() {}, false, true
	}
	if b.trialInFlight {
		return nil, false, false
	}
	b.trialInFlight = true
	return func() {
		b.mu.Lock()
		b.trialInFlight = false
		b.mu.Unlock()
	}, true, true
}

// confirm counts a successful trial and closes the circuit once enough have
// been seen in a row.
func (b *Breaker) confirm() {
	b.mu.Lock()
	if !b.confirming {
		b.mu.Unlock()
		return
	}
	b.confirmations++
	if b.confirmations < b.needed {
		b.mu.Unlock()
		return
	}
	b.confirming = false
	b.lastStateChange = time.Now().UTC()
	b.mu.Unlock()

	b.transitioned(b.name, StateHalfOpen, StateClosed)
}

func (b *Breaker) openError() error {
	open := *ErrCircuitOpen
	open.Details = b.name
	return &open
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	s := fromGobreaker(b.cb.State())
	if s != StateClosed {
		return s
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.confirming {
		return StateHalfOpen
	}
	return s
}

// Execute runs fn through the circuit. While open it returns ErrCircuitOpen
// without calling fn.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Do(b, func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do runs fn through b and returns its typed result.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	release, trial, ok := b.admit()
	if !ok {
		return zero, b.openError()
	}
	defer release()

	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if trial && (err == nil || !b.isExpected(err)) {
		b.confirm()
	}
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, b.openError()
		}
		if b.isExpected(err) {
			b.mu.Lock()
			b.lastFailure = time.Now().UTC()
			b.mu.Unlock()
		}
		if typed, ok := res.(T); ok {
			return typed, err
		}
		return zero, err
	}
	typed, _ := res.(T)
	return typed, nil
}

func (b *Breaker) Snapshot() Snapshot {
	// gobreaker holds its own lock while invoking OnStateChange, which takes
	// b.mu; read gobreaker state before taking b.mu to keep the lock order.
	state := b.State()
	counts := b.cb.Counts()

	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{
		Name:            b.name,
		State:           state,
		FailureCount:    counts.ConsecutiveFailures,
		SuccessCount:    counts.ConsecutiveSuccesses,
		LastStateChange: b.lastStateChange,
	}
	if !b.lastFailure.IsZero() {
		t := b.lastFailure
		s.LastFailureTime = &t
	}
	return s
}

// IsExpectedFailure counts transport errors, timeouts and upstream 5xx-class
// errors. Caller cancellation and client-side errors (4xx) do not trip the
// circuit.
func IsExpectedFailure(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr.Code >= 500
	}
	return true
}

// Registry hands out one breaker per downstream service.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	defaults func(name string) Settings
	logger   logger.Interface
}

func NewRegistry(defaults func(name string) Settings, log logger.Interface) *Registry {
	if defaults == nil {
		defaults = DefaultSettings
	}
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults,
		logger:   log,
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(r.defaults(name), r.logger)
	r.breakers[name] = b
	return b
}

func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	list := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		list = append(list, b)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(list))
	for _, b := range list {
		out = append(out, b.Snapshot())
	}
	return out
}
