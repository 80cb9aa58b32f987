// package quota tracks the per-identity daily unit budget of the remote API.
//
// The ledger is pure local arithmetic: it never performs network calls and
// only accounts the costs the orchestrator reports after successful writes.
// Consumed units reset once per day at a boundary anchored to the remote
// service's reference timezone, not the user's local one.
package quota

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"ytbatch/internal/shared"
)

// referenceZone is the remote service's quota reset timezone.
const referenceZone = "America/Los_Angeles"

// State holds the accounting record for one identity.
type State struct {
	Identity  string
	Allocated int
	Consumed  int
	LastReset time.Time
}

// Remaining returns the unspent units.
func (s State) Remaining() int {
	return s.Allocated - s.Consumed
}

// StateStore persists quota states across process restarts.
type StateStore interface {
	Load(identity string) (*State, error)
	Save(state State) error
}

// Ledger tracks consumed/remaining budget for a set of identities.
type Ledger struct {
	mu     sync.Mutex
	states map[string]*State
	store  StateStore
	margin int
	loc    *time.Location
	now    func() time.Time
}

// LedgerOpts contains configuration options for creating a Ledger.
type LedgerOpts struct {
	Store        StateStore // optional persistence; nil keeps state in memory
	SafetyMargin int
	Now          func() time.Time // test hook, defaults to time.Now
}

// NewLedger creates a ledger with one state record per identity, restoring
// persisted consumption where a store is provided.
func NewLedger(identities []shared.IdentityConfig, opts LedgerOpts) (*Ledger, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	loc, err := time.LoadLocation(referenceZone)
	if err != nil {
		// Fixed offset fallback keeps the boundary stable when tzdata is absent.
		loc = time.FixedZone("PT", -8*60*60)
	}

	ledger := &Ledger{
		states: make(map[string]*State, len(identities)),
		store:  opts.Store,
		margin: opts.SafetyMargin,
		loc:    loc,
		now:    opts.Now,
	}

	for _, id := range identities {
		state := &State{
			Identity:  id.Name,
			Allocated: id.DailyBudget,
			LastReset: ledger.lastBoundary(),
		}

		if opts.Store != nil {
			persisted, err := opts.Store.Load(id.Name)
			if err != nil {
				return nil, fmt.Errorf("failed to load quota state for %s: %w", id.Name, err)
			}
			if persisted != nil {
				state.Consumed = persisted.Consumed
				state.LastReset = persisted.LastReset
			}
		}

		ledger.states[id.Name] = state
	}

	return ledger, nil
}

// CanSpend reports whether the identity can afford cost units without
// crossing into the safety margin. Never returns an error; unknown
// identities simply cannot spend.
func (l *Ledger) CanSpend(identity string, cost int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[identity]
	if !ok {
		return false
	}
	l.applyReset(state)

	return state.Consumed+cost <= state.Allocated-l.margin
}

// Record accounts cost units against the identity. The orchestrator calls
// this exactly once per successful remote call. Negative costs and unknown
// identities are contract violations.
func (l *Ledger) Record(identity string, cost int) error {
	if cost < 0 {
		panic(fmt.Sprintf("quota: negative cost %d recorded for %s", cost, identity))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[identity]
	if !ok {
		panic(fmt.Sprintf("quota: record against unknown identity %q", identity))
	}
	l.applyReset(state)

	state.Consumed += cost
	return l.persist(state)
}

// RemainingRatio returns the fraction of the daily budget still unspent,
// in [0.0, 1.0]. Unknown identities report 0.
func (l *Ledger) RemainingRatio(identity string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[identity]
	if !ok || state.Allocated <= 0 {
		return 0
	}
	l.applyReset(state)

	ratio := float64(state.Remaining()) / float64(state.Allocated)
	if ratio < 0 {
		return 0
	}
	return ratio
}

// TimeUntilReset returns the duration until the next daily boundary. All
// identities share the same boundary clock.
func (l *Ledger) TimeUntilReset(identity string) time.Duration {
	now := l.now()
	return l.nextBoundary().Sub(now)
}

// States returns a snapshot of all accounting records, sorted by identity
// name, for reporting.
func (l *Ledger) States() []State {
	l.mu.Lock()
	defer l.mu.Unlock()

	states := make([]State, 0, len(l.states))
	for _, state := range l.states {
		l.applyReset(state)
		states = append(states, *state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Identity < states[j].Identity
	})
	return states
}

// applyReset zeroes consumed-today when a boundary has passed since the
// state's last reset. Idempotent within a boundary period: repeated checks
// advance LastReset at most once.
func (l *Ledger) applyReset(state *State) {
	boundary := l.lastBoundary()
	if state.LastReset.Before(boundary) {
		state.Consumed = 0
		state.LastReset = boundary
		_ = l.persist(state)
	}
}

// lastBoundary is the most recent midnight in the reference timezone.
func (l *Ledger) lastBoundary() time.Time {
	now := l.now().In(l.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, l.loc)
}

func (l *Ledger) nextBoundary() time.Time {
	return l.lastBoundary().AddDate(0, 0, 1)
}

func (l *Ledger) persist(state *State) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Save(*state); err != nil {
		return fmt.Errorf("failed to persist quota state for %s: %w", state.Identity, err)
	}
	return nil
}
