package risk

import (
	"sync"

	"kalshi-sniper/internal/telemetry"
)

// State is the account's live risk position. The Shield is its only
// mutator; the Brain reads IsHalted before every signal.
type State struct {
	mu                sync.Mutex
	openExposureCents int64
	realizedPnLCents  int64
	tradesToday       int
	halted            bool
	haltReason        string
}

func NewState() *State {
	return &State{}
}

// ApplyFill books a new position: cost is added to open exposure.
func (s *State) ApplyFill(costCents int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openExposureCents += costCents
	s.tradesToday++
}

// ApplySettlement realizes a position's outcome: the original cost comes
// off exposure and the P&L lands on the day's total.
func (s *State) ApplySettlement(pnlCents, costCents int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.realizedPnLCents += pnlCents
	s.openExposureCents -= costCents
	if s.openExposureCents < 0 {
		s.openExposureCents = 0
	}
}

// Halt flips the one-way stop flag. Idempotent.
func (s *State) Halt(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted {
		return
	}
	s.halted = true
	s.haltReason = reason
	telemetry.Errorf("risk: HALTED — %s", reason)
}

// Resume clears the halt. Operator-initiated; nothing in the pipeline
// calls this automatically.
func (s *State) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = false
	s.haltReason = ""
	telemetry.Infof("risk: resumed")
}

func (s *State) IsHalted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// Snapshot is a consistent read of the current position, for limit
// checks and the shutdown summary.
type Snapshot struct {
	OpenExposureCents int64
	RealizedPnLCents  int64
	TradesToday       int
	Halted            bool
	HaltReason        string
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		OpenExposureCents: s.openExposureCents,
		RealizedPnLCents:  s.realizedPnLCents,
		TradesToday:       s.tradesToday,
		Halted:            s.halted,
		HaltReason:        s.haltReason,
	}
}
