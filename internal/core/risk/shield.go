package risk

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

// Limits are the Shield's enforcement thresholds.
type Limits struct {
	MaxDailyLossCents    int64
	MaxOpenExposureCents int64
	MaxTradesPerGame     int
}

// Shield consumes fill reports and enforces account limits. Daily loss
// and exposure breaches halt the pipeline; the per-game cap only warns,
// since the Brain's one-shot latches already bound per-game activity.
type Shield struct {
	bus     *events.Bus
	state   *State
	limits  Limits
	journal *Journal // optional

	// fills per ticker; the per-game cap is applied per contract here
	fillCounts map[string]int
}

func NewShield(bus *events.Bus, state *State, limits Limits) *Shield {
	return &Shield{
		bus:        bus,
		state:      state,
		limits:     limits,
		fillCounts: make(map[string]int),
	}
}

// SetJournal attaches the durable fill log. Optional.
func (s *Shield) SetJournal(j *Journal) { s.journal = j }

func (s *Shield) Run(ctx context.Context) {
	telemetry.Infof("shield: running (daily loss $%s, exposure $%s)",
		dollars(s.limits.MaxDailyLossCents), dollars(s.limits.MaxOpenExposureCents))
	for {
		select {
		case <-ctx.Done():
			return
		case fr := <-s.bus.FillReports:
			s.processFill(fr)
		}
	}
}

func (s *Shield) processFill(fr events.FillReport) {
	telemetry.Metrics.FillsProcessed.Inc()

	if s.journal != nil {
		if err := s.journal.Record(fr); err != nil {
			telemetry.Warnf("shield: journal write failed: %v", err)
		}
	}

	if fr.Status != events.FillStatusFilled && fr.Status != events.FillStatusPartial {
		return
	}

	cost := int64(fr.AvgPriceCents) * int64(fr.FilledQty)
	s.state.ApplyFill(cost, fr.FilledQty)
	s.fillCounts[fr.Ticker]++

	snap := s.state.Snapshot()
	telemetry.Infof("shield: fill %s %dx%d¢ on %s — exposure $%s, trades today %d",
		fr.Status, fr.FilledQty, fr.AvgPriceCents, fr.Ticker,
		dollars(snap.OpenExposureCents), snap.TradesToday)

	s.enforce(snap, fr.Ticker)
}

// enforce applies the limits in severity order. Halt is one-way.
func (s *Shield) enforce(snap Snapshot, ticker string) {
	if snap.RealizedPnLCents < -s.limits.MaxDailyLossCents {
		s.state.Halt(fmt.Sprintf("daily loss $%s exceeds limit $%s",
			dollars(-snap.RealizedPnLCents), dollars(s.limits.MaxDailyLossCents)))
		return
	}
	if snap.OpenExposureCents > s.limits.MaxOpenExposureCents {
		s.state.Halt(fmt.Sprintf("open exposure $%s exceeds ceiling $%s",
			dollars(snap.OpenExposureCents), dollars(s.limits.MaxOpenExposureCents)))
		return
	}
	if s.limits.MaxTradesPerGame > 0 && s.fillCounts[ticker] > s.limits.MaxTradesPerGame {
		telemetry.Warnf("shield: %d fills on %s exceeds per-game cap %d",
			s.fillCounts[ticker], ticker, s.limits.MaxTradesPerGame)
	}
}

func dollars(cents int64) string {
	return humanize.CommafWithDigits(float64(cents)/100, 2)
}
