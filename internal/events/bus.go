package events

import (
	"sync/atomic"

	"kalshi-sniper/internal/telemetry"
)

// Channel capacities reflect staleness tolerance:
//
//	game events    50  — if the Brain falls 50 score events behind, they are worthless
//	market updates 200 — orderbook deltas arrive faster than score events
//	trade signals  10  — the Brain should stall rather than queue ahead of a lagging Sniper
//	fill reports   100 — the Shield processes async, conservative cap
const (
	gameEventsCap    = 50
	marketUpdatesCap = 200
	tradeSignalsCap  = 10
	fillReportsCap   = 100
)

// Bus is the typed in-process event bus connecting the agents.
// Publish is non-blocking and best-effort: on a full channel the event is
// dropped and logged. Consumers block on channel receive.
type Bus struct {
	GameEvents    chan ScoreEvent
	MarketUpdates chan MarketUpdate
	TradeSignals  chan TradeSignal
	FillReports   chan FillReport

	gameDrops   atomic.Int64
	marketDrops atomic.Int64
	fillDrops   atomic.Int64
}

func NewBus() *Bus {
	return &Bus{
		GameEvents:    make(chan ScoreEvent, gameEventsCap),
		MarketUpdates: make(chan MarketUpdate, marketUpdatesCap),
		TradeSignals:  make(chan TradeSignal, tradeSignalsCap),
		FillReports:   make(chan FillReport, fillReportsCap),
	}
}

// PublishScoreEvent drops the event when the channel is full — a backlog
// that deep means the data is already stale.
func (b *Bus) PublishScoreEvent(ev ScoreEvent) {
	select {
	case b.GameEvents <- ev:
		telemetry.Metrics.ScoreEventsPublished.Inc()
	default:
		telemetry.Metrics.EventsDropped.Inc()
		if n := b.gameDrops.Add(1); n == 1 || n%100 == 0 {
			telemetry.Warnf("bus: game_events full — dropping stale event for game=%s (×%d)", ev.GameID, n)
		}
	}
}

func (b *Bus) PublishMarketUpdate(mu MarketUpdate) {
	select {
	case b.MarketUpdates <- mu:
	default:
		telemetry.Metrics.EventsDropped.Inc()
		if n := b.marketDrops.Add(1); n == 1 || n%100 == 0 {
			telemetry.Warnf("bus: market_updates full — dropping update for %s (×%d)", mu.Ticker, n)
		}
	}
}

// PublishTradeSignal logs at error level on drop: a lost signal is lost
// money, and it means the Sniper is overloaded.
func (b *Bus) PublishTradeSignal(sig TradeSignal) {
	select {
	case b.TradeSignals <- sig:
		telemetry.Metrics.SignalsEmitted.Inc()
	default:
		telemetry.Metrics.SignalsDropped.Inc()
		telemetry.Errorf("bus: trade_signals full — signal %s DROPPED", sig.SignalID)
	}
}

func (b *Bus) PublishFillReport(fr FillReport) {
	select {
	case b.FillReports <- fr:
	default:
		telemetry.Metrics.EventsDropped.Inc()
		if n := b.fillDrops.Add(1); n == 1 || n%100 == 0 {
			telemetry.Warnf("bus: fill_reports full — dropping report for order=%s (×%d)", fr.OrderID, n)
		}
	}
}
