package events

import "time"

type Sport string

const (
	SportNCAABasketball  Sport = "ncaa_basketball"
	SportPremierLeague   Sport = "premier_league"
	SportChampionsLeague Sport = "champions_league"
)

// Basketball reports whether the sport scores in points rather than goals.
func (s Sport) Basketball() bool { return s == SportNCAABasketball }

type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Fill statuses as reported by the exchange (or synthesized on rejection).
const (
	FillStatusFilled    = "filled"
	FillStatusPartial   = "partial"
	FillStatusRejected  = "rejected"
	FillStatusCancelled = "cancelled"
	FillStatusUnknown   = "unknown"
)

// ScoreEvent is the canonical representation of a live score update from
// any sports provider. Immutable once published; ReceivedAt is captured at
// socket receive time, not parse time.
type ScoreEvent struct {
	EventID    string // provider-side id, used for telemetry
	Sport      Sport
	GameID     string // stable identifier for the match
	HomeTeam   string
	AwayTeam   string
	HomeScore  int
	AwayScore  int
	TotalScore int // always HomeScore + AwayScore
	GameClock  string
	Period     int // quarter/half, 1-based
	IsFinal    bool
	ReceivedAt time.Time
	Provider   string
}

// MarketUpdate is a snapshot of the exchange orderbook for one contract.
// The Watcher mutates its cached copy in place; copies published on the
// bus are never modified again. Prices are cents on the 0-100 scale.
type MarketUpdate struct {
	Ticker     string
	YesBid     int
	YesAsk     int
	NoBid      int
	NoAsk      int
	YesVolume  int // contracts available at best YES ask
	Sequence   int64
	ReceivedAt time.Time
}

// TradeSignal is emitted by the Brain and consumed by the Sniper.
// Kept minimal — every extra field is wasted time on the hot path.
type TradeSignal struct {
	SignalID      string
	Ticker        string
	Side          Side
	MaxPriceCents int // limit price: never pay more than this
	Quantity      int
	GameID        string
	GeneratedAt   time.Time
}

// FillReport is published by the Sniper after every order attempt and
// consumed by the Shield.
type FillReport struct {
	SignalID      string
	OrderID       string
	Ticker        string
	Side          Side
	FilledQty     int
	AvgPriceCents int
	Status        string
	FilledAt      time.Time
	Latency       time.Duration // FilledAt - signal.GeneratedAt
}
