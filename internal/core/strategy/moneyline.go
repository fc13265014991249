package strategy

import (
	"sync"
	"time"

	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

// SignalCooldown is the minimum gap between two signals on the same
// moneyline entry. 45 s covers a full possession plus transitions, so a
// quick score trade cannot spam orders.
const SignalCooldown = 45 * time.Second

type TeamSide string

const (
	TeamHome TeamSide = "home"
	TeamAway TeamSide = "away"
)

// MoneylineEntry is one tradeable winner position. Unlike thresholds an
// entry can fire repeatedly, throttled by the cooldown.
//
// The exchange lists winner markets in two layouts: a single binary
// market (YES = home wins, NO = away wins) produces two entries on one
// ticker; a pair of "Will X win?" markets produces one YES entry each.
type MoneylineEntry struct {
	MarketTicker string
	TeamSide     TeamSide
	TradeSide    events.Side

	lastSignaled time.Time
}

func (e *MoneylineEntry) OnCooldown(now time.Time) bool {
	return !e.lastSignaled.IsZero() && now.Sub(e.lastSignaled) < SignalCooldown
}

func (e *MoneylineEntry) MarkSignaled(now time.Time) {
	e.lastSignaled = now
}

// MoneylineMap maps (sport, game) to its winner entries, one or two per
// game.
type MoneylineMap struct {
	mu sync.Mutex
	m  map[events.Sport]map[string][]*MoneylineEntry
}

func NewMoneylineMap() *MoneylineMap {
	return &MoneylineMap{m: make(map[events.Sport]map[string][]*MoneylineEntry)}
}

func (ml *MoneylineMap) RegisterGame(sport events.Sport, gameID string, entries []*MoneylineEntry) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if ml.m[sport] == nil {
		ml.m[sport] = make(map[string][]*MoneylineEntry)
	}
	ml.m[sport][gameID] = entries
	telemetry.Infof("moneyline: registered %d entries for game=%s sport=%s", len(entries), gameID, sport)
}

func (ml *MoneylineMap) UnregisterGame(sport events.Sport, gameID string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.m[sport], gameID)
}

func (ml *MoneylineMap) GetEntries(sport events.Sport, gameID string) []*MoneylineEntry {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.m[sport][gameID]
}
