package strategy

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"kalshi-sniper/internal/adapters/outbound/kalshi_http"
	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

// ThresholdEntry is one tradeable totals line for one contract.
// AlreadyTriggered is a one-shot latch: set before the first signal is
// evaluated, never cleared, so no entry can fire twice.
type ThresholdEntry struct {
	TriggerScore     int
	MarketTicker     string
	Side             events.Side // always yes for Over contracts
	AlreadyTriggered bool
}

// ThresholdMap maps (sport, game) to its sorted threshold entries. Built
// once at registration, scanned on every score event.
type ThresholdMap struct {
	mu sync.Mutex
	m  map[events.Sport]map[string][]*ThresholdEntry
}

func NewThresholdMap() *ThresholdMap {
	return &ThresholdMap{m: make(map[events.Sport]map[string][]*ThresholdEntry)}
}

func (t *ThresholdMap) RegisterGame(sport events.Sport, gameID string, entries []*ThresholdEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.m[sport] == nil {
		t.m[sport] = make(map[string][]*ThresholdEntry)
	}
	t.m[sport][gameID] = entries
	telemetry.Infof("thresholds: registered %d entries for game=%s sport=%s", len(entries), gameID, sport)
}

func (t *ThresholdMap) UnregisterGame(sport events.Sport, gameID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m[sport], gameID)
}

// GetEntries returns the live entry slice for the hot-path scan. The
// Brain is the only mutator of AlreadyTriggered.
func (t *ThresholdMap) GetEntries(sport events.Sport, gameID string) []*ThresholdEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m[sport][gameID]
}

func (t *ThresholdMap) ActiveGames(sport events.Sport) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	games := make([]string, 0, len(t.m[sport]))
	for id := range t.m[sport] {
		games = append(games, id)
	}
	return games
}

// BuildEntries converts the exchange's totals contracts for one game into
// threshold entries. Lines at or below the current total are pre-marked
// triggered so they are visible in logs but never fire. Entries come back
// sorted ascending by trigger.
func BuildEntries(currentTotal int, markets []kalshi_http.Market) []*ThresholdEntry {
	var entries []*ThresholdEntry
	for _, mkt := range markets {
		trigger, ok := TriggerFromTicker(mkt.Ticker)
		if !ok {
			continue
		}
		entries = append(entries, &ThresholdEntry{
			TriggerScore:     trigger,
			MarketTicker:     mkt.Ticker,
			Side:             events.SideYes,
			AlreadyTriggered: trigger <= currentTotal,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].TriggerScore < entries[j].TriggerScore
	})
	return entries
}

// TriggerFromTicker parses the trailing integer of a totals ticker:
//
//	KXNCAAMBTOTAL-26FEB19WEBBRAD-177 -> 177
func TriggerFromTicker(ticker string) (int, bool) {
	idx := strings.LastIndexByte(ticker, '-')
	if idx < 0 || idx == len(ticker)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(ticker[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
