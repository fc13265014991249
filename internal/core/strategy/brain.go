package strategy

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kalshi-sniper/internal/adapters/outbound/kalshi_http"
	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

// MarketFetcher adds the single-market lookup used as the Brain's REST
// fallback when the socket has not delivered a snapshot yet.
type MarketFetcher interface {
	MarketLister
	GetMarket(ctx context.Context, ticker string) (kalshi_http.Market, error)
}

// MarketCache is the Watcher surface the Brain reads.
type MarketCache interface {
	Subscribe(tickers []string)
	Latest(ticker string) (events.MarketUpdate, bool)
}

// HaltReader is the Shield's halt flag, checked before every signal.
type HaltReader interface {
	IsHalted() bool
}

// Params are the tunables of the signal path.
type Params struct {
	MinEdgeCents          int
	MaxSlippageCents      int
	MaxSpendPerTradeCents int
	MaxQuantity           int
	FeeRate               float64

	// Per-sport series tickers. A sport absent from MoneylineSeries
	// trades totals only.
	TotalsSeries    map[events.Sport]string
	MoneylineSeries map[events.Sport]string
}

// A game activates the crunch gate when the lowest unfired threshold's
// YES ask reaches this price: the market thinks the line will go over.
const crunchAskCents = 60

// Failed registrations retry at most once per minute, with a fresh
// market-list fetch.
const registrationRetry = 60 * time.Second

type regStatus int

const (
	regPending regStatus = iota
	regRegistered
	regFailed
)

type regState struct {
	status   regStatus
	failedAt time.Time
}

// Brain consumes score events and emits trade signals. Single consumer
// goroutine: the hot path never blocks on I/O except the REST fallback,
// and the at-most-once guarantee comes from flipping AlreadyTriggered
// before any such call.
type Brain struct {
	bus        *events.Bus
	cache      MarketCache
	rest       MarketFetcher
	catalog    *Catalog
	thresholds *ThresholdMap
	moneylines *MoneylineMap
	gate       *Gate
	params     Params

	risk    HaltReader
	onFinal func(gameID string)

	now func() time.Time

	mu         sync.Mutex
	totalsReg  map[string]*regState
	mlReg      map[string]*regState
	prevScores map[string][2]int
}

func NewBrain(
	bus *events.Bus,
	cache MarketCache,
	rest MarketFetcher,
	catalog *Catalog,
	thresholds *ThresholdMap,
	moneylines *MoneylineMap,
	gate *Gate,
	params Params,
) *Brain {
	if params.FeeRate == 0 {
		params.FeeRate = DefaultFeeRate
	}
	return &Brain{
		bus:        bus,
		cache:      cache,
		rest:       rest,
		catalog:    catalog,
		thresholds: thresholds,
		moneylines: moneylines,
		gate:       gate,
		params:     params,
		now:        time.Now,
		totalsReg:  make(map[string]*regState),
		mlReg:      make(map[string]*regState),
		prevScores: make(map[string][2]int),
	}
}

// SetRisk injects the Shield's halt flag after construction; the Shield
// is built later in the wiring order.
func (b *Brain) SetRisk(r HaltReader) { b.risk = r }

// SetFinalHook registers a callback invoked once per game on finality
// (the Oracle uses it to drop its dedup record).
func (b *Brain) SetFinalHook(fn func(gameID string)) { b.onFinal = fn }

func (b *Brain) Run(ctx context.Context) {
	telemetry.Infof("brain: running")
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.bus.GameEvents:
			b.processEvent(ctx, ev)
		}
	}
}

func (b *Brain) processEvent(ctx context.Context, ev events.ScoreEvent) {
	prev, hadPrev := b.prevScore(ev.GameID)
	b.setPrevScore(ev.GameID, ev.HomeScore, ev.AwayScore)

	if ev.IsFinal {
		b.finishGame(ev)
		return
	}

	b.ensureTotalsRegistration(ctx, ev)
	b.ensureMoneylineRegistration(ctx, ev)

	if b.registered(b.totalsReg, ev.GameID) {
		b.evaluateCrunch(ev)
		b.evaluateThresholds(ctx, ev)
	}
	if b.registered(b.mlReg, ev.GameID) && hadPrev {
		b.evaluateMoneylines(ev, prev)
	}
}

func (b *Brain) finishGame(ev events.ScoreEvent) {
	b.thresholds.UnregisterGame(ev.Sport, ev.GameID)
	b.moneylines.UnregisterGame(ev.Sport, ev.GameID)
	b.gate.Deactivate(ev.GameID)

	b.mu.Lock()
	delete(b.totalsReg, ev.GameID)
	delete(b.mlReg, ev.GameID)
	delete(b.prevScores, ev.GameID)
	b.mu.Unlock()

	if b.onFinal != nil {
		b.onFinal(ev.GameID)
	}
	telemetry.Infof("brain: game=%s final (%s %d - %d %s)",
		ev.GameID, ev.AwayTeam, ev.AwayScore, ev.HomeScore, ev.HomeTeam)
}

// --- totals hot path ---

func (b *Brain) evaluateThresholds(ctx context.Context, ev events.ScoreEvent) {
	for _, entry := range b.thresholds.GetEntries(ev.Sport, ev.GameID) {
		if entry.AlreadyTriggered || ev.TotalScore < entry.TriggerScore {
			continue
		}
		b.fireThreshold(ctx, ev, entry)
	}
}

// fireThreshold latches the entry, then validates halt, market data and
// edge. The latch comes first: a failure below must never re-fire.
func (b *Brain) fireThreshold(ctx context.Context, ev events.ScoreEvent, entry *ThresholdEntry) {
	entry.AlreadyTriggered = true

	if b.risk != nil && b.risk.IsHalted() {
		telemetry.Warnf("brain: halted — skipping signal for %s", entry.MarketTicker)
		return
	}

	yesAsk, ok := b.currentYesAsk(ctx, entry.MarketTicker)
	if !ok {
		telemetry.Warnf("brain: no market data for %s — signal skipped", entry.MarketTicker)
		return
	}

	if !HasEdge(yesAsk, b.params.MinEdgeCents, b.params.FeeRate) {
		telemetry.Infof("brain: no edge on %s yes_ask=%d min_edge=%d — skipping",
			entry.MarketTicker, yesAsk, b.params.MinEdgeCents)
		return
	}

	limit := min(yesAsk+b.params.MaxSlippageCents, MaxTradeablePrice(b.params.MinEdgeCents, b.params.FeeRate))
	qty := ClampQuantity(b.params.MaxSpendPerTradeCents, yesAsk, b.params.MaxQuantity)

	sig := events.TradeSignal{
		SignalID:      uuid.NewString(),
		Ticker:        entry.MarketTicker,
		Side:          entry.Side,
		MaxPriceCents: limit,
		Quantity:      qty,
		GameID:        ev.GameID,
		GeneratedAt:   b.now(),
	}
	b.bus.PublishTradeSignal(sig)
	telemetry.Infof("brain SIGNAL: game=%s total=%d trigger=%d ticker=%s yes_ask=%d limit=%d qty=%d id=%s",
		ev.GameID, ev.TotalScore, entry.TriggerScore, entry.MarketTicker, yesAsk, limit, qty, sig.SignalID)
}

// currentYesAsk reads the Watcher cache, falling back to one REST lookup
// when the socket has not delivered a snapshot. An empty book (ask 100,
// bid 0) means the market is halted — not tradeable.
func (b *Brain) currentYesAsk(ctx context.Context, ticker string) (int, bool) {
	if mu, ok := b.cache.Latest(ticker); ok {
		return mu.YesAsk, true
	}

	mkt, err := b.rest.GetMarket(ctx, ticker)
	if err != nil {
		telemetry.Warnf("brain: REST fallback for %s failed: %v", ticker, err)
		return 0, false
	}
	if mkt.YesAsk >= 100 && mkt.YesBid <= 0 {
		return 0, false
	}
	return mkt.YesAsk, true
}

// evaluateCrunch activates the poll accelerator when the lowest unfired
// threshold prices in: YES ask at or above 60 means the market expects
// the total to cross.
func (b *Brain) evaluateCrunch(ev events.ScoreEvent) {
	if b.gate.IsActive(ev.GameID) {
		return
	}
	for _, entry := range b.thresholds.GetEntries(ev.Sport, ev.GameID) {
		if entry.AlreadyTriggered {
			continue
		}
		if mu, ok := b.cache.Latest(entry.MarketTicker); ok && mu.YesAsk >= crunchAskCents {
			b.gate.Activate(ev.GameID)
		}
		return // only the lowest unfired line matters
	}
}

// --- moneyline path ---

func (b *Brain) evaluateMoneylines(ev events.ScoreEvent, prev [2]int) {
	homeScored := ev.HomeScore > prev[0]
	awayScored := ev.AwayScore > prev[1]
	if !homeScored && !awayScored {
		return
	}

	now := b.now()
	for _, entry := range b.moneylines.GetEntries(ev.Sport, ev.GameID) {
		var scored bool
		var lead int
		switch entry.TeamSide {
		case TeamHome:
			scored, lead = homeScored, ev.HomeScore-ev.AwayScore
		case TeamAway:
			scored, lead = awayScored, ev.AwayScore-ev.HomeScore
		}
		if !scored || lead <= 0 || entry.OnCooldown(now) {
			continue
		}

		prob := WinProbability(ev.Sport, lead, ev.Period)
		if prob == 0 {
			continue
		}

		if b.risk != nil && b.risk.IsHalted() {
			telemetry.Warnf("brain: halted — skipping moneyline signal for %s", entry.MarketTicker)
			continue
		}

		mu, ok := b.cache.Latest(entry.MarketTicker)
		if !ok {
			continue
		}
		ask := mu.YesAsk
		if entry.TradeSide == events.SideNo {
			ask = mu.NoAsk
		}
		edge := MoneylineEdge(prob, ask, b.params.FeeRate)
		if edge < b.params.MinEdgeCents {
			continue
		}

		entry.MarkSignaled(now)
		limit := min(ask+b.params.MaxSlippageCents, int(100.0*prob*(1.0-b.params.FeeRate))-b.params.MinEdgeCents)
		sig := events.TradeSignal{
			SignalID:      uuid.NewString(),
			Ticker:        entry.MarketTicker,
			Side:          entry.TradeSide,
			MaxPriceCents: limit,
			Quantity:      ClampQuantity(b.params.MaxSpendPerTradeCents, ask, b.params.MaxQuantity),
			GameID:        ev.GameID,
			GeneratedAt:   now,
		}
		b.bus.PublishTradeSignal(sig)
		telemetry.Infof("brain ML SIGNAL: game=%s %s leads by %d p=%.2f ticker=%s ask=%d edge=%d id=%s",
			ev.GameID, entry.TeamSide, lead, prob, entry.MarketTicker, ask, edge, sig.SignalID)
	}
}

// --- registration state machines ---

func (b *Brain) registered(states map[string]*regState, gameID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := states[gameID]
	return st != nil && st.status == regRegistered
}

// shouldRegister transitions the game to pending when it is unseen, or
// when a failed registration is past the retry interval. Returns true
// when the caller owns the (re)registration attempt.
func (b *Brain) shouldRegister(states map[string]*regState, gameID, series string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := states[gameID]
	switch {
	case st == nil:
		states[gameID] = &regState{status: regPending}
		return true
	case st.status == regFailed && b.now().Sub(st.failedAt) >= registrationRetry:
		st.status = regPending
		b.catalog.Invalidate(series)
		return true
	default:
		return false
	}
}

func (b *Brain) setRegResult(states map[string]*regState, gameID string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := states[gameID]
	if st == nil {
		return // game finished while registering
	}
	if ok {
		st.status = regRegistered
	} else {
		st.status = regFailed
		st.failedAt = b.now()
	}
}

func (b *Brain) ensureTotalsRegistration(ctx context.Context, ev events.ScoreEvent) {
	series := b.params.TotalsSeries[ev.Sport]
	if series == "" {
		return
	}
	if !b.shouldRegister(b.totalsReg, ev.GameID, series) {
		return
	}
	go b.registerTotals(ctx, ev, series)
}

func (b *Brain) registerTotals(ctx context.Context, ev events.ScoreEvent, series string) {
	markets, err := b.catalog.TodaysMarkets(ctx, series)
	if err != nil {
		telemetry.Errorf("brain: market fetch for %s failed: %v", series, err)
		b.setRegResult(b.totalsReg, ev.GameID, false)
		return
	}

	group := marketsForGame(markets, ev.HomeTeam, ev.AwayTeam)
	if len(group.markets) == 0 {
		telemetry.Warnf("brain: no listed totals for game=%s (%s vs %s) — will retry",
			ev.GameID, ev.AwayTeam, ev.HomeTeam)
		b.setRegResult(b.totalsReg, ev.GameID, false)
		return
	}

	entries := BuildEntries(ev.TotalScore, group.markets)
	if len(entries) == 0 {
		telemetry.Warnf("brain: no threshold entries built for game=%s", ev.GameID)
		b.setRegResult(b.totalsReg, ev.GameID, false)
		return
	}

	tickers := make([]string, len(group.markets))
	for i, m := range group.markets {
		tickers[i] = m.Ticker
	}
	b.cache.Subscribe(tickers)

	b.thresholds.RegisterGame(ev.Sport, ev.GameID, entries)
	b.setRegResult(b.totalsReg, ev.GameID, true)

	var next []int
	for _, e := range entries {
		if !e.AlreadyTriggered && len(next) < 5 {
			next = append(next, e.TriggerScore)
		}
	}
	telemetry.Infof("brain: registered %d thresholds for game=%s (total=%d), next triggers %v",
		len(entries), ev.GameID, ev.TotalScore, next)
}

func (b *Brain) ensureMoneylineRegistration(ctx context.Context, ev events.ScoreEvent) {
	series := b.params.MoneylineSeries[ev.Sport]
	if series == "" {
		return
	}
	if !b.shouldRegister(b.mlReg, ev.GameID, series) {
		return
	}
	go b.registerMoneylines(ctx, ev, series)
}

func (b *Brain) registerMoneylines(ctx context.Context, ev events.ScoreEvent, series string) {
	markets, err := b.catalog.TodaysMarkets(ctx, series)
	if err != nil {
		telemetry.Errorf("brain: market fetch for %s failed: %v", series, err)
		b.setRegResult(b.mlReg, ev.GameID, false)
		return
	}

	group := marketsForGame(markets, ev.HomeTeam, ev.AwayTeam)
	entries := buildMoneylineEntries(group)
	if len(entries) == 0 {
		telemetry.Warnf("brain: no moneyline markets for game=%s — will retry", ev.GameID)
		b.setRegResult(b.mlReg, ev.GameID, false)
		return
	}

	tickers := make([]string, 0, len(entries))
	for _, e := range entries {
		tickers = append(tickers, e.MarketTicker)
	}
	b.cache.Subscribe(tickers)

	b.moneylines.RegisterGame(ev.Sport, ev.GameID, entries)
	b.setRegResult(b.mlReg, ev.GameID, true)
}

// --- market-to-game matching ---

// gameMarkets is one game's market group plus the full team names parsed
// from the exchange title.
type gameMarkets struct {
	markets  []kalshi_http.Market
	homeName string
	awayName string
}

// marketsForGame finds the market group whose title names both teams.
// Markets sharing a title belong to the same game.
func marketsForGame(markets []kalshi_http.Market, homeAbbrev, awayAbbrev string) gameMarkets {
	groups := make(map[string][]kalshi_http.Market)
	order := make([]string, 0, 8)
	for _, m := range markets {
		if _, seen := groups[m.Title]; !seen {
			order = append(order, m.Title)
		}
		groups[m.Title] = append(groups[m.Title], m)
	}

	for _, title := range order {
		away, home, ok := ParseTitle(title)
		if !ok {
			continue
		}
		if AbbrevMatchesName(homeAbbrev, home) && AbbrevMatchesName(awayAbbrev, away) {
			return gameMarkets{markets: groups[title], homeName: home, awayName: away}
		}
	}
	return gameMarkets{}
}

// buildMoneylineEntries maps the group's layout to entries. A single
// binary market carries both sides; a "Will X win?" pair gets one YES
// entry each, matched through the yes_sub_title.
func buildMoneylineEntries(group gameMarkets) []*MoneylineEntry {
	switch len(group.markets) {
	case 0:
		return nil
	case 1:
		t := group.markets[0].Ticker
		return []*MoneylineEntry{
			{MarketTicker: t, TeamSide: TeamHome, TradeSide: events.SideYes},
			{MarketTicker: t, TeamSide: TeamAway, TradeSide: events.SideNo},
		}
	}

	var entries []*MoneylineEntry
	for _, m := range group.markets {
		sub := m.YesSubTitle
		switch {
		case nameMatches(sub, group.homeName):
			entries = append(entries, &MoneylineEntry{
				MarketTicker: m.Ticker, TeamSide: TeamHome, TradeSide: events.SideYes,
			})
		case nameMatches(sub, group.awayName):
			entries = append(entries, &MoneylineEntry{
				MarketTicker: m.Ticker, TeamSide: TeamAway, TradeSide: events.SideYes,
			})
		}
	}
	return entries
}

func nameMatches(subTitle, fullName string) bool {
	if subTitle == "" || fullName == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(subTitle), strings.ToUpper(fullName))
}

// --- previous-score bookkeeping ---

func (b *Brain) prevScore(gameID string) ([2]int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.prevScores[gameID]
	return s, ok
}

func (b *Brain) setPrevScore(gameID string, home, away int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prevScores[gameID] = [2]int{home, away}
}
