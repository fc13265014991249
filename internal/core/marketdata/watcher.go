package marketdata

import (
	"sync"

	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

// Transport is the subscription surface of the orderbook WebSocket.
type Transport interface {
	Subscribe(tickers []string)
	Unsubscribe(tickers []string)
}

// Watcher maintains the local orderbook replica: one latest MarketUpdate
// per subscribed ticker. It is the sole writer of the cache; everyone
// else reads through Latest.
type Watcher struct {
	bus       *events.Bus
	transport Transport

	mu    sync.RWMutex
	cache map[string]events.MarketUpdate
}

func NewWatcher(bus *events.Bus, transport Transport) *Watcher {
	return &Watcher{
		bus:       bus,
		transport: transport,
		cache:     make(map[string]events.MarketUpdate),
	}
}

// Subscribe registers tickers on the transport. Idempotent — the
// transport de-dupes against its already-subscribed set.
func (w *Watcher) Subscribe(tickers []string) {
	if len(tickers) == 0 {
		return
	}
	w.transport.Subscribe(tickers)
}

// Unsubscribe drops tickers from the transport and evicts their cache
// entries.
func (w *Watcher) Unsubscribe(tickers []string) {
	w.transport.Unsubscribe(tickers)

	w.mu.Lock()
	for _, t := range tickers {
		delete(w.cache, t)
	}
	w.mu.Unlock()
}

// Latest returns the most recent update for a ticker. O(1), never blocks.
func (w *Watcher) Latest(ticker string) (events.MarketUpdate, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	mu, ok := w.cache[ticker]
	return mu, ok
}

// HandleUpdate caches the update and republishes a copy on the bus.
// Installed as the WebSocket client's frame callback.
func (w *Watcher) HandleUpdate(mu events.MarketUpdate) {
	w.mu.Lock()
	w.cache[mu.Ticker] = mu
	w.mu.Unlock()

	telemetry.Metrics.MarketUpdates.Inc()
	w.bus.PublishMarketUpdate(mu)
}

// Tickers returns the cached ticker set, for the shutdown summary.
func (w *Watcher) Tickers() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.cache))
	for t := range w.cache {
		out = append(out, t)
	}
	return out
}
