package strategy

import (
	"sync"

	"kalshi-sniper/internal/telemetry"
)

// Gate is the crunch-time poll accelerator: the Brain activates a game
// when a threshold is close to its trigger, feed clients read AnyActive
// to choose fast or slow cadence. Activation is sticky until finality.
type Gate struct {
	mu     sync.RWMutex
	active map[string]bool
}

func NewGate() *Gate {
	return &Gate{active: make(map[string]bool)}
}

func (g *Gate) Activate(gameID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[gameID] {
		return
	}
	g.active[gameID] = true
	telemetry.Metrics.ActiveGames.Set(int64(len(g.active)))
	telemetry.Infof("crunch: game=%s active — feeds polling fast", gameID)
}

func (g *Gate) Deactivate(gameID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, gameID)
	telemetry.Metrics.ActiveGames.Set(int64(len(g.active)))
}

func (g *Gate) IsActive(gameID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active[gameID]
}

func (g *Gate) AnyActive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.active) > 0
}
