package strategy

import (
	"testing"

	"kalshi-sniper/internal/events"
)

func TestWinProbabilitySteps(t *testing.T) {
	bb := events.SportNCAABasketball
	tests := []struct {
		sport  events.Sport
		lead   int
		period int
		want   float64
	}{
		{bb, 4, 2, 0},    // below smallest step
		{bb, 5, 2, 0.68},
		{bb, 7, 2, 0.78},
		{bb, 10, 2, 0.86},
		{bb, 15, 2, 0.93},
		{bb, 20, 2, 0.97},
		{bb, 25, 2, 0.97}, // beyond top step
		{bb, 20, 1, 0},    // first half never trades
		{bb, 0, 2, 0},
		{bb, -3, 2, 0},
		{events.SportPremierLeague, 1, 2, 0.68},
		{events.SportPremierLeague, 2, 2, 0.91},
		{events.SportChampionsLeague, 3, 2, 0.97},
		{events.SportPremierLeague, 2, 1, 0},
	}
	for _, tt := range tests {
		if got := WinProbability(tt.sport, tt.lead, tt.period); got != tt.want {
			t.Errorf("WinProbability(%s, lead=%d, period=%d) = %v, want %v",
				tt.sport, tt.lead, tt.period, got, tt.want)
		}
	}
}

func TestGate(t *testing.T) {
	g := NewGate()
	if g.AnyActive() {
		t.Fatal("fresh gate must be idle")
	}

	g.Activate("g1")
	g.Activate("g1") // idempotent
	if !g.IsActive("g1") || !g.AnyActive() {
		t.Error("g1 should be active")
	}
	if g.IsActive("g2") {
		t.Error("g2 was never activated")
	}

	g.Activate("g2")
	g.Deactivate("g1")
	if g.IsActive("g1") {
		t.Error("g1 should be inactive after deactivate")
	}
	if !g.AnyActive() {
		t.Error("g2 still active")
	}
	g.Deactivate("g2")
	if g.AnyActive() {
		t.Error("gate should be idle again")
	}
}
