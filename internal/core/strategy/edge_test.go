package strategy

import "testing"

func TestEdgeMath(t *testing.T) {
	if got := NetPayoutCents(0.07); got != 93 {
		t.Errorf("net payout = %d, want 93", got)
	}
	if got := Edge(88, 0.07); got != 5 {
		t.Errorf("edge(88) = %d, want 5", got)
	}
	if got := Edge(95, 0.07); got != -2 {
		t.Errorf("edge(95) = %d, want -2", got)
	}
	if !HasEdge(88, 3, 0.07) {
		t.Error("ask 88 with min edge 3 must pass")
	}
	if HasEdge(91, 3, 0.07) {
		t.Error("ask 91 leaves only 2 cents — must fail")
	}
	if got := MaxTradeablePrice(3, 0.07); got != 90 {
		t.Errorf("max tradeable = %d, want 90", got)
	}
}

func TestMoneylineEdge(t *testing.T) {
	// 86% win prob: 100*0.86*0.93 = 79.98 -> 79 cents expected value.
	if got := MoneylineEdge(0.86, 70, 0.07); got != 9 {
		t.Errorf("moneyline edge = %d, want 9", got)
	}
	if got := MoneylineEdge(0.68, 70, 0.07); got >= 0 {
		t.Errorf("thin lead at ask 70 must be negative, got %d", got)
	}
}

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		spend, ask, maxQty, want int
	}{
		{2000, 88, 50, 22},
		{2000, 88, 10, 10}, // capped
		{50, 88, 50, 1},    // floor
		{2000, 0, 50, 50},  // ask clamped to 1
	}
	for _, tt := range tests {
		if got := ClampQuantity(tt.spend, tt.ask, tt.maxQty); got != tt.want {
			t.Errorf("ClampQuantity(%d, %d, %d) = %d, want %d",
				tt.spend, tt.ask, tt.maxQty, got, tt.want)
		}
	}
}
