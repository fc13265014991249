package execution

import (
	"context"
	"time"

	"kalshi-sniper/internal/adapters/outbound/kalshi_http"
	"kalshi-sniper/internal/core/risk"
	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

// OrderPlacer is the REST surface the Sniper needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req kalshi_http.CreateOrderRequest) (kalshi_http.Order, error)
}

// Sniper turns trade signals into limit orders. One attempt per signal,
// never a retry: latency is paramount and a duplicate fill is worse than
// a miss. The client order id is derived from the signal id so an
// accidental resubmit is idempotent on the exchange side.
type Sniper struct {
	bus     *events.Bus
	rest    OrderPlacer
	breaker *risk.CircuitBreaker
	now     func() time.Time
}

func NewSniper(bus *events.Bus, rest OrderPlacer, breaker *risk.CircuitBreaker) *Sniper {
	return &Sniper{bus: bus, rest: rest, breaker: breaker, now: time.Now}
}

func (s *Sniper) Run(ctx context.Context) {
	telemetry.Infof("sniper: running")
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-s.bus.TradeSignals:
			s.execute(ctx, sig)
		}
	}
}

func (s *Sniper) execute(ctx context.Context, sig events.TradeSignal) {
	if s.breaker.IsOpen() {
		telemetry.Errorf("sniper: breaker open — dropping signal %s for %s", sig.SignalID, sig.Ticker)
		s.publishRejected(sig)
		return
	}

	order, err := s.rest.PlaceOrder(ctx, kalshi_http.CreateOrderRequest{
		Ticker:        sig.Ticker,
		Action:        "buy",
		Type:          "limit",
		Side:          string(sig.Side),
		Count:         sig.Quantity,
		LimitPrice:    sig.MaxPriceCents,
		ClientOrderID: clientOrderID(sig.SignalID),
	})
	if err != nil {
		telemetry.Errorf("sniper: order failed for %s: %v", sig.Ticker, err)
		s.breaker.RecordFailure(err.Error())
		s.publishRejected(sig)
		return
	}
	s.breaker.RecordSuccess()

	avgPrice := order.AvgPrice
	if avgPrice == 0 {
		// Exchange omits avg_price on resting orders; book at the limit.
		avgPrice = sig.MaxPriceCents
	}

	now := s.now()
	latency := now.Sub(sig.GeneratedAt)
	telemetry.Metrics.SignalToFillLatency.Record(latency)

	s.bus.PublishFillReport(events.FillReport{
		SignalID:      sig.SignalID,
		OrderID:       order.OrderID,
		Ticker:        sig.Ticker,
		Side:          sig.Side,
		FilledQty:     order.CountFilled,
		AvgPriceCents: avgPrice,
		Status:        normalizeStatus(order.Status),
		FilledAt:      now,
		Latency:       latency,
	})
}

func (s *Sniper) publishRejected(sig events.TradeSignal) {
	now := s.now()
	s.bus.PublishFillReport(events.FillReport{
		SignalID: sig.SignalID,
		Ticker:   sig.Ticker,
		Side:     sig.Side,
		Status:   events.FillStatusRejected,
		FilledAt: now,
		Latency:  now.Sub(sig.GeneratedAt),
	})
}

// clientOrderID derives a deterministic id from the signal id.
func clientOrderID(signalID string) string {
	if len(signalID) > 8 {
		signalID = signalID[:8]
	}
	return "gb-" + signalID
}

func normalizeStatus(exchangeStatus string) string {
	switch exchangeStatus {
	case "executed", "filled":
		return events.FillStatusFilled
	case "partial", "partially_filled":
		return events.FillStatusPartial
	case "canceled", "cancelled":
		return events.FillStatusCancelled
	case "":
		return events.FillStatusUnknown
	default:
		return exchangeStatus
	}
}
