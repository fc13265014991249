package kalshi_http

import (
	"context"
	"net/http"
	"time"

	"kalshi-sniper/internal/telemetry"
)

// CreateOrderRequest is the payload for POST /portfolio/orders.
type CreateOrderRequest struct {
	Ticker        string `json:"ticker"`
	Action        string `json:"action"` // always "buy" in this pipeline
	Type          string `json:"type"`   // always "limit"
	Side          string `json:"side"`   // "yes" or "no"
	Count         int    `json:"count"`
	LimitPrice    int    `json:"limit_price"` // cents
	ClientOrderID string `json:"client_order_id"`
}

// Order is the exchange's view of a placed order.
type Order struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	CountFilled int    `json:"count_filled"`
	AvgPrice    int    `json:"avg_price"`
}

type orderResponse struct {
	Order Order `json:"order"`
}

// PlaceOrder submits a limit order. Latency around the POST is recorded
// because this call sits on the critical signal-to-fill path.
func (c *Client) PlaceOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	start := time.Now()
	var out orderResponse
	err := c.request(ctx, http.MethodPost, "/portfolio/orders", req, &out)
	elapsed := time.Since(start)
	telemetry.Metrics.OrderHTTPLatency.Record(elapsed)

	if err != nil {
		telemetry.Metrics.OrderErrors.Inc()
		return Order{}, err
	}

	telemetry.Metrics.OrdersSent.Inc()
	telemetry.Infof("kalshi_http: order placed ticker=%s side=%s count=%d price=%d latency=%s -> %s",
		req.Ticker, req.Side, req.Count, req.LimitPrice, elapsed, out.Order.OrderID)

	return out.Order, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.request(ctx, http.MethodDelete, "/portfolio/orders/"+orderID, nil, nil)
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var out orderResponse
	if err := c.request(ctx, http.MethodGet, "/portfolio/orders/"+orderID, nil, &out); err != nil {
		return Order{}, err
	}
	return out.Order, nil
}
