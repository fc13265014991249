package kalshi_http

import (
	"context"
	"net/http"
)

type balanceResponse struct {
	Balance int64 `json:"balance"` // cents
}

func (c *Client) GetBalance(ctx context.Context) (int64, error) {
	var out balanceResponse
	if err := c.request(ctx, http.MethodGet, "/portfolio/balance", nil, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}
