package kalshi_http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Market is the subset of the exchange market object the pipeline uses.
type Market struct {
	Ticker      string `json:"ticker"`
	Title       string `json:"title"`
	YesSubTitle string `json:"yes_sub_title"`
	Status      string `json:"status"`
	YesAsk      int    `json:"yes_ask"`
	YesBid      int    `json:"yes_bid"`
	NoAsk       int    `json:"no_ask"`
	NoBid       int    `json:"no_bid"`
	Volume      int64  `json:"volume"`
}

type marketsResponse struct {
	Markets []Market `json:"markets"`
}

type marketResponse struct {
	Market Market `json:"market"`
}

// GetMarkets fetches up to limit markets, optionally filtered by series.
func (c *Client) GetMarkets(ctx context.Context, seriesTicker string, limit int) ([]Market, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if seriesTicker != "" {
		q.Set("series_ticker", seriesTicker)
	}

	var out marketsResponse
	if err := c.request(ctx, http.MethodGet, "/markets?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Markets, nil
}

// GetMarket fetches a single market's current prices. Used as the Brain's
// REST fallback when the WebSocket has not delivered a snapshot yet.
func (c *Client) GetMarket(ctx context.Context, ticker string) (Market, error) {
	var out marketResponse
	if err := c.request(ctx, http.MethodGet, "/markets/"+ticker, nil, &out); err != nil {
		return Market{}, err
	}
	if out.Market.Ticker == "" {
		return Market{}, fmt.Errorf("market %s: empty response", ticker)
	}
	return out.Market, nil
}
