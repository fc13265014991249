package strategy

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ncruces/go-strftime"
	"golang.org/x/sync/singleflight"

	"kalshi-sniper/internal/adapters/outbound/kalshi_http"
	"kalshi-sniper/internal/telemetry"
)

// MarketLister is the REST surface the catalog needs.
type MarketLister interface {
	GetMarkets(ctx context.Context, seriesTicker string, limit int) ([]kalshi_http.Market, error)
}

const catalogFetchLimit = 1000

// Catalog lazily caches the exchange's listed markets per series for the
// current day. Concurrent registrations for the same series share one
// fetch. Invalidate forces the next read to refetch, used by the 60 s
// registration retry.
type Catalog struct {
	rest MarketLister
	sf   singleflight.Group
	now  func() time.Time

	mu    sync.Mutex
	cache map[string]catalogDay // series -> day cache
}

type catalogDay struct {
	date    string // YYMMMDD, uppercased
	markets []kalshi_http.Market
}

func NewCatalog(rest MarketLister) *Catalog {
	return &Catalog{
		rest:  rest,
		now:   time.Now,
		cache: make(map[string]catalogDay),
	}
}

// DateSegment formats t the way the exchange embeds dates in tickers:
// uppercased %y%b%d, e.g. 26FEB19.
func DateSegment(t time.Time) string {
	return strings.ToUpper(strftime.Format("%y%b%d", t.UTC()))
}

// TodaysMarkets returns today's listed markets for a series, fetching at
// most once per series per day.
func (c *Catalog) TodaysMarkets(ctx context.Context, series string) ([]kalshi_http.Market, error) {
	today := DateSegment(c.now())

	c.mu.Lock()
	if day, ok := c.cache[series]; ok && day.date == today {
		c.mu.Unlock()
		return day.markets, nil
	}
	c.mu.Unlock()

	v, err, _ := c.sf.Do(series, func() (any, error) {
		all, err := c.rest.GetMarkets(ctx, series, catalogFetchLimit)
		if err != nil {
			return nil, err
		}

		todays := make([]kalshi_http.Market, 0, len(all))
		for _, m := range all {
			if strings.Contains(m.Ticker, "-"+today) {
				todays = append(todays, m)
			}
		}
		telemetry.Infof("catalog: fetched %d/%d %s markets for today (%s)",
			len(todays), len(all), series, today)

		c.mu.Lock()
		c.cache[series] = catalogDay{date: today, markets: todays}
		c.mu.Unlock()
		return todays, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]kalshi_http.Market), nil
}

// Invalidate drops the series' cached day so the next TodaysMarkets
// refetches. Called before a registration retry: the exchange may have
// listed the game since the last fetch.
func (c *Catalog) Invalidate(series string) {
	c.mu.Lock()
	delete(c.cache, series)
	c.mu.Unlock()
}
