package strategy

import (
	"context"
	"testing"
	"time"

	"kalshi-sniper/internal/adapters/outbound/kalshi_http"
)

type stubLister struct {
	markets []kalshi_http.Market
	calls   int
}

func (s *stubLister) GetMarkets(_ context.Context, _ string, _ int) ([]kalshi_http.Market, error) {
	s.calls++
	return s.markets, nil
}

func TestDateSegment(t *testing.T) {
	day := time.Date(2026, time.February, 19, 12, 0, 0, 0, time.UTC)
	if got := DateSegment(day); got != "26FEB19" {
		t.Errorf("DateSegment = %q, want 26FEB19", got)
	}
}

func TestCatalogFiltersAndCaches(t *testing.T) {
	lister := &stubLister{markets: []kalshi_http.Market{
		{Ticker: "KXNCAAMBTOTAL-26FEB19WEBBRAD-171"},
		{Ticker: "KXNCAAMBTOTAL-26FEB19WEBBRAD-174"},
		{Ticker: "KXNCAAMBTOTAL-26FEB20DUKEUNC-150"}, // tomorrow
	}}
	c := NewCatalog(lister)
	c.now = func() time.Time {
		return time.Date(2026, time.February, 19, 18, 0, 0, 0, time.UTC)
	}

	got, err := c.TodaysMarkets(context.Background(), "KXNCAAMBTOTAL")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("today's markets = %d, want 2 (tomorrow filtered)", len(got))
	}

	// Second read hits the cache.
	if _, err := c.TodaysMarkets(context.Background(), "KXNCAAMBTOTAL"); err != nil {
		t.Fatal(err)
	}
	if lister.calls != 1 {
		t.Errorf("REST calls = %d, want 1 (day cache)", lister.calls)
	}

	// Invalidate forces a refetch.
	c.Invalidate("KXNCAAMBTOTAL")
	if _, err := c.TodaysMarkets(context.Background(), "KXNCAAMBTOTAL"); err != nil {
		t.Fatal(err)
	}
	if lister.calls != 2 {
		t.Errorf("REST calls = %d, want 2 after invalidate", lister.calls)
	}
}

func TestCatalogRefetchesOnNewDay(t *testing.T) {
	lister := &stubLister{markets: []kalshi_http.Market{
		{Ticker: "KXNCAAMBTOTAL-26FEB19WEBBRAD-171"},
	}}
	c := NewCatalog(lister)

	day := time.Date(2026, time.February, 19, 23, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return day }
	if _, err := c.TodaysMarkets(context.Background(), "KXNCAAMBTOTAL"); err != nil {
		t.Fatal(err)
	}

	day = day.Add(3 * time.Hour) // past midnight
	if _, err := c.TodaysMarkets(context.Background(), "KXNCAAMBTOTAL"); err != nil {
		t.Fatal(err)
	}
	if lister.calls != 2 {
		t.Errorf("REST calls = %d, want 2 (new day refetch)", lister.calls)
	}
}
