// Command tradecheck is a one-shot connectivity smoke test: it verifies
// credentials, signing, and endpoint reachability without starting the
// pipeline. With -order it places a 1-cent resting order and immediately
// cancels it, proving the full trading path end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"kalshi-sniper/internal/adapters/kalshi_auth"
	"kalshi-sniper/internal/adapters/outbound/kalshi_http"
	"kalshi-sniper/internal/config"
	"kalshi-sniper/internal/telemetry"
)

func main() {
	ticker := flag.String("ticker", "", "market ticker to inspect (optional)")
	series := flag.String("series", "KXNCAAMBTOTAL", "series to list when no -ticker is given")
	placeOrder := flag.Bool("order", false, "place and cancel a 1-cent test order (requires -ticker)")
	flag.Parse()

	if err := run(*ticker, *series, *placeOrder); err != nil {
		fmt.Fprintln(os.Stderr, "tradecheck failed:", err)
		os.Exit(1)
	}
}

func run(ticker, series string, placeOrder bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	signer, err := kalshi_auth.NewSignerFromFile(cfg.KalshiAPIKeyID, cfg.KalshiPrivateKeyPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Keepalive off: this process exits in seconds.
	rest := kalshi_http.NewClient(cfg.KalshiBaseURL, signer, 0)
	if err := rest.Startup(ctx); err != nil {
		return fmt.Errorf("exchange unreachable: %w", err)
	}
	defer rest.Shutdown()

	status, err := rest.GetExchangeStatus(ctx)
	if err != nil {
		return fmt.Errorf("exchange status: %w", err)
	}
	telemetry.Infof("exchange status: %v", status)

	balance, err := rest.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	telemetry.Infof("balance: $%s", humanize.CommafWithDigits(float64(balance)/100, 2))

	if ticker == "" {
		markets, err := rest.GetMarkets(ctx, series, 5)
		if err != nil {
			return fmt.Errorf("list %s markets: %w", series, err)
		}
		telemetry.Infof("%s: %d markets listed", series, len(markets))
		for _, m := range markets {
			telemetry.Infof("  %s  yes %d/%d  (%s)", m.Ticker, m.YesBid, m.YesAsk, m.Status)
		}
		return nil
	}

	market, err := rest.GetMarket(ctx, ticker)
	if err != nil {
		return fmt.Errorf("market %s: %w", ticker, err)
	}
	telemetry.Infof("%s: yes %d/%d no %d/%d volume %d",
		market.Ticker, market.YesBid, market.YesAsk, market.NoBid, market.NoAsk, market.Volume)

	if !placeOrder {
		return nil
	}

	// A 1-cent limit order cannot realistically fill; it proves order
	// placement and cancellation work with these credentials.
	order, err := rest.PlaceOrder(ctx, kalshi_http.CreateOrderRequest{
		Ticker:        ticker,
		Action:        "buy",
		Type:          "limit",
		Side:          "yes",
		Count:         1,
		LimitPrice:    1,
		ClientOrderID: fmt.Sprintf("tradecheck-%d", time.Now().Unix()),
	})
	if err != nil {
		return fmt.Errorf("test order: %w", err)
	}
	telemetry.Infof("test order placed: %s (%s)", order.OrderID, order.Status)

	if err := rest.CancelOrder(ctx, order.OrderID); err != nil {
		return fmt.Errorf("cancel test order %s: %w", order.OrderID, err)
	}
	telemetry.Infof("test order cancelled — trading path verified")
	return nil
}
