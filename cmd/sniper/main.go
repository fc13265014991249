package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"kalshi-sniper/internal/adapters/inbound/espn"
	"kalshi-sniper/internal/adapters/inbound/kalshi_ws"
	"kalshi-sniper/internal/adapters/kalshi_auth"
	"kalshi-sniper/internal/adapters/outbound/kalshi_http"
	"kalshi-sniper/internal/config"
	"kalshi-sniper/internal/core/execution"
	"kalshi-sniper/internal/core/ingest"
	"kalshi-sniper/internal/core/marketdata"
	"kalshi-sniper/internal/core/risk"
	"kalshi-sniper/internal/core/strategy"
	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	sports, err := config.ApplyLimitsFile(cfg, cfg.LimitsFile)
	if err != nil {
		return err
	}

	signer, err := kalshi_auth.NewSignerFromFile(cfg.KalshiAPIKeyID, cfg.KalshiPrivateKeyPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env := "production"
	if cfg.KalshiDemo {
		env = "demo"
	}
	telemetry.Infof("starting kalshi-sniper (%s, %s)", env, cfg.KalshiBaseURL)

	// REST transport: warmed pool + keepalive. Failure here is a startup
	// misconfiguration (bad credentials, unreachable exchange).
	rest := kalshi_http.NewClient(cfg.KalshiBaseURL, signer, cfg.KeepaliveInterval)
	if err := rest.Startup(ctx); err != nil {
		return fmt.Errorf("exchange connection: %w", err)
	}
	defer rest.Shutdown()

	if balance, err := rest.GetBalance(ctx); err != nil {
		telemetry.Warnf("balance check failed: %v", err)
	} else {
		telemetry.Infof("account balance: $%s", humanize.CommafWithDigits(float64(balance)/100, 2))
	}

	bus := events.NewBus()

	// Orderbook replica. The WebSocket client and the Watcher reference
	// each other, so the frame callback closes over the later binding.
	var watcher *marketdata.Watcher
	ws := kalshi_ws.NewClient(cfg.KalshiWSURL, signer, func(mu events.MarketUpdate) {
		watcher.HandleUpdate(mu)
	})
	watcher = marketdata.NewWatcher(bus, ws)

	// Strategy layer.
	gate := strategy.NewGate()
	thresholds := strategy.NewThresholdMap()
	moneylines := strategy.NewMoneylineMap()
	catalog := strategy.NewCatalog(rest)

	totalsSeries := make(map[events.Sport]string)
	moneylineSeries := make(map[events.Sport]string)
	for name, sc := range sports {
		sport := events.Sport(name)
		if sc.TotalsSeries != "" {
			totalsSeries[sport] = sc.TotalsSeries
		}
		if sc.MoneylineSeries != "" {
			moneylineSeries[sport] = sc.MoneylineSeries
		}
	}

	brain := strategy.NewBrain(bus, watcher, rest, catalog, thresholds, moneylines, gate, strategy.Params{
		MinEdgeCents:          cfg.MinEdgeCents,
		MaxSlippageCents:      cfg.MaxSlippageCents,
		MaxSpendPerTradeCents: cfg.MaxSpendPerTradeCents,
		MaxQuantity:           cfg.MaxQuantity,
		FeeRate:               cfg.FeeRate,
		TotalsSeries:          totalsSeries,
		MoneylineSeries:       moneylineSeries,
	})

	// Risk layer.
	riskState := risk.NewState()
	shield := risk.NewShield(bus, riskState, risk.Limits{
		MaxDailyLossCents:    cfg.MaxDailyLossCents,
		MaxOpenExposureCents: cfg.MaxOpenExposureCents,
		MaxTradesPerGame:     cfg.MaxTradesPerGame,
	})
	brain.SetRisk(riskState)

	if cfg.JournalPath != "" {
		journal, err := risk.OpenJournal(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("fill journal: %w", err)
		}
		defer journal.Close()
		shield.SetJournal(journal)
		telemetry.Infof("fill journal at %s", cfg.JournalPath)
	}

	// Execution.
	breaker := risk.NewCircuitBreaker("orders", risk.DefaultBreakerThreshold)
	sniper := execution.NewSniper(bus, rest, breaker)

	// Feeds: one polling client per configured sport.
	var feeds []ingest.Feed
	for name, sc := range sports {
		feeds = append(feeds, espn.NewClient(
			events.Sport(name), sc.ScoreboardURL,
			cfg.SportsPollInterval, cfg.SlowPollInterval, gate,
		))
	}
	oracle := ingest.NewOracle(bus, feeds)
	brain.SetFinalHook(oracle.Forget)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { ws.Run(ctx); return nil })
	g.Go(func() error { brain.Run(ctx); return nil })
	g.Go(func() error { sniper.Run(ctx); return nil })
	g.Go(func() error { shield.Run(ctx); return nil })
	g.Go(func() error { return oracle.Run(ctx) })

	telemetry.Infof("pipeline running — trading %d sports, Ctrl-C to stop", len(feeds))
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		telemetry.Errorf("pipeline error: %v", err)
	}

	ws.Close()
	logSummary(riskState)
	return nil
}

// logSummary prints the session's trading totals on shutdown.
func logSummary(state *risk.State) {
	m := &telemetry.Metrics
	snap := state.Snapshot()

	telemetry.Infof("session summary:")
	telemetry.Infof("  score events published: %d (dropped %d)",
		m.ScoreEventsPublished.Value(), m.EventsDropped.Value())
	telemetry.Infof("  market updates: %d (sequence gaps %d)",
		m.MarketUpdates.Value(), m.SequenceGaps.Value())
	telemetry.Infof("  signals emitted: %d (dropped %d), orders sent %d (errors %d)",
		m.SignalsEmitted.Value(), m.SignalsDropped.Value(), m.OrdersSent.Value(), m.OrderErrors.Value())
	telemetry.Infof("  fills processed: %d, trades today %d", m.FillsProcessed.Value(), snap.TradesToday)
	telemetry.Infof("  open exposure $%s, realized P&L $%s",
		humanize.CommafWithDigits(float64(snap.OpenExposureCents)/100, 2),
		humanize.CommafWithDigits(float64(snap.RealizedPnLCents)/100, 2))
	if p50, p99 := m.SignalToFillLatency.P50(), m.SignalToFillLatency.P99(); p99 > 0 {
		telemetry.Infof("  signal-to-fill latency p50=%s p99=%s",
			p50.Round(time.Millisecond), p99.Round(time.Millisecond))
	}
	if snap.Halted {
		telemetry.Warnf("  session ended HALTED: %s", snap.HaltReason)
	}
}
