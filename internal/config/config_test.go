package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("KALSHI_API_KEY_ID", "key-id")
	t.Setenv("KALSHI_PRIVATE_KEY_PATH", "/tmp/key.pem")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.KalshiBaseURL != prodBaseURL || cfg.KalshiWSURL != prodWSURL {
		t.Errorf("default URLs = %s / %s", cfg.KalshiBaseURL, cfg.KalshiWSURL)
	}
	if cfg.MinEdgeCents != 3 || cfg.MaxSlippageCents != 2 || cfg.MaxQuantity != 50 {
		t.Errorf("strategy defaults wrong: %+v", cfg)
	}
	if cfg.MaxDailyLossCents != 10000 || cfg.MaxOpenExposureCents != 50000 || cfg.MaxTradesPerGame != 5 {
		t.Errorf("risk defaults wrong: %+v", cfg)
	}
	if cfg.SportsPollInterval != 750*time.Millisecond {
		t.Errorf("poll interval = %s, want 750ms", cfg.SportsPollInterval)
	}
	if cfg.KeepaliveInterval != 30*time.Second {
		t.Errorf("keepalive = %s, want 30s", cfg.KeepaliveInterval)
	}
}

func TestLoadDemoSelectsSandboxURLs(t *testing.T) {
	setRequired(t)
	t.Setenv("KALSHI_DEMO", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.KalshiBaseURL != demoBaseURL || cfg.KalshiWSURL != demoWSURL {
		t.Errorf("demo URLs = %s / %s", cfg.KalshiBaseURL, cfg.KalshiWSURL)
	}
}

func TestLoadMissingRequiredFails(t *testing.T) {
	t.Setenv("KALSHI_API_KEY_ID", "")
	t.Setenv("KALSHI_PRIVATE_KEY_PATH", "")
	if _, err := Load(); err == nil {
		t.Fatal("missing credentials must be a startup error")
	}
}

func TestEnvDurationFractionalSeconds(t *testing.T) {
	t.Setenv("SPORTS_POLL_INTERVAL_S", "0.75")
	if got := envDuration("SPORTS_POLL_INTERVAL_S", time.Second); got != 750*time.Millisecond {
		t.Errorf("envDuration = %s, want 750ms", got)
	}
}

func TestApplyLimitsFile(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "limits.yaml")
	body := `
risk:
  max_daily_loss_cents: 5000
  max_trades_per_game: 2
sports:
  ncaa_basketball:
    moneyline_series: KXNCAAMBWINNER
  premier_league:
    scoreboard_url: https://example.test/epl
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	sports, err := ApplyLimitsFile(cfg, path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.MaxDailyLossCents != 5000 || cfg.MaxTradesPerGame != 2 {
		t.Errorf("risk overrides not applied: %+v", cfg)
	}
	if cfg.MaxOpenExposureCents != 50000 {
		t.Error("unset field must keep its default")
	}

	ncaa := sports["ncaa_basketball"]
	if ncaa.MoneylineSeries != "KXNCAAMBWINNER" || ncaa.TotalsSeries != "KXNCAAMBTOTAL" {
		t.Errorf("ncaa merge wrong: %+v", ncaa)
	}
	if sports["premier_league"].ScoreboardURL != "https://example.test/epl" {
		t.Errorf("epl scoreboard override missing: %+v", sports["premier_league"])
	}
	if sports["champions_league"].TotalsSeries != "KXUCLTOTAL" {
		t.Error("untouched sport must keep defaults")
	}
}

func TestApplyLimitsFileMissingPathUsesDefaults(t *testing.T) {
	setRequired(t)
	cfg, _ := Load()
	sports, err := ApplyLimitsFile(cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(sports) != 3 {
		t.Errorf("default sports = %d, want 3", len(sports))
	}
}
