package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SportConfig maps one sport to its exchange series and scoreboard
// endpoint. An empty MoneylineSeries disables winner trading for the
// sport; an empty ScoreboardURL falls back to the built-in endpoint.
type SportConfig struct {
	TotalsSeries    string `yaml:"totals_series"`
	MoneylineSeries string `yaml:"moneyline_series"`
	ScoreboardURL   string `yaml:"scoreboard_url"`
}

// LimitsFile is the optional YAML override for risk limits and the
// per-sport series layout.
type LimitsFile struct {
	Risk struct {
		MaxDailyLossCents    int64 `yaml:"max_daily_loss_cents"`
		MaxOpenExposureCents int64 `yaml:"max_open_exposure_cents"`
		MaxTradesPerGame     int   `yaml:"max_trades_per_game"`
	} `yaml:"risk"`
	Sports map[string]SportConfig `yaml:"sports"`
}

// DefaultSports is the built-in series layout, used when no limits file
// is given or a sport is absent from it.
func DefaultSports() map[string]SportConfig {
	return map[string]SportConfig{
		"ncaa_basketball": {
			TotalsSeries:    "KXNCAAMBTOTAL",
			MoneylineSeries: "KXNCAAMBGAME",
		},
		"premier_league": {
			TotalsSeries:    "KXEPLTOTAL",
			MoneylineSeries: "KXEPLGAME",
		},
		"champions_league": {
			TotalsSeries:    "KXUCLTOTAL",
			MoneylineSeries: "KXUCLGAME",
		},
	}
}

// ApplyLimitsFile merges the YAML file at path into cfg and returns the
// effective sport map. A missing path returns the defaults untouched.
func ApplyLimitsFile(cfg *Config, path string) (map[string]SportConfig, error) {
	sports := DefaultSports()
	if path == "" {
		return sports, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read limits file: %w", err)
	}
	var lf LimitsFile
	if err := yaml.Unmarshal(raw, &lf); err != nil {
		return nil, fmt.Errorf("parse limits file %s: %w", path, err)
	}

	if lf.Risk.MaxDailyLossCents > 0 {
		cfg.MaxDailyLossCents = lf.Risk.MaxDailyLossCents
	}
	if lf.Risk.MaxOpenExposureCents > 0 {
		cfg.MaxOpenExposureCents = lf.Risk.MaxOpenExposureCents
	}
	if lf.Risk.MaxTradesPerGame > 0 {
		cfg.MaxTradesPerGame = lf.Risk.MaxTradesPerGame
	}

	for sport, sc := range lf.Sports {
		base := sports[sport]
		if sc.TotalsSeries != "" {
			base.TotalsSeries = sc.TotalsSeries
		}
		if sc.MoneylineSeries != "" {
			base.MoneylineSeries = sc.MoneylineSeries
		}
		if sc.ScoreboardURL != "" {
			base.ScoreboardURL = sc.ScoreboardURL
		}
		sports[sport] = base
	}
	return sports, nil
}
