package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is loaded once at startup from the environment (plus an
// optional .env file). Secrets never live in source.
type Config struct {
	// Exchange access
	KalshiAPIKeyID       string
	KalshiPrivateKeyPath string
	KalshiBaseURL        string
	KalshiWSURL          string
	KalshiDemo           bool

	// Strategy
	MinEdgeCents          int
	MaxSlippageCents      int
	MaxSpendPerTradeCents int
	DefaultQuantity       int
	MaxQuantity           int
	FeeRate               float64

	// Risk (overridable by the limits file)
	MaxDailyLossCents    int64
	MaxOpenExposureCents int64
	MaxTradesPerGame     int

	// Timing
	KeepaliveInterval  time.Duration
	SportsPollInterval time.Duration
	SlowPollInterval   time.Duration

	// Misc
	LogLevel    string
	LimitsFile  string // optional YAML with risk limits and series config
	JournalPath string // optional SQLite fill journal; empty disables
}

const (
	prodBaseURL = "https://api.elections.kalshi.com/trade-api/v2"
	prodWSURL   = "wss://api.elections.kalshi.com/trade-api/ws/v2"
	demoBaseURL = "https://demo-api.kalshi.co/trade-api/v2"
	demoWSURL   = "wss://demo-api.kalshi.co/trade-api/ws/v2"
)

// Load reads .env (when present) and the process environment. Missing
// required variables produce a single aggregated error — fatal at boot.
func Load() (*Config, error) {
	// Values already in the environment win over .env.
	_ = godotenv.Load()

	var missing []string
	require := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	demo := envBool("KALSHI_DEMO", false)
	baseURL, wsURL := prodBaseURL, prodWSURL
	if demo {
		baseURL, wsURL = demoBaseURL, demoWSURL
	}

	cfg := &Config{
		KalshiAPIKeyID:       require("KALSHI_API_KEY_ID"),
		KalshiPrivateKeyPath: require("KALSHI_PRIVATE_KEY_PATH"),
		KalshiBaseURL:        envStr("KALSHI_BASE_URL", baseURL),
		KalshiWSURL:          envStr("KALSHI_WS_URL", wsURL),
		KalshiDemo:           demo,

		MinEdgeCents:          envInt("MIN_EDGE_CENTS", 3),
		MaxSlippageCents:      envInt("MAX_PRICE_SLIPPAGE_CENTS", 2),
		MaxSpendPerTradeCents: envInt("MAX_SPEND_PER_TRADE_CENTS", 2000),
		DefaultQuantity:       envInt("DEFAULT_QUANTITY", 10),
		MaxQuantity:           envInt("MAX_QUANTITY", 50),
		FeeRate:               envFloat("KALSHI_FEE_RATE", 0.07),

		MaxDailyLossCents:    int64(envInt("MAX_DAILY_LOSS_CENTS", 10000)),
		MaxOpenExposureCents: int64(envInt("MAX_OPEN_EXPOSURE_CENTS", 50000)),
		MaxTradesPerGame:     envInt("MAX_TRADES_PER_GAME", 5),

		KeepaliveInterval:  envDuration("KEEPALIVE_INTERVAL_S", 30*time.Second),
		SportsPollInterval: envDuration("SPORTS_POLL_INTERVAL_S", 750*time.Millisecond),
		SlowPollInterval:   envDuration("SPORTS_SLOW_POLL_INTERVAL_S", 30*time.Second),

		LogLevel:    envStr("LOG_LEVEL", "info"),
		LimitsFile:  envStr("LIMITS_FILE", ""),
		JournalPath: envStr("FILL_JOURNAL_PATH", ""),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

// envDuration reads a seconds value (fractional allowed: 0.75).
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return time.Duration(secs * float64(time.Second))
}
