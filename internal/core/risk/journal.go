package risk

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"kalshi-sniper/internal/events"
)

// Journal is a durable append-only record of every fill report, kept in
// a local SQLite file so a crash or restart never loses the day's trade
// history. Writes happen off the hot path (the Shield is async).
type Journal struct {
	db *sql.DB
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS fills (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	signal_id   TEXT NOT NULL,
	order_id    TEXT,
	ticker      TEXT NOT NULL,
	side        TEXT NOT NULL,
	filled_qty  INTEGER NOT NULL,
	avg_price   INTEGER NOT NULL,
	status      TEXT NOT NULL,
	filled_at   TEXT NOT NULL,
	latency_us  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fills_ticker ON fills(ticker);
`

// OpenJournal opens (creating if needed) the fill journal at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Record(fr events.FillReport) error {
	_, err := j.db.Exec(
		`INSERT INTO fills (signal_id, order_id, ticker, side, filled_qty, avg_price, status, filled_at, latency_us)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fr.SignalID, fr.OrderID, fr.Ticker, string(fr.Side),
		fr.FilledQty, fr.AvgPriceCents, fr.Status,
		fr.FilledAt.UTC().Format(time.RFC3339Nano),
		fr.Latency.Microseconds(),
	)
	return err
}

// Fills returns the stored fill count, for the shutdown summary.
func (j *Journal) Fills() (int64, error) {
	var n int64
	err := j.db.QueryRow(`SELECT COUNT(*) FROM fills`).Scan(&n)
	return n, err
}

func (j *Journal) Close() error {
	return j.db.Close()
}
