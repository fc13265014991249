package kalshi_ws

import (
	"encoding/json"
	"time"

	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

// wsMessage is a raw frame from the exchange WebSocket.
type wsMessage struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

type bookMsg struct {
	MarketTicker string     `json:"market_ticker"`
	Seq          int64      `json:"seq"`
	Yes          [][2]int64 `json:"yes"` // [price, qty] levels
	No           [][2]int64 `json:"no"`
}

// bookParser converts orderbook frames to MarketUpdates and tracks the
// per-ticker sequence for gap detection. Gaps are advisory: the next
// snapshot or delta re-establishes state, so we only warn.
type bookParser struct {
	lastSeq map[string]int64
}

func newBookParser() *bookParser {
	return &bookParser{lastSeq: make(map[string]int64)}
}

// Parse returns the MarketUpdate for orderbook_snapshot/orderbook_delta
// frames; all other frame types are ignored.
func (p *bookParser) Parse(data []byte, now time.Time) (events.MarketUpdate, bool) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		telemetry.Warnf("kalshi_ws: malformed frame: %.80s", string(data))
		return events.MarketUpdate{}, false
	}

	switch msg.Type {
	case "orderbook_snapshot", "orderbook_delta":
	case "error":
		telemetry.Warnf("kalshi_ws: server error: %s", string(msg.Msg))
		return events.MarketUpdate{}, false
	default:
		return events.MarketUpdate{}, false
	}

	var book bookMsg
	if err := json.Unmarshal(msg.Msg, &book); err != nil || book.MarketTicker == "" {
		return events.MarketUpdate{}, false
	}

	if last, seen := p.lastSeq[book.MarketTicker]; seen && msg.Type == "orderbook_delta" && book.Seq != last+1 {
		telemetry.Metrics.SequenceGaps.Inc()
		telemetry.Warnf("kalshi_ws: sequence gap on %s: expected %d got %d — orderbook may be stale",
			book.MarketTicker, last+1, book.Seq)
	}
	p.lastSeq[book.MarketTicker] = book.Seq

	yesAsk, yesBid := bestPrices(book.Yes)
	noAsk, noBid := bestPrices(book.No)

	return events.MarketUpdate{
		Ticker:     book.MarketTicker,
		YesBid:     yesBid,
		YesAsk:     yesAsk,
		NoBid:      noBid,
		NoAsk:      noAsk,
		YesVolume:  volumeAt(book.Yes, yesAsk),
		Sequence:   book.Seq,
		ReceivedAt: now,
	}, true
}

// bestPrices extracts the best ask (lowest price with quantity) and best
// bid (highest) from one side's levels. An empty side maps to ask=100,
// bid=0 — unquotable, effectively halted.
func bestPrices(levels [][2]int64) (ask, bid int) {
	ask, bid = 100, 0
	found := false
	for _, lvl := range levels {
		price, qty := int(lvl[0]), lvl[1]
		if qty <= 0 {
			continue
		}
		if !found {
			ask, bid = price, price
			found = true
			continue
		}
		if price < ask {
			ask = price
		}
		if price > bid {
			bid = price
		}
	}
	if !found {
		return 100, 0
	}
	return ask, bid
}

func volumeAt(levels [][2]int64, price int) int {
	for _, lvl := range levels {
		if int(lvl[0]) == price {
			return int(lvl[1])
		}
	}
	return 0
}
