package kalshi_ws

import (
	"testing"
	"time"

	"kalshi-sniper/internal/telemetry"
)

func TestParseSnapshotBestPrices(t *testing.T) {
	p := newBookParser()
	frame := []byte(`{
		"type": "orderbook_snapshot",
		"msg": {
			"market_ticker": "KXNCAAMBTOTAL-26FEB19WEBBRAD-171",
			"seq": 10,
			"yes": [[85, 40], [88, 100], [90, 25]],
			"no": [[10, 30], [12, 15]]
		}
	}`)

	mu, ok := p.Parse(frame, time.Now())
	if !ok {
		t.Fatal("expected snapshot to parse")
	}
	if mu.YesAsk != 85 || mu.YesBid != 90 {
		t.Errorf("yes ask/bid = %d/%d, want 85/90", mu.YesAsk, mu.YesBid)
	}
	if mu.NoAsk != 10 || mu.NoBid != 12 {
		t.Errorf("no ask/bid = %d/%d, want 10/12", mu.NoAsk, mu.NoBid)
	}
	if mu.YesVolume != 40 {
		t.Errorf("volume at best yes ask = %d, want 40", mu.YesVolume)
	}
	if mu.Sequence != 10 {
		t.Errorf("sequence = %d, want 10", mu.Sequence)
	}
}

func TestParseEmptySideIsUnquotable(t *testing.T) {
	p := newBookParser()
	frame := []byte(`{
		"type": "orderbook_snapshot",
		"msg": {"market_ticker": "T-1", "seq": 1, "yes": [], "no": [[5, 1]]}
	}`)

	mu, ok := p.Parse(frame, time.Now())
	if !ok {
		t.Fatal("expected parse")
	}
	if mu.YesAsk != 100 || mu.YesBid != 0 {
		t.Errorf("empty yes side = ask %d bid %d, want 100/0", mu.YesAsk, mu.YesBid)
	}
}

func TestParseZeroQuantityLevelsIgnored(t *testing.T) {
	p := newBookParser()
	frame := []byte(`{
		"type": "orderbook_delta",
		"msg": {"market_ticker": "T-1", "seq": 1, "yes": [[80, 0], [90, 5]], "no": []}
	}`)

	mu, ok := p.Parse(frame, time.Now())
	if !ok {
		t.Fatal("expected parse")
	}
	if mu.YesAsk != 90 {
		t.Errorf("yes ask = %d, want 90 (zero-qty level must not count)", mu.YesAsk)
	}
}

func TestSequenceGapWarnsAndStateConverges(t *testing.T) {
	p := newBookParser()
	gapsBefore := telemetry.Metrics.SequenceGaps.Value()

	snapshot := []byte(`{
		"type": "orderbook_snapshot",
		"msg": {"market_ticker": "T-1", "seq": 10, "yes": [[80, 10]], "no": []}
	}`)
	if _, ok := p.Parse(snapshot, time.Now()); !ok {
		t.Fatal("snapshot should parse")
	}

	// Delta jumps from 10 to 12 — seq 11 was lost.
	gapDelta := []byte(`{
		"type": "orderbook_delta",
		"msg": {"market_ticker": "T-1", "seq": 12, "yes": [[82, 7]], "no": []}
	}`)
	mu, ok := p.Parse(gapDelta, time.Now())
	if !ok {
		t.Fatal("gap delta should still parse")
	}

	if got := telemetry.Metrics.SequenceGaps.Value(); got != gapsBefore+1 {
		t.Errorf("sequence gap counter = %d, want %d", got, gapsBefore+1)
	}
	if mu.Sequence != 12 || mu.YesAsk != 82 {
		t.Errorf("post-gap update = seq %d ask %d, want 12/82", mu.Sequence, mu.YesAsk)
	}

	// A snapshot resets tracking — no further gap warning for its seq.
	reset := []byte(`{
		"type": "orderbook_snapshot",
		"msg": {"market_ticker": "T-1", "seq": 40, "yes": [[81, 3]], "no": []}
	}`)
	if _, ok := p.Parse(reset, time.Now()); !ok {
		t.Fatal("reset snapshot should parse")
	}
	if got := telemetry.Metrics.SequenceGaps.Value(); got != gapsBefore+1 {
		t.Errorf("snapshot must not count as a gap, counter = %d", got)
	}
}

func TestParseIgnoresOtherFrames(t *testing.T) {
	p := newBookParser()
	for _, frame := range []string{
		`{"type": "subscribed", "msg": {"channel": "orderbook_delta"}}`,
		`{"type": "ok"}`,
		`not json at all`,
	} {
		if _, ok := p.Parse([]byte(frame), time.Now()); ok {
			t.Errorf("frame %q should be ignored", frame)
		}
	}
}
