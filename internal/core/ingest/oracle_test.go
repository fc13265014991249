package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"kalshi-sniper/internal/events"
)

type stubFeed struct {
	name       string
	events     []events.ScoreEvent
	startupErr error
	shutdowns  int
}

func (f *stubFeed) Name() string                      { return f.name }
func (f *stubFeed) Startup(context.Context) error     { return f.startupErr }
func (f *stubFeed) Shutdown() error                   { f.shutdowns++; return nil }
func (f *stubFeed) Stream(ctx context.Context) <-chan events.ScoreEvent {
	out := make(chan events.ScoreEvent)
	go func() {
		defer close(out)
		for _, ev := range f.events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func scoreEvent(gameID string, home, away int) events.ScoreEvent {
	return events.ScoreEvent{
		EventID:    gameID,
		Sport:      events.SportNCAABasketball,
		GameID:     gameID,
		HomeScore:  home,
		AwayScore:  away,
		TotalScore: home + away,
		ReceivedAt: time.Now(),
	}
}

func drainGameEvents(bus *events.Bus) []events.ScoreEvent {
	var got []events.ScoreEvent
	for {
		select {
		case ev := <-bus.GameEvents:
			got = append(got, ev)
		default:
			return got
		}
	}
}

func TestOracleDeduplicatesAcrossFeeds(t *testing.T) {
	bus := events.NewBus()

	// Both feeds report the same game at the same score; only one copy
	// publishes, no matter which feed wins the race.
	a := &stubFeed{name: "a", events: []events.ScoreEvent{
		scoreEvent("g1", 10, 8),
	}}
	b := &stubFeed{name: "b", events: []events.ScoreEvent{
		scoreEvent("g1", 10, 8),
		scoreEvent("g2", 0, 1),
	}}

	o := NewOracle(bus, []Feed{a, b})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := o.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := drainGameEvents(bus)
	if len(got) != 2 {
		t.Fatalf("published %d events, want 2 (one duplicate dropped)", len(got))
	}

	counts := map[string]int{}
	for _, ev := range got {
		counts[ev.GameID]++
	}
	if counts["g1"] != 1 || counts["g2"] != 1 {
		t.Errorf("per-game counts = %v, want g1:1 g2:1", counts)
	}
}

func TestOracleScoreProgressionPublishes(t *testing.T) {
	o := NewOracle(events.NewBus(), nil)

	if o.duplicate(scoreEvent("g1", 10, 8)) {
		t.Fatal("first score must publish")
	}
	if o.duplicate(scoreEvent("g1", 10, 8)) {
		t.Fatal("repeat of the same score is a duplicate")
	}
	if o.duplicate(scoreEvent("g1", 12, 8)) {
		t.Fatal("a changed score must publish")
	}
}

func TestOracleSkipsFailedFeed(t *testing.T) {
	bus := events.NewBus()
	bad := &stubFeed{name: "bad", startupErr: errors.New("no route")}
	good := &stubFeed{name: "good", events: []events.ScoreEvent{scoreEvent("g3", 1, 0)}}

	o := NewOracle(bus, []Feed{bad, good})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := o.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := drainGameEvents(bus)
	if len(got) != 1 || got[0].GameID != "g3" {
		t.Errorf("surviving feed should publish, got %v", got)
	}
	if bad.shutdowns != 0 {
		t.Error("failed feed must not be shut down (it never started)")
	}
	if good.shutdowns != 1 {
		t.Errorf("good feed shutdowns = %d, want 1", good.shutdowns)
	}
}

func TestOracleForgetAllowsRepublish(t *testing.T) {
	bus := events.NewBus()
	o := NewOracle(bus, nil)

	ev := scoreEvent("g4", 2, 2)
	if o.duplicate(ev) {
		t.Fatal("first sighting is not a duplicate")
	}
	if !o.duplicate(ev) {
		t.Fatal("second sighting is a duplicate")
	}
	o.Forget("g4")
	if o.duplicate(ev) {
		t.Error("after Forget the score must publish again")
	}
}
