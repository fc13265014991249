package ingest

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

// Feed is the contract every sports provider adapter satisfies. Stream
// returns a channel that delivers score changes until ctx is cancelled;
// adapters absorb their own transient errors and never close the channel
// early.
type Feed interface {
	Name() string
	Startup(ctx context.Context) error
	Shutdown() error
	Stream(ctx context.Context) <-chan events.ScoreEvent
}

// Oracle fans all feed streams into the game-event channel. It owns the
// global dedup map: two feeds reporting the same (game, score) produce
// one published event.
type Oracle struct {
	bus   *events.Bus
	feeds []Feed

	mu   sync.Mutex
	seen map[string][2]int // game_id -> (home, away) last published
}

func NewOracle(bus *events.Bus, feeds []Feed) *Oracle {
	return &Oracle{
		bus:   bus,
		feeds: feeds,
		seen:  make(map[string][2]int),
	}
}

// Run starts every feed and consumes them until ctx is cancelled. A feed
// whose Startup fails is logged and skipped; the Oracle continues with
// the survivors.
func (o *Oracle) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	started := 0
	for _, feed := range o.feeds {
		if err := feed.Startup(ctx); err != nil {
			telemetry.Errorf("oracle: %s startup failed, skipping feed: %v", feed.Name(), err)
			continue
		}
		started++

		feed := feed
		g.Go(func() error {
			defer feed.Shutdown()
			o.consume(ctx, feed)
			return nil
		})
	}

	if started == 0 {
		telemetry.Errorf("oracle: no feeds started")
	} else {
		telemetry.Infof("oracle: running with %d/%d feeds", started, len(o.feeds))
	}

	return g.Wait()
}

func (o *Oracle) consume(ctx context.Context, feed Feed) {
	for ev := range feed.Stream(ctx) {
		if o.duplicate(ev) {
			continue
		}
		o.bus.PublishScoreEvent(ev)
	}
	telemetry.Infof("oracle: %s stream closed", feed.Name())
}

// duplicate records the event's score and reports whether some feed
// already published it.
func (o *Oracle) duplicate(ev events.ScoreEvent) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	score := [2]int{ev.HomeScore, ev.AwayScore}
	if prev, ok := o.seen[ev.GameID]; ok && prev == score {
		return true
	}
	o.seen[ev.GameID] = score
	return false
}

// Forget drops the dedup record for a finished game.
func (o *Oracle) Forget(gameID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.seen, gameID)
}
