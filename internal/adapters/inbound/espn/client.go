package espn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"kalshi-sniper/internal/events"
	"kalshi-sniper/internal/telemetry"
)

// DefaultURLs maps each supported sport to ESPN's public scoreboard
// endpoint. No API key required.
var DefaultURLs = map[events.Sport]string{
	events.SportNCAABasketball:  "https://site.api.espn.com/apis/site/v2/sports/basketball/mens-college-basketball/scoreboard",
	events.SportPremierLeague:   "https://site.api.espn.com/apis/site/v2/sports/soccer/eng.1/scoreboard",
	events.SportChampionsLeague: "https://site.api.espn.com/apis/site/v2/sports/soccer/UEFA.CHAMPIONS/scoreboard",
}

// CadenceGate is read before every sleep: when any game is active the
// client polls at the fast interval, otherwise the slow one.
type CadenceGate interface {
	AnyActive() bool
}

// Client polls one sport's scoreboard and emits a ScoreEvent whenever a
// game's (home, away) score changes.
type Client struct {
	sport        events.Sport
	url          string
	fastInterval time.Duration
	slowInterval time.Duration
	gate         CadenceGate
	httpClient   *http.Client

	// game_id -> (home, away) at last emission
	lastScores map[string][2]int
}

func NewClient(sport events.Sport, url string, fastInterval, slowInterval time.Duration, gate CadenceGate) *Client {
	if url == "" {
		url = DefaultURLs[sport]
	}
	return &Client{
		sport:        sport,
		url:          url,
		fastInterval: fastInterval,
		slowInterval: slowInterval,
		gate:         gate,
		lastScores:   make(map[string][2]int),
	}
}

func (c *Client) Name() string {
	return "espn:" + string(c.sport)
}

func (c *Client) Startup(ctx context.Context) error {
	c.httpClient = &http.Client{
		Timeout: 4 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        5,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
			DialContext: (&net.Dialer{
				Timeout: 2 * time.Second,
			}).DialContext,
		},
	}
	telemetry.Infof("%s feed client initialized", c.Name())
	return nil
}

func (c *Client) Shutdown() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

// Stream polls until ctx is cancelled, sending score changes on the
// returned channel. Transient poll errors never break the stream: the
// first failure is logged, then every hundredth.
func (c *Client) Stream(ctx context.Context) <-chan events.ScoreEvent {
	out := make(chan events.ScoreEvent)

	go func() {
		defer close(out)
		consecutiveErrors := 0
		for {
			pollStart := time.Now()

			changed, err := c.fetchLiveGames(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				consecutiveErrors++
				if consecutiveErrors == 1 || consecutiveErrors%100 == 0 {
					telemetry.Warnf("%s poll error (x%d): %v", c.Name(), consecutiveErrors, err)
				}
			} else {
				consecutiveErrors = 0
				for _, ev := range changed {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}

			interval := c.slowInterval
			if c.gate == nil || c.gate.AnyActive() {
				interval = c.fastInterval
			}
			sleep := interval - time.Since(pollStart)
			if sleep < 0 {
				sleep = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(sleep):
			}
		}
	}()

	return out
}

func (c *Client) fetchLiveGames(ctx context.Context) ([]events.ScoreEvent, error) {
	receivedAt := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("scoreboard returned %d", resp.StatusCode)
	}

	var board scoreboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return nil, fmt.Errorf("decode scoreboard: %w", err)
	}

	var changed []events.ScoreEvent
	for _, raw := range board.Events {
		ev, ok := normalize(raw, c.sport, receivedAt)
		if !ok {
			continue
		}
		if c.isNewScore(ev) {
			c.lastScores[ev.GameID] = [2]int{ev.HomeScore, ev.AwayScore}
			changed = append(changed, ev)
		}
	}
	return changed, nil
}

func (c *Client) isNewScore(ev events.ScoreEvent) bool {
	prev, seen := c.lastScores[ev.GameID]
	if !seen {
		return true
	}
	return prev != [2]int{ev.HomeScore, ev.AwayScore}
}
