package espn

import (
	"encoding/json"
	"testing"
	"time"

	"kalshi-sniper/internal/events"
)

func rawEventFromJSON(t *testing.T, s string) rawEvent {
	t.Helper()
	var ev rawEvent
	if err := json.Unmarshal([]byte(s), &ev); err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	return ev
}

const ncaaLive = `{
	"id": "401705123",
	"competitions": [{
		"status": {"period": 2, "displayClock": "4:12", "type": {"name": "STATUS_IN_PROGRESS"}},
		"competitors": [
			{"homeAway": "home", "score": "71", "team": {"abbreviation": "WEB"}},
			{"homeAway": "away", "score": "64", "team": {"abbreviation": "BRAD"}}
		]
	}]
}`

func TestNormalizeNCAALive(t *testing.T) {
	now := time.Now()
	ev, ok := normalize(rawEventFromJSON(t, ncaaLive), events.SportNCAABasketball, now)
	if !ok {
		t.Fatal("live game should normalize")
	}
	if ev.GameID != "401705123" || ev.HomeTeam != "WEB" || ev.AwayTeam != "BRAD" {
		t.Errorf("identity fields wrong: %+v", ev)
	}
	if ev.HomeScore != 71 || ev.AwayScore != 64 || ev.TotalScore != 135 {
		t.Errorf("scores = %d/%d total %d, want 71/64/135", ev.HomeScore, ev.AwayScore, ev.TotalScore)
	}
	if ev.GameClock != "H2 4:12" || ev.Period != 2 {
		t.Errorf("clock/period = %q/%d, want \"H2 4:12\"/2", ev.GameClock, ev.Period)
	}
	if ev.IsFinal {
		t.Error("live game must not be final")
	}
	if ev.EventID != "401705123-71-64" {
		t.Errorf("event id = %q", ev.EventID)
	}
	if !ev.ReceivedAt.Equal(now) || ev.Provider != "espn" {
		t.Errorf("provenance fields wrong: %+v", ev)
	}
}

func TestNormalizeStatusMapping(t *testing.T) {
	tests := []struct {
		status    string
		wantOK    bool
		wantFinal bool
	}{
		{"STATUS_IN_PROGRESS", true, false},
		{"STATUS_HALFTIME", true, false},
		{"STATUS_DELAYED", true, false},
		{"STATUS_EXTRA_TIME", true, false},
		{"STATUS_PENALTY", true, false},
		{"STATUS_FINAL", true, true},
		{"STATUS_FINAL_OT", true, true},
		{"STATUS_FULL_TIME", true, true},
		{"STATUS_SCHEDULED", false, false},
		{"STATUS_POSTPONED", false, false},
		{"STATUS_CANCELED", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		raw := rawEventFromJSON(t, `{
			"id": "g1",
			"competitions": [{
				"status": {"period": 2, "type": {"name": "`+tt.status+`"}},
				"competitors": [
					{"homeAway": "home", "score": "1", "team": {"abbreviation": "ARS"}},
					{"homeAway": "away", "score": "0", "team": {"abbreviation": "CHE"}}
				]
			}]
		}`)
		ev, ok := normalize(raw, events.SportPremierLeague, time.Now())
		if ok != tt.wantOK {
			t.Errorf("status %q: ok = %v, want %v", tt.status, ok, tt.wantOK)
			continue
		}
		if ok && ev.IsFinal != tt.wantFinal {
			t.Errorf("status %q: final = %v, want %v", tt.status, ev.IsFinal, tt.wantFinal)
		}
	}
}

func TestNormalizeSoccerClock(t *testing.T) {
	raw := rawEventFromJSON(t, `{
		"id": "g2",
		"competitions": [{
			"status": {"period": 2, "displayClock": "67", "type": {"name": "STATUS_IN_PROGRESS"}},
			"competitors": [
				{"homeAway": "home", "score": "2", "team": {"abbreviation": "MCI"}},
				{"homeAway": "away", "score": "1", "team": {"abbreviation": "LIV"}}
			]
		}]
	}`)
	ev, ok := normalize(raw, events.SportPremierLeague, time.Now())
	if !ok {
		t.Fatal("expected normalize")
	}
	if ev.GameClock != "67'" || ev.Period != 2 {
		t.Errorf("clock/period = %q/%d, want \"67'\"/2", ev.GameClock, ev.Period)
	}
}

func TestNormalizeHalftime(t *testing.T) {
	frame := `{
		"id": "g3",
		"competitions": [{
			"status": {"period": 2, "displayClock": "0:00", "type": {"name": "STATUS_HALFTIME"}},
			"competitors": [
				{"homeAway": "home", "score": "30", "team": {"abbreviation": "DUKE"}},
				{"homeAway": "away", "score": "28", "team": {"abbreviation": "UNC"}}
			]
		}]
	}`

	bball, ok := normalize(rawEventFromJSON(t, frame), events.SportNCAABasketball, time.Now())
	if !ok || bball.GameClock != "HT" || bball.Period != 2 {
		t.Errorf("basketball halftime = %q/%d ok=%v, want HT/2", bball.GameClock, bball.Period, ok)
	}

	soccer, ok := normalize(rawEventFromJSON(t, frame), events.SportChampionsLeague, time.Now())
	if !ok || soccer.GameClock != "HT" || soccer.Period != 1 {
		t.Errorf("soccer halftime = %q/%d ok=%v, want HT/1", soccer.GameClock, soccer.Period, ok)
	}
}

func TestNormalizeEmptyCompetitions(t *testing.T) {
	if _, ok := normalize(rawEvent{ID: "g4"}, events.SportNCAABasketball, time.Now()); ok {
		t.Error("event without competitions must be dropped")
	}
}

func TestScoreChangeDedup(t *testing.T) {
	c := NewClient(events.SportNCAABasketball, "", time.Second, time.Minute, nil)

	ev := events.ScoreEvent{GameID: "g1", HomeScore: 10, AwayScore: 8}
	if !c.isNewScore(ev) {
		t.Error("first sighting must count as new")
	}
	c.lastScores[ev.GameID] = [2]int{10, 8}

	if c.isNewScore(ev) {
		t.Error("unchanged score must be suppressed")
	}

	ev.AwayScore = 11
	if !c.isNewScore(ev) {
		t.Error("changed score must emit")
	}
}
