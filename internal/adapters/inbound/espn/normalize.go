package espn

import (
	"strconv"
	"time"

	"kalshi-sniper/internal/events"
)

// Status normalization is a closed mapping: provider live states map to
// live, final states map to final, everything else is dropped.
var liveStatuses = map[string]bool{
	"STATUS_IN_PROGRESS": true,
	"STATUS_HALFTIME":    true,
	"STATUS_DELAYED":     true,
	"STATUS_EXTRA_TIME":  true,
	"STATUS_PENALTY":     true,
}

var finalStatuses = map[string]bool{
	"STATUS_FINAL":     true,
	"STATUS_FINAL_OT":  true,
	"STATUS_FULL_TIME": true,
}

type scoreboardResponse struct {
	Events []rawEvent `json:"events"`
}

type rawEvent struct {
	ID           string           `json:"id"`
	Competitions []rawCompetition `json:"competitions"`
}

type rawCompetition struct {
	Status      rawStatus       `json:"status"`
	Competitors []rawCompetitor `json:"competitors"`
}

type rawStatus struct {
	Period       int    `json:"period"`
	DisplayClock string `json:"displayClock"`
	Type         struct {
		Name string `json:"name"`
	} `json:"type"`
}

type rawCompetitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     struct {
		Abbreviation string `json:"abbreviation"`
	} `json:"team"`
}

// normalize converts one provider event object into the canonical
// ScoreEvent. Returns false when the game is neither live nor final.
func normalize(raw rawEvent, sport events.Sport, receivedAt time.Time) (events.ScoreEvent, bool) {
	if len(raw.Competitions) == 0 {
		return events.ScoreEvent{}, false
	}
	comp := raw.Competitions[0]
	statusName := comp.Status.Type.Name

	if !liveStatuses[statusName] && !finalStatuses[statusName] {
		return events.ScoreEvent{}, false
	}

	var home, away rawCompetitor
	for _, c := range comp.Competitors {
		switch c.HomeAway {
		case "home":
			home = c
		case "away":
			away = c
		}
	}

	homeScore, _ := strconv.Atoi(home.Score)
	awayScore, _ := strconv.Atoi(away.Score)

	period := comp.Status.Period
	var clock string
	switch {
	case statusName == "STATUS_HALFTIME":
		clock = "HT"
		if !sport.Basketball() {
			period = 1
		}
	case sport.Basketball() && comp.Status.DisplayClock != "":
		clock = "H" + strconv.Itoa(period) + " " + comp.Status.DisplayClock
	case sport.Basketball():
		clock = "H" + strconv.Itoa(period)
	case comp.Status.DisplayClock != "":
		clock = comp.Status.DisplayClock + "'"
	default:
		clock = statusName
	}

	gameID := raw.ID
	return events.ScoreEvent{
		EventID:    gameID + "-" + strconv.Itoa(homeScore) + "-" + strconv.Itoa(awayScore),
		Sport:      sport,
		GameID:     gameID,
		HomeTeam:   home.Team.Abbreviation,
		AwayTeam:   away.Team.Abbreviation,
		HomeScore:  homeScore,
		AwayScore:  awayScore,
		TotalScore: homeScore + awayScore,
		GameClock:  clock,
		Period:     period,
		IsFinal:    finalStatuses[statusName],
		ReceivedAt: receivedAt,
		Provider:   "espn",
	}, true
}
