package strategy

import "kalshi-sniper/internal/events"

// Conservative step tables for in-game win probability, keyed on lead
// size. Deliberately coarse: zero before the 2nd half/period, and zero
// below the smallest step, so only comfortable leads trade.
//
// TODO: consume clock minutes from the score event so a 10-point lead
// with 30 seconds left outranks one with 15 minutes left.
var (
	basketballSteps = []winProbStep{
		{lead: 20, prob: 0.97},
		{lead: 15, prob: 0.93},
		{lead: 10, prob: 0.86},
		{lead: 7, prob: 0.78},
		{lead: 5, prob: 0.68},
	}
	soccerSteps = []winProbStep{
		{lead: 3, prob: 0.97},
		{lead: 2, prob: 0.91},
		{lead: 1, prob: 0.68},
	}
)

type winProbStep struct {
	lead int
	prob float64
}

// WinProbability estimates the leading team's chance of winning. Returns
// 0 when the game is too early or the lead too thin to trade.
func WinProbability(sport events.Sport, lead, period int) float64 {
	if lead <= 0 || period < 2 {
		return 0
	}

	steps := soccerSteps
	if sport.Basketball() {
		steps = basketballSteps
	}
	for _, s := range steps {
		if lead >= s.lead {
			return s.prob
		}
	}
	return 0
}
