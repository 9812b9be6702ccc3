package tournament

import (
	"math"

	"gomokuplane/internal/store"
)

// EloK is the rating K-factor.
const EloK = 32.0

// ExpectedScore is the logistic win expectancy of self against opponent.
func ExpectedScore(self, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-self)/400))
}

// ComputeEloDeltas accumulates rating changes over a tournament using the ratings
// frozen at its start, so game order does not matter. Only decisive games count;
// forfeits are decisive. Agents missing from ratings are skipped.
func ComputeEloDeltas(games []store.Game, ratings map[int64]float64) map[int64]float64 {
	deltas := make(map[int64]float64)
	for _, g := range games {
		if !g.Result.Decisive() {
			continue
		}
		rb, okB := ratings[g.BlackAgentID]
		rw, okW := ratings[g.WhiteAgentID]
		if !okB || !okW {
			continue
		}
		expectedBlack := ExpectedScore(rb, rw)
		expectedWhite := 1 - expectedBlack

		var actualBlack float64
		if g.Result == store.GameResultBlackWins {
			actualBlack = 1
		}
		actualWhite := 1 - actualBlack

		deltas[g.BlackAgentID] += EloK * (actualBlack - expectedBlack)
		deltas[g.WhiteAgentID] += EloK * (actualWhite - expectedWhite)
	}
	return deltas
}
