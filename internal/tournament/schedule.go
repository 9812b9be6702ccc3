// Package tournament schedules round-robin games, plays them and rates the agents.
package tournament

import (
	"fmt"

	"gomokuplane/internal/store"
)

// Matchup is one ordered pairing.
type Matchup struct {
	Black store.Agent
	White store.Agent
}

// Key identifies the matchup inside a tournament, e.g. "3_vs_7".
func (m Matchup) Key() string {
	return MatchupKey(m.Black.ID, m.White.ID)
}

func MatchupKey(blackID, whiteID int64) string {
	return fmt.Sprintf("%d_vs_%d", blackID, whiteID)
}

// RoundRobin pairs every agent with every other agent once as black and once as white,
// giving N*(N-1) matchups in a stable order.
func RoundRobin(agents []store.Agent) []Matchup {
	if len(agents) < 2 {
		return nil
	}
	out := make([]Matchup, 0, len(agents)*(len(agents)-1))
	for i, black := range agents {
		for j, white := range agents {
			if i == j {
				continue
			}
			out = append(out, Matchup{Black: black, White: white})
		}
	}
	return out
}

// TotalGames is the schedule length for n participants.
func TotalGames(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1)
}

// Remaining returns the matchups whose key is not in done, keeping schedule order.
func Remaining(schedule []Matchup, done map[string]bool) []Matchup {
	var out []Matchup
	for _, m := range schedule {
		if !done[m.Key()] {
			out = append(out, m)
		}
	}
	return out
}

// PlayedKeys returns the matchup keys of recorded games.
func PlayedKeys(games []store.Game) map[string]bool {
	done := make(map[string]bool, len(games))
	for _, g := range games {
		done[MatchupKey(g.BlackAgentID, g.WhiteAgentID)] = true
	}
	return done
}
