// Package swiss computes standings and next-round pairings for a Swiss-system
// tournament. Everything here is pure: callers load players from a store and
// pass them in.
package swiss

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jensholdgaard/swiss-tournament/internal/store"
)

// ErrOddPlayerCount is returned when pairing a field with an odd number of
// players. Byes are not assigned.
var ErrOddPlayerCount = errors.New("odd number of players")

// Standing is one row of a tournament's standings.
type Standing struct {
	PlayerID int64
	Name     string
	Wins     int
	Matches  int
}

// Pairing is a single matchup for the next round.
type Pairing struct {
	ID1   int64
	Name1 string
	ID2   int64
	Name2 string
}

// Rank orders players by wins descending, breaking ties by player ID
// ascending so repeated calls over the same tallies agree. The input slice
// is left untouched.
func Rank(players []store.Player) []Standing {
	standings := make([]Standing, len(players))
	for i, p := range players {
		standings[i] = Standing{
			PlayerID: p.ID,
			Name:     p.Name,
			Wins:     p.Wins,
			Matches:  p.Matches(),
		}
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Wins != standings[j].Wins {
			return standings[i].Wins > standings[j].Wins
		}
		return standings[i].PlayerID < standings[j].PlayerID
	})
	return standings
}

// Pair matches adjacent players in ranked standings: first with second,
// third with fourth, and so on. standings must already be ordered by Rank.
func Pair(standings []Standing) ([]Pairing, error) {
	if len(standings)%2 != 0 {
		return nil, fmt.Errorf("pairing %d players: %w", len(standings), ErrOddPlayerCount)
	}

	pairs := make([]Pairing, 0, len(standings)/2)
	for i := 0; i < len(standings)/2; i++ {
		a, b := standings[2*i], standings[2*i+1]
		pairs = append(pairs, Pairing{
			ID1:   a.PlayerID,
			Name1: a.Name,
			ID2:   b.PlayerID,
			Name2: b.Name,
		})
	}
	return pairs, nil
}
