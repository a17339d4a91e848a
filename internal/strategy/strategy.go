package strategy

import (
	"context"
	"fmt"

	"github.com/derekprior/ttleague/internal/schedule"
)

// Strategy generates the rounds of matches for a season.
type Strategy interface {
	GenerateRounds(players []string, gamesPerMatchup int) schedule.RoundMap
}

// Get returns a Strategy by name.
func Get(name string) (Strategy, error) {
	switch name {
	case "circle":
		return &Circle{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %q", name)
	}
}

// Circle generates a round robin with the circle method: the first player
// stays put while the others rotate one seat per round. Odd rosters get a
// bye seat, so one player sits out each round. Each extra game per matchup
// repeats the cycle with the seats swapped.
type Circle struct{}

const bye = -1

func (s *Circle) GenerateRounds(players []string, gamesPerMatchup int) schedule.RoundMap {
	rounds := schedule.RoundMap{}
	if len(players) < 2 {
		return rounds
	}

	seats := make([]int, len(players))
	for i := range seats {
		seats[i] = i
	}
	if len(seats)%2 == 1 {
		seats = append(seats, bye)
	}
	n := len(seats)

	for cycle := 0; cycle < gamesPerMatchup; cycle++ {
		rot := append([]int(nil), seats...)
		for r := 0; r < n-1; r++ {
			round := cycle*(n-1) + r + 1
			for i := 0; i < n/2; i++ {
				a, b := rot[i], rot[n-1-i]
				if a == bye || b == bye {
					continue
				}
				// The fixed seat alternates sides each round; later cycles
				// swap every pairing.
				if (i == 0 && r%2 == 1) != (cycle%2 == 1) {
					a, b = b, a
				}
				rounds.Add(round, players[a], players[b])
			}
			last := rot[n-1]
			copy(rot[2:], rot[1:n-1])
			rot[1] = last
		}
	}

	return rounds
}

// Source adapts a Strategy to schedule.MatchSource using a roster provider.
type Source struct {
	Strategy Strategy
	Roster   schedule.RosterProvider
}

func (s *Source) Rounds(ctx context.Context) (schedule.RoundMap, error) {
	roster, err := s.Roster.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading roster for matches: %w", err)
	}
	return s.Strategy.GenerateRounds(roster.Names(), roster.GamesPerMatchup), nil
}
