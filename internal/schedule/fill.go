package schedule

import (
	"fmt"
)

// fill places the matches left after constrained-group distribution,
// picking uniformly at random from each round's remaining matches.
func (rn *run) fill() error {
	for _, r := range rn.order {
		for _, e := range rn.plan[r] {
			for ; e.count > 0; e.count-- {
				pool := rn.remain[r]
				if len(pool) == 0 {
					return fmt.Errorf("%w: round %d has no matches left for %s", ErrDistributionInfeasible, r, e.slot)
				}
				rn.place(pool[rn.rng.Intn(len(pool))], e.slot)
			}
		}
	}
	return nil
}

// place assigns m to slot and removes it from its round's remaining pool.
func (rn *run) place(m *Match, slot *Slot) {
	pool := rn.remain[m.Round]
	for i, other := range pool {
		if other == m {
			rn.remain[m.Round] = append(pool[:i], pool[i+1:]...)
			break
		}
	}
	m.Slot = slot
	slot.Matches = append(slot.Matches, m)
}

// checkGamesPlayed verifies every player plays each opponent the configured
// number of times.
func (rn *run) checkGamesPlayed(roster Roster) error {
	played := make(map[string]int, len(roster.Players))
	for _, p := range roster.Players {
		played[p.Name] = 0
	}
	for _, s := range rn.slots {
		for _, m := range s.Matches {
			played[m.Player1]++
			played[m.Player2]++
		}
	}

	want := (len(roster.Players) - 1) * roster.GamesPerMatchup
	for _, p := range roster.Players {
		if played[p.Name] != want {
			return fmt.Errorf("%w: player %s plays %d matches, want %d",
				ErrDistributionInfeasible, p.Name, played[p.Name], want)
		}
	}
	return nil
}
