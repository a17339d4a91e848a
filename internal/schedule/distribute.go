package schedule

import (
	"github.com/sirupsen/logrus"
)

// distributor assigns the matches of one constrained group so that every
// eligible player is picked for that group within one of every other.
type distributor struct {
	*run

	group  Group
	pool   []string
	inPool map[string]bool

	minPicks int
	maxPicks int
	picks    map[string]int
	maxed    map[string]bool
}

func (rn *run) distribute(group Group, pool []string) error {
	d := &distributor{
		run:    rn,
		group:  group,
		pool:   pool,
		inPool: make(map[string]bool, len(pool)),
		picks:  make(map[string]int, len(pool)),
		maxed:  make(map[string]bool),
	}
	for _, p := range pool {
		d.inPool[p] = true
		d.picks[p] = 0
	}

	totalPicks := 0
	firstRound := 0
	for _, r := range rn.order {
		for _, e := range rn.plan[r] {
			if e.slot.Group != group || e.count == 0 {
				continue
			}
			if totalPicks == 0 {
				firstRound = r
			}
			totalPicks += 2 * e.count
		}
	}
	if totalPicks == 0 {
		return nil
	}
	if len(pool) == 0 {
		// Nobody opted in; the filler places these matches at random.
		err := &DistributionError{Kind: ErrDistributionInfeasible, Group: group, Round: firstRound}
		return rn.degrade(err, logrus.Fields{"group": group.String()})
	}

	d.minPicks = totalPicks / len(pool)
	d.maxPicks = d.minPicks
	if totalPicks%len(pool) != 0 {
		d.maxPicks++
	}

	for ri, r := range rn.order {
		for _, e := range rn.plan[r] {
			if e.slot.Group != group {
				continue
			}
			for ; e.count > 0; e.count-- {
				m, err := d.pick(ri)
				if err != nil {
					return err
				}
				rn.place(m, e.slot)
				for _, p := range []string{m.Player1, m.Player2} {
					if !d.inPool[p] {
						continue
					}
					d.picks[p]++
					if d.picks[p] >= d.maxPicks {
						d.maxed[p] = true
					}
				}
			}
		}
	}

	return d.check()
}

// pick chooses the next match of round order[ri] for a group slot.
func (d *distributor) pick(ri int) (*Match, error) {
	r := d.order[ri]
	candidates := d.remain[r]
	if len(candidates) == 0 {
		return nil, &DistributionError{Kind: ErrDistributionInfeasible, Group: d.group, Round: r}
	}

	future := d.gamesRemaining(ri)

	// Players who have no more future chances than picks still needed to
	// reach the floor must be picked now.
	required := make(map[string]bool)
	for _, p := range d.pool {
		if !d.maxed[p] && d.minPicks-d.picks[p] >= future[p] {
			required[p] = true
		}
	}

	var byRequired []*Match
	best := -1
	for _, m := range candidates {
		n := 0
		if required[m.Player1] {
			n++
		}
		if required[m.Player2] {
			n++
		}
		switch {
		case n > best:
			best = n
			byRequired = []*Match{m}
		case n == best:
			byRequired = append(byRequired, m)
		}
	}

	eligible := d.fewestPicks(byRequired)
	if len(eligible) == 0 {
		err := &DistributionError{Kind: ErrDistributionInfeasible, Group: d.group, Round: r, Picks: d.snapshot()}
		if err := d.degrade(err, logrus.Fields{"group": d.group.String(), "round": r}); err != nil {
			return nil, err
		}
		eligible = d.fewestPicks(candidates)
		if len(eligible) == 0 {
			d.log.WithFields(logrus.Fields{"group": d.group.String(), "round": r}).
				Warn("placing players who did not opt in")
			eligible = candidates
		}
	}

	tied := d.fewestFutureGames(eligible, future)
	return tied[d.rng.Intn(len(tied))], nil
}

// gamesRemaining counts, per eligible player, the matches of later rounds
// that could still be picked for this group.
func (d *distributor) gamesRemaining(ri int) map[string]int {
	future := make(map[string]int, len(d.pool))
	for _, r := range d.order[ri+1:] {
		for _, m := range d.remain[r] {
			if !d.inPool[m.Player1] || !d.inPool[m.Player2] || d.maxed[m.Player1] || d.maxed[m.Player2] {
				continue
			}
			future[m.Player1]++
			future[m.Player2]++
		}
	}
	return future
}

// fewestPicks keeps the matches between eligible players with the lowest
// combined pick count.
func (d *distributor) fewestPicks(matches []*Match) []*Match {
	var out []*Match
	best := -1
	for _, m := range matches {
		if !d.inPool[m.Player1] || !d.inPool[m.Player2] {
			continue
		}
		n := d.picks[m.Player1] + d.picks[m.Player2]
		switch {
		case best < 0 || n < best:
			best = n
			out = []*Match{m}
		case n == best:
			out = append(out, m)
		}
	}
	return out
}

// fewestFutureGames keeps the matches whose players have the fewest later
// chances, leaving flexible players for later rounds.
func (d *distributor) fewestFutureGames(matches []*Match, future map[string]int) []*Match {
	var out []*Match
	best := -1
	for _, m := range matches {
		n := future[m.Player1] + future[m.Player2]
		switch {
		case best < 0 || n < best:
			best = n
			out = []*Match{m}
		case n == best:
			out = append(out, m)
		}
	}
	return out
}

func (d *distributor) snapshot() map[string]int {
	picks := make(map[string]int, len(d.picks))
	for p, n := range d.picks {
		picks[p] = n
	}
	return picks
}

// check recounts the group's matches per eligible player from the slots.
func (d *distributor) check() error {
	counts := make(map[string]int, len(d.pool))
	for _, p := range d.pool {
		counts[p] = 0
	}
	for _, s := range d.slots {
		if s.Group != d.group {
			continue
		}
		for _, m := range s.Matches {
			for _, p := range []string{m.Player1, m.Player2} {
				if d.inPool[p] {
					counts[p]++
				}
			}
		}
	}

	lo, hi := -1, -1
	for _, n := range counts {
		if lo < 0 || n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	if hi-lo > 1 {
		err := &DistributionError{Kind: ErrUnevenDistribution, Group: d.group, Picks: counts}
		return d.degrade(err, logrus.Fields{"group": d.group.String(), "min": lo, "max": hi})
	}
	return nil
}
