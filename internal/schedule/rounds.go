package schedule

import (
	"fmt"
)

// Rand is the source of every random decision of a run. *math/rand.Rand
// satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// planEntry says that count matches of a round are played in slot.
type planEntry struct {
	slot  *Slot
	count int
}

// roundPlan is the per-round list of slot entries in date order.
type roundPlan map[int][]*planEntry

// roundAssigner walks the slots in date order and the rounds in round order,
// filling each slot up to its floor and deciding for every +1 candidate
// whether it takes a surplus match.
type roundAssigner struct {
	slots  Slots
	rounds RoundMap
	rng    Rand

	order []int
	quota map[int]int // mandatory +1s still owed by each round
	extra int         // +1s not bound to a round

	// candidatesAfter[i] is the number of +1 candidates after slot i.
	candidatesAfter []int

	idx  int
	cur  *Slot
	used int

	plusOnesUsed int
}

func newRoundAssigner(slots Slots, rounds RoundMap, a allotment, rng Rand) *roundAssigner {
	ra := &roundAssigner{
		slots:  slots,
		rounds: rounds,
		rng:    rng,
		order:  rounds.Rounds(),
		quota:  make(map[int]int),
		idx:    -1,
	}

	if n := len(ra.order); n > 0 {
		for _, r := range ra.order {
			ra.quota[r] = a.plusOnes / n
		}
		ra.extra = a.plusOnes % n
	}

	ra.candidatesAfter = make([]int, len(slots))
	count := 0
	for i := len(slots) - 1; i >= 0; i-- {
		ra.candidatesAfter[i] = count
		if slots[i].plusOne {
			count++
		}
	}
	return ra
}

// assignRounds fixes how many matches of each round go to each slot.
func assignRounds(slots Slots, rounds RoundMap, a allotment, rng Rand) (roundPlan, error) {
	ra := newRoundAssigner(slots, rounds, a, rng)
	plan, err := ra.run()
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (ra *roundAssigner) run() (roundPlan, error) {
	plan := make(roundPlan, len(ra.order))

	for ri, r := range ra.order {
		left := len(ra.rounds[r])
		for left > 0 {
			if ra.cur == nil || ra.used >= ra.cur.MaxGames {
				if err := ra.advance(r, left); err != nil {
					return nil, err
				}
			}

			placed := 0
			floor := ra.cur.MinGames - ra.used
			if left < floor {
				// The slot is split between this round and the next.
				placed = left
				ra.used += left
				left = 0
			} else {
				placed = floor
				ra.used += floor
				left -= floor

				if ra.cur.MaxGames > ra.cur.MinGames {
					switch ra.decide(ri, left) {
					case usePlusOne:
						ra.cur.MinGames++
						ra.used++
						placed++
						left--
						ra.plusOnesUsed++
					case skipPlusOne:
						ra.cur.MaxGames--
					case deferPlusOne:
						// Left open; the next round decides.
					}
				}
			}

			if placed > 0 {
				plan[r] = append(plan[r], &planEntry{slot: ra.cur, count: placed})
			}
		}

		// Quota this round could not use stays available to later rounds.
		ra.extra += ra.quota[r]
		ra.quota[r] = 0
	}

	// Slots past the last match keep their floor only.
	if ra.cur != nil && ra.cur.MaxGames > ra.cur.MinGames {
		ra.cur.MaxGames = ra.cur.MinGames
	}
	for _, s := range ra.slots[ra.idx+1:] {
		s.MaxGames = s.MinGames
	}

	total := 0
	for _, s := range ra.slots {
		if s.MinGames != s.MaxGames {
			return nil, fmt.Errorf("%w: slot %s left with range %d-%d", ErrAllotmentInfeasible, s, s.MinGames, s.MaxGames)
		}
		s.Allotted = s.MinGames
		total += s.MinGames
	}
	if want := ra.rounds.Total(); total != want {
		return nil, fmt.Errorf("%w: slots hold %d matches, want %d", ErrAllotmentInfeasible, total, want)
	}

	return plan, nil
}

func (ra *roundAssigner) advance(round, left int) error {
	ra.idx++
	if ra.idx >= len(ra.slots) {
		return fmt.Errorf("%w: ran out of slots with %d matches of round %d unplaced", ErrAllotmentInfeasible, left, round)
	}
	ra.cur = ra.slots[ra.idx]
	ra.used = 0
	return nil
}

type plusOneDecision int

const (
	skipPlusOne plusOneDecision = iota
	usePlusOne
	deferPlusOne
)

// decide settles the +1 of the current slot once its floor is met. left is
// the number of matches of round order[ri] still unplaced.
func (ra *roundAssigner) decide(ri, left int) plusOneDecision {
	r := ra.order[ri]

	owedLater := 0
	for _, later := range ra.order[ri+1:] {
		owedLater += ra.quota[later]
	}
	available := ra.candidatesAfter[ra.idx] + 1
	needed := ra.extra + ra.quota[r] + owedLater
	forced := needed > 0 && needed >= available

	if left == 0 {
		// Nothing of this round to place here. A +1 that must still be
		// taken waits for the next round; otherwise ending the round on a
		// clean boundary wins.
		if forced || ra.quota[r] > 0 {
			return deferPlusOne
		}
		return skipPlusOne
	}

	switch {
	case ra.quota[r] > 0:
		ra.quota[r]--
		return usePlusOne
	case forced:
		ra.take(ri)
		return usePlusOne
	case ra.extra == 0:
		return skipPlusOne
	case left == 1:
		// Taking the +1 finishes the round exactly on this slot.
		ra.extra--
		return usePlusOne
	}

	optional := available - owedLater
	if ra.rng.Float64() <= float64(ra.extra)/float64(optional) {
		ra.extra--
		return usePlusOne
	}
	return skipPlusOne
}

// take consumes one owed +1, preferring the unbound pool over the quota of
// the nearest later round.
func (ra *roundAssigner) take(ri int) {
	if ra.extra > 0 {
		ra.extra--
		return
	}
	for _, later := range ra.order[ri+1:] {
		if ra.quota[later] > 0 {
			ra.quota[later]--
			return
		}
	}
}
