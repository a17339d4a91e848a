package schedule

import (
	"fmt"
	"sort"
)

// allotment is the outcome of the capacity allotter.
type allotment struct {
	// plusOnes is the number of surplus matches left over after the last
	// complete leveling round. Exactly this many of the candidates take one
	// more match than their Allotted floor.
	plusOnes   int
	candidates []*Slot
	reserved   int
}

// allot decides how many matches each slot hosts. Every slot ends with
// MinGames == Allotted and MaxGames in {Allotted, Allotted+1}; the slots
// with the larger maximum are the +1 candidates.
func allot(slots Slots, totalGames int) (allotment, error) {
	var a allotment

	byAvailability := make(map[availability][]*Slot)
	for _, s := range slots {
		s.Allotted = len(s.Matches)
		byAvailability[s.availability()] = append(byAvailability[s.availability()], s)
	}

	for _, s := range byAvailability[underMin] {
		s.Allotted = s.MinGames
		a.reserved += s.MinGames
	}

	gamesLeft := totalGames - a.reserved
	if gamesLeft < 0 {
		return a, fmt.Errorf("%w: %d matches cannot fill the %d reserved by slot minimums",
			ErrAllotmentInfeasible, totalGames, a.reserved)
	}

	// Remaining capacity per slot: slots with no maximum can take matches
	// in every leveling round, slots with n left can take one in each of
	// the first n rounds.
	var unbounded []*Slot
	remaining := make(map[int][]*Slot)
	maxRemaining := 0
	for _, state := range []availability{underMin, hitMin} {
		for _, s := range byAvailability[state] {
			if !s.hasMax {
				unbounded = append(unbounded, s)
				continue
			}
			left := s.MaxGames - s.Allotted
			if left <= 0 {
				continue
			}
			remaining[left] = append(remaining[left], s)
			if left > maxRemaining {
				maxRemaining = left
			}
		}
	}

	// Eligible slots per leveling round, built backwards: the last round
	// only has the unbounded slots, each earlier round adds the slots with
	// exactly that many matches left.
	pos := make(map[*Slot]int, len(slots))
	for i, s := range slots {
		pos[s] = i
	}
	lastRound := maxRemaining + 1
	availableByRound := make(map[int][]*Slot, lastRound)
	current := append([]*Slot(nil), unbounded...)
	availableByRound[lastRound] = current
	for round := lastRound - 1; round > 0; round-- {
		current = append(append([]*Slot(nil), current...), remaining[round]...)
		sort.SliceStable(current, func(i, j int) bool { return pos[current[i]] < pos[current[j]] })
		availableByRound[round] = current
	}

	for round := 1; gamesLeft > 0; round++ {
		eligible := availableByRound[min(round, lastRound)]
		if len(eligible) == 0 {
			return a, fmt.Errorf("%w: %d matches left over after every slot reached its maximum",
				ErrAllotmentInfeasible, gamesLeft)
		}
		if gamesLeft < len(eligible) {
			a.plusOnes = gamesLeft
			a.candidates = eligible
			for _, s := range eligible {
				s.plusOne = true
			}
			break
		}
		for _, s := range eligible {
			s.Allotted++
		}
		gamesLeft -= len(eligible)
	}

	for _, s := range slots {
		if s.MinGames < s.Allotted {
			s.MinGames = s.Allotted
		}
		s.MaxGames = s.Allotted
		if s.plusOne {
			s.MaxGames++
		}
		s.hasMax = true
	}

	return a, nil
}
