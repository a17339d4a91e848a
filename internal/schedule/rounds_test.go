package schedule

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fixedRand answers every Float64 with f and every Intn with 0.
type fixedRand struct {
	f      float64
	floats int
}

func (r *fixedRand) Float64() float64 {
	r.floats++
	return r.f
}

func (r *fixedRand) Intn(int) int { return 0 }

// placeholderRounds builds rounds of the given sizes. The round assigner
// only looks at how many matches a round has.
func placeholderRounds(sizes ...int) RoundMap {
	rm := RoundMap{}
	for i, n := range sizes {
		for j := 0; j < n; j++ {
			rm.Add(i+1, fmt.Sprintf("P%d", 2*j), fmt.Sprintf("P%d", 2*j+1))
		}
	}
	return rm
}

type planned struct {
	Slot  int
	Count int
}

func planOf(slots Slots, plan roundPlan) map[int][]planned {
	index := make(map[*Slot]int, len(slots))
	for i, s := range slots {
		index[s] = i
	}
	out := make(map[int][]planned, len(plan))
	for r, entries := range plan {
		for _, e := range entries {
			out[r] = append(out[r], planned{Slot: index[e.slot], Count: e.count})
		}
	}
	return out
}

func assignPlaceholders(t *testing.T, slots Slots, rng Rand, sizes ...int) roundPlan {
	t.Helper()
	rounds := placeholderRounds(sizes...)
	a, err := allot(slots, rounds.Total())
	if err != nil {
		t.Fatalf("allot() error: %v", err)
	}
	plan, err := assignRounds(slots, rounds, a, rng)
	if err != nil {
		t.Fatalf("assignRounds() error: %v", err)
	}
	for _, s := range slots {
		if s.MinGames != s.MaxGames || s.Allotted != s.MinGames {
			t.Errorf("%s: allotted %d range %d-%d, want a closed range", s, s.Allotted, s.MinGames, s.MaxGames)
		}
	}
	if got := allottedSum(slots); got != rounds.Total() {
		t.Errorf("allotted = %d, want %d", got, rounds.Total())
	}
	return plan
}

func allottedOf(slots Slots) []int {
	out := make([]int, len(slots))
	for i, s := range slots {
		out[i] = s.Allotted
	}
	return out
}

func TestAssignRoundsSingleMatchUsesFirstSlot(t *testing.T) {
	slots := unboundedSlots(5)
	plan := assignPlaceholders(t, slots, &fixedRand{}, 1)

	want := map[int][]planned{1: {{Slot: 0, Count: 1}}}
	if diff := cmp.Diff(want, planOf(slots, plan)); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 0, 0, 0, 0}, allottedOf(slots)); diff != "" {
		t.Errorf("allotted mismatch (-want +got):\n%s", diff)
	}
}

func TestAssignRoundsSpreadsQuotaAcrossRounds(t *testing.T) {
	slots := unboundedSlots(4)
	rng := &fixedRand{}
	plan := assignPlaceholders(t, slots, rng, 3, 3)

	want := map[int][]planned{
		1: {{Slot: 0, Count: 2}, {Slot: 1, Count: 1}},
		2: {{Slot: 2, Count: 2}, {Slot: 3, Count: 1}},
	}
	if diff := cmp.Diff(want, planOf(slots, plan)); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	if rng.floats != 0 {
		t.Errorf("random draws = %d, want 0", rng.floats)
	}
}

func TestAssignRoundsOptionalPlusOnes(t *testing.T) {
	t.Run("draws decline", func(t *testing.T) {
		slots := unboundedSlots(5)
		rng := &fixedRand{f: 0.9}
		plan := assignPlaceholders(t, slots, rng, 4, 4, 4)

		// Declined surplus is forced onto the last candidates.
		want := map[int][]planned{
			1: {{Slot: 0, Count: 2}, {Slot: 1, Count: 2}},
			2: {{Slot: 2, Count: 2}, {Slot: 3, Count: 2}},
			3: {{Slot: 3, Count: 1}, {Slot: 4, Count: 3}},
		}
		if diff := cmp.Diff(want, planOf(slots, plan)); diff != "" {
			t.Errorf("plan mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]int{2, 2, 2, 3, 3}, allottedOf(slots)); diff != "" {
			t.Errorf("allotted mismatch (-want +got):\n%s", diff)
		}
		if rng.floats != 2 {
			t.Errorf("random draws = %d, want 2", rng.floats)
		}
	})

	t.Run("draws accept", func(t *testing.T) {
		slots := unboundedSlots(5)
		rng := &fixedRand{f: 0}
		plan := assignPlaceholders(t, slots, rng, 4, 4, 4)

		// Slot 1 is split between rounds 1 and 2.
		want := map[int][]planned{
			1: {{Slot: 0, Count: 3}, {Slot: 1, Count: 1}},
			2: {{Slot: 1, Count: 2}, {Slot: 2, Count: 2}},
			3: {{Slot: 3, Count: 2}, {Slot: 4, Count: 2}},
		}
		if diff := cmp.Diff(want, planOf(slots, plan)); diff != "" {
			t.Errorf("plan mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]int{3, 3, 2, 2, 2}, allottedOf(slots)); diff != "" {
			t.Errorf("allotted mismatch (-want +got):\n%s", diff)
		}
		if rng.floats != 2 {
			t.Errorf("random draws = %d, want 2", rng.floats)
		}
	})
}

func TestAssignRoundsKeepsRoundsInSlotOrder(t *testing.T) {
	slots := unboundedSlots(7)
	plan := assignPlaceholders(t, slots, &fixedRand{f: 0.5}, 3, 2, 4, 1)

	last := -1
	for _, r := range []int{1, 2, 3, 4} {
		count := 0
		for _, e := range plan[r] {
			i := slotIndex(slots, e.slot)
			if i < last {
				t.Errorf("round %d uses slot %d after slot %d", r, i, last)
			}
			last = i
			count += e.count
		}
		if want := len(placeholderRounds(3, 2, 4, 1)[r]); count != want {
			t.Errorf("round %d planned %d matches, want %d", r, count, want)
		}
	}
}

func slotIndex(slots Slots, s *Slot) int {
	for i, other := range slots {
		if other == s {
			return i
		}
	}
	return -1
}
