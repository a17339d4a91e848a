package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func players(lunch bool, names ...string) []Player {
	out := make([]Player, len(names))
	for i, n := range names {
		out[i] = Player{Name: n, Lunch: lunch}
	}
	return out
}

// threePlayerInput is a three-player round robin over Monday to Wednesday
// with one lunch match a day.
func threePlayerInput() *Input {
	rounds := RoundMap{}
	rounds.Add(1, "A", "B")
	rounds.Add(2, "A", "C")
	rounds.Add(3, "B", "C")
	return &Input{
		Season: Season{
			StartDate:     day(2026, 1, 5),
			EndDate:       day(2026, 1, 7),
			LunchCapacity: 1,
		},
		Roster: Roster{Players: players(true, "A", "B", "C"), GamesPerMatchup: 1},
		Rounds: rounds,
	}
}

// lunchOnlyForA is threePlayerInput where only A plays lunch matches.
func lunchOnlyForA() *Input {
	in := threePlayerInput()
	in.Roster.Players = []Player{{Name: "A", Lunch: true}, {Name: "B"}, {Name: "C"}}
	return in
}

func TestGenerateSingleMatch(t *testing.T) {
	rounds := RoundMap{}
	rounds.Add(1, "A", "B")
	in := &Input{
		Season: Season{StartDate: day(2026, 1, 5), EndDate: day(2026, 1, 9)},
		Roster: Roster{Players: players(false, "A", "B"), GamesPerMatchup: 1},
		Rounds: rounds,
	}

	res, err := Generate(in, Options{Seed: 1, Strict: true})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if len(res.Slots) != 5 {
		t.Fatalf("slots = %d, want 5", len(res.Slots))
	}
	m := res.Rounds[1][0]
	if m.Slot == nil || !m.Date().Equal(day(2026, 1, 5)) || m.Slot.Group != GroupNone {
		t.Errorf("match = %s, want Monday 2026-01-05 unconstrained", m)
	}
	for _, s := range res.Slots[1:] {
		if s.Allotted != 0 || len(s.Matches) != 0 {
			t.Errorf("%s: %d matches, want 0", s, len(s.Matches))
		}
	}
	if res.PlusOnes != 1 {
		t.Errorf("PlusOnes = %d, want 1", res.PlusOnes)
	}
}

func TestGenerateLunchEveryDay(t *testing.T) {
	res, err := Generate(threePlayerInput(), Options{Seed: 3, Strict: true})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	t.Run("lunch slots hold one match", func(t *testing.T) {
		for _, s := range res.Slots {
			want := 0
			if s.Group == GroupLunch {
				want = 1
			}
			if len(s.Matches) != want {
				t.Errorf("%s: %d matches, want %d", s, len(s.Matches), want)
			}
		}
	})

	t.Run("every player gets two lunch matches", func(t *testing.T) {
		for name, pm := range res.PlayerMetrics() {
			if pm.Games != 2 || pm.Lunch != 2 || pm.LeagueNight != 0 {
				t.Errorf("%s: %+v, want 2 games, 2 lunch", name, *pm)
			}
		}
	})

	t.Run("round order follows the calendar", func(t *testing.T) {
		want := map[int]time.Time{1: day(2026, 1, 5), 2: day(2026, 1, 6), 3: day(2026, 1, 7)}
		for r, d := range want {
			if got := res.Rounds[r][0].Date(); !got.Equal(d) {
				t.Errorf("round %d on %s, want %s", r, got.Format("2006-01-02"), d.Format("2006-01-02"))
			}
		}
	})

	t.Run("player schedules", func(t *testing.T) {
		sched := res.PlayerSchedules()
		if len(sched["A"]) != 2 || sched["A"][0].Opponent("A") != "B" || sched["A"][1].Opponent("A") != "C" {
			t.Errorf("A's schedule = %v, want B then C", sched["A"])
		}
	})
}

func TestGenerateAcrossWeekend(t *testing.T) {
	in := threePlayerInput()
	in.Season.StartDate = day(2026, 1, 9)
	in.Season.EndDate = day(2026, 1, 12)

	res, err := Generate(in, Options{Seed: 1, Strict: true})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	want := map[SlotKey]int{
		NewSlotKey(day(2026, 1, 9), GroupNone):   1,
		NewSlotKey(day(2026, 1, 9), GroupLunch):  1,
		NewSlotKey(day(2026, 1, 12), GroupNone):  0,
		NewSlotKey(day(2026, 1, 12), GroupLunch): 1,
	}
	if len(res.Slots) != len(want) {
		t.Fatalf("slots = %d, want %d", len(res.Slots), len(want))
	}
	for _, s := range res.Slots {
		if got := len(s.Matches); got != want[s.Key()] {
			t.Errorf("%s: %d matches, want %d", s, got, want[s.Key()])
		}
	}
}

func TestGenerateDoesNotModifyInput(t *testing.T) {
	in := threePlayerInput()
	if _, err := Generate(in, Options{Seed: 1}); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	for _, r := range in.Rounds.Rounds() {
		for _, m := range in.Rounds[r] {
			if m.Slot != nil {
				t.Errorf("input match %s was assigned", m)
			}
		}
	}
}

func TestGenerateAllotmentInfeasible(t *testing.T) {
	in := threePlayerInput()
	in.Season.EndDate = day(2026, 1, 9) // five lunch slots for three matches

	_, err := Generate(in, Options{Seed: 1})
	if !errors.Is(err, ErrAllotmentInfeasible) {
		t.Errorf("Generate() error = %v, want ErrAllotmentInfeasible", err)
	}
}

func TestGenerateDistributionInfeasible(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		_, err := Generate(lunchOnlyForA(), Options{Seed: 1, Strict: true})
		if !errors.Is(err, ErrDistributionInfeasible) {
			t.Fatalf("Generate() error = %v, want ErrDistributionInfeasible", err)
		}
		var de *DistributionError
		if !errors.As(err, &de) || de.Group != GroupLunch || de.Round != 1 {
			t.Errorf("error = %#v, want lunch round 1", err)
		}
	})

	t.Run("lenient logs warnings", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		res, err := Generate(lunchOnlyForA(), Options{Seed: 1, Logger: logger})
		if err != nil {
			t.Fatalf("Generate() error: %v", err)
		}
		if len(res.Warnings) != 3 {
			t.Errorf("warnings = %d, want 3: %v", len(res.Warnings), res.Warnings)
		}

		warned := false
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.WarnLevel && e.Data["group"] == "lunch" {
				warned = true
			}
		}
		if !warned {
			t.Error("expected a lunch warning to be logged")
		}

		for name, pm := range res.PlayerMetrics() {
			if pm.Games != 2 {
				t.Errorf("%s plays %d matches, want 2", name, pm.Games)
			}
		}
	})
}

func TestGenerateInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *Input)
	}{
		{"single player", func(in *Input) {
			in.Roster.Players = in.Roster.Players[:1]
		}},
		{"zero games per matchup", func(in *Input) {
			in.Roster.GamesPerMatchup = 0
		}},
		{"season ends before it starts", func(in *Input) {
			in.Season.EndDate = day(2026, 1, 1)
		}},
		{"duplicate player", func(in *Input) {
			in.Roster.Players[2].Name = "A"
		}},
		{"player against themself", func(in *Input) {
			in.Rounds[3][0].Player1 = "C"
		}},
		{"unknown player", func(in *Input) {
			in.Rounds[3][0].Player1 = "Z"
		}},
		{"no rounds", func(in *Input) {
			in.Rounds = RoundMap{}
		}},
		{"missing match", func(in *Input) {
			delete(in.Rounds, 3)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := threePlayerInput()
			tt.modify(in)
			_, err := Generate(in, Options{Seed: 1})
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Generate() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("first seed wins", func(t *testing.T) {
		res, err := Search(ctx, threePlayerInput(), Options{Seed: 10}, 4)
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if res.Seed != 10 {
			t.Errorf("Seed = %d, want 10", res.Seed)
		}
		if len(res.Warnings) != 0 {
			t.Errorf("warnings = %v, want none", res.Warnings)
		}
	})

	t.Run("strict gives up", func(t *testing.T) {
		_, err := Search(ctx, lunchOnlyForA(), Options{Seed: 1, Strict: true}, 3)
		if !errors.Is(err, ErrDistributionInfeasible) {
			t.Errorf("Search() error = %v, want ErrDistributionInfeasible", err)
		}
	})

	t.Run("lenient falls back", func(t *testing.T) {
		res, err := Search(ctx, lunchOnlyForA(), Options{Seed: 5}, 3)
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if res.Seed != 5 {
			t.Errorf("Seed = %d, want 5", res.Seed)
		}
		if len(res.Warnings) == 0 {
			t.Error("expected warnings from the lenient fallback")
		}
	})

	t.Run("allotment failure is not retried", func(t *testing.T) {
		in := threePlayerInput()
		in.Season.EndDate = day(2026, 1, 9)
		_, err := Search(ctx, in, Options{Seed: 1}, 3)
		if !errors.Is(err, ErrAllotmentInfeasible) {
			t.Errorf("Search() error = %v, want ErrAllotmentInfeasible", err)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		in := threePlayerInput()
		in.Rounds = RoundMap{}
		if _, err := Search(ctx, in, Options{}, 3); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Search() error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("explicit generator is rejected", func(t *testing.T) {
		_, err := Search(ctx, threePlayerInput(), Options{Seed: 1, Rand: &fixedRand{}}, 3)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Search() error = %v, want ErrInvalidInput", err)
		}
	})
}
