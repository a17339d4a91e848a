package strategy

import (
	"context"
	"fmt"
	"testing"

	"github.com/derekprior/ttleague/internal/schedule"
)

func testPlayers(n int) []string {
	players := make([]string, n)
	for i := range players {
		players[i] = fmt.Sprintf("P%02d", i+1)
	}
	return players
}

type pair struct{ a, b string }

func pairCounts(rounds schedule.RoundMap) map[pair]int {
	counts := make(map[pair]int)
	for _, matches := range rounds {
		for _, m := range matches {
			a, b := m.Player1, m.Player2
			if a > b {
				a, b = b, a
			}
			counts[pair{a, b}]++
		}
	}
	return counts
}

func TestCircleRounds(t *testing.T) {
	tests := []struct {
		players, gamesPerMatchup int
		rounds, perRound         int
	}{
		{2, 1, 1, 1},
		{4, 1, 3, 2},
		{5, 1, 5, 2},
		{10, 1, 9, 5},
		{10, 2, 18, 5},
		{7, 3, 21, 3},
	}
	for _, tt := range tests {
		name := fmt.Sprintf("%d players x%d", tt.players, tt.gamesPerMatchup)
		t.Run(name, func(t *testing.T) {
			players := testPlayers(tt.players)
			rounds := (&Circle{}).GenerateRounds(players, tt.gamesPerMatchup)

			if len(rounds) != tt.rounds {
				t.Fatalf("rounds = %d, want %d", len(rounds), tt.rounds)
			}
			for i, r := range rounds.Rounds() {
				if r != i+1 {
					t.Fatalf("round numbers = %v, want 1..%d", rounds.Rounds(), tt.rounds)
				}
				if len(rounds[r]) != tt.perRound {
					t.Errorf("round %d has %d matches, want %d", r, len(rounds[r]), tt.perRound)
				}
				seen := make(map[string]bool)
				for _, m := range rounds[r] {
					if m.Round != r {
						t.Errorf("match %s carries round %d, want %d", m, m.Round, r)
					}
					for _, p := range []string{m.Player1, m.Player2} {
						if seen[p] {
							t.Errorf("%s plays twice in round %d", p, r)
						}
						seen[p] = true
					}
				}
			}

			counts := pairCounts(rounds)
			if want := tt.players * (tt.players - 1) / 2; len(counts) != want {
				t.Errorf("distinct pairs = %d, want %d", len(counts), want)
			}
			for p, n := range counts {
				if n != tt.gamesPerMatchup {
					t.Errorf("%s vs %s = %d matches, want %d", p.a, p.b, n, tt.gamesPerMatchup)
				}
			}
		})
	}
}

func TestCircleSwapsSeatsOnRepeat(t *testing.T) {
	rounds := (&Circle{}).GenerateRounds(testPlayers(6), 2)

	seated := make(map[pair]int)
	for _, matches := range rounds {
		for _, m := range matches {
			seated[pair{m.Player1, m.Player2}]++
		}
	}
	for p, n := range seated {
		if n != 1 {
			t.Errorf("%s seated first against %s %d times, want 1", p.a, p.b, n)
		}
	}
}

func TestCircleTooFewPlayers(t *testing.T) {
	for _, n := range []int{0, 1} {
		if rounds := (&Circle{}).GenerateRounds(testPlayers(n), 1); len(rounds) != 0 {
			t.Errorf("%d players: rounds = %d, want 0", n, len(rounds))
		}
	}
}

func TestGet(t *testing.T) {
	s, err := Get("circle")
	if err != nil {
		t.Fatalf("Get(circle) error: %v", err)
	}
	if _, ok := s.(*Circle); !ok {
		t.Errorf("Get(circle) = %T, want *Circle", s)
	}

	if _, err := Get("swiss"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

type fixedRoster schedule.Roster

func (r fixedRoster) Roster(context.Context) (schedule.Roster, error) { return schedule.Roster(r), nil }

func TestSource(t *testing.T) {
	roster := fixedRoster{
		Players:         []schedule.Player{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}},
		GamesPerMatchup: 1,
	}
	src := &Source{Strategy: &Circle{}, Roster: roster}

	rounds, err := src.Rounds(context.Background())
	if err != nil {
		t.Fatalf("Rounds() error: %v", err)
	}
	if rounds.Total() != 6 {
		t.Errorf("matches = %d, want 6", rounds.Total())
	}
	if first := rounds[1][0]; first.Player1 != "A" || first.Player2 != "D" {
		t.Errorf("round 1 opener = %s, want A vs D", first)
	}
}
