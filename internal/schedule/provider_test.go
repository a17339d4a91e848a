package schedule

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubRoster struct {
	roster Roster
	err    error
}

func (s stubRoster) Roster(context.Context) (Roster, error) { return s.roster, s.err }

type stubSeason struct {
	season Season
	err    error
}

func (s stubSeason) SeasonConfig(context.Context) (Season, error) { return s.season, s.err }

type stubMatches struct {
	rounds RoundMap
	err    error
}

func (s stubMatches) Rounds(context.Context) (RoundMap, error) { return s.rounds, s.err }

func TestLoad(t *testing.T) {
	want := threePlayerInput()

	t.Run("gathers every input", func(t *testing.T) {
		in, err := Load(context.Background(),
			stubRoster{roster: want.Roster},
			stubSeason{season: want.Season},
			stubMatches{rounds: want.Rounds})
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if len(in.Roster.Players) != 3 || in.Rounds.Total() != 3 || !in.Season.StartDate.Equal(want.Season.StartDate) {
			t.Errorf("Load() = %+v, want the stub inputs", in)
		}
		if _, err := Generate(in, Options{Seed: 1, Strict: true}); err != nil {
			t.Errorf("Generate() on loaded input: %v", err)
		}
	})

	t.Run("wraps provider errors", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Load(context.Background(),
			stubRoster{roster: want.Roster},
			stubSeason{err: boom},
			stubMatches{rounds: want.Rounds})
		if !errors.Is(err, boom) {
			t.Fatalf("Load() error = %v, want boom", err)
		}
		if !strings.Contains(err.Error(), "loading season") {
			t.Errorf("Load() error = %q, want it to name the season", err)
		}
	})
}
