package schedule

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RosterProvider supplies the players and their group opt-ins.
type RosterProvider interface {
	Roster(ctx context.Context) (Roster, error)
}

// SeasonConfigProvider supplies the season calendar.
type SeasonConfigProvider interface {
	SeasonConfig(ctx context.Context) (Season, error)
}

// MatchSource supplies the round-robin matches, keyed by round.
type MatchSource interface {
	Rounds(ctx context.Context) (RoundMap, error)
}

// ScheduleSink receives a finished schedule.
type ScheduleSink interface {
	WriteSchedule(ctx context.Context, res *Result) error
}

// Load gathers the inputs of a run from the three providers concurrently.
func Load(ctx context.Context, roster RosterProvider, season SeasonConfigProvider, matches MatchSource) (*Input, error) {
	var in Input
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := roster.Roster(ctx)
		if err != nil {
			return fmt.Errorf("loading roster: %w", err)
		}
		in.Roster = r
		return nil
	})
	g.Go(func() error {
		s, err := season.SeasonConfig(ctx)
		if err != nil {
			return fmt.Errorf("loading season: %w", err)
		}
		in.Season = s
		return nil
	})
	g.Go(func() error {
		rm, err := matches.Rounds(ctx)
		if err != nil {
			return fmt.Errorf("loading matches: %w", err)
		}
		in.Rounds = rm
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}
