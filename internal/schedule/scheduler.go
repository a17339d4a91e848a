package schedule

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Player is a roster entry.
type Player struct {
	Name        string
	LeagueNight bool
	Lunch       bool
}

// Eligible reports whether the player opted into group.
func (p Player) Eligible(g Group) bool {
	switch g {
	case GroupNone:
		return true
	case GroupLunch:
		return p.Lunch
	case GroupLeagueNight:
		return p.LeagueNight
	default:
		return false
	}
}

// Roster is the set of players and how often each pair meets.
type Roster struct {
	Players         []Player
	GamesPerMatchup int
}

// Names returns the player names in roster order.
func (r Roster) Names() []string {
	names := make([]string, len(r.Players))
	for i, p := range r.Players {
		names[i] = p.Name
	}
	return names
}

// Eligible returns the names of the players who opted into group.
func (r Roster) Eligible(g Group) []string {
	var names []string
	for _, p := range r.Players {
		if p.Eligible(g) {
			names = append(names, p.Name)
		}
	}
	return names
}

// Input is everything a run needs. It is never modified by a run.
type Input struct {
	Season Season
	Roster Roster
	Rounds RoundMap
}

// Options control a run.
type Options struct {
	Seed int64

	// Rand overrides the generator seeded from Seed. Only Generate uses
	// it; Search derives one generator per attempt from Seed and rejects
	// a non-nil Rand.
	Rand Rand

	// Strict turns distribution problems into errors instead of warnings.
	Strict bool

	Logger logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// PlayerMetrics holds per-player schedule statistics.
type PlayerMetrics struct {
	Games       int
	Lunch       int
	LeagueNight int
}

// Result is the output of a run.
type Result struct {
	Seed     int64
	Slots    Slots
	Rounds   RoundMap
	Roster   Roster
	PlusOnes int
	Warnings []string
}

// Matches returns every match grouped by round, sorted by date within
// each round.
func (r *Result) Matches() []*Match {
	var out []*Match
	for _, round := range r.Rounds.Rounds() {
		out = append(out, r.Rounds[round]...)
	}
	return out
}

// PlayerSchedules returns each player's matches in round order.
func (r *Result) PlayerSchedules() map[string][]*Match {
	schedules := make(map[string][]*Match, len(r.Roster.Players))
	for _, p := range r.Roster.Players {
		schedules[p.Name] = nil
	}
	for _, m := range r.Matches() {
		schedules[m.Player1] = append(schedules[m.Player1], m)
		schedules[m.Player2] = append(schedules[m.Player2], m)
	}
	return schedules
}

// PlayerMetrics counts each player's matches per slot group.
func (r *Result) PlayerMetrics() map[string]*PlayerMetrics {
	metrics := make(map[string]*PlayerMetrics, len(r.Roster.Players))
	for _, p := range r.Roster.Players {
		metrics[p.Name] = &PlayerMetrics{}
	}
	for _, m := range r.Matches() {
		for _, p := range []string{m.Player1, m.Player2} {
			pm, ok := metrics[p]
			if !ok {
				continue
			}
			pm.Games++
			switch m.Slot.Group {
			case GroupLunch:
				pm.Lunch++
			case GroupLeagueNight:
				pm.LeagueNight++
			case GroupNone:
			}
		}
	}
	return metrics
}

// run is the state of one single-threaded scheduling pass.
type run struct {
	slots  Slots
	order  []int
	plan   roundPlan
	remain RoundMap

	rng      Rand
	strict   bool
	log      logrus.FieldLogger
	warnings []string
}

// degrade returns err in strict mode; otherwise it logs err and records it
// as a warning of the result.
func (rn *run) degrade(err error, fields logrus.Fields) error {
	if rn.strict {
		return err
	}
	rn.log.WithFields(fields).Warn(err.Error())
	rn.warnings = append(rn.warnings, err.Error())
	return nil
}

// Generate builds a schedule for in. The same input and seed always
// produce the same schedule.
func Generate(in *Input, opts Options) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(opts.Seed))
	}
	log := opts.logger().WithField("seed", opts.Seed)

	slots := GenerateSlots(in.Season)
	rounds := in.Rounds.Clone()
	total := rounds.Total()

	a, err := allot(slots, total)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"slots":     len(slots),
		"matches":   total,
		"reserved":  a.reserved,
		"plus_ones": a.plusOnes,
	}).Debug("allotted matches to slots")

	plan, err := assignRounds(slots, rounds, a, rng)
	if err != nil {
		return nil, err
	}

	rn := &run{
		slots:  slots,
		order:  rounds.Rounds(),
		plan:   plan,
		remain: make(RoundMap, len(rounds)),
		rng:    rng,
		strict: opts.Strict,
		log:    log,
	}
	for r, matches := range rounds {
		rn.remain[r] = append([]*Match(nil), matches...)
	}

	for _, g := range Groups {
		if err := rn.distribute(g, in.Roster.Eligible(g)); err != nil {
			return nil, err
		}
	}
	if err := rn.fill(); err != nil {
		return nil, err
	}
	if err := rn.checkGamesPlayed(in.Roster); err != nil {
		return nil, err
	}

	for _, matches := range rounds {
		sortMatches(matches)
	}

	return &Result{
		Seed:     opts.Seed,
		Slots:    slots,
		Rounds:   rounds,
		Roster:   in.Roster,
		PlusOnes: a.plusOnes,
		Warnings: rn.warnings,
	}, nil
}

// Search runs up to attempts strict runs with consecutive seeds starting at
// opts.Seed and returns the result of the lowest seed that succeeded. When
// none succeeds and opts.Strict is false, it falls back to a lenient run
// with opts.Seed. opts.Rand must be nil.
func Search(ctx context.Context, in *Input, opts Options, attempts int) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if opts.Rand != nil {
		return nil, fmt.Errorf("%w: Search seeds every attempt itself and cannot use Options.Rand", ErrInvalidInput)
	}
	if attempts < 1 {
		attempts = 1
	}
	log := opts.logger()

	results := make([]*Result, attempts)
	failures := make([]error, attempts)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o := Options{Seed: opts.Seed + int64(i), Strict: true, Logger: log}
			res, err := Generate(in, o)
			if err != nil {
				if !Retryable(err) {
					return err
				}
				failures[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, res := range results {
		if res != nil {
			if i > 0 {
				log.WithFields(logrus.Fields{"seed": res.Seed, "attempts": i + 1}).
					Info("schedule found after reseeding")
			}
			return res, nil
		}
	}

	if opts.Strict {
		return nil, fmt.Errorf("no valid schedule in %d attempts: %w", attempts, failures[0])
	}
	log.WithField("attempts", attempts).Warn("no even schedule found; keeping best effort")
	return Generate(in, Options{Seed: opts.Seed, Logger: log})
}

func (in *Input) validate() error {
	roster := in.Roster
	if len(roster.Players) < 2 {
		return fmt.Errorf("%w: need at least 2 players, have %d", ErrInvalidInput, len(roster.Players))
	}
	if roster.GamesPerMatchup < 1 {
		return fmt.Errorf("%w: games per matchup must be at least 1", ErrInvalidInput)
	}
	if in.Season.EndDate.Before(in.Season.StartDate) {
		return fmt.Errorf("%w: season ends %s before it starts %s", ErrInvalidInput,
			in.Season.EndDate.Format("2006-01-02"), in.Season.StartDate.Format("2006-01-02"))
	}

	known := make(map[string]bool, len(roster.Players))
	for _, p := range roster.Players {
		if known[p.Name] {
			return fmt.Errorf("%w: player %q listed twice", ErrInvalidInput, p.Name)
		}
		known[p.Name] = true
	}

	if len(in.Rounds) == 0 {
		return fmt.Errorf("%w: no rounds", ErrInvalidInput)
	}
	for _, r := range in.Rounds.Rounds() {
		for _, m := range in.Rounds[r] {
			if m.Player1 == m.Player2 {
				return fmt.Errorf("%w: round %d pairs %s with themself", ErrInvalidInput, r, m.Player1)
			}
			for _, p := range []string{m.Player1, m.Player2} {
				if !known[p] {
					return fmt.Errorf("%w: round %d has player %q who is not on the roster", ErrInvalidInput, r, p)
				}
			}
		}
	}

	n := len(roster.Players)
	if want := n * (n - 1) / 2 * roster.GamesPerMatchup; in.Rounds.Total() != want {
		return fmt.Errorf("%w: %d matches for %d players at %d games per matchup, want %d",
			ErrInvalidInput, in.Rounds.Total(), n, roster.GamesPerMatchup, want)
	}
	return nil
}
