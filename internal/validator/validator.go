package validator

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/ttleague/internal/excel"
	"github.com/derekprior/ttleague/internal/schedule"
)

// Violation represents a constraint violation found during validation.
type Violation struct {
	Row     int
	Type    string // "error" or "warning"
	Message string
}

// Provider supplies the season and roster a workbook is checked against.
// *config.Config satisfies it.
type Provider interface {
	schedule.SeasonConfigProvider
	schedule.RosterProvider
}

// Validate reads a schedule workbook and checks it against the season and
// roster.
func Validate(ctx context.Context, cfg Provider, path string) ([]Violation, error) {
	season, err := cfg.SeasonConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading season: %w", err)
	}
	roster, err := cfg.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	rows, err := excel.ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}

	return Check(season, roster, rows), nil
}

// Check runs every rule against already parsed rows.
func Check(season schedule.Season, roster schedule.Roster, rows []excel.Row) []Violation {
	slots := schedule.GenerateSlots(season)
	var violations []Violation

	// Check hard constraints
	violations = append(violations, checkPlayers(roster, rows)...)
	violations = append(violations, checkSlots(slots, rows)...)
	violations = append(violations, checkSlotCapacity(slots, rows)...)
	violations = append(violations, checkEligibility(roster, rows)...)
	violations = append(violations, checkOncePerRound(rows)...)
	violations = append(violations, checkGamesPerPlayer(roster, rows)...)
	violations = append(violations, checkGamesPerPair(roster, rows)...)

	// Check soft constraints
	violations = append(violations, checkGroupBalance(roster, rows)...)

	return violations
}

func checkPlayers(roster schedule.Roster, rows []excel.Row) []Violation {
	known := make(map[string]bool)
	for _, p := range roster.Players {
		known[p.Name] = true
	}

	var violations []Violation
	for _, r := range rows {
		for _, p := range []string{r.Player1, r.Player2} {
			if !known[p] {
				violations = append(violations, Violation{
					Row:     r.Line,
					Type:    "error",
					Message: fmt.Sprintf("%q is not on the roster", p),
				})
			}
		}
		if r.Player1 == r.Player2 {
			violations = append(violations, Violation{
				Row:     r.Line,
				Type:    "error",
				Message: fmt.Sprintf("%s is paired with themself", r.Player1),
			})
		}
	}
	return violations
}

func checkSlots(slots schedule.Slots, rows []excel.Row) []Violation {
	var violations []Violation
	for _, r := range rows {
		if _, err := slots.Find(r.Date, r.Group); err != nil {
			violations = append(violations, Violation{
				Row:     r.Line,
				Type:    "error",
				Message: err.Error(),
			})
		}
	}
	return violations
}

func checkSlotCapacity(slots schedule.Slots, rows []excel.Row) []Violation {
	counts := make(map[schedule.SlotKey][]int)
	for _, r := range rows {
		key := schedule.NewSlotKey(r.Date, r.Group)
		counts[key] = append(counts[key], r.Line)
	}

	var violations []Violation
	for _, s := range slots {
		max, ok := s.Capacity.Max()
		if !ok {
			continue
		}
		lines := counts[s.Key()]
		switch {
		case len(lines) > max:
			violations = append(violations, Violation{
				Row:     lines[max],
				Type:    "error",
				Message: fmt.Sprintf("%s has %d matches (max %d)", s, len(lines), max),
			})
		case len(lines) < s.Capacity.Min():
			violations = append(violations, Violation{
				Type:    "error",
				Message: fmt.Sprintf("%s has %d matches (min %d)", s, len(lines), s.Capacity.Min()),
			})
		}
	}
	return violations
}

func checkEligibility(roster schedule.Roster, rows []excel.Row) []Violation {
	players := make(map[string]schedule.Player)
	for _, p := range roster.Players {
		players[p.Name] = p
	}

	var violations []Violation
	for _, r := range rows {
		if r.Group == schedule.GroupNone {
			continue
		}
		for _, name := range []string{r.Player1, r.Player2} {
			p, ok := players[name]
			if ok && !p.Eligible(r.Group) {
				violations = append(violations, Violation{
					Row:     r.Line,
					Type:    "error",
					Message: fmt.Sprintf("%s plays a %s match on %s but did not opt in", name, r.Group, r.Date.Format("01/02")),
				})
			}
		}
	}
	return violations
}

func checkOncePerRound(rows []excel.Row) []Violation {
	type playerRound struct {
		player string
		round  int
	}
	seen := make(map[playerRound][]int)
	for _, r := range rows {
		for _, p := range []string{r.Player1, r.Player2} {
			k := playerRound{p, r.Round}
			seen[k] = append(seen[k], r.Line)
		}
	}

	var violations []Violation
	for k, lines := range seen {
		if len(lines) > 1 {
			violations = append(violations, Violation{
				Row:     lines[1],
				Type:    "error",
				Message: fmt.Sprintf("%s plays %d matches in round %d", k.player, len(lines), k.round),
			})
		}
	}
	sortViolations(violations)
	return violations
}

func checkGamesPerPlayer(roster schedule.Roster, rows []excel.Row) []Violation {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Player1]++
		counts[r.Player2]++
	}

	want := (len(roster.Players) - 1) * roster.GamesPerMatchup
	var violations []Violation
	for _, p := range roster.Players {
		if counts[p.Name] != want {
			violations = append(violations, Violation{
				Type:    "error",
				Message: fmt.Sprintf("%s plays %d matches, want %d", p.Name, counts[p.Name], want),
			})
		}
	}
	return violations
}

func checkGamesPerPair(roster schedule.Roster, rows []excel.Row) []Violation {
	type matchup struct{ a, b string }
	counts := make(map[matchup]int)
	for _, r := range rows {
		a, b := r.Player1, r.Player2
		if a > b {
			a, b = b, a
		}
		counts[matchup{a, b}]++
	}

	names := roster.Names()
	sort.Strings(names)
	var violations []Violation
	for i, a := range names {
		for _, b := range names[i+1:] {
			if n := counts[matchup{a, b}]; n != roster.GamesPerMatchup {
				violations = append(violations, Violation{
					Type:    "error",
					Message: fmt.Sprintf("%s vs %s = %d matches, want %d", a, b, n, roster.GamesPerMatchup),
				})
			}
		}
	}
	return violations
}

// checkGroupBalance warns when opted-in players get uneven shares of a
// constrained group's matches.
func checkGroupBalance(roster schedule.Roster, rows []excel.Row) []Violation {
	var violations []Violation
	for _, g := range schedule.Groups {
		eligible := roster.Eligible(g)
		if len(eligible) == 0 {
			continue
		}
		counts := make(map[string]int)
		for _, p := range eligible {
			counts[p] = 0
		}
		for _, r := range rows {
			if r.Group != g {
				continue
			}
			for _, p := range []string{r.Player1, r.Player2} {
				if _, ok := counts[p]; ok {
					counts[p]++
				}
			}
		}

		maxN, minN := 0, math.MaxInt
		for _, c := range counts {
			if c > maxN {
				maxN = c
			}
			if c < minN {
				minN = c
			}
		}
		if maxN-minN > 1 {
			violations = append(violations, Violation{
				Type:    "warning",
				Message: fmt.Sprintf("%s match imbalance: min %d, max %d across opted-in players", g, minN, maxN),
			})
		}
	}
	return violations
}

func sortViolations(violations []Violation) {
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Row != violations[j].Row {
			return violations[i].Row < violations[j].Row
		}
		return violations[i].Message < violations[j].Message
	})
}
