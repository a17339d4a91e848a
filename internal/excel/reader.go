package excel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/ttleague/internal/schedule"
)

// Row is one match of a schedule sheet.
type Row struct {
	Line    int // spreadsheet row number, 0 for rows not read from a sheet
	Date    time.Time
	Round   int
	Player1 string
	Player2 string
	Group   schedule.Group
}

// ReadRows parses the Schedule sheet. Columns are located by header so a
// hand-edited sheet may reorder them; the Day column is ignored. Dates are
// accepted in any format dateparse understands, since spreadsheet apps
// rewrite them on edit.
func ReadRows(f *excelize.File) ([]Row, error) {
	rows, err := f.GetRows(ScheduleSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ScheduleSheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", ScheduleSheet)
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range []string{"Date", "Round", "Player1", "Player2", "Type"} {
		if _, ok := cols[strings.ToLower(h)]; !ok {
			return nil, fmt.Errorf("%s has no %q column", ScheduleSheet, h)
		}
	}
	cell := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Row
	for i, row := range rows[1:] {
		line := i + 2
		if cell(row, "date") == "" && cell(row, "player1") == "" && cell(row, "player2") == "" {
			continue
		}

		date, err := dateparse.ParseIn(cell(row, "date"), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", line, cell(row, "date"), err)
		}
		round, err := strconv.Atoi(cell(row, "round"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid round %q: %w", line, cell(row, "round"), err)
		}
		group, err := schedule.ParseGroup(cell(row, "type"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		out = append(out, Row{
			Line:    line,
			Date:    date,
			Round:   round,
			Player1: cell(row, "player1"),
			Player2: cell(row, "player2"),
			Group:   group,
		})
	}
	return out, nil
}

// ReadSchedule reads the workbook at path and places every row in the slot
// it names. A row whose date and type have no slot fails with
// schedule.ErrSlotLookup.
func ReadSchedule(path string, slots schedule.Slots) (schedule.RoundMap, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, err
	}
	return Place(rows, slots)
}

// Place assigns rows to their slots and returns them as rounds.
func Place(rows []Row, slots schedule.Slots) (schedule.RoundMap, error) {
	rounds := schedule.RoundMap{}
	for _, r := range rows {
		slot, err := slots.Find(r.Date, r.Group)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.Line, err)
		}
		m := rounds.Add(r.Round, r.Player1, r.Player2)
		m.Slot = slot
		slot.Matches = append(slot.Matches, m)
	}
	return rounds, nil
}

// Source reads the matches of a previously written workbook, so a season
// can be rescheduled from an edited sheet.
type Source struct {
	Path   string
	Season schedule.SeasonConfigProvider
}

// Rounds implements schedule.MatchSource.
func (s *Source) Rounds(ctx context.Context) (schedule.RoundMap, error) {
	season, err := s.Season.SeasonConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading season for %s: %w", s.Path, err)
	}
	return ReadSchedule(s.Path, schedule.GenerateSlots(season))
}
