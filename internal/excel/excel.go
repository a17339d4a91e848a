package excel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/ttleague/internal/schedule"
)

// ScheduleSheet is the name of the sheet holding every match.
const ScheduleSheet = "Schedule"

var scheduleHeaders = []string{"Date", "Day", "Round", "Player1", "Player2", "Type"}

var playerHeaders = []string{"Date", "Day", "Round", "Opponent", "Type"}

// Generate creates an Excel workbook with the schedule sheet and per-player sheets.
func Generate(result *schedule.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	// Set default font for the workbook
	f.SetDefaultFont("Arial")

	rows := RowsOf(result)
	if err := writeScheduleSheet(f, rows); err != nil {
		return nil, fmt.Errorf("writing schedule sheet: %w", err)
	}
	if err := writePlayerSheets(f, result.Roster.Names(), rows); err != nil {
		return nil, fmt.Errorf("writing player sheets: %w", err)
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

// RowsOf flattens a result into schedule sheet rows, by round then date.
func RowsOf(result *schedule.Result) []Row {
	var rows []Row
	for _, m := range result.Matches() {
		row := Row{Date: m.Date(), Round: m.Round, Player1: m.Player1, Player2: m.Player2}
		if m.Slot != nil {
			row.Group = m.Slot.Group
		}
		rows = append(rows, row)
	}
	return rows
}

// Sink writes schedules to a workbook on disk. When the workbook already
// exists its Schedule sheet is kept as a dated backup and the player
// sheets are replaced.
type Sink struct {
	Path string

	// Now dates the backup sheet. Defaults to time.Now.
	Now func() time.Time
}

// WriteSchedule implements schedule.ScheduleSink.
func (s *Sink) WriteSchedule(ctx context.Context, result *schedule.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := os.Stat(s.Path); errors.Is(err, os.ErrNotExist) {
		f, err := Generate(result)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := f.SaveAs(s.Path); err != nil {
			return fmt.Errorf("saving %s: %w", s.Path, err)
		}
		return nil
	}

	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(ScheduleSheet); idx >= 0 {
		backup := backupName(f, s.now())
		if err := f.SetSheetName(ScheduleSheet, backup); err != nil {
			return fmt.Errorf("backing up %s sheet: %w", ScheduleSheet, err)
		}
	}

	rows := RowsOf(result)
	if err := writeScheduleSheet(f, rows); err != nil {
		return fmt.Errorf("writing schedule sheet: %w", err)
	}
	if err := writePlayerSheets(f, result.Roster.Names(), rows); err != nil {
		return fmt.Errorf("writing player sheets: %w", err)
	}
	if idx, _ := f.GetSheetIndex(ScheduleSheet); idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("saving %s: %w", s.Path, err)
	}
	return nil
}

func (s *Sink) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// backupName returns the first free "Schedule - YYYY-MM-DD backup[ n]" name.
func backupName(f *excelize.File, now time.Time) string {
	base := fmt.Sprintf("%s - %s backup", ScheduleSheet, now.Format("2006-01-02"))
	name := base
	for n := 2; ; n++ {
		if idx, _ := f.GetSheetIndex(name); idx < 0 {
			return name
		}
		name = fmt.Sprintf("%s %d", base, n)
	}
}

// UpdatePlayerSheets rewrites the player sheets of the workbook at path
// from its Schedule sheet. It is used after the schedule was edited by hand.
func UpdatePlayerSheets(path string, players []string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return err
	}
	if err := writePlayerSheets(f, players, rows); err != nil {
		return fmt.Errorf("writing player sheets: %w", err)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func headerStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	return style
}

func writeHeaders(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}
	if style := headerStyle(f); style != 0 {
		f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), style)
	}
}

func writeScheduleSheet(f *excelize.File, rows []Row) error {
	sheet := ScheduleSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeHeaders(f, sheet, scheduleHeaders)

	cellStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})

	for i, r := range rows {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), r.Date.Format("01/02/2006"))
		f.SetCellValue(sheet, cellRef(2, row), r.Date.Format("Mon"))
		f.SetCellValue(sheet, cellRef(3, row), r.Round)
		f.SetCellValue(sheet, cellRef(4, row), r.Player1)
		f.SetCellValue(sheet, cellRef(5, row), r.Player2)
		f.SetCellValue(sheet, cellRef(6, row), r.Group.String())
	}
	if cellStyle != 0 && len(rows) > 0 {
		f.SetCellStyle(sheet, cellRef(1, 2), cellRef(len(scheduleHeaders), len(rows)+1), cellStyle)
	}

	// Set column widths (sized for Arial 16)
	widths := map[string]float64{"A": 18, "B": 8, "C": 10, "D": 22, "E": 22, "F": 16}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}

	// Highlight constrained-group rows
	lastRow := len(rows) + 1
	groupFill, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	if lastRow > 1 {
		f.SetConditionalFormat(sheet, fmt.Sprintf("A2:F%d", lastRow), []excelize.ConditionalFormatOptions{
			{
				Type:     "formula",
				Criteria: `$F2<>""`,
				Format:   &groupFill,
			},
		})
	}

	return nil
}

func writePlayerSheets(f *excelize.File, players []string, rows []Row) error {
	for _, player := range players {
		sheet := player
		if idx, _ := f.GetSheetIndex(sheet); idx >= 0 {
			if err := f.DeleteSheet(sheet); err != nil {
				return fmt.Errorf("replacing sheet %q: %w", sheet, err)
			}
		}
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating sheet %q: %w", sheet, err)
		}
		writeHeaders(f, sheet, playerHeaders)

		// Collect and sort this player's matches
		var games []Row
		for _, r := range rows {
			if r.Player1 == player || r.Player2 == player {
				games = append(games, r)
			}
		}
		sort.SliceStable(games, func(i, j int) bool {
			if !games[i].Date.Equal(games[j].Date) {
				return games[i].Date.Before(games[j].Date)
			}
			return games[i].Round < games[j].Round
		})

		cellStyle, _ := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Size: 16, Family: "Arial"},
		})

		for i, g := range games {
			row := i + 2
			opponent := g.Player1
			if opponent == player {
				opponent = g.Player2
			}
			f.SetCellValue(sheet, cellRef(1, row), g.Date.Format("01/02/2006"))
			f.SetCellValue(sheet, cellRef(2, row), g.Date.Format("Mon"))
			f.SetCellValue(sheet, cellRef(3, row), g.Round)
			f.SetCellValue(sheet, cellRef(4, row), opponent)
			f.SetCellValue(sheet, cellRef(5, row), g.Group.String())
		}
		if cellStyle != 0 && len(games) > 0 {
			f.SetCellStyle(sheet, cellRef(1, 2), cellRef(len(playerHeaders), len(games)+1), cellStyle)
		}

		widths := map[string]float64{"A": 18, "B": 8, "C": 10, "D": 22, "E": 16}
		for col, w := range widths {
			f.SetColWidth(sheet, col, col, w)
		}
	}

	return nil
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
