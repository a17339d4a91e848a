package schedule

import (
	"time"
)

// Season is the calendar a schedule is built on.
type Season struct {
	StartDate time.Time
	EndDate   time.Time

	// LeagueNight is the weekday that carries a league-night slot, or nil
	// for none.
	LeagueNight *time.Weekday

	LunchCapacity       int
	LeagueNightCapacity int
}

// GenerateSlots builds the slot calendar for the season: for every weekday
// from StartDate to EndDate inclusive, an unconstrained slot, a lunch slot
// and, on the league-night weekday, a league-night slot. Slots whose
// maximum is zero are dropped.
func GenerateSlots(season Season) Slots {
	var slots Slots
	d := civilDate(season.StartDate)
	end := civilDate(season.EndDate)
	for !d.After(end) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			d = d.AddDate(0, 0, 1)
			continue
		}

		slots = append(slots,
			NewSlot(d, GroupNone, Unbounded()),
			NewSlot(d, GroupLunch, Fixed(season.LunchCapacity)),
		)
		if season.LeagueNight != nil && d.Weekday() == *season.LeagueNight {
			slots = append(slots, NewSlot(d, GroupLeagueNight, Fixed(season.LeagueNightCapacity)))
		}

		d = d.AddDate(0, 0, 1)
	}

	kept := slots[:0]
	for _, s := range slots {
		if max, ok := s.Capacity.Max(); ok && max == 0 {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// Dates returns the distinct dates of the calendar in order.
func (ss Slots) Dates() []time.Time {
	var dates []time.Time
	for _, s := range ss {
		if len(dates) == 0 || !dates[len(dates)-1].Equal(s.Date) {
			dates = append(dates, s.Date)
		}
	}
	return dates
}
