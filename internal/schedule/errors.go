package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrAllotmentInfeasible is returned when the supplied matches cannot be
	// fitted to the calendar: fewer matches than the mandatory minimums, or
	// more than the bounded slots can hold.
	ErrAllotmentInfeasible = errors.New("allotment infeasible")

	// ErrSlotLookup is returned when a schedule entry references a date and
	// group with no generated slot.
	ErrSlotLookup = errors.New("slot not found")

	// ErrDistributionInfeasible is returned when no match between eligible
	// players is left for a constrained slot, or when a player ends up with
	// the wrong number of matches.
	ErrDistributionInfeasible = errors.New("distribution infeasible")

	// ErrUnevenDistribution is returned when the picks of a constrained group
	// differ by more than one between eligible players.
	ErrUnevenDistribution = errors.New("uneven distribution")

	// ErrInvalidInput is returned when the roster and the match list do not
	// describe the same tournament.
	ErrInvalidInput = errors.New("invalid input")
)

// DistributionError carries the context of a failed constrained-group
// distribution. It unwraps to ErrDistributionInfeasible or
// ErrUnevenDistribution.
type DistributionError struct {
	Kind  error
	Group Group
	Round int
	Picks map[string]int
}

func (e *DistributionError) Error() string {
	var b strings.Builder
	switch {
	case errors.Is(e.Kind, ErrUnevenDistribution):
		fmt.Fprintf(&b, "%s matches not distributed evenly", e.Group)
	default:
		fmt.Fprintf(&b, "no matches left for round %d that contain players for %s matches", e.Round, e.Group)
	}
	if len(e.Picks) > 0 {
		names := make([]string, 0, len(e.Picks))
		for name := range e.Picks {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString(" (picks:")
		for _, name := range names {
			fmt.Fprintf(&b, " %s=%d", name, e.Picks[name])
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *DistributionError) Unwrap() error { return e.Kind }

// Retryable reports whether err may go away with a different seed.
func Retryable(err error) bool {
	return errors.Is(err, ErrDistributionInfeasible) || errors.Is(err, ErrUnevenDistribution)
}
