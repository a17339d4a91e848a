package schedule

import (
	"fmt"
	"sort"
	"time"
)

// Group is the category of a slot. Constrained groups are only open to
// players who opted into them.
type Group int

const (
	GroupNone Group = iota
	GroupLunch
	GroupLeagueNight
)

// Groups lists the constrained groups in the order they are distributed.
var Groups = []Group{GroupLeagueNight, GroupLunch}

func (g Group) String() string {
	switch g {
	case GroupNone:
		return ""
	case GroupLunch:
		return "lunch"
	case GroupLeagueNight:
		return "leagueNight"
	default:
		return fmt.Sprintf("Group(%d)", int(g))
	}
}

// ParseGroup converts the text form used in schedule sheets back to a Group.
func ParseGroup(s string) (Group, error) {
	switch s {
	case "", "none":
		return GroupNone, nil
	case "lunch":
		return GroupLunch, nil
	case "leagueNight", "leaguenight", "league_night":
		return GroupLeagueNight, nil
	default:
		return GroupNone, fmt.Errorf("unknown slot group %q", s)
	}
}

type capacityKind int

const (
	capacityUnbounded capacityKind = iota
	capacityBounded
	capacityFixed
)

// Capacity is the configured match range of a slot.
type Capacity struct {
	kind     capacityKind
	min, max int
}

// Unbounded returns a capacity with no minimum and no maximum.
func Unbounded() Capacity { return Capacity{kind: capacityUnbounded} }

// Bounded returns a capacity between min and max matches inclusive.
func Bounded(min, max int) Capacity { return Capacity{kind: capacityBounded, min: min, max: max} }

// Fixed returns a capacity of exactly n matches.
func Fixed(n int) Capacity { return Capacity{kind: capacityFixed, min: n, max: n} }

// Min returns the minimum number of matches; unbounded means 0.
func (c Capacity) Min() int {
	switch c.kind {
	case capacityBounded, capacityFixed:
		return c.min
	default:
		return 0
	}
}

// Max returns the maximum number of matches and whether there is one.
func (c Capacity) Max() (int, bool) {
	switch c.kind {
	case capacityBounded, capacityFixed:
		return c.max, true
	default:
		return 0, false
	}
}

func (c Capacity) String() string {
	switch c.kind {
	case capacityBounded:
		return fmt.Sprintf("%d-%d", c.min, c.max)
	case capacityFixed:
		return fmt.Sprintf("%d", c.min)
	default:
		return "unbounded"
	}
}

// SlotKey identifies a slot. Two slots on the same date with the same group
// are the same slot.
type SlotKey struct {
	Date  time.Time
	Group Group
}

// NewSlotKey normalizes date to midnight UTC so keys built from parsed
// sheet cells compare equal to keys built from the calendar.
func NewSlotKey(date time.Time, group Group) SlotKey {
	return SlotKey{Date: civilDate(date), Group: group}
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Slot is one schedulable unit of capacity: a date and a group.
type Slot struct {
	Date     time.Time
	Group    Group
	Capacity Capacity

	// Allotted is the number of matches this slot hosts once allotment and
	// round assignment are complete.
	Allotted int
	Matches  []*Match

	// MinGames and MaxGames are the working range during allotment and
	// round assignment. They converge to Allotted.
	MinGames int
	MaxGames int
	hasMax   bool

	// plusOne marks slots that may take one surplus match.
	plusOne bool
}

// NewSlot returns a slot with its working range taken from capacity.
func NewSlot(date time.Time, group Group, capacity Capacity) *Slot {
	s := &Slot{
		Date:     civilDate(date),
		Group:    group,
		Capacity: capacity,
		MinGames: capacity.Min(),
	}
	s.MaxGames, s.hasMax = capacity.Max()
	return s
}

// Key returns the identity of the slot.
func (s *Slot) Key() SlotKey {
	return SlotKey{Date: s.Date, Group: s.Group}
}

type availability int

const (
	underMin availability = iota
	hitMin
	hitMax
)

func (s *Slot) availability() availability {
	switch {
	case s.hasMax && len(s.Matches) >= s.MaxGames:
		return hitMax
	case len(s.Matches) >= s.MinGames:
		return hitMin
	default:
		return underMin
	}
}

func (s *Slot) String() string {
	if s.Group == GroupNone {
		return s.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s (%s)", s.Date.Format("2006-01-02"), s.Group)
}

// Slots is a date-ordered slot calendar.
type Slots []*Slot

// Find returns the slot for date and group.
func (ss Slots) Find(date time.Time, group Group) (*Slot, error) {
	key := NewSlotKey(date, group)
	for _, s := range ss {
		if s.Key() == key {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s slot on %s", ErrSlotLookup, groupLabel(group), key.Date.Format("2006-01-02"))
}

// Index returns a lookup table keyed by slot identity.
func (ss Slots) Index() map[SlotKey]*Slot {
	m := make(map[SlotKey]*Slot, len(ss))
	for _, s := range ss {
		m[s.Key()] = s
	}
	return m
}

func groupLabel(g Group) string {
	if g == GroupNone {
		return "unconstrained"
	}
	return g.String()
}

// Match is one player-vs-player contest of a round.
type Match struct {
	Round   int
	Player1 string
	Player2 string
	Slot    *Slot
}

// Date returns the date of the assigned slot, or the zero time.
func (m *Match) Date() time.Time {
	if m.Slot == nil {
		return time.Time{}
	}
	return m.Slot.Date
}

// Has reports whether player plays in the match.
func (m *Match) Has(player string) bool {
	return m.Player1 == player || m.Player2 == player
}

// Opponent returns the other player of the match.
func (m *Match) Opponent(player string) string {
	if m.Player1 == player {
		return m.Player2
	}
	return m.Player1
}

func (m *Match) String() string {
	where := "None"
	if m.Slot != nil {
		where = m.Slot.String()
	}
	return fmt.Sprintf("%s vs %s - Round %d - %s", m.Player1, m.Player2, m.Round, where)
}

// RoundMap holds the matches of each round, keyed by round number.
type RoundMap map[int][]*Match

// Rounds returns the round numbers in ascending order.
func (rm RoundMap) Rounds() []int {
	rounds := make([]int, 0, len(rm))
	for r := range rm {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)
	return rounds
}

// Total returns the number of matches across all rounds.
func (rm RoundMap) Total() int {
	n := 0
	for _, matches := range rm {
		n += len(matches)
	}
	return n
}

// Clone returns a deep copy with fresh, unassigned matches.
func (rm RoundMap) Clone() RoundMap {
	out := make(RoundMap, len(rm))
	for r, matches := range rm {
		cp := make([]*Match, len(matches))
		for i, m := range matches {
			cp[i] = &Match{Round: r, Player1: m.Player1, Player2: m.Player2}
		}
		out[r] = cp
	}
	return out
}

// Add appends a match between p1 and p2 to round r.
func (rm RoundMap) Add(r int, p1, p2 string) *Match {
	m := &Match{Round: r, Player1: p1, Player2: p2}
	rm[r] = append(rm[r], m)
	return m
}

// sortMatches orders matches by date, then slot group, then players.
func sortMatches(matches []*Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.Date().Equal(b.Date()) {
			return a.Date().Before(b.Date())
		}
		if a.Slot != nil && b.Slot != nil && a.Slot.Group != b.Slot.Group {
			return a.Slot.Group < b.Slot.Group
		}
		if a.Player1 != b.Player1 {
			return a.Player1 < b.Player1
		}
		return a.Player2 < b.Player2
	})
}
