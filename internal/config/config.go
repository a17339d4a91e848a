package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/derekprior/ttleague/internal/excel"
	"github.com/derekprior/ttleague/internal/schedule"
)

// Date is a wrapper around time.Time for YAML date parsing.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse("2006-01-02", value.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

// Weekday is a weekday name such as "wednesday". An empty value or "none"
// means no weekday.
type Weekday struct {
	Day   time.Weekday
	Valid bool
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (w *Weekday) UnmarshalYAML(value *yaml.Node) error {
	s := strings.ToLower(strings.TrimSpace(value.Value))
	switch s {
	case "", "none", "~":
		*w = Weekday{}
		return nil
	}
	for name, day := range weekdays {
		// Accept "wed" as well as "wednesday".
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			*w = Weekday{Day: day, Valid: true}
			return nil
		}
	}
	return fmt.Errorf("invalid weekday %q", value.Value)
}

// Flag is a yes/no opt-in. It accepts the spellings people type into a
// roster: yes, no, true, false, y, n, +, -, 1, 0 and none.
type Flag bool

func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(value.Value)) {
	case "yes", "y", "true", "t", "+", "1", "x":
		*f = true
	case "no", "n", "false", "f", "-", "0", "none", "", "~":
		*f = false
	default:
		return fmt.Errorf("invalid yes/no value %q", value.Value)
	}
	return nil
}

type Season struct {
	StartDate       Date    `yaml:"start_date"`
	EndDate         Date    `yaml:"end_date"`
	LeagueNight     Weekday `yaml:"league_night"`
	GamesPerMatchup int     `yaml:"games_per_matchup"`
}

type Capacities struct {
	Lunch       *int `yaml:"lunch"`
	LeagueNight *int `yaml:"league_night"`
}

type Player struct {
	Name        string `yaml:"name"`
	LeagueNight Flag   `yaml:"league_night"`
	Lunch       Flag   `yaml:"lunch"`
}

type Config struct {
	Season     Season     `yaml:"season"`
	Capacities Capacities `yaml:"capacities"`
	Players    []Player   `yaml:"players"`
	Strategy   string     `yaml:"strategy"`
	Seed       *int64     `yaml:"seed"`
	Strict     bool       `yaml:"strict"`
}

// PlayerNames returns the player names in roster order.
func (c *Config) PlayerNames() []string {
	names := make([]string, len(c.Players))
	for i, p := range c.Players {
		names[i] = p.Name
	}
	return names
}

// LunchCapacity returns the configured lunch capacity, 1 when unset.
func (c *Config) LunchCapacity() int {
	if c.Capacities.Lunch == nil {
		return 1
	}
	return *c.Capacities.Lunch
}

// LeagueNightCapacity returns the configured league-night capacity, 1 when
// unset.
func (c *Config) LeagueNightCapacity() int {
	if c.Capacities.LeagueNight == nil {
		return 1
	}
	return *c.Capacities.LeagueNight
}

// SeedValue returns the configured seed, 1 when unset. An explicit 0 is
// kept as 0.
func (c *Config) SeedValue() int64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// Roster implements schedule.RosterProvider.
func (c *Config) Roster(ctx context.Context) (schedule.Roster, error) {
	players := make([]schedule.Player, len(c.Players))
	for i, p := range c.Players {
		players[i] = schedule.Player{
			Name:        p.Name,
			LeagueNight: bool(p.LeagueNight),
			Lunch:       bool(p.Lunch),
		}
	}
	return schedule.Roster{Players: players, GamesPerMatchup: c.Season.GamesPerMatchup}, nil
}

// SeasonConfig implements schedule.SeasonConfigProvider.
func (c *Config) SeasonConfig(ctx context.Context) (schedule.Season, error) {
	s := schedule.Season{
		StartDate:           c.Season.StartDate.Time,
		EndDate:             c.Season.EndDate.Time,
		LunchCapacity:       c.LunchCapacity(),
		LeagueNightCapacity: c.LeagueNightCapacity(),
	}
	if c.Season.LeagueNight.Valid {
		day := c.Season.LeagueNight.Day
		s.LeagueNight = &day
	}
	return s, nil
}

// LoadFromBytes parses YAML bytes into a Config and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

func (c *Config) applyDefaults() {
	if c.Season.GamesPerMatchup == 0 {
		c.Season.GamesPerMatchup = 1
	}
	if c.Strategy == "" {
		c.Strategy = "circle"
	}
}

func (c *Config) validate() error {
	if c.Season.StartDate.Time.IsZero() || c.Season.EndDate.Time.IsZero() {
		return fmt.Errorf("season start_date and end_date are required")
	}
	if c.Season.EndDate.Time.Before(c.Season.StartDate.Time) {
		return fmt.Errorf("end date %s must not be before start date %s",
			c.Season.EndDate.Time.Format("2006-01-02"),
			c.Season.StartDate.Time.Format("2006-01-02"))
	}

	if c.Season.GamesPerMatchup < 1 {
		return fmt.Errorf("games_per_matchup must be at least 1, got %d", c.Season.GamesPerMatchup)
	}
	if c.LunchCapacity() < 0 {
		return fmt.Errorf("lunch capacity must not be negative, got %d", c.LunchCapacity())
	}
	if c.LeagueNightCapacity() < 0 {
		return fmt.Errorf("league_night capacity must not be negative, got %d", c.LeagueNightCapacity())
	}

	if len(c.Players) < 2 {
		return fmt.Errorf("at least two players are required")
	}

	// Names double as sheet names in the workbook, and Excel compares
	// sheet names case-insensitively.
	seen := make(map[string]bool)
	for i, p := range c.Players {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("player %d has no name", i+1)
		}
		if err := checkSheetName(p.Name); err != nil {
			return fmt.Errorf("player %q: %w", p.Name, err)
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			return fmt.Errorf("player %q appears more than once", p.Name)
		}
		seen[key] = true
	}

	return nil
}

const maxSheetName = 31

// checkSheetName applies Excel's sheet naming rules.
func checkSheetName(name string) error {
	if n := utf8.RuneCountInString(name); n > maxSheetName {
		return fmt.Errorf("name is %d characters, a sheet name allows %d", n, maxSheetName)
	}
	if i := strings.IndexAny(name, `[]:*?/\`); i >= 0 {
		return fmt.Errorf("name contains %q, which a sheet name cannot", name[i])
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return fmt.Errorf("a sheet name cannot start or end with an apostrophe")
	}
	if strings.EqualFold(name, excel.ScheduleSheet) {
		return fmt.Errorf("the name is taken by the schedule sheet")
	}
	return nil
}
