package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/derekprior/ttleague/internal/config"
	"github.com/derekprior/ttleague/internal/excel"
	"github.com/derekprior/ttleague/internal/schedule"
	"github.com/derekprior/ttleague/internal/store/sqlite"
	"github.com/derekprior/ttleague/internal/strategy"
	"github.com/derekprior/ttleague/internal/validator"
)

const defaultConfigFile = "config.yaml"

func resolveConfigPath(configFlag string) (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	return "", fmt.Errorf("no config file found. Either create %s in the current directory or pass --config", defaultConfigFile)
}

type generateOptions struct {
	output       string
	seed         int64
	seedSet      bool
	attempts     int
	strict       bool
	fromWorkbook string
	db           string
}

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	var logLevel, logFormat string
	rootCmd := &cobra.Command{
		Use:   "ttleague",
		Short: "Table tennis league schedule generator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogger(log, logLevel, logFormat)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter config.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate, validate and show schedules",
	}

	var configFile string
	scheduleCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: config.yaml in current directory)")

	var gen generateOptions
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate a schedule from a config file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			gen.seedSet = cmd.Flags().Changed("seed")
			return runGenerate(cmd.Context(), log, configPath, gen)
		},
	}
	generateCmd.Flags().StringVarP(&gen.output, "output", "o", "schedule.xlsx", "Output Excel file path")
	generateCmd.Flags().Int64Var(&gen.seed, "seed", 1, "First random seed (default: seed from config)")
	generateCmd.Flags().IntVar(&gen.attempts, "attempts", 50, "Number of seeds to try before giving up")
	generateCmd.Flags().BoolVar(&gen.strict, "strict", false, "Fail instead of keeping an uneven schedule")
	generateCmd.Flags().StringVar(&gen.fromWorkbook, "from-workbook", "", "Reschedule the matches of an existing schedule workbook")
	generateCmd.Flags().StringVar(&gen.db, "db", "", "Also store the schedule in this SQLite database")

	validateCmd := &cobra.Command{
		Use:          "validate <schedule.xlsx>",
		Short:        "Validate a schedule against config rules",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			return runValidate(cmd.Context(), configPath, args[0])
		},
	}

	var dbPath string
	var scheduleID int64
	showCmd := &cobra.Command{
		Use:          "show",
		Short:        "Print a schedule stored in a SQLite database",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			return runShow(cmd.Context(), configPath, dbPath, scheduleID)
		},
	}
	showCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")
	showCmd.Flags().Int64Var(&scheduleID, "id", 0, "Schedule id (default: latest)")
	showCmd.MarkFlagRequired("db")

	scheduleCmd.AddCommand(generateCmd, validateCmd, showCmd)
	rootCmd.AddCommand(initCmd, scheduleCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func configureLogger(log *logrus.Logger, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", format)
	}
	return nil
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

const configTemplate = `# Table Tennis League Configuration
# =================================
# This file defines the parameters for generating a round-robin schedule.

# Season defines the date range matches are played in. Every weekday from
# start_date to end_date inclusive gets a lunch slot and an unconstrained
# slot; weekends are skipped.
season:
  start_date: "2026-01-05"
  end_date: "2026-01-19"

  # The weekday that also carries a league-night slot. Leave empty for none.
  league_night: wednesday

  # How many times every pair of players meets.
  games_per_matchup: 1

# Capacities are the exact number of matches each constrained slot hosts.
# A capacity of 0 removes that kind of slot. Unconstrained slots take
# whatever is left over, spread as evenly as possible. The season must have
# at least as many matches as its constrained slots hold: 10 players meeting
# once is 45 matches, against 22 lunch and 2 league-night matches here.
capacities:
  lunch: 2
  league_night: 1

# Players and the constrained slots they opted into. Only opted-in players
# are scheduled in lunch and league-night slots. Names must be unique.
players:
  - {name: Alice,   league_night: yes, lunch: yes}
  - {name: Bob,     league_night: no,  lunch: yes}
  - {name: Charlie, league_night: yes, lunch: yes}
  - {name: Dana,    league_night: no,  lunch: yes}
  - {name: Eli,     league_night: yes, lunch: yes}
  - {name: Fran,    league_night: no,  lunch: yes}
  - {name: Gus,     league_night: yes, lunch: yes}
  - {name: Hal,     league_night: no,  lunch: yes}
  - {name: Ivy,     league_night: yes, lunch: no}
  - {name: Jon,     league_night: no,  lunch: no}

# Strategy determines how the round-robin matches are generated.
# "circle" is the standard circle method: every round each player meets a
# different opponent, with a bye for odd player counts.
strategy: circle

# Seed for the random choices made while spreading matches over slots.
# The same config and seed always produce the same schedule.
seed: 1

# Strict refuses to write a schedule whose constrained slots could not be
# shared evenly between opted-in players. Otherwise such problems are
# reported as warnings.
strict: false
`

func runGenerate(ctx context.Context, log *logrus.Logger, configPath string, opts generateOptions) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var source schedule.MatchSource
	if opts.fromWorkbook != "" {
		source = &excel.Source{Path: opts.fromWorkbook, Season: cfg}
	} else {
		strat, err := strategy.Get(cfg.Strategy)
		if err != nil {
			return err
		}
		source = &strategy.Source{Strategy: strat, Roster: cfg}
	}

	in, err := schedule.Load(ctx, cfg, cfg, source)
	if err != nil {
		return err
	}

	seed := cfg.SeedValue()
	if opts.seedSet {
		seed = opts.seed
	}
	strict := cfg.Strict || opts.strict

	slots := schedule.GenerateSlots(in.Season)
	fmt.Printf("Scheduling %d matches in %d rounds into %d slots over %d days...\n",
		in.Rounds.Total(), len(in.Rounds), len(slots), len(slots.Dates()))

	result, err := schedule.Search(ctx, in, schedule.Options{Seed: seed, Strict: strict, Logger: log}, opts.attempts)
	if err != nil {
		return fmt.Errorf("generating schedule: %w", err)
	}
	fmt.Printf("✓ All %d matches scheduled (seed %d)\n", len(result.Matches()), result.Seed)

	printMetrics(result)

	if len(result.Warnings) > 0 {
		fmt.Printf("\nDistribution warnings (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
	} else {
		fmt.Println("\n✓ Constrained slots shared evenly")
	}

	if err := (&excel.Sink{Path: opts.output}).WriteSchedule(ctx, result); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	fmt.Printf("\n✓ Schedule saved to %s\n", opts.output)

	if opts.db != "" {
		store, err := sqlite.New(opts.db)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.Save(ctx, result)
		if err != nil {
			return fmt.Errorf("storing schedule: %w", err)
		}
		fmt.Printf("✓ Stored as schedule %d in %s\n", id, opts.db)
	}
	return nil
}

func printMetrics(result *schedule.Result) {
	metrics := result.PlayerMetrics()
	fmt.Println("\nPer Player Metrics:")
	fmt.Printf("  %-15s %6s %6s %7s\n", "Player", "Games", "Lunch", "League")
	for _, name := range result.Roster.Names() {
		m := metrics[name]
		fmt.Printf("  %-15s %6d %6d %7d\n", name, m.Games, m.Lunch, m.LeagueNight)
	}
}

func runValidate(ctx context.Context, configPath, schedulePath string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	violations, err := validator.Validate(ctx, cfg, schedulePath)
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}

	errs := 0
	warnings := 0
	for _, v := range violations {
		where := ""
		if v.Row > 0 {
			where = fmt.Sprintf(" (row %d)", v.Row)
		}
		switch v.Type {
		case "error":
			errs++
			fmt.Printf("✗ Rule violation%s: %s\n", where, v.Message)
		case "warning":
			warnings++
			fmt.Printf("⚠ Balance warning%s: %s\n", where, v.Message)
		}
	}

	fmt.Printf("\nValidation complete: %d rule violations, %d balance warnings\n", errs, warnings)

	// Regenerate player sheets from the Schedule sheet
	if err := excel.UpdatePlayerSheets(schedulePath, cfg.PlayerNames()); err != nil {
		return fmt.Errorf("updating player sheets: %w", err)
	}
	fmt.Printf("✓ Player sheets updated in %s\n", schedulePath)

	if errs > 0 {
		return fmt.Errorf("%d constraint violations found", errs)
	}
	return nil
}

func runShow(ctx context.Context, configPath, dbPath string, id int64) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	season, err := cfg.SeasonConfig(ctx)
	if err != nil {
		return err
	}
	roster, err := cfg.Roster(ctx)
	if err != nil {
		return err
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if id == 0 {
		if id, err = store.LatestScheduleID(ctx); err != nil {
			return fmt.Errorf("%s: %w", dbPath, err)
		}
	}
	info, err := store.Info(ctx, id)
	if err != nil {
		return err
	}

	slots := schedule.GenerateSlots(season)
	rounds, err := store.LoadSchedule(ctx, id, slots)
	if err != nil {
		return fmt.Errorf("loading schedule %d: %w", id, err)
	}

	fmt.Printf("Schedule %d (seed %d, stored %s): %d matches\n\n",
		info.ID, info.Seed, info.CreatedAt.Local().Format("2006-01-02 15:04"), info.Matches)
	fmt.Printf("  %-10s %-3s %5s  %-15s %-15s %s\n", "Date", "Day", "Round", "Player1", "Player2", "Type")
	result := &schedule.Result{Seed: info.Seed, Slots: slots, Rounds: rounds, Roster: roster}
	for _, m := range result.Matches() {
		fmt.Printf("  %-10s %-3s %5d  %-15s %-15s %s\n",
			m.Date().Format("2006-01-02"), m.Date().Format("Mon"), m.Round, m.Player1, m.Player2, m.Slot.Group)
	}

	printMetrics(result)
	for _, w := range info.Warnings {
		fmt.Printf("  ⚠ %s\n", w)
	}
	return nil
}
