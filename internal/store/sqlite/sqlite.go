/*
Package sqlite keeps generated schedules in a SQLite database.

Each call to WriteSchedule appends a new schedule; earlier ones are never
updated, so the database doubles as a history of generation runs.

TABLES:

	schedules: one row per run (seed, +1 count, warnings, creation time)
	matches:   the placed matches of a schedule, keyed by date and group

Matches are stored by date and group rather than by slot, and LoadSchedule
resolves them against freshly generated slots, the same way a hand-edited
workbook is read back.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/derekprior/ttleague/internal/schedule"
)

const dateLayout = "2006-01-02"

// ErrNotFound is returned when no schedule has the requested id.
var ErrNotFound = errors.New("schedule not found")

// Store persists schedules in SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Info describes a stored schedule.
type Info struct {
	ID        int64
	Seed      int64
	PlusOnes  int
	Warnings  []string
	Matches   int
	CreatedAt time.Time
}

// New opens (or creates) the database at dbPath and migrates its schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed INTEGER NOT NULL,
		plus_ones INTEGER NOT NULL DEFAULT 0,
		warnings TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		schedule_id INTEGER NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		round INTEGER NOT NULL,
		player1 TEXT NOT NULL,
		player2 TEXT NOT NULL,
		date TEXT NOT NULL,
		slot_group TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_matches_schedule
		ON matches(schedule_id, round);
	`

	_, err := s.db.Exec(schema)
	return err
}

// WriteSchedule implements schedule.ScheduleSink.
func (s *Store) WriteSchedule(ctx context.Context, res *schedule.Result) error {
	_, err := s.Save(ctx, res)
	return err
}

// Save stores res and returns the id of the new schedule. Every match must
// be placed in a slot.
func (s *Store) Save(ctx context.Context, res *schedule.Result) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	r, err := tx.ExecContext(ctx,
		`INSERT INTO schedules (seed, plus_ones, warnings, created_at) VALUES (?, ?, ?, ?)`,
		res.Seed, res.PlusOnes, strings.Join(res.Warnings, "\n"),
		s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert schedule: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read schedule id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO matches (schedule_id, round, player1, player2, date, slot_group) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare match insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range res.Matches() {
		if m.Slot == nil {
			return 0, fmt.Errorf("match %s has no slot", m)
		}
		if _, err := stmt.ExecContext(ctx, id, m.Round, m.Player1, m.Player2,
			m.Slot.Date.Format(dateLayout), m.Slot.Group.String()); err != nil {
			return 0, fmt.Errorf("failed to insert match: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit schedule: %w", err)
	}
	return id, nil
}

// LatestScheduleID returns the id of the most recently stored schedule.
func (s *Store) LatestScheduleID(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM schedules ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query latest schedule: %w", err)
	}
	return id, nil
}

// Info returns the summary of schedule id.
func (s *Store) Info(ctx context.Context, id int64) (Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{ID: id}
	var warnings, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT s.seed, s.plus_ones, s.warnings, s.created_at,
		       (SELECT COUNT(*) FROM matches m WHERE m.schedule_id = s.id)
		FROM schedules s
		WHERE s.id = ?`, id,
	).Scan(&info.Seed, &info.PlusOnes, &warnings, &createdAt, &info.Matches)
	if errors.Is(err, sql.ErrNoRows) {
		return Info{}, fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Info{}, fmt.Errorf("failed to query schedule %d: %w", id, err)
	}

	if warnings != "" {
		info.Warnings = strings.Split(warnings, "\n")
	}
	if info.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Info{}, fmt.Errorf("schedule %d: invalid created_at %q: %w", id, createdAt, err)
	}
	return info, nil
}

// LoadSchedule reads schedule id back and places each match in the slot
// matching its date and group. A match with no such slot fails with
// schedule.ErrSlotLookup.
func (s *Store) LoadSchedule(ctx context.Context, id int64, slots schedule.Slots) (schedule.RoundMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to query schedule %d: %w", id, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT round, player1, player2, date, slot_group
		FROM matches
		WHERE schedule_id = ?
		ORDER BY round ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	rounds := schedule.RoundMap{}
	for rows.Next() {
		var (
			round            int
			p1, p2, date, gs string
		)
		if err := rows.Scan(&round, &p1, &p2, &date, &gs); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("invalid match date %q: %w", date, err)
		}
		group, err := schedule.ParseGroup(gs)
		if err != nil {
			return nil, err
		}

		slot, err := slots.Find(d, group)
		if err != nil {
			return nil, fmt.Errorf("%s vs %s: %w", p1, p2, err)
		}
		m := rounds.Add(round, p1, p2)
		m.Slot = slot
		slot.Matches = append(slot.Matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}
	return rounds, nil
}
