// Package history persists match records to SQLite so past matches can be
// reviewed after the process exits.
package history

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/crtools/cr-companion/internal/cards"
	"github.com/crtools/cr-companion/internal/detect"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Match is one persisted match.
type Match struct {
	ID        int64
	StartedAt time.Time
	EndedAt   *time.Time
	Result    string
	Archetype string
	Deck      []cards.Card
	Plays     int
}

// Config holds store settings.
type Config struct {
	// Path is the SQLite database file. ":memory:" is accepted for tests.
	Path string

	// BusyTimeout is how long to wait on a locked database.
	BusyTimeout time.Duration
}

// DefaultConfig returns store defaults for the given path.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
	}
}

// Store provides match history persistence.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database and applies pending
// schema migrations.
func Open(config *Config) (*Store, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if config.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on",
		config.Path, config.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("access migrations: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsDir, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// StartMatch inserts a new match row and returns its id.
func (s *Store) StartMatch(startedAt time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO matches (started_at, result) VALUES (?, ?)`,
		startedAt.UTC().Format(timeLayout), "unknown",
	)
	if err != nil {
		return 0, fmt.Errorf("insert match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("match id: %w", err)
	}
	return id, nil
}

// RecordPlay appends one accepted play to a match.
func (s *Store) RecordPlay(matchID int64, p detect.PlayRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO plays (match_id, seq, card, elixir, played_at) VALUES (?, ?, ?, ?, ?)`,
		matchID, p.Seq, p.Card.Name, p.Card.Elixir, p.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert play: %w", err)
	}
	return nil
}

// SetDeck records the revealed opponent deck and its archetype for a match.
// Written as soon as the deck completes rather than at match end, so a
// crash cannot swallow it.
func (s *Store) SetDeck(matchID int64, archetype string, deck []cards.Card) error {
	deckJSON, err := json.Marshal(deck)
	if err != nil {
		return fmt.Errorf("marshal deck: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE matches SET archetype = ?, deck = ? WHERE id = ?`,
		archetype, string(deckJSON), matchID,
	)
	if err != nil {
		return fmt.Errorf("update match deck: %w", err)
	}
	return nil
}

// EndMatch finalizes a match with its end time and result.
func (s *Store) EndMatch(matchID int64, endedAt time.Time, result string) error {
	_, err := s.db.Exec(
		`UPDATE matches SET ended_at = ?, result = ? WHERE id = ?`,
		endedAt.UTC().Format(timeLayout), result, matchID,
	)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return nil
}

// RecentMatches returns the most recent matches, newest first.
func (s *Store) RecentMatches(limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT m.id, m.started_at, m.ended_at, m.result,
		       COALESCE(m.archetype, ''), COALESCE(m.deck, ''),
		       (SELECT COUNT(*) FROM plays p WHERE p.match_id = m.id)
		FROM matches m
		ORDER BY m.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m         Match
			startedAt string
			endedAt   sql.NullString
			deckJSON  string
		)
		if err := rows.Scan(&m.ID, &startedAt, &endedAt, &m.Result, &m.Archetype, &deckJSON, &m.Plays); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}

		m.StartedAt, err = time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if endedAt.Valid && endedAt.String != "" {
			t, err := time.Parse(timeLayout, endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
			m.EndedAt = &t
		}
		if deckJSON != "" {
			if err := json.Unmarshal([]byte(deckJSON), &m.Deck); err != nil {
				return nil, fmt.Errorf("unmarshal deck: %w", err)
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Plays returns the plays of a match in sequence order.
func (s *Store) Plays(matchID int64) ([]detect.PlayRecord, error) {
	rows, err := s.db.Query(
		`SELECT seq, card, elixir, played_at FROM plays WHERE match_id = ? ORDER BY seq`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query plays: %w", err)
	}
	defer rows.Close()

	var plays []detect.PlayRecord
	for rows.Next() {
		var (
			p        detect.PlayRecord
			playedAt string
		)
		if err := rows.Scan(&p.Seq, &p.Card.Name, &p.Card.Elixir, &playedAt); err != nil {
			return nil, fmt.Errorf("scan play: %w", err)
		}
		p.Timestamp, err = time.Parse(timeLayout, playedAt)
		if err != nil {
			return nil, fmt.Errorf("parse played_at: %w", err)
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// timeLayout is ISO 8601 without a timezone suffix, the format SQLite's
// date functions understand.
const timeLayout = "2006-01-02 15:04:05.999999"
