package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"btlshyp/models"
)

var ErrNoRows = errors.New("no rows found")

// DB is the relay's ledger of players and matches.
type DB struct {
	conn *sql.DB
}

// New opens the sqlite database at dsn and creates the schema. dsn may be a
// plain file path or a sqlite URI such as "file::memory:?cache=shared".
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", withPragmas(dsn))
	if err != nil {
		return nil, err
	}
	// in-memory databases live only as long as a connection holds them
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS players (
			username TEXT PRIMARY KEY,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			player_one TEXT NOT NULL REFERENCES players(username),
			player_two TEXT NOT NULL REFERENCES players(username),
			winner TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_winner ON matches(winner)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// TouchPlayer records that username logged in at t.
func (db *DB) TouchPlayer(username string, t time.Time) error {
	ts := t.UTC().Format(time.RFC3339)
	_, err := db.conn.Exec(
		`INSERT INTO players (username, first_seen, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET last_seen = excluded.last_seen`,
		username, ts, ts,
	)
	return err
}

func (db *DB) GetPlayer(username string) (*models.Player, error) {
	var p models.Player
	var first, last string
	err := db.conn.QueryRow(
		"SELECT username, first_seen, last_seen FROM players WHERE username = ?", username,
	).Scan(&p.Username, &first, &last)
	if err == sql.ErrNoRows {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	p.FirstSeen, _ = time.Parse(time.RFC3339, first)
	p.LastSeen, _ = time.Parse(time.RFC3339, last)
	return &p, nil
}

func (db *DB) CreateMatch(m *models.Match) error {
	_, err := db.conn.Exec(
		"INSERT INTO matches (id, player_one, player_two, started_at) VALUES (?, ?, ?, ?)",
		m.ID, m.PlayerOne, m.PlayerTwo, m.StartedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// FinishMatch stores the outcome. Finishing a match twice is an error.
func (db *DB) FinishMatch(id, winner, reason string, t time.Time) error {
	result, err := db.conn.Exec(
		"UPDATE matches SET winner = ?, reason = ?, finished_at = ? WHERE id = ? AND finished_at = ''",
		winner, reason, t.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

func (db *DB) GetMatch(id string) (*models.Match, error) {
	var m models.Match
	var started, finished string
	err := db.conn.QueryRow(
		"SELECT id, player_one, player_two, winner, reason, started_at, finished_at FROM matches WHERE id = ?", id,
	).Scan(&m.ID, &m.PlayerOne, &m.PlayerTwo, &m.Winner, &m.Reason, &started, &finished)
	if err == sql.ErrNoRows {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	m.StartedAt, _ = time.Parse(time.RFC3339, started)
	if finished != "" {
		m.FinishedAt, _ = time.Parse(time.RFC3339, finished)
	}
	return &m, nil
}

// Wins counts the matches username has won.
func (db *DB) Wins(username string) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM matches WHERE winner = ?", username).Scan(&count)
	return count, err
}

func (db *DB) Stats() (models.Stats, error) {
	var s models.Stats
	err := db.conn.QueryRow(`SELECT
		(SELECT COUNT(*) FROM players),
		(SELECT COUNT(*) FROM matches),
		(SELECT COUNT(*) FROM matches WHERE finished_at != '')`,
	).Scan(&s.Players, &s.MatchesPlayed, &s.MatchesFinished)
	return s, err
}
