package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PlayerRow represents an account in the database
type PlayerRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// StatsRow represents lifetime player stats
type StatsRow struct {
	PlayerID  int64
	Matches   int
	Wins      int
	Losses    int
	Knockouts int
	HitsTaken int
	Playtime  float64 // seconds
}

// MatchPlayerRow represents a player's participation in a match
type MatchPlayerRow struct {
	MatchID   int64  `json:"match_id"`
	StableID  string `json:"id"`
	Team      Team   `json:"team"`
	Knockouts int    `json:"knockouts"`
	HitsTaken int    `json:"hits_taken"`
	Won       bool   `json:"won"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stats (
		player_id INTEGER PRIMARY KEY REFERENCES players(id),
		matches INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		knockouts INTEGER NOT NULL DEFAULT 0,
		hits_taken INTEGER NOT NULL DEFAULT 0,
		playtime REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL DEFAULT '',
		duration REAL NOT NULL DEFAULT 0,
		winner_team INTEGER NOT NULL DEFAULT 0,
		score_a INTEGER NOT NULL DEFAULT 0,
		score_b INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS match_players (
		match_id INTEGER NOT NULL REFERENCES matches(id),
		stable_id TEXT NOT NULL,
		team INTEGER NOT NULL DEFAULT 0,
		knockouts INTEGER NOT NULL DEFAULT 0,
		hits_taken INTEGER NOT NULL DEFAULT 0,
		won INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (match_id, stable_id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS migration_slots (
		session_id TEXT PRIMARY KEY,
		phase INTEGER NOT NULL,
		remaining_ms INTEGER NOT NULL DEFAULT 0,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		player_id INTEGER,
		session_id TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_match_players_stable ON match_players(stable_id);
	CREATE INDEX IF NOT EXISTS idx_analytics_type ON analytics_events(event_type, created_at);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Error().Err(err).Msg("DB migration error")
	}
	return err
}

// CreatePlayer creates a new account (returns player ID)
func (db *DB) CreatePlayer(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO players (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	// Create stats row
	_, err = db.conn.Exec("INSERT INTO stats (player_id) VALUES (?)", id)
	return id, err
}

// GetPlayerByUsername returns an account by username, nil if none
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM players WHERE username = ?",
		username,
	)
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM players WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetStats returns player stats, nil if none
func (db *DB) GetStats(playerID int64) (*StatsRow, error) {
	row := db.conn.QueryRow(
		"SELECT player_id, matches, wins, losses, knockouts, hits_taken, playtime FROM stats WHERE player_id = ?",
		playerID,
	)
	s := &StatsRow{}
	err := row.Scan(&s.PlayerID, &s.Matches, &s.Wins, &s.Losses, &s.Knockouts, &s.HitsTaken, &s.Playtime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// RecordMatchResult stores a finished match, its participants and the
// account stats of registered players in one transaction
func (db *DB) RecordMatchResult(res MatchResult) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	r, err := tx.Exec(
		"INSERT INTO matches (session_id, duration, winner_team, score_a, score_b) VALUES (?, ?, ?, ?, ?)",
		res.Session, res.Duration.Seconds(), int(res.Winner), res.ScoreA, res.ScoreB,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	matchID, err := r.LastInsertId()
	if err != nil {
		return err
	}

	for _, p := range res.Players {
		_, err := tx.Exec(
			`INSERT INTO match_players (match_id, stable_id, team, knockouts, hits_taken, won)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			matchID, p.StableID, int(p.Team), p.Knockouts, p.HitsTaken, p.Won,
		)
		if err != nil {
			return fmt.Errorf("insert match player %s: %w", p.StableID, err)
		}
		if p.AccountID == 0 {
			continue
		}
		win, loss := 0, 0
		switch {
		case p.Won:
			win = 1
		case res.Winner != TeamNone:
			loss = 1
		}
		_, err = tx.Exec(`
			UPDATE stats SET
				matches = matches + 1,
				wins = wins + ?,
				losses = losses + ?,
				knockouts = knockouts + ?,
				hits_taken = hits_taken + ?,
				playtime = playtime + ?
			WHERE player_id = ?`,
			win, loss, p.Knockouts, p.HitsTaken, res.Duration.Seconds(), p.AccountID,
		)
		if err != nil {
			return fmt.Errorf("update stats %d: %w", p.AccountID, err)
		}
	}
	return tx.Commit()
}

// GetMatchHistory returns recent matches for a stable player id
func (db *DB) GetMatchHistory(stableID string, limit int) ([]MatchPlayerRow, error) {
	rows, err := db.conn.Query(`
		SELECT mp.match_id, mp.stable_id, mp.team, mp.knockouts, mp.hits_taken, mp.won
		FROM match_players mp
		JOIN matches m ON m.id = mp.match_id
		WHERE mp.stable_id = ?
		ORDER BY m.id DESC
		LIMIT ?`,
		stableID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchPlayerRow
	for rows.Next() {
		var r MatchPlayerRow
		var team int
		if err := rows.Scan(&r.MatchID, &r.StableID, &team, &r.Knockouts, &r.HitsTaken, &r.Won); err != nil {
			return nil, err
		}
		r.Team = Team(team)
		result = append(result, r)
	}
	return result, rows.Err()
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Username  string `json:"username"`
	Matches   int    `json:"matches"`
	Wins      int    `json:"wins"`
	Losses    int    `json:"losses"`
	Knockouts int    `json:"knockouts"`
	HitsTaken int    `json:"hits_taken"`
}

// GetLeaderboard returns top players sorted by the given field
func (db *DB) GetLeaderboard(orderBy string, limit int) ([]LeaderboardEntry, error) {
	// Whitelist valid order columns
	validCols := map[string]string{
		"knockouts": "s.knockouts", "wins": "s.wins", "matches": "s.matches",
		"ratio": "CASE WHEN s.hits_taken > 0 THEN CAST(s.knockouts AS REAL)/s.hits_taken ELSE s.knockouts END",
	}
	col, ok := validCols[orderBy]
	if !ok {
		col = "s.knockouts"
	}

	query := `SELECT p.username, s.matches, s.wins, s.losses, s.knockouts, s.hits_taken
		FROM stats s JOIN players p ON p.id = s.player_id
		ORDER BY ` + col + ` DESC, p.id ASC LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Matches, &e.Wins, &e.Losses, &e.Knockouts, &e.HitsTaken); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetSetting returns a stored setting, "" if unset
func (db *DB) GetSetting(key string) string {
	var v string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Error().Err(err).Str("key", key).Msg("read setting failed")
	}
	return v
}

// SetSetting stores a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// SaveMigration stores a host migration slot, replacing any previous one
func (db *DB) SaveMigration(slot MigrationSlot) error {
	_, err := db.conn.Exec(`
		INSERT INTO migration_slots (session_id, phase, remaining_ms, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			phase = excluded.phase, remaining_ms = excluded.remaining_ms, saved_at = excluded.saved_at`,
		slot.Session, int(slot.Phase), slot.Remaining.Milliseconds(), slot.SavedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// LoadMigration returns the slot saved for a session
func (db *DB) LoadMigration(session string) (MigrationSlot, bool, error) {
	var (
		phase   int
		remMs   int64
		savedAt string
	)
	err := db.conn.QueryRow(
		"SELECT phase, remaining_ms, saved_at FROM migration_slots WHERE session_id = ?", session,
	).Scan(&phase, &remMs, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return MigrationSlot{}, false, nil
	}
	if err != nil {
		return MigrationSlot{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return MigrationSlot{}, false, fmt.Errorf("parse saved_at: %w", err)
	}
	return MigrationSlot{
		Session:   session,
		Phase:     Phase(phase),
		Remaining: time.Duration(remMs) * time.Millisecond,
		SavedAt:   t,
	}, true, nil
}

// ClearMigration deletes a session's slot
func (db *DB) ClearMigration(session string) error {
	_, err := db.conn.Exec("DELETE FROM migration_slots WHERE session_id = ?", session)
	return err
}

// ListMigrations returns the session ids that have a saved slot
func (db *DB) ListMigrations() ([]string, error) {
	rows, err := db.conn.Query("SELECT session_id FROM migration_slots ORDER BY saved_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
