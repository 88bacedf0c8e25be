// SQLite persistence for vouch totals, the issuance audit log, and
// status-role restore flags. Everything else the bot persists lives in
// flat files owned by the stock, banlist, and roster packages.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vaultgen/vaultgen/internal/domain"
)

// DB wraps the bot's SQLite database.
type DB struct {
	db *sql.DB
}

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Lifetime vouch counts per user
		`CREATE TABLE IF NOT EXISTS vouch_totals (
			user_id    TEXT PRIMARY KEY,
			total      INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Audit trail of generate attempts, one row per outcome
		`CREATE TABLE IF NOT EXISTS issuance_log (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			tier       TEXT NOT NULL,
			service    TEXT NOT NULL,
			outcome    TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issuance_user ON issuance_log(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_issuance_created ON issuance_log(created_at)`,

		// Status-role restore flags, keyed by guild and user
		`CREATE TABLE IF NOT EXISTS status_roles (
			guild_id   TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			granted    INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (guild_id, user_id)
		)`,
	}
}

// Open opens (creating if necessary) the database under dir and runs
// all migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "vaultgen.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc's driver is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)
	for _, stmt := range Migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.db.Close()
}

// ─── Vouch Totals ───────────────────────────────────────────────────────────

// IncrementVouches bumps a user's lifetime vouch count and returns the
// new total.
func (db *DB) IncrementVouches(userID string) (int, error) {
	_, err := db.db.Exec(`
		INSERT INTO vouch_totals (user_id, total, updated_at)
		VALUES (?, 1, datetime('now'))
		ON CONFLICT(user_id) DO UPDATE SET
			total      = total + 1,
			updated_at = datetime('now')
	`, userID)
	if err != nil {
		return 0, err
	}
	return db.TotalVouches(userID)
}

// TotalVouches returns a user's lifetime vouch count. Users with no
// recorded vouches report zero.
func (db *DB) TotalVouches(userID string) (int, error) {
	var total int
	err := db.db.QueryRow(`
		SELECT total FROM vouch_totals WHERE user_id = ?
	`, userID).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return total, err
}

// ─── Issuance Audit Log ─────────────────────────────────────────────────────

// IssuanceRecord is one row of the generate audit trail.
type IssuanceRecord struct {
	ID        string
	UserID    string
	Tier      domain.Tier
	Service   string
	Outcome   string
	CreatedAt time.Time
}

// RecordIssuance appends an audit row for a generate attempt.
func (db *DB) RecordIssuance(id, userID string, tier domain.Tier, service, outcome string) error {
	_, err := db.db.Exec(`
		INSERT INTO issuance_log (id, user_id, tier, service, outcome)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, tier, service, outcome)
	return err
}

// RecentIssuances returns the newest audit rows, most recent first.
func (db *DB) RecentIssuances(limit int) ([]IssuanceRecord, error) {
	rows, err := db.db.Query(`
		SELECT id, user_id, tier, service, outcome, created_at
		FROM issuance_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IssuanceRecord
	for rows.Next() {
		var rec IssuanceRecord
		var tier, created string
		if err := rows.Scan(&rec.ID, &rec.UserID, &tier, &rec.Service, &rec.Outcome, &created); err != nil {
			return nil, err
		}
		rec.Tier = domain.Tier(tier)
		rec.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountIssuances returns the number of audit rows with the given
// outcome. An empty outcome counts everything.
func (db *DB) CountIssuances(outcome string) (int, error) {
	var n int
	var err error
	if outcome == "" {
		err = db.db.QueryRow(`SELECT COUNT(*) FROM issuance_log`).Scan(&n)
	} else {
		err = db.db.QueryRow(`SELECT COUNT(*) FROM issuance_log WHERE outcome = ?`, outcome).Scan(&n)
	}
	return n, err
}

// ─── Status-Role Flags ──────────────────────────────────────────────────────

// SetStatusFlag records whether a user currently holds the status role,
// so the grant survives restarts.
func (db *DB) SetStatusFlag(guildID, userID string, granted bool) error {
	g := 0
	if granted {
		g = 1
	}
	_, err := db.db.Exec(`
		INSERT INTO status_roles (guild_id, user_id, granted, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			granted    = excluded.granted,
			updated_at = datetime('now')
	`, guildID, userID, g)
	return err
}

// StatusFlag reports whether a user is recorded as holding the status
// role. Unknown users report false.
func (db *DB) StatusFlag(guildID, userID string) (bool, error) {
	var g int
	err := db.db.QueryRow(`
		SELECT granted FROM status_roles WHERE guild_id = ? AND user_id = ?
	`, guildID, userID).Scan(&g)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return g == 1, err
}

// ClearStatusFlag removes a user's status-role record entirely.
func (db *DB) ClearStatusFlag(guildID, userID string) error {
	_, err := db.db.Exec(`
		DELETE FROM status_roles WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	return err
}

// GrantedStatusUsers returns the user IDs recorded as holding the
// status role in a guild, for restore on startup.
func (db *DB) GrantedStatusUsers(guildID string) ([]string, error) {
	rows, err := db.db.Query(`
		SELECT user_id FROM status_roles WHERE guild_id = ? AND granted = 1
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
