package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects the SQL flavour spoken by a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// ParseDialect accepts the LEDGER_DB_TYPE spellings.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	}
	return "", fmt.Errorf("unsupported database type %q", s)
}

// driverName is the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	return string(d)
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// upsertSetting inserts a settings row or overwrites its value.
func (d Dialect) upsertSetting() string {
	if d == DialectMySQL {
		return `INSERT INTO settings (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`
	}
	return `INSERT INTO settings (name, value) VALUES (?, ?) ON CONFLICT (name) DO UPDATE SET value = excluded.value`
}

// migrations returns the schema, one statement per entry.
func (d Dialect) migrations() []string {
	switch d {
	case DialectPostgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id BIGSERIAL PRIMARY KEY,
				discord_id BIGINT NOT NULL UNIQUE,
				discord_username TEXT NOT NULL UNIQUE,
				minecraft_username TEXT NOT NULL UNIQUE,
				minecraft_uuid TEXT NOT NULL UNIQUE,
				balance BIGINT NOT NULL DEFAULT 0,
				ledger_channel_id BIGINT UNIQUE,
				joined_at BIGINT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS transfers (
				id BIGSERIAL PRIMARY KEY,
				sender_discord_id BIGINT NOT NULL,
				receiver_discord_id BIGINT NOT NULL,
				amount BIGINT NOT NULL,
				reward_kind TEXT NOT NULL DEFAULT '',
				created_at BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transfers_sender ON transfers(sender_discord_id)`,
			`CREATE INDEX IF NOT EXISTS idx_transfers_receiver ON transfers(receiver_discord_id)`,
			`CREATE TABLE IF NOT EXISTS work_items (
				id BIGSERIAL PRIMARY KEY,
				kind TEXT NOT NULL,
				message_id BIGINT NOT NULL,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				reward BIGINT NOT NULL,
				author_id BIGINT NOT NULL,
				created_at BIGINT NOT NULL,
				UNIQUE(kind, message_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_work_items_name ON work_items(kind, name)`,
			`CREATE TABLE IF NOT EXISTS work_claims (
				kind TEXT NOT NULL,
				message_id BIGINT NOT NULL,
				claimant_id BIGINT NOT NULL,
				claimed_at BIGINT NOT NULL,
				paid_at BIGINT,
				PRIMARY KEY (kind, message_id, claimant_id)
			)`,
			`CREATE TABLE IF NOT EXISTS settings (
				name TEXT PRIMARY KEY,
				value BIGINT NOT NULL
			)`,
		}
	case DialectMySQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				discord_id BIGINT NOT NULL UNIQUE,
				discord_username VARCHAR(191) NOT NULL UNIQUE,
				minecraft_username VARCHAR(191) NOT NULL UNIQUE,
				minecraft_uuid VARCHAR(64) NOT NULL UNIQUE,
				balance BIGINT NOT NULL DEFAULT 0,
				ledger_channel_id BIGINT NULL UNIQUE,
				joined_at BIGINT NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS transfers (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				sender_discord_id BIGINT NOT NULL,
				receiver_discord_id BIGINT NOT NULL,
				amount BIGINT NOT NULL,
				reward_kind VARCHAR(16) NOT NULL DEFAULT '',
				created_at BIGINT NOT NULL,
				INDEX idx_transfers_sender (sender_discord_id),
				INDEX idx_transfers_receiver (receiver_discord_id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS work_items (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				kind VARCHAR(16) NOT NULL,
				message_id BIGINT NOT NULL,
				name VARCHAR(191) NOT NULL,
				description TEXT NOT NULL,
				reward BIGINT NOT NULL,
				author_id BIGINT NOT NULL,
				created_at BIGINT NOT NULL,
				UNIQUE KEY uq_work_items_message (kind, message_id),
				INDEX idx_work_items_name (kind, name)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS work_claims (
				kind VARCHAR(16) NOT NULL,
				message_id BIGINT NOT NULL,
				claimant_id BIGINT NOT NULL,
				claimed_at BIGINT NOT NULL,
				paid_at BIGINT NULL,
				PRIMARY KEY (kind, message_id, claimant_id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS settings (
				name VARCHAR(64) PRIMARY KEY,
				value BIGINT NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				discord_id INTEGER NOT NULL UNIQUE,
				discord_username TEXT NOT NULL UNIQUE,
				minecraft_username TEXT NOT NULL UNIQUE,
				minecraft_uuid TEXT NOT NULL UNIQUE,
				balance INTEGER NOT NULL DEFAULT 0,
				ledger_channel_id INTEGER DEFAULT NULL UNIQUE,
				joined_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS transfers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				sender_discord_id INTEGER NOT NULL,
				receiver_discord_id INTEGER NOT NULL,
				amount INTEGER NOT NULL,
				reward_kind TEXT NOT NULL DEFAULT '',
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transfers_sender ON transfers(sender_discord_id)`,
			`CREATE INDEX IF NOT EXISTS idx_transfers_receiver ON transfers(receiver_discord_id)`,
			`CREATE TABLE IF NOT EXISTS work_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				kind TEXT NOT NULL,
				message_id INTEGER NOT NULL,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				reward INTEGER NOT NULL,
				author_id INTEGER NOT NULL,
				created_at INTEGER NOT NULL,
				UNIQUE(kind, message_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_work_items_name ON work_items(kind, name)`,
			`CREATE TABLE IF NOT EXISTS work_claims (
				kind TEXT NOT NULL,
				message_id INTEGER NOT NULL,
				claimant_id INTEGER NOT NULL,
				claimed_at INTEGER NOT NULL,
				paid_at INTEGER DEFAULT NULL,
				PRIMARY KEY (kind, message_id, claimant_id)
			)`,
			`CREATE TABLE IF NOT EXISTS settings (
				name TEXT PRIMARY KEY,
				value INTEGER NOT NULL
			)`,
		}
	}
}

// isUniqueViolation reports whether err is a unique or primary key
// constraint failure from any of the supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
