package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver   string
	Path     string // sqlite file, ":memory:" for tests
	Host     string
	Port     string
	Username string
	Password string
	DBName   string
	SSLMode  string
}

func (c Config) dsn() (string, error) {
	switch c.Driver {
	case DriverSQLite, "":
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", c.Path), nil
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
			c.Host, c.Port, c.Username, c.DBName, c.Password, c.SSLMode), nil
	default:
		return "", errors.Errorf("unsupported db driver %q", c.Driver)
	}
}

// NewDB opens and pings the local store. SQLite gets a single connection so
// writes are serialized and in-memory databases survive between queries.
func NewDB(cfg Config) (*sqlx.DB, error) {
	dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping db")
	}
	logrus.WithFields(logrus.Fields{"driver": driver, "db": cfg.DBName, "path": cfg.Path}).Info("local store connected")
	return db, nil
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := sqliteSchema
	if db.DriverName() == DriverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %s", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' && i > 0 {
			return s[:i]
		}
	}
	return s
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	from_address TEXT NOT NULL,
	to_address TEXT NOT NULL,
	amount TEXT NOT NULL,
	amount_in_eth TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	tx_hash TEXT,
	message TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	type TEXT NOT NULL DEFAULT 'send'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions (status)`,
	`CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	wallet_address TEXT NOT NULL UNIQUE,
	is_favorite BOOLEAN NOT NULL DEFAULT 0,
	last_transaction_date TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	receiver_address TEXT NOT NULL,
	sender_address TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	paid_at TIMESTAMP,
	due_date TIMESTAMP,
	transaction_hash TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status)`,
	`CREATE TABLE IF NOT EXISTS preferences (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
	id BIGSERIAL PRIMARY KEY,
	from_address TEXT NOT NULL,
	to_address TEXT NOT NULL,
	amount TEXT NOT NULL,
	amount_in_eth TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	tx_hash TEXT,
	message TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	type TEXT NOT NULL DEFAULT 'send'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions (status)`,
	`CREATE TABLE IF NOT EXISTS contacts (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	wallet_address TEXT NOT NULL UNIQUE,
	is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
	last_transaction_date TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
	id BIGSERIAL PRIMARY KEY,
	receiver_address TEXT NOT NULL,
	sender_address TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	paid_at TIMESTAMPTZ,
	due_date TIMESTAMPTZ,
	transaction_hash TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status)`,
	`CREATE TABLE IF NOT EXISTS preferences (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
	)`,
}
