package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// timeLayout is the canonical timestamp format stored in the database.
const timeLayout = "2006-01-02 15:04:05"

// Store is the SQLite-backed implementation of the energy data contract. It
// owns the schema and the CRUD surface the data-entry screens go through.
type Store struct {
	db *sqlx.DB
}

// New opens the database file and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for metrics gauges.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS buildings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		location TEXT,
		type TEXT
	);
	CREATE TABLE IF NOT EXISTS equipment_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		theoretical_kwh_per_hour REAL NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		cost_per_kwh REAL NOT NULL DEFAULT 0,
		description TEXT
	);
	CREATE TABLE IF NOT EXISTS equipment (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		rated_power_watts REAL NOT NULL DEFAULT 0,
		type_id INTEGER NOT NULL REFERENCES equipment_types(id),
		building_id INTEGER NOT NULL REFERENCES buildings(id)
	);
	CREATE TABLE IF NOT EXISTS consumption (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipment_id INTEGER NOT NULL REFERENCES equipment(id),
		source_id INTEGER NOT NULL REFERENCES sources(id),
		recorded_at TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		energy_kwh REAL NOT NULL
	);
	CREATE TABLE IF NOT EXISTS outages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		building_id INTEGER NOT NULL REFERENCES buildings(id),
		start_time TEXT NOT NULL,
		end_time TEXT,
		cause TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_consumption_recorded_at ON consumption(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_consumption_equipment ON consumption(equipment_id);
	CREATE INDEX IF NOT EXISTS idx_consumption_source ON consumption(source_id);
	CREATE INDEX IF NOT EXISTS idx_outages_start ON outages(start_time);
	`

	_, err := s.db.Exec(schema)
	return err
}
