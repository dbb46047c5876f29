// Package db provides SQLite-backed persistence for imported
// sessions, their lap records and per-lap telemetry traces.
package db

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pitwall-data/laptime.report/internal/session"
)

// DB wraps a sql.DB handle for the session store.
type DB struct {
	*sql.DB
	path string
}

// SessionMeta identifies one imported session.
type SessionMeta struct {
	ID          string    `json:"id"`
	Year        int       `json:"year"`
	EventName   string    `json:"event_name"`
	SessionType string    `json:"session_type"`
	LoadedAt    time.Time `json:"loaded_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	year INTEGER NOT NULL,
	event_name TEXT NOT NULL,
	session_type TEXT NOT NULL,
	loaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS laps (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	driver TEXT NOT NULL,
	team TEXT NOT NULL DEFAULT '',
	lap_number INTEGER NOT NULL,
	lap_time REAL,
	position INTEGER,
	compound TEXT NOT NULL DEFAULT 'UNKNOWN',
	tyre_life INTEGER NOT NULL DEFAULT 0,
	sector1 REAL,
	sector2 REAL,
	sector3 REAL,
	pit_in_time REAL,
	pit_out_time REAL,
	PRIMARY KEY (session_id, driver, lap_number)
);
CREATE INDEX IF NOT EXISTS idx_laps_session ON laps(session_id);

CREATE TABLE IF NOT EXISTS telemetry (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	driver TEXT NOT NULL,
	lap_number INTEGER NOT NULL,
	sample_index INTEGER NOT NULL,
	distance REAL NOT NULL,
	speed REAL,
	throttle REAL,
	brake REAL,
	gear INTEGER NOT NULL DEFAULT 0,
	x REAL,
	y REAL,
	PRIMARY KEY (session_id, driver, lap_number, sample_index)
);
`

// NewDB opens (creating if needed) the session store at path. The
// baseline schema is applied on open; versioned changes beyond the
// baseline go through MigrateUp.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{DB: conn, path: path}, nil
}

// Path returns the filesystem path the store was opened with.
func (d *DB) Path() string { return d.path }

// InsertSession records a session's identity row.
func (d *DB) InsertSession(meta SessionMeta) error {
	if meta.LoadedAt.IsZero() {
		meta.LoadedAt = time.Now().UTC()
	}
	_, err := d.Exec(
		`INSERT INTO sessions (id, year, event_name, session_type, loaded_at) VALUES (?, ?, ?, ?, ?)`,
		meta.ID, meta.Year, meta.EventName, meta.SessionType, meta.LoadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", meta.ID, err)
	}
	return nil
}

// ListSessions returns all stored sessions, most recently loaded first.
func (d *DB) ListSessions() ([]SessionMeta, error) {
	rows, err := d.Query(`SELECT id, year, event_name, session_type, loaded_at FROM sessions ORDER BY loaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionMeta
	for rows.Next() {
		var m SessionMeta
		if err := rows.Scan(&m.ID, &m.Year, &m.EventName, &m.SessionType, &m.LoadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetSession looks up one session by id.
func (d *DB) GetSession(id string) (SessionMeta, error) {
	var m SessionMeta
	err := d.QueryRow(
		`SELECT id, year, event_name, session_type, loaded_at FROM sessions WHERE id = ?`, id,
	).Scan(&m.ID, &m.Year, &m.EventName, &m.SessionType, &m.LoadedAt)
	if err != nil {
		return SessionMeta{}, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return m, nil
}

// InsertLaps stores lap records for a session in one transaction.
// NaN lap and sector times and zero positions are stored as NULL.
func (d *DB) InsertLaps(sessionID string, laps []session.Lap) error {
	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO laps
		(session_id, driver, team, lap_number, lap_time, position, compound, tyre_life,
		 sector1, sector2, sector3, pit_in_time, pit_out_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare lap insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range laps {
		var pos interface{}
		if l.Position > 0 {
			pos = l.Position
		}
		_, err := stmt.Exec(
			sessionID, l.Driver, l.Team, l.LapNumber,
			nullFloat(l.LapTime), pos, string(l.Compound), l.TyreLife,
			nullFloat(l.Sector1), nullFloat(l.Sector2), nullFloat(l.Sector3),
			nullFloat(l.PitInTime), nullFloat(l.PitOutTime),
		)
		if err != nil {
			return fmt.Errorf("failed to insert lap %d for %s: %w", l.LapNumber, l.Driver, err)
		}
	}
	return tx.Commit()
}

// LapsBySession returns all laps of a session ordered by driver and
// lap number. NULL columns come back as NaN (times) or 0 (position).
func (d *DB) LapsBySession(sessionID string) ([]session.Lap, error) {
	rows, err := d.Query(`SELECT driver, team, lap_number, lap_time, position, compound, tyre_life,
		sector1, sector2, sector3, pit_in_time, pit_out_time
		FROM laps WHERE session_id = ? ORDER BY driver, lap_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query laps: %w", err)
	}
	defer rows.Close()

	var out []session.Lap
	for rows.Next() {
		var (
			l        session.Lap
			compound string
			lapTime, s1, s2, s3, pitIn, pitOut sql.NullFloat64
			pos      sql.NullInt64
		)
		err := rows.Scan(&l.Driver, &l.Team, &l.LapNumber, &lapTime, &pos, &compound, &l.TyreLife,
			&s1, &s2, &s3, &pitIn, &pitOut)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lap row: %w", err)
		}
		l.LapTime = floatOrNaN(lapTime)
		l.Position = int(pos.Int64)
		l.Compound = session.Compound(compound)
		l.Sector1 = floatOrNaN(s1)
		l.Sector2 = floatOrNaN(s2)
		l.Sector3 = floatOrNaN(s3)
		l.PitInTime = floatOrNaN(pitIn)
		l.PitOutTime = floatOrNaN(pitOut)
		out = append(out, l)
	}
	return out, rows.Err()
}

// InsertTelemetry stores a lap's telemetry trace in one transaction.
func (d *DB) InsertTelemetry(sessionID, driver string, lapNumber int, samples []session.TelemetrySample) error {
	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO telemetry
		(session_id, driver, lap_number, sample_index, distance, speed, throttle, brake, gear, x, y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare telemetry insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range samples {
		_, err := stmt.Exec(sessionID, driver, lapNumber, i,
			s.Distance, nullFloat(s.Speed), nullFloat(s.Throttle), nullFloat(s.Brake),
			s.Gear, nullFloat(s.X), nullFloat(s.Y))
		if err != nil {
			return fmt.Errorf("failed to insert telemetry sample %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// TelemetryForLap returns one lap's trace in sample order.
func (d *DB) TelemetryForLap(sessionID, driver string, lapNumber int) ([]session.TelemetrySample, error) {
	rows, err := d.Query(`SELECT distance, speed, throttle, brake, gear, x, y
		FROM telemetry WHERE session_id = ? AND driver = ? AND lap_number = ?
		ORDER BY sample_index`, sessionID, driver, lapNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	defer rows.Close()

	var out []session.TelemetrySample
	for rows.Next() {
		var (
			s                          session.TelemetrySample
			speed, throttle, brake, x, y sql.NullFloat64
		)
		if err := rows.Scan(&s.Distance, &speed, &throttle, &brake, &s.Gear, &x, &y); err != nil {
			return nil, fmt.Errorf("failed to scan telemetry row: %w", err)
		}
		s.Speed = floatOrNaN(speed)
		s.Throttle = floatOrNaN(throttle)
		s.Brake = floatOrNaN(brake)
		s.X = floatOrNaN(x)
		s.Y = floatOrNaN(y)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its laps and telemetry.
func (d *DB) DeleteSession(id string) error {
	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM telemetry WHERE session_id = ?`,
		`DELETE FROM laps WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func nullFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
