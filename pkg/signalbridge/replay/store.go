package replay

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrArchiveClosed is returned by archive operations after Close.
var ErrArchiveClosed = errors.New("replay: archive closed")

// Archive persists recorded frames across analysis sessions.
type Archive interface {
	// Save appends frames to the named session.
	Save(session string, frames []Frame) error
	// Load returns the session's frames ordered by receipt time.
	Load(session string) ([]Frame, error)
	// Sessions lists the stored session names.
	Sessions() ([]string, error)
	Close() error
}

// SQLiteArchive stores replay frames in SQLite.
// It is suitable for single-process offline analysis.
type SQLiteArchive struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteArchive opens (or creates) an archive at path.
// The path should be a file path (e.g., "./replay.db") or ":memory:" for testing.
func NewSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS replay_frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session TEXT NOT NULL,
			sink TEXT NOT NULL,
			received_at REAL NOT NULL,
			envelope BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_replay_frames_session
		ON replay_frames(session, received_at)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

// Save implements Archive.
func (a *SQLiteArchive) Save(session string, frames []Frame) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrArchiveClosed
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO replay_frames (session, sink, received_at, envelope)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, frame := range frames {
		data, err := json.Marshal(frame.Envelope)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal envelope: %w", err)
		}
		if _, err := stmt.Exec(session, frame.Sink, frame.ReceivedAt, data); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert frame: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load implements Archive.
func (a *SQLiteArchive) Load(session string) ([]Frame, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, ErrArchiveClosed
	}

	rows, err := a.db.Query(`
		SELECT sink, received_at, envelope
		FROM replay_frames
		WHERE session = ?
		ORDER BY received_at, id
	`, session)
	if err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var frame Frame
		var data []byte
		if err := rows.Scan(&frame.Sink, &frame.ReceivedAt, &data); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if err := json.Unmarshal(data, &frame.Envelope); err != nil {
			return nil, fmt.Errorf("unmarshal envelope: %w", err)
		}
		frames = append(frames, frame)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// Sessions implements Archive.
func (a *SQLiteArchive) Sessions() ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, ErrArchiveClosed
	}

	rows, err := a.db.Query(`
		SELECT DISTINCT session FROM replay_frames ORDER BY session
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Close implements Archive.
func (a *SQLiteArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	a.closed = true
	return a.db.Close()
}

// ArchiveTo saves the recorder's frames, ordered by receipt time, under the
// named session.
func (r *Recorder) ArchiveTo(archive Archive, session string) error {
	return archive.Save(session, r.sorted())
}
