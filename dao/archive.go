package dao

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"voice-aftercare/model"
)

const defaultArchiveLimit = 50

// SQLiteArchive finished consultations in a local SQLite file
type SQLiteArchive struct {
	db *sql.DB
}

func NewSQLiteArchive(dbPath string) (*SQLiteArchive, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}

	a := &SQLiteArchive{db: db}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return a, nil
}

func (a *SQLiteArchive) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS consultations (
		session_id TEXT PRIMARY KEY,
		urgency_level INTEGER NOT NULL,
		is_emergency INTEGER NOT NULL,
		turns INTEGER NOT NULL,
		end_reason TEXT NOT NULL,
		slots_json TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_consultations_ended ON consultations(ended_at);
	`
	if _, err := a.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save upserts one record; archiving the same session twice keeps the later copy
func (a *SQLiteArchive) Save(ctx context.Context, rec model.ArchiveRecord) error {
	if err := validateID(rec.SessionID); err != nil {
		return err
	}
	slots, err := json.Marshal(rec.Slots)
	if err != nil {
		return fmt.Errorf("marshal slots: %w", err)
	}
	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO consultations
			(session_id, urgency_level, is_emergency, turns, end_reason, slots_json, messages_json, created_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			urgency_level = excluded.urgency_level,
			is_emergency = excluded.is_emergency,
			turns = excluded.turns,
			end_reason = excluded.end_reason,
			slots_json = excluded.slots_json,
			messages_json = excluded.messages_json,
			ended_at = excluded.ended_at`,
		rec.SessionID, rec.Urgency, boolToInt(rec.IsEmergency), rec.Turns, string(rec.EndReason),
		string(slots), string(messages), rec.CreatedAt.UnixMilli(), rec.EndedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

// List most recently ended consultations first, without transcripts
func (a *SQLiteArchive) List(ctx context.Context, limit int) ([]model.ArchiveRecord, error) {
	if limit <= 0 {
		limit = defaultArchiveLimit
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT session_id, urgency_level, is_emergency, turns, end_reason, slots_json, '[]', created_at, ended_at
		FROM consultations ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query consultations: %w", err)
	}
	defer rows.Close()

	var out []model.ArchiveRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (a *SQLiteArchive) Get(ctx context.Context, sessionID string) (*model.ArchiveRecord, error) {
	if err := validateID(sessionID); err != nil {
		return nil, err
	}
	row := a.db.QueryRowContext(ctx, `
		SELECT session_id, urgency_level, is_emergency, turns, end_reason, slots_json, messages_json, created_at, ended_at
		FROM consultations WHERE session_id = ?`, sessionID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return rec, err
}

func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*model.ArchiveRecord, error) {
	var (
		rec                model.ArchiveRecord
		emergency          int
		endReason          string
		slots, messages    string
		createdAt, endedAt int64
	)
	err := row.Scan(&rec.SessionID, &rec.Urgency, &emergency, &rec.Turns, &endReason,
		&slots, &messages, &createdAt, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan consultation: %w", err)
	}
	if err := json.Unmarshal([]byte(slots), &rec.Slots); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	if err := json.Unmarshal([]byte(messages), &rec.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	rec.IsEmergency = emergency != 0
	rec.EndReason = model.EndReason(endReason)
	rec.CreatedAt = time.UnixMilli(createdAt)
	rec.EndedAt = time.UnixMilli(endedAt)
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NoopArchive discards records when no archive path is configured
type NoopArchive struct{}

func (NoopArchive) Save(ctx context.Context, rec model.ArchiveRecord) error { return nil }

func (NoopArchive) List(ctx context.Context, limit int) ([]model.ArchiveRecord, error) {
	return nil, nil
}

func (NoopArchive) Get(ctx context.Context, sessionID string) (*model.ArchiveRecord, error) {
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
}
