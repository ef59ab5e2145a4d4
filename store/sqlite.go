package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"dinomed-server/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    payload TEXT NOT NULL,
    finished INTEGER NOT NULL DEFAULT 0,
    answers TEXT,
    result TEXT
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    session_id TEXT NOT NULL,
    created_at TEXT NOT NULL,
    correct INTEGER NOT NULL,
    wrong INTEGER NOT NULL,
    blank INTEGER NOT NULL,
    score_total REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_email ON runs(email);
`

// SQLiteStore is the durable session store. Sessions are serialized as JSON
// payloads; the finished flag lives in its own column so the check-and-set on
// submit can ride a single conditional UPDATE.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewSQLiteStore(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session schema: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session %s: %w", session.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, payload, finished)
		VALUES (?, ?, ?, 0)
	`, session.ID, session.CreatedAt.Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var payload string
	var finished int
	var answers, result sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, finished, answers, result FROM sessions WHERE id = ?
	`, id).Scan(&payload, &finished, &answers, &result)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	session.Finished = finished == 1
	if answers.Valid && answers.String != "" {
		if err := json.Unmarshal([]byte(answers.String), &session.Answers); err != nil {
			return nil, fmt.Errorf("decoding answers for session %s: %w", id, err)
		}
	}
	if result.Valid && result.String != "" {
		session.Result = &models.SubmissionResult{}
		if err := json.Unmarshal([]byte(result.String), session.Result); err != nil {
			return nil, fmt.Errorf("decoding result for session %s: %w", id, err)
		}
	}

	if s.ttl > 0 && time.Since(session.CreatedAt) > s.ttl {
		return nil, ErrNotFound
	}
	return &session, nil
}

func (s *SQLiteStore) Finish(ctx context.Context, id string, answers map[string]string, result *models.SubmissionResult) (*models.SubmissionResult, bool, error) {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, false, fmt.Errorf("marshaling answers for session %s: %w", id, err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, false, fmt.Errorf("marshaling result for session %s: %w", id, err)
	}

	// The WHERE clause is the compare-and-swap: only one caller can flip
	// finished from 0 to 1.
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET finished = 1, answers = ?, result = ?
		WHERE id = ? AND finished = 0
	`, string(answersJSON), string(resultJSON), id)
	if err != nil {
		return nil, false, fmt.Errorf("finishing session %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("finishing session %s: %w", id, err)
	}
	if affected == 1 {
		return result, true, nil
	}

	// Lost the race (or the session never existed): return what is stored.
	var stored sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT result FROM sessions WHERE id = ?`, id).Scan(&stored)
	if err == sql.ErrNoRows {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading cached result for session %s: %w", id, err)
	}
	cached := &models.SubmissionResult{}
	if !stored.Valid || stored.String == "" {
		return nil, false, fmt.Errorf("session %s finished without a stored result", id)
	}
	if err := json.Unmarshal([]byte(stored.String), cached); err != nil {
		return nil, false, fmt.Errorf("decoding cached result for session %s: %w", id, err)
	}
	return cached, false, nil
}

func (s *SQLiteStore) Sweep(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.ttl).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run models.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, email, session_id, created_at, correct, wrong, blank, score_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Email, run.SessionID, run.CreatedAt.Format(time.RFC3339Nano),
		run.Correct, run.Wrong, run.Blank, run.ScoreTotal)
	if err != nil {
		return fmt.Errorf("recording run for %s: %w", run.Email, err)
	}
	return nil
}

func (s *SQLiteStore) RunsByEmail(ctx context.Context, email string) ([]models.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, session_id, created_at, correct, wrong, blank, score_total
		FROM runs WHERE email = ? COLLATE NOCASE
		ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("querying runs for %s: %w", email, err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var r models.Run
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Email, &r.SessionID, &createdAt, &r.Correct, &r.Wrong, &r.Blank, &r.ScoreTotal); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
