package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mindreader/internal/affect"
)

// Session records one completed calibration and the settings it ran under.
// Sessions are an audit log; they are never loaded back into an estimator.
type Session struct {
	ID               string                 `json:"id"`
	Baseline         affect.BaselineProfile `json:"baseline"`
	Thresholds       affect.ThresholdSet    `json:"thresholds"`
	Samples          int                    `json:"samples"`
	Rejected         int                    `json:"rejected"`
	ConfusionPolicy  affect.ConfusionPolicy `json:"confusion_policy"`
	SmileSuppression bool                   `json:"smile_suppression"`
	StartedAt        time.Time              `json:"started_at"`
	EndedAt          *time.Time             `json:"ended_at,omitempty"`
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, baseline, thresholds, samples, rejected, confusion_policy, smile_suppression, started_at, ended_at`

// Create inserts a new session. StartedAt defaults to now.
func (r *SessionRepository) Create(s *Session) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}

	baseline, err := json.Marshal(s.Baseline)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	thresholds, err := json.Marshal(s.Thresholds)
	if err != nil {
		return fmt.Errorf("marshal thresholds: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, string(baseline), string(thresholds), s.Samples, s.Rejected,
		string(s.ConfusionPolicy), s.SmileSuppression, s.StartedAt, nullTime(s.EndedAt),
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns sessions newest first. A limit of 0 or less returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// End marks a session as finished.
func (r *SessionRepository) End(id string, at time.Time) error {
	result, err := r.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a session and its transitions.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var baseline, thresholds, policy string
	var suppression int
	var ended sql.NullTime

	err := row.Scan(&s.ID, &baseline, &thresholds, &s.Samples, &s.Rejected,
		&policy, &suppression, &s.StartedAt, &ended)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(baseline), &s.Baseline); err != nil {
		return nil, fmt.Errorf("decode baseline for session %s: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(thresholds), &s.Thresholds); err != nil {
		return nil, fmt.Errorf("decode thresholds for session %s: %w", s.ID, err)
	}
	s.ConfusionPolicy = affect.ConfusionPolicy(policy)
	s.SmileSuppression = suppression != 0
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
