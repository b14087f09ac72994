package store

import (
	"database/sql"
	"time"

	"github.com/ayusman/mindreader/internal/affect"
)

// Transition records a change of resolved state within a session.
type Transition struct {
	ID        int64        `json:"id"`
	SessionID string       `json:"session_id"`
	From      affect.State `json:"from"`
	To        affect.State `json:"to"`
	Detail    string       `json:"detail"`
	Fatigue   float64      `json:"fatigue"`
	Confusion float64      `json:"confusion"`
	Joy       float64      `json:"joy"`
	CreatedAt time.Time    `json:"created_at"`
}

// TransitionRepository provides operations for state transitions.
type TransitionRepository struct {
	db *sql.DB
}

// Transitions returns the transition repository for this store.
func (s *Store) Transitions() *TransitionRepository {
	return &TransitionRepository{db: s.db}
}

// Create inserts a transition and sets its ID. CreatedAt defaults to now.
func (r *TransitionRepository) Create(t *Transition) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO transitions (session_id, from_state, to_state, detail, fatigue, confusion, joy, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, string(t.From), string(t.To), t.Detail, t.Fatigue, t.Confusion, t.Joy, t.CreatedAt,
	)
	if err != nil {
		return err
	}

	t.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's transitions in the order they happened.
func (r *TransitionRepository) ListBySession(sessionID string) ([]*Transition, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, from_state, to_state, detail, fatigue, confusion, joy, created_at
		 FROM transitions WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []*Transition
	for rows.Next() {
		t := &Transition{}
		var from, to string
		err := rows.Scan(&t.ID, &t.SessionID, &from, &to, &t.Detail, &t.Fatigue, &t.Confusion, &t.Joy, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		t.From = affect.State(from)
		t.To = affect.State(to)
		transitions = append(transitions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transitions, nil
}

// CountByState returns how many times each state was entered in a session.
func (r *TransitionRepository) CountByState(sessionID string) (map[affect.State]int, error) {
	rows, err := r.db.Query(
		`SELECT to_state, COUNT(*) FROM transitions WHERE session_id = ? GROUP BY to_state`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[affect.State]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[affect.State(state)] = n
	}
	return counts, rows.Err()
}
