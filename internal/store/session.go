package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is the record of one finished challenge run.
type Session struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	Level          int       `json:"level"`
	Score          int       `json:"score"`
	PosesCompleted int       `json:"poses_completed"`
	TargetSeconds  float64   `json:"target_seconds"`
}

// Duration is the wall-clock length of the session.
func (s *Session) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// SessionRepository stores session history.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create records a finished session.
func (r *SessionRepository) Create(s *Session) error {
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at, ended_at, level, score, poses_completed, target_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.StartedAt, s.EndedAt, s.Level, s.Score, s.PosesCompleted, s.TargetSeconds,
	)
	return err
}

// List returns up to limit sessions, most recent first. limit <= 0 returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	q := `SELECT id, started_at, ended_at, level, score, poses_completed, target_seconds
		  FROM sessions ORDER BY ended_at DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.EndedAt, &s.Level, &s.Score, &s.PosesCompleted, &s.TargetSeconds); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Best returns the highest-scoring session, or ErrNotFound when there are none.
func (r *SessionRepository) Best() (*Session, error) {
	s := &Session{}
	err := r.db.QueryRow(
		`SELECT id, started_at, ended_at, level, score, poses_completed, target_seconds
		 FROM sessions ORDER BY score DESC, ended_at DESC LIMIT 1`,
	).Scan(&s.ID, &s.StartedAt, &s.EndedAt, &s.Level, &s.Score, &s.PosesCompleted, &s.TargetSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
