// Session table accessor. Sessions shard the trail: every mutation an
// accessor emits carries the session id, and the writer routes it to
// that session's file.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// CreateSession opens a new session in the active status.
func (s *Store) CreateSession(title string) (*types.Session, error) {
	if strings.TrimSpace(title) == "" {
		return nil, types.WrapInvalid("session title is empty")
	}

	now := time.Now().UTC()
	sess := &types.Session{
		ID:        newID(),
		Title:     title,
		Status:    types.InitialStatus(types.KindSession),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := insertSession(tx, sess, false); err != nil {
		return nil, err
	}
	if err := auditInTx(tx, types.KindSession, sess.ID, types.AuditCreated, sess.ID, "", formatTime(now)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing session: %w", err)
	}

	s.appendTrail(createOp(types.KindSession, sess.ID, sess.ID, now, sess))
	return sess, nil
}

// GetSession retrieves one session by id.
func (s *Store) GetSession(id string) (*types.Session, error) {
	row := s.db.QueryRow(
		"SELECT id, title, status, summary, created_at, updated_at FROM sessions WHERE id = ?", id,
	)
	sess, err := hydrateSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns sessions newest first, optionally filtered by
// status.
func (s *Store) ListSessions(status string) ([]*types.Session, error) {
	query := "SELECT id, title, status, summary, created_at, updated_at FROM sessions"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*types.Session{}
	for rows.Next() {
		sess, err := hydrateSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// insertSession writes one session row. With orIgnore the insert is
// first-writer-wins and the return value reports whether a row landed.
func insertSession(q queryer, sess *types.Session, orIgnore bool) (bool, error) {
	stmt := "INSERT INTO sessions (id, title, status, summary, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
	if orIgnore {
		stmt = "INSERT OR IGNORE" + strings.TrimPrefix(stmt, "INSERT")
	}
	res, err := q.Exec(stmt,
		sess.ID, sess.Title, sess.Status, sess.Summary,
		formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting session %s: %w", sess.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting session %s: %w", sess.ID, err)
	}
	return n > 0, nil
}

func hydrateSession(scan func(...any) error) (*types.Session, error) {
	var sess types.Session
	var createdAt, updatedAt string
	if err := scan(&sess.ID, &sess.Title, &sess.Status, &sess.Summary, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sess.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

// requireSession fails with ErrNotFound unless the session exists.
// Child records never point at a session the store has not seen.
func (s *Store) requireSession(id string) error {
	ok, err := rowExists(s.db, "sessions", id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// createOp builds the trail operation for a freshly created record.
func createOp(kind types.EntityKind, id, sessionID string, at time.Time, payload any) types.TrailOperation {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return types.TrailOperation{
		Version:  types.TrailVersionMin,
		TS:       at,
		Session:  sessionID,
		Op:       types.OpCreate,
		Entity:   kind,
		EntityID: id,
		Data:     data,
	}
}
