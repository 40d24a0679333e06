// Hypotheses table accessor.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// CreateHypothesis records a proposed explanation in the unverified
// status.
func (s *Store) CreateHypothesis(sessionID, statement string) (*types.Hypothesis, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, types.WrapInvalid("hypothesis statement is empty")
	}
	if err := s.requireSession(sessionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	h := &types.Hypothesis{
		ID:        newID(),
		SessionID: sessionID,
		Statement: statement,
		Status:    types.InitialStatus(types.KindHypothesis),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := insertHypothesis(tx, h, false); err != nil {
		return nil, err
	}
	if err := auditInTx(tx, types.KindHypothesis, h.ID, types.AuditCreated, sessionID, "", formatTime(now)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing hypothesis: %w", err)
	}

	s.appendTrail(createOp(types.KindHypothesis, h.ID, sessionID, now, h))
	return h, nil
}

// GetHypothesis retrieves one hypothesis by id.
func (s *Store) GetHypothesis(id string) (*types.Hypothesis, error) {
	row := s.db.QueryRow(
		"SELECT id, session_id, statement, status, created_at, updated_at FROM hypotheses WHERE id = ?", id,
	)
	h, err := hydrateHypothesis(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting hypothesis %s: %w", id, err)
	}
	return h, nil
}

// ListHypotheses returns hypotheses newest first, optionally filtered
// by session.
func (s *Store) ListHypotheses(sessionID string) ([]*types.Hypothesis, error) {
	query := "SELECT id, session_id, statement, status, created_at, updated_at FROM hypotheses"
	var args []any
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing hypotheses: %w", err)
	}
	defer rows.Close()

	hypotheses := []*types.Hypothesis{}
	for rows.Next() {
		h, err := hydrateHypothesis(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating hypothesis: %w", err)
		}
		hypotheses = append(hypotheses, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hypotheses: %w", err)
	}
	return hypotheses, nil
}

func insertHypothesis(q queryer, h *types.Hypothesis, orIgnore bool) (bool, error) {
	stmt := "INSERT INTO hypotheses (id, session_id, statement, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
	if orIgnore {
		stmt = "INSERT OR IGNORE" + strings.TrimPrefix(stmt, "INSERT")
	}
	res, err := q.Exec(stmt,
		h.ID, h.SessionID, h.Statement, h.Status,
		formatTime(h.CreatedAt), formatTime(h.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting hypothesis %s: %w", h.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting hypothesis %s: %w", h.ID, err)
	}
	return n > 0, nil
}

func hydrateHypothesis(scan func(...any) error) (*types.Hypothesis, error) {
	var h types.Hypothesis
	var createdAt, updatedAt string
	if err := scan(&h.ID, &h.SessionID, &h.Statement, &h.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}
