// Insights table accessor.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// CreateInsight records a distilled conclusion.
func (s *Store) CreateInsight(sessionID, content string) (*types.Insight, error) {
	if strings.TrimSpace(content) == "" {
		return nil, types.WrapInvalid("insight content is empty")
	}
	if err := s.requireSession(sessionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	in := &types.Insight{
		ID:        newID(),
		SessionID: sessionID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := insertInsight(tx, in, false); err != nil {
		return nil, err
	}
	if err := auditInTx(tx, types.KindInsight, in.ID, types.AuditCreated, sessionID, "", formatTime(now)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing insight: %w", err)
	}

	s.appendTrail(createOp(types.KindInsight, in.ID, sessionID, now, in))
	return in, nil
}

// GetInsight retrieves one insight by id.
func (s *Store) GetInsight(id string) (*types.Insight, error) {
	row := s.db.QueryRow(
		"SELECT id, session_id, content, created_at, updated_at FROM insights WHERE id = ?", id,
	)
	in, err := hydrateInsight(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting insight %s: %w", id, err)
	}
	return in, nil
}

// ListInsights returns insights newest first, optionally filtered by
// session.
func (s *Store) ListInsights(sessionID string) ([]*types.Insight, error) {
	query := "SELECT id, session_id, content, created_at, updated_at FROM insights"
	var args []any
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}
	defer rows.Close()

	insights := []*types.Insight{}
	for rows.Next() {
		in, err := hydrateInsight(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating insight: %w", err)
		}
		insights = append(insights, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating insights: %w", err)
	}
	return insights, nil
}

func insertInsight(q queryer, in *types.Insight, orIgnore bool) (bool, error) {
	stmt := "INSERT INTO insights (id, session_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
	if orIgnore {
		stmt = "INSERT OR IGNORE" + strings.TrimPrefix(stmt, "INSERT")
	}
	res, err := q.Exec(stmt,
		in.ID, in.SessionID, in.Content,
		formatTime(in.CreatedAt), formatTime(in.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting insight %s: %w", in.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting insight %s: %w", in.ID, err)
	}
	return n > 0, nil
}

func hydrateInsight(scan func(...any) error) (*types.Insight, error) {
	var in types.Insight
	var createdAt, updatedAt string
	if err := scan(&in.ID, &in.SessionID, &in.Content, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if in.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if in.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &in, nil
}
