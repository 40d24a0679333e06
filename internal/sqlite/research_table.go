// Research items table accessor.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// CreateResearchItem opens a new question in the open status.
func (s *Store) CreateResearchItem(sessionID, question string) (*types.ResearchItem, error) {
	if strings.TrimSpace(question) == "" {
		return nil, types.WrapInvalid("research question is empty")
	}
	if err := s.requireSession(sessionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r := &types.ResearchItem{
		ID:        newID(),
		SessionID: sessionID,
		Question:  question,
		Status:    types.InitialStatus(types.KindResearch),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := insertResearchItem(tx, r, false); err != nil {
		return nil, err
	}
	if err := auditInTx(tx, types.KindResearch, r.ID, types.AuditCreated, sessionID, "", formatTime(now)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing research item: %w", err)
	}

	s.appendTrail(createOp(types.KindResearch, r.ID, sessionID, now, r))
	return r, nil
}

// GetResearchItem retrieves one research item by id.
func (s *Store) GetResearchItem(id string) (*types.ResearchItem, error) {
	row := s.db.QueryRow(
		"SELECT id, session_id, question, status, notes, created_at, updated_at FROM research_items WHERE id = ?", id,
	)
	r, err := hydrateResearchItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting research item %s: %w", id, err)
	}
	return r, nil
}

// ListResearchItems returns research items newest first, optionally
// filtered by session.
func (s *Store) ListResearchItems(sessionID string) ([]*types.ResearchItem, error) {
	query := "SELECT id, session_id, question, status, notes, created_at, updated_at FROM research_items"
	var args []any
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing research items: %w", err)
	}
	defer rows.Close()

	items := []*types.ResearchItem{}
	for rows.Next() {
		r, err := hydrateResearchItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating research item: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating research items: %w", err)
	}
	return items, nil
}

func insertResearchItem(q queryer, r *types.ResearchItem, orIgnore bool) (bool, error) {
	stmt := "INSERT INTO research_items (id, session_id, question, status, notes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	if orIgnore {
		stmt = "INSERT OR IGNORE" + strings.TrimPrefix(stmt, "INSERT")
	}
	res, err := q.Exec(stmt,
		r.ID, r.SessionID, r.Question, r.Status, r.Notes,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting research item %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting research item %s: %w", r.ID, err)
	}
	return n > 0, nil
}

func hydrateResearchItem(scan func(...any) error) (*types.ResearchItem, error) {
	var r types.ResearchItem
	var createdAt, updatedAt string
	if err := scan(&r.ID, &r.SessionID, &r.Question, &r.Status, &r.Notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
