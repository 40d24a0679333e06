// Tasks table accessor.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// CreateTask records a unit of follow-up work in the open status.
func (s *Store) CreateTask(sessionID, title, detail string) (*types.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, types.WrapInvalid("task title is empty")
	}
	if err := s.requireSession(sessionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &types.Task{
		ID:        newID(),
		SessionID: sessionID,
		Title:     title,
		Status:    types.InitialStatus(types.KindTask),
		Detail:    detail,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := insertTask(tx, t, false); err != nil {
		return nil, err
	}
	if err := auditInTx(tx, types.KindTask, t.ID, types.AuditCreated, sessionID, "", formatTime(now)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing task: %w", err)
	}

	s.appendTrail(createOp(types.KindTask, t.ID, sessionID, now, t))
	return t, nil
}

// GetTask retrieves one task by id.
func (s *Store) GetTask(id string) (*types.Task, error) {
	row := s.db.QueryRow(
		"SELECT id, session_id, title, status, detail, created_at, updated_at FROM tasks WHERE id = ?", id,
	)
	t, err := hydrateTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return t, nil
}

// ListTasks returns tasks newest first. Either filter may be empty.
func (s *Store) ListTasks(sessionID, status string) ([]*types.Task, error) {
	query := "SELECT id, session_id, title, status, detail, created_at, updated_at FROM tasks"
	var conditions []string
	var args []any
	if sessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, sessionID)
	}
	if status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*types.Task{}
	for rows.Next() {
		t, err := hydrateTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

func insertTask(q queryer, t *types.Task, orIgnore bool) (bool, error) {
	stmt := "INSERT INTO tasks (id, session_id, title, status, detail, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	if orIgnore {
		stmt = "INSERT OR IGNORE" + strings.TrimPrefix(stmt, "INSERT")
	}
	res, err := q.Exec(stmt,
		t.ID, t.SessionID, t.Title, t.Status, t.Detail,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting task %s: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting task %s: %w", t.ID, err)
	}
	return n > 0, nil
}

func hydrateTask(scan func(...any) error) (*types.Task, error) {
	var t types.Task
	var createdAt, updatedAt string
	if err := scan(&t.ID, &t.SessionID, &t.Title, &t.Status, &t.Detail, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
