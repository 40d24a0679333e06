// Generic partial updates and status transitions. All six entity
// tables share the same shape here; only the column whitelist differs.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// tableMeta describes how the generic paths address one entity table.
type tableMeta struct {
	table      string
	patchCols  []string
	hasStatus  bool
	hasSession bool
}

// entityTables routes the generic update and transition paths. Decision
// rows have their own accessor and are deliberately absent.
var entityTables = map[types.EntityKind]tableMeta{
	types.KindSession:    {table: "sessions", patchCols: []string{"title", "summary"}, hasStatus: true},
	types.KindResearch:   {table: "research_items", patchCols: []string{"question", "notes"}, hasStatus: true, hasSession: true},
	types.KindFinding:    {table: "findings", patchCols: []string{"subject", "claim", "confidence", "source"}, hasSession: true},
	types.KindHypothesis: {table: "hypotheses", patchCols: []string{"statement"}, hasStatus: true, hasSession: true},
	types.KindInsight:    {table: "insights", patchCols: []string{"content"}, hasSession: true},
	types.KindTask:       {table: "tasks", patchCols: []string{"title", "detail"}, hasStatus: true, hasSession: true},
}

// PatchColumns returns the updatable columns for kind, for callers that
// parse patches before handing them to UpdateEntity.
func PatchColumns(kind types.EntityKind) ([]string, error) {
	meta, ok := entityTables[kind]
	if !ok {
		return nil, types.WrapInvalid("kind %q has no generic update path", kind)
	}
	return meta.patchCols, nil
}

// UpdateEntity applies a partial update to one record. Absent patch
// fields keep their column value; explicit nulls clear it.
func (s *Store) UpdateEntity(kind types.EntityKind, id string, patch *types.Patch) error {
	if patch.Empty() {
		return nil
	}
	now := time.Now().UTC()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sessionID, err := updateInTx(tx, kind, id, patch, now)
	if err != nil {
		return err
	}
	detail := strings.Join(patch.Fields(), ",")
	if err := auditInTx(tx, kind, id, types.AuditUpdated, sessionID, detail, formatTime(now)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}

	data, _ := json.Marshal(patch)
	s.appendTrail(types.TrailOperation{
		Version:  types.TrailVersionMin,
		TS:       now,
		Session:  sessionID,
		Op:       types.OpUpdate,
		Entity:   kind,
		EntityID: id,
		Data:     data,
	})
	return nil
}

// updateInTx builds and runs the dynamic UPDATE. It returns the session
// id the record belongs to, for audit and trail attribution.
func updateInTx(tx queryer, kind types.EntityKind, id string, patch *types.Patch, now time.Time) (string, error) {
	meta, ok := entityTables[kind]
	if !ok {
		return "", types.WrapInvalid("kind %q has no generic update path", kind)
	}
	allowed := make(map[string]bool, len(meta.patchCols))
	for _, col := range meta.patchCols {
		allowed[col] = true
	}

	var sets []string
	var args []any
	for _, field := range patch.Fields() {
		if !allowed[field] {
			return "", types.WrapInvalid("field %q is not updatable on %s", field, kind)
		}
		value, err := patch.Value(field)
		if err != nil {
			return "", err
		}
		if field == "confidence" {
			str, _ := value.(string)
			if !types.ValidConfidence(types.Confidence(str)) {
				return "", types.WrapInvalid("unknown confidence %q", str)
			}
		}
		if value == nil {
			// NOT NULL columns clear to their zero value.
			value = ""
		}
		sets = append(sets, field+" = ?")
		args = append(args, value)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(now))
	args = append(args, id)

	sessionID, err := sessionOf(tx, meta, id)
	if err != nil {
		return "", err
	}

	stmt := "UPDATE " + meta.table + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := tx.Exec(stmt, args...); err != nil {
		return "", fmt.Errorf("updating %s %s: %w", kind, id, err)
	}
	return sessionID, nil
}

// Transition moves a record through its lifecycle, rejecting edges the
// kind does not allow.
func (s *Store) Transition(kind types.EntityKind, id, to string) error {
	meta, ok := entityTables[kind]
	if !ok || !meta.hasStatus {
		return types.WrapInvalid("kind %q has no lifecycle", kind)
	}
	now := time.Now().UTC()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var from, sessionCol string
	query := "SELECT status"
	if meta.hasSession {
		query += ", session_id"
	} else {
		query += ", id"
	}
	query += " FROM " + meta.table + " WHERE id = ?"
	if err := tx.QueryRow(query, id).Scan(&from, &sessionCol); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%s %s: %w", kind, id, types.ErrNotFound)
		}
		return fmt.Errorf("reading %s %s status: %w", kind, id, err)
	}
	if !types.CanTransition(kind, from, to) {
		return fmt.Errorf("%s %s: %s -> %s: %w", kind, id, from, to, types.ErrInvalidTransition)
	}

	if err := setStatusInTx(tx, meta.table, id, to, now); err != nil {
		return err
	}
	detail := from + " -> " + to
	if err := auditInTx(tx, kind, id, types.AuditStatusChanged, sessionCol, detail, formatTime(now)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transition: %w", err)
	}

	data, _ := json.Marshal(map[string]string{"from": from, "to": to})
	s.appendTrail(types.TrailOperation{
		Version:  types.TrailVersionMin,
		TS:       now,
		Session:  sessionCol,
		Op:       types.OpTransition,
		Entity:   kind,
		EntityID: id,
		Data:     data,
	})
	return nil
}

func setStatusInTx(tx queryer, table, id, to string, now time.Time) error {
	_, err := tx.Exec(
		"UPDATE "+table+" SET status = ?, updated_at = ? WHERE id = ?",
		to, formatTime(now), id,
	)
	if err != nil {
		return fmt.Errorf("setting %s %s status: %w", table, id, err)
	}
	return nil
}

// sessionOf resolves the session a record belongs to. Sessions belong
// to themselves.
func sessionOf(tx queryer, meta tableMeta, id string) (string, error) {
	if !meta.hasSession {
		ok, err := rowExists(tx, meta.table, id)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%s %s: %w", meta.table, id, types.ErrNotFound)
		}
		return id, nil
	}
	var sessionID string
	err := tx.QueryRow("SELECT session_id FROM "+meta.table+" WHERE id = ?", id).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%s %s: %w", meta.table, id, types.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolving session of %s %s: %w", meta.table, id, err)
	}
	return sessionID, nil
}
