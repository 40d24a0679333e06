package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// auditInTx appends one audit row inside the caller's transaction, so
// the mutation and its audit record commit or roll back together.
func auditInTx(tx queryer, kind types.EntityKind, id, action, sessionID, detail, at string) error {
	_, err := tx.Exec(
		"INSERT INTO audit_trail (entity_type, entity_id, action, session_id, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		string(kind), id, action, sessionID, detail, at,
	)
	if err != nil {
		return fmt.Errorf("recording audit %s %s/%s: %w", action, kind, id, err)
	}
	return nil
}

// AuditFor returns the audit rows for one entity, oldest first.
func (s *Store) AuditFor(kind types.EntityKind, id string) ([]types.AuditEntry, error) {
	rows, err := s.db.Query(
		"SELECT id, entity_type, entity_id, action, session_id, detail, created_at FROM audit_trail WHERE entity_type = ? AND entity_id = ? ORDER BY id ASC",
		string(kind), id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit trail: %w", err)
	}
	defer rows.Close()

	var entries []types.AuditEntry
	for rows.Next() {
		var e types.AuditEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.SessionID, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}
	return entries, nil
}
