// Entity deletion. Decisions are exempt: they supersede, never
// disappear, so the precedent graph keeps its history.
package sqlite

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// DeleteEntity removes a record and every link touching it.
func (s *Store) DeleteEntity(kind types.EntityKind, id string) error {
	now := time.Now().UTC()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sessionID, err := deleteInTx(tx, kind, id)
	if err != nil {
		return err
	}
	if err := auditInTx(tx, kind, id, types.AuditDeleted, sessionID, "", formatTime(now)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}

	s.appendTrail(types.TrailOperation{
		Version:  types.TrailVersionMin,
		TS:       now,
		Session:  sessionID,
		Op:       types.OpDelete,
		Entity:   kind,
		EntityID: id,
	})
	return nil
}

func deleteInTx(tx queryer, kind types.EntityKind, id string) (string, error) {
	meta, ok := entityTables[kind]
	if !ok {
		return "", types.WrapInvalid("kind %q cannot be deleted", kind)
	}
	sessionID, err := sessionOf(tx, meta, id)
	if err != nil {
		return "", err
	}

	if _, err := tx.Exec("DELETE FROM "+meta.table+" WHERE id = ?", id); err != nil {
		return "", fmt.Errorf("deleting %s %s: %w", kind, id, err)
	}
	// Cascade: drop edges and evidence rows pointing at the record.
	if _, err := tx.Exec(
		"DELETE FROM entity_links WHERE (source_type = ? AND source_id = ?) OR (target_type = ? AND target_id = ?)",
		string(kind), id, string(kind), id,
	); err != nil {
		return "", fmt.Errorf("deleting links of %s %s: %w", kind, id, err)
	}
	if _, err := tx.Exec(
		"DELETE FROM decision_option_evidence WHERE entity_type = ? AND entity_id = ?",
		string(kind), id,
	); err != nil {
		return "", fmt.Errorf("deleting evidence rows of %s %s: %w", kind, id, err)
	}
	if _, err := tx.Exec(
		"DELETE FROM decision_outcomes WHERE entity_type = ? AND entity_id = ?",
		string(kind), id,
	); err != nil {
		return "", fmt.Errorf("deleting outcome rows of %s %s: %w", kind, id, err)
	}
	return sessionID, nil
}
