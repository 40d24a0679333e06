// Entity links table accessor. Links are the edges the graph engine
// loads; the decision accessors also mirror outcomes and precedent
// references into this table so the graph sees one edge set.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// Link creates a typed edge between two existing records. Creating the
// same edge twice returns ErrAlreadyExists.
func (s *Store) Link(sourceType types.EntityKind, sourceID string, targetType types.EntityKind, targetID string, relation types.Relation) (*types.EntityLink, error) {
	now := time.Now().UTC()
	link := &types.EntityLink{
		ID:         newID(),
		SourceType: sourceType,
		SourceID:   sourceID,
		TargetType: targetType,
		TargetID:   targetID,
		Relation:   relation,
		CreatedAt:  now,
	}
	if err := link.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sessionID, err := requireEndpoint(tx, sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	if _, err := requireEndpoint(tx, targetType, targetID); err != nil {
		return nil, err
	}

	inserted, err := insertLink(tx, link, true)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, fmt.Errorf("link %s %s -%s-> %s %s: %w",
			sourceType, sourceID, relation, targetType, targetID, types.ErrAlreadyExists)
	}

	detail := fmt.Sprintf("%s -> %s/%s", relation, targetType, targetID)
	if err := auditInTx(tx, sourceType, sourceID, types.AuditLinked, sessionID, detail, formatTime(now)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing link: %w", err)
	}

	data, _ := json.Marshal(link)
	s.appendTrail(types.TrailOperation{
		Version:  types.TrailVersionMin,
		TS:       now,
		Session:  sessionID,
		Op:       types.OpLink,
		Entity:   types.KindEntityLink,
		EntityID: link.ID,
		Data:     data,
	})
	return link, nil
}

// Unlink removes a typed edge.
func (s *Store) Unlink(sourceType types.EntityKind, sourceID string, targetType types.EntityKind, targetID string, relation types.Relation) error {
	now := time.Now().UTC()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var linkID string
	err = tx.QueryRow(
		"SELECT id FROM entity_links WHERE source_type = ? AND source_id = ? AND target_type = ? AND target_id = ? AND relation = ?",
		string(sourceType), sourceID, string(targetType), targetID, string(relation),
	).Scan(&linkID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("link %s %s -%s-> %s %s: %w",
			sourceType, sourceID, relation, targetType, targetID, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("finding link: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM entity_links WHERE id = ?", linkID); err != nil {
		return fmt.Errorf("deleting link %s: %w", linkID, err)
	}

	sessionID, err := requireEndpoint(tx, sourceType, sourceID)
	if err != nil {
		return err
	}
	detail := fmt.Sprintf("%s -> %s/%s", relation, targetType, targetID)
	if err := auditInTx(tx, sourceType, sourceID, types.AuditUnlinked, sessionID, detail, formatTime(now)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing unlink: %w", err)
	}

	data, _ := json.Marshal(map[string]string{
		"source_type": string(sourceType),
		"source_id":   sourceID,
		"target_type": string(targetType),
		"target_id":   targetID,
		"relation":    string(relation),
	})
	s.appendTrail(types.TrailOperation{
		Version:  types.TrailVersionMin,
		TS:       now,
		Session:  sessionID,
		Op:       types.OpUnlink,
		Entity:   types.KindEntityLink,
		EntityID: linkID,
		Data:     data,
	})
	return nil
}

// LinksFor returns every link touching the given record, as source or
// target, oldest first.
func (s *Store) LinksFor(kind types.EntityKind, id string) ([]*types.EntityLink, error) {
	rows, err := s.db.Query(
		"SELECT id, source_type, source_id, target_type, target_id, relation, created_at FROM entity_links WHERE (source_type = ? AND source_id = ?) OR (target_type = ? AND target_id = ?) ORDER BY created_at ASC, id ASC",
		string(kind), id, string(kind), id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing links for %s %s: %w", kind, id, err)
	}
	defer rows.Close()
	return collectLinks(rows)
}

// AllLinks returns every link in deterministic order. The graph engine
// builds from this.
func (s *Store) AllLinks() ([]*types.EntityLink, error) {
	rows, err := s.db.Query(
		"SELECT id, source_type, source_id, target_type, target_id, relation, created_at FROM entity_links ORDER BY id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	defer rows.Close()
	return collectLinks(rows)
}

func collectLinks(rows *sql.Rows) ([]*types.EntityLink, error) {
	links := []*types.EntityLink{}
	for rows.Next() {
		link, err := hydrateLink(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links: %w", err)
	}
	return links, nil
}

func insertLink(q queryer, link *types.EntityLink, orIgnore bool) (bool, error) {
	stmt := "INSERT INTO entity_links (id, source_type, source_id, target_type, target_id, relation, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	if orIgnore {
		stmt = "INSERT OR IGNORE" + strings.TrimPrefix(stmt, "INSERT")
	}
	res, err := q.Exec(stmt,
		link.ID, string(link.SourceType), link.SourceID,
		string(link.TargetType), link.TargetID, string(link.Relation),
		formatTime(link.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting link %s: %w", link.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting link %s: %w", link.ID, err)
	}
	return n > 0, nil
}

func hydrateLink(scan func(...any) error) (*types.EntityLink, error) {
	var link types.EntityLink
	var sourceType, targetType, relation, createdAt string
	if err := scan(&link.ID, &sourceType, &link.SourceID, &targetType, &link.TargetID, &relation, &createdAt); err != nil {
		return nil, err
	}
	link.SourceType = types.EntityKind(sourceType)
	link.TargetType = types.EntityKind(targetType)
	link.Relation = types.Relation(relation)
	var err error
	if link.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &link, nil
}

// requireEndpoint verifies a link endpoint exists and returns its
// session for audit attribution. Links and audit rows cannot
// themselves be endpoints.
func requireEndpoint(tx queryer, kind types.EntityKind, id string) (string, error) {
	if kind == types.KindDecision {
		var sessionID string
		err := tx.QueryRow("SELECT session_id FROM decisions WHERE id = ?", id).Scan(&sessionID)
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("decision %s: %w", id, types.ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("resolving decision %s: %w", id, err)
		}
		return sessionID, nil
	}
	meta, ok := entityTables[kind]
	if !ok {
		return "", types.WrapInvalid("kind %q cannot be a link endpoint", kind)
	}
	return sessionOf(tx, meta, id)
}
