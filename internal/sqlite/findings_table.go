// Findings table accessor. Findings are the evidence rows precedent
// search joins against, keyed by subject.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// CreateFinding records an observed fact against a subject.
func (s *Store) CreateFinding(sessionID, subject, claim string, confidence types.Confidence, source string) (*types.Finding, error) {
	switch {
	case strings.TrimSpace(subject) == "":
		return nil, types.WrapInvalid("finding subject is empty")
	case strings.TrimSpace(claim) == "":
		return nil, types.WrapInvalid("finding claim is empty")
	case !types.ValidConfidence(confidence):
		return nil, types.WrapInvalid("unknown confidence %q", confidence)
	}
	if err := s.requireSession(sessionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	f := &types.Finding{
		ID:         newID(),
		SessionID:  sessionID,
		Subject:    subject,
		Claim:      claim,
		Confidence: confidence,
		Source:     source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := insertFinding(tx, f, false); err != nil {
		return nil, err
	}
	if err := auditInTx(tx, types.KindFinding, f.ID, types.AuditCreated, sessionID, "", formatTime(now)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing finding: %w", err)
	}

	s.appendTrail(createOp(types.KindFinding, f.ID, sessionID, now, f))
	return f, nil
}

// GetFinding retrieves one finding by id.
func (s *Store) GetFinding(id string) (*types.Finding, error) {
	row := s.db.QueryRow(
		"SELECT id, session_id, subject, claim, confidence, source, created_at, updated_at FROM findings WHERE id = ?", id,
	)
	f, err := hydrateFinding(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting finding %s: %w", id, err)
	}
	return f, nil
}

// ListFindings returns findings newest first. Either filter may be
// empty.
func (s *Store) ListFindings(sessionID, subject string) ([]*types.Finding, error) {
	query := "SELECT id, session_id, subject, claim, confidence, source, created_at, updated_at FROM findings"
	var conditions []string
	var args []any
	if sessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, sessionID)
	}
	if subject != "" {
		conditions = append(conditions, "subject = ?")
		args = append(args, subject)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing findings: %w", err)
	}
	defer rows.Close()

	findings := []*types.Finding{}
	for rows.Next() {
		f, err := hydrateFinding(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating finding: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating findings: %w", err)
	}
	return findings, nil
}

// SearchFindings matches query case-insensitively against subject and
// claim. Deterministic order: newest first, id breaks ties.
func (s *Store) SearchFindings(query string, limit int) ([]*types.Finding, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.WrapInvalid("finding search needs a query")
	}
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.Query(
		`SELECT id, session_id, subject, claim, confidence, source, created_at, updated_at
		FROM findings
		WHERE subject LIKE ?1 ESCAPE '\' OR claim LIKE ?1 ESCAPE '\'
		ORDER BY created_at DESC, id DESC LIMIT ?2`,
		pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching findings: %w", err)
	}
	defer rows.Close()

	findings := []*types.Finding{}
	for rows.Next() {
		f, err := hydrateFinding(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating finding: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating findings: %w", err)
	}
	return findings, nil
}

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}

func insertFinding(q queryer, f *types.Finding, orIgnore bool) (bool, error) {
	stmt := "INSERT INTO findings (id, session_id, subject, claim, confidence, source, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if orIgnore {
		stmt = "INSERT OR IGNORE" + strings.TrimPrefix(stmt, "INSERT")
	}
	res, err := q.Exec(stmt,
		f.ID, f.SessionID, f.Subject, f.Claim, string(f.Confidence), f.Source,
		formatTime(f.CreatedAt), formatTime(f.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting finding %s: %w", f.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting finding %s: %w", f.ID, err)
	}
	return n > 0, nil
}

func hydrateFinding(scan func(...any) error) (*types.Finding, error) {
	var f types.Finding
	var confidence, createdAt, updatedAt string
	if err := scan(&f.ID, &f.SessionID, &f.Subject, &f.Claim, &confidence, &f.Source, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	f.Confidence = types.Confidence(confidence)
	var err error
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if f.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}
