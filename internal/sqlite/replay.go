// Replay application: one trail operation becomes one transaction. The
// trail replayer reads, sorts, and validates envelopes, then hands
// them here one at a time. Where the live accessors are permissive
// about duplicates, replay is first-writer-wins via INSERT OR IGNORE;
// where the live accessors warn, replay fails hard, because a trail
// that does not apply cleanly means the source of truth is damaged.
package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// Apply replays a single validated trail operation in its own
// transaction. It reports whether a new entity row was created, so the
// replayer can count them.
func (s *Store) Apply(op types.TrailOperation) (created bool, err error) {
	if op.Version < types.TrailVersionMin || op.Version > types.TrailVersionMax {
		return false, fmt.Errorf("op %s %s/%s v%d: %w",
			op.Op, op.Entity, op.EntityID, op.Version, types.ErrUnsupportedVersion)
	}
	if !types.KnownOp(op.Op) {
		return false, fmt.Errorf("op %q on %s/%s: %w",
			op.Op, op.Entity, op.EntityID, types.ErrUnknownOperation)
	}

	tx, err := s.begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	switch op.Op {
	case types.OpCreate:
		created, err = applyCreate(tx, op)
	case types.OpUpdate:
		err = applyUpdate(tx, op)
	case types.OpDelete:
		err = applyDelete(tx, op)
	case types.OpTransition:
		err = applyTransition(tx, op)
	case types.OpLink:
		created, err = applyLink(tx, op)
	case types.OpUnlink:
		err = applyUnlink(tx, op)
	case types.OpDecisionCreate:
		created, err = applyDecisionCreate(tx, op)
	case types.OpDecisionUpdate:
		err = applyDecisionUpdate(tx, op)
	case types.OpDecisionSupersede:
		err = applyDecisionSupersede(tx, op)
	case types.OpDecisionLinkPrecedent:
		err = applyDecisionLinkPrecedent(tx, op)
	}
	if err != nil {
		return false, fmt.Errorf("applying %s %s/%s: %w", op.Op, op.Entity, op.EntityID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing %s %s/%s: %w", op.Op, op.Entity, op.EntityID, err)
	}
	return created, nil
}

func applyCreate(tx queryer, op types.TrailOperation) (bool, error) {
	var inserted bool
	var err error
	switch op.Entity {
	case types.KindSession:
		var sess types.Session
		if err := strictDecode(op.Data, &sess); err != nil {
			return false, err
		}
		inserted, err = insertSession(tx, &sess, true)
	case types.KindResearch:
		var r types.ResearchItem
		if err := strictDecode(op.Data, &r); err != nil {
			return false, err
		}
		inserted, err = insertResearchItem(tx, &r, true)
	case types.KindFinding:
		var f types.Finding
		if err := strictDecode(op.Data, &f); err != nil {
			return false, err
		}
		inserted, err = insertFinding(tx, &f, true)
	case types.KindHypothesis:
		var h types.Hypothesis
		if err := strictDecode(op.Data, &h); err != nil {
			return false, err
		}
		inserted, err = insertHypothesis(tx, &h, true)
	case types.KindInsight:
		var in types.Insight
		if err := strictDecode(op.Data, &in); err != nil {
			return false, err
		}
		inserted, err = insertInsight(tx, &in, true)
	case types.KindTask:
		var t types.Task
		if err := strictDecode(op.Data, &t); err != nil {
			return false, err
		}
		inserted, err = insertTask(tx, &t, true)
	default:
		return false, fmt.Errorf("create %q: %w", op.Entity, types.ErrUnknownOperation)
	}
	if err != nil {
		return false, err
	}
	if inserted {
		if err := auditInTx(tx, op.Entity, op.EntityID, types.AuditCreated, op.Session, "", formatTime(op.TS)); err != nil {
			return false, err
		}
	}
	return inserted, nil
}

func applyUpdate(tx queryer, op types.TrailOperation) error {
	cols, err := PatchColumns(op.Entity)
	if err != nil {
		return err
	}
	patch, err := types.ParsePatch(op.Data, cols)
	if err != nil {
		return err
	}
	sessionID, err := updateInTx(tx, op.Entity, op.EntityID, patch, op.TS)
	if err != nil {
		return err
	}
	// Same detail string the live path writes, so a rebuilt audit_trail
	// matches the original row for row.
	detail := strings.Join(patch.Fields(), ",")
	return auditInTx(tx, op.Entity, op.EntityID, types.AuditUpdated, sessionID, detail, formatTime(op.TS))
}

func applyDelete(tx queryer, op types.TrailOperation) error {
	sessionID, err := deleteInTx(tx, op.Entity, op.EntityID)
	if err != nil {
		return err
	}
	return auditInTx(tx, op.Entity, op.EntityID, types.AuditDeleted, sessionID, "", formatTime(op.TS))
}

func applyTransition(tx queryer, op types.TrailOperation) error {
	meta, ok := entityTables[op.Entity]
	if !ok || !meta.hasStatus {
		return types.WrapInvalid("kind %q has no lifecycle", op.Entity)
	}
	var move struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := strictDecode(op.Data, &move); err != nil {
		return err
	}
	if move.To == "" {
		return types.WrapInvalid("transition without a target status")
	}
	if err := setStatusInTx(tx, meta.table, op.EntityID, move.To, op.TS); err != nil {
		return err
	}
	detail := move.From + " -> " + move.To
	return auditInTx(tx, op.Entity, op.EntityID, types.AuditStatusChanged, op.Session, detail, formatTime(op.TS))
}

func applyLink(tx queryer, op types.TrailOperation) (bool, error) {
	var link types.EntityLink
	if err := strictDecode(op.Data, &link); err != nil {
		return false, err
	}
	if err := link.Validate(); err != nil {
		return false, err
	}
	inserted, err := insertLink(tx, &link, true)
	if err != nil {
		return false, err
	}
	if inserted {
		detail := fmt.Sprintf("%s -> %s/%s", link.Relation, link.TargetType, link.TargetID)
		if err := auditInTx(tx, link.SourceType, link.SourceID, types.AuditLinked, op.Session, detail, formatTime(op.TS)); err != nil {
			return false, err
		}
	}
	return inserted, nil
}

func applyUnlink(tx queryer, op types.TrailOperation) error {
	var ident struct {
		SourceType string `json:"source_type"`
		SourceID   string `json:"source_id"`
		TargetType string `json:"target_type"`
		TargetID   string `json:"target_id"`
		Relation   string `json:"relation"`
	}
	if err := strictDecode(op.Data, &ident); err != nil {
		return err
	}
	if ident.SourceID == "" || ident.TargetID == "" || ident.Relation == "" {
		return types.WrapInvalid("unlink without a full edge identity")
	}
	if _, err := tx.Exec(
		"DELETE FROM entity_links WHERE source_type = ? AND source_id = ? AND target_type = ? AND target_id = ? AND relation = ?",
		ident.SourceType, ident.SourceID, ident.TargetType, ident.TargetID, ident.Relation,
	); err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}
	detail := fmt.Sprintf("%s -> %s/%s", ident.Relation, ident.TargetType, ident.TargetID)
	return auditInTx(tx, types.EntityKind(ident.SourceType), ident.SourceID, types.AuditUnlinked, op.Session, detail, formatTime(op.TS))
}

func applyDecisionCreate(tx queryer, op types.TrailOperation) (bool, error) {
	var nd types.NewDecision
	if err := strictDecode(op.Data, &nd); err != nil {
		return false, err
	}
	if len(nd.Links) > 0 && op.Version < 2 {
		return false, fmt.Errorf("decision links need envelope v2: %w", types.ErrUnsupportedVersion)
	}
	if err := nd.Validate(); err != nil {
		return false, err
	}
	inserted, err := insertDecisionUnit(tx, &nd, true)
	if err != nil {
		return false, err
	}
	if inserted {
		if err := auditInTx(tx, types.KindDecision, nd.Decision.ID, types.AuditCreated, op.Session, "", formatTime(op.TS)); err != nil {
			return false, err
		}
	}
	return inserted, nil
}

func applyDecisionUpdate(tx queryer, op types.TrailOperation) error {
	patch, err := types.ParsePatch(op.Data, decisionPatchCols)
	if err != nil {
		return err
	}
	sessionID, err := applyDecisionPatch(tx, op.EntityID, patch, op.TS)
	if err != nil {
		return err
	}
	detail := strings.Join(patch.Fields(), ",")
	return auditInTx(tx, types.KindDecision, op.EntityID, types.AuditUpdated, sessionID, detail, formatTime(op.TS))
}

func applyDecisionSupersede(tx queryer, op types.TrailOperation) error {
	var body struct {
		By string `json:"by"`
	}
	if err := strictDecode(op.Data, &body); err != nil {
		return err
	}
	if body.By == "" {
		return types.WrapInvalid("supersede without a successor id")
	}
	link := &types.EntityLink{
		ID:         mirrorLinkID(types.KindDecision, body.By, types.KindDecision, op.EntityID, types.RelationSupersedes),
		SourceType: types.KindDecision,
		SourceID:   body.By,
		TargetType: types.KindDecision,
		TargetID:   op.EntityID,
		Relation:   types.RelationSupersedes,
		CreatedAt:  op.TS,
	}
	if _, err := insertLink(tx, link, true); err != nil {
		return err
	}
	return auditInTx(tx, types.KindDecision, op.EntityID, types.AuditSuperseded, op.Session, "by "+body.By, formatTime(op.TS))
}

func applyDecisionLinkPrecedent(tx queryer, op types.TrailOperation) error {
	var body struct {
		PrecedentID string `json:"precedent_id"`
	}
	if err := strictDecode(op.Data, &body); err != nil {
		return err
	}
	if body.PrecedentID == "" {
		return types.WrapInvalid("precedent link without a precedent id")
	}
	link := &types.EntityLink{
		ID:         mirrorLinkID(types.KindDecision, op.EntityID, types.KindDecision, body.PrecedentID, types.RelationFollowsPrecedent),
		SourceType: types.KindDecision,
		SourceID:   op.EntityID,
		TargetType: types.KindDecision,
		TargetID:   body.PrecedentID,
		Relation:   types.RelationFollowsPrecedent,
		CreatedAt:  op.TS,
	}
	if _, err := insertLink(tx, link, true); err != nil {
		return err
	}
	detail := "follows_precedent -> " + body.PrecedentID
	return auditInTx(tx, types.KindDecision, op.EntityID, types.AuditLinked, op.Session, detail, formatTime(op.TS))
}

// strictDecode rejects malformed payloads outright. Unknown fields are
// allowed so older builds can replay trails written by newer ones
// within the same envelope version.
func strictDecode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return types.WrapInvalid("operation has no payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return types.WrapInvalid("malformed payload: %v", err)
	}
	return nil
}
