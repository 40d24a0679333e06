// Decision tables accessor. A decision commits as one unit of work:
// the decision row, its options, evidence, outcomes, mirror links, and
// the audit record land in a single transaction or not at all.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// decisionPatchCols lists the updatable decision columns. The subject
// pair is part of the decision's identity and stays fixed.
var decisionPatchCols = []string{
	"question", "category", "because", "confidence",
	"outcome_summary", "approver", "policy_type", "policy_id",
	"exception_kind", "exception_reason", "metadata_json",
}

// decisionCols is the column list shared by every decision SELECT and
// matched positionally by hydrateDecision.
const decisionCols = "id, session_id, category, subject_type, subject_id, question, because, " +
	"outcome_summary, policy_type, policy_id, exception_kind, exception_reason, " +
	"approver, confidence, metadata_json, search_text, created_at, updated_at"

// DecisionPatchColumns returns the updatable decision columns for
// callers that parse patches up front.
func DecisionPatchColumns() []string {
	cols := make([]string, len(decisionPatchCols))
	copy(cols, decisionPatchCols)
	return cols
}

// CreateDecision records a decision and all of its children in one
// transaction. Empty decision and option ids are filled in; outcome
// rows are mirrored into entity_links so the graph engine sees them.
func (s *Store) CreateDecision(nd types.NewDecision) (*types.DecisionView, error) {
	now := time.Now().UTC()
	fillDecisionIDs(&nd, now)
	if err := nd.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireSession(nd.Decision.SessionID); err != nil {
		return nil, err
	}

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for i := range nd.Evidence {
		if _, err := requireEndpoint(tx, nd.Evidence[i].EntityType, nd.Evidence[i].EntityID); err != nil {
			return nil, err
		}
	}
	for i := range nd.Outcomes {
		if _, err := requireEndpoint(tx, nd.Outcomes[i].EntityType, nd.Outcomes[i].EntityID); err != nil {
			return nil, err
		}
	}

	inserted, err := insertDecisionUnit(tx, &nd, false)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, fmt.Errorf("decision %s: %w", nd.Decision.ID, types.ErrAlreadyExists)
	}
	if err := auditInTx(tx, types.KindDecision, nd.Decision.ID, types.AuditCreated, nd.Decision.SessionID, "", formatTime(now)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing decision: %w", err)
	}

	version := types.TrailVersionMin
	if len(nd.Links) > 0 {
		// The links array arrived with envelope v2.
		version = types.TrailVersionMax
	}
	data, _ := json.Marshal(&nd)
	s.appendTrail(types.TrailOperation{
		Version:  version,
		TS:       now,
		Session:  nd.Decision.SessionID,
		Op:       types.OpDecisionCreate,
		Entity:   types.KindDecision,
		EntityID: nd.Decision.ID,
		Data:     data,
	})
	return s.GetDecision(nd.Decision.ID)
}

// fillDecisionIDs generates missing ids and stamps timestamps so the
// trail line carries the complete record.
func fillDecisionIDs(nd *types.NewDecision, now time.Time) {
	if nd.Decision.ID == "" {
		nd.Decision.ID = newID()
	}
	nd.Decision.CreatedAt = now
	nd.Decision.UpdatedAt = now
	for i := range nd.Options {
		if nd.Options[i].ID == "" {
			nd.Options[i].ID = newID()
		}
		if nd.Options[i].DecisionID == "" {
			nd.Options[i].DecisionID = nd.Decision.ID
		}
		if nd.Options[i].Position == 0 {
			nd.Options[i].Position = i
		}
	}
	for i := range nd.Outcomes {
		if nd.Outcomes[i].DecisionID == "" {
			nd.Outcomes[i].DecisionID = nd.Decision.ID
		}
	}
}

// insertDecisionUnit writes the decision and every child row. Replay
// uses the orIgnore path so the first writer of an id wins.
func insertDecisionUnit(tx queryer, nd *types.NewDecision, orIgnore bool) (bool, error) {
	d := &nd.Decision
	d.SearchText = types.BuildSearchText(d, nd.Options, nd.Outcomes)

	stmt := "INSERT INTO decisions (" + decisionCols + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	if orIgnore {
		stmt = "INSERT OR IGNORE" + strings.TrimPrefix(stmt, "INSERT")
	}
	res, err := tx.Exec(stmt,
		d.ID, d.SessionID, d.Category, string(d.SubjectType), d.SubjectID,
		d.Question, d.Because, d.OutcomeSummary, d.PolicyType, d.PolicyID,
		d.ExceptionKind, d.ExceptionReason, d.Approver, string(d.Confidence),
		d.Metadata, d.SearchText,
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting decision %s: %w", d.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting decision %s: %w", d.ID, err)
	}
	if n == 0 {
		return false, nil
	}

	optStmt := "INSERT INTO decision_options (id, decision_id, label, summary, is_chosen, position) VALUES (?, ?, ?, ?, ?, ?)"
	evStmt := "INSERT INTO decision_option_evidence (option_id, entity_type, entity_id, stance, note) VALUES (?, ?, ?, ?, ?)"
	outStmt := "INSERT INTO decision_outcomes (decision_id, entity_type, entity_id, relation, summary) VALUES (?, ?, ?, ?, ?)"
	if orIgnore {
		optStmt = "INSERT OR IGNORE" + strings.TrimPrefix(optStmt, "INSERT")
		evStmt = "INSERT OR IGNORE" + strings.TrimPrefix(evStmt, "INSERT")
		outStmt = "INSERT OR IGNORE" + strings.TrimPrefix(outStmt, "INSERT")
	}

	for i := range nd.Options {
		o := &nd.Options[i]
		chosen := 0
		if o.Chosen {
			chosen = 1
		}
		if _, err := tx.Exec(optStmt, o.ID, o.DecisionID, o.Label, o.Summary, chosen, o.Position); err != nil {
			return false, fmt.Errorf("inserting option %s: %w", o.ID, err)
		}
	}
	for i := range nd.Evidence {
		e := &nd.Evidence[i]
		if _, err := tx.Exec(evStmt, e.OptionID, string(e.EntityType), e.EntityID, e.Stance, e.Note); err != nil {
			return false, fmt.Errorf("inserting evidence for option %s: %w", e.OptionID, err)
		}
	}
	// Evidence on the chosen option mirrors as decision-level
	// derived_from edges; rejected options' evidence stays off the
	// graph, it argued for a road not taken.
	for _, e := range nd.ChosenEvidence() {
		mirror := &types.EntityLink{
			ID:         mirrorLinkID(types.KindDecision, d.ID, e.EntityType, e.EntityID, types.RelationDerivedFrom),
			SourceType: types.KindDecision,
			SourceID:   d.ID,
			TargetType: e.EntityType,
			TargetID:   e.EntityID,
			Relation:   types.RelationDerivedFrom,
			CreatedAt:  d.CreatedAt,
		}
		if _, err := insertLink(tx, mirror, true); err != nil {
			return false, err
		}
	}
	for i := range nd.Outcomes {
		o := &nd.Outcomes[i]
		if _, err := tx.Exec(outStmt, o.DecisionID, string(o.EntityType), o.EntityID, string(o.Relation), o.Summary); err != nil {
			return false, fmt.Errorf("inserting outcome for decision %s: %w", o.DecisionID, err)
		}
		mirror := &types.EntityLink{
			ID:         mirrorLinkID(types.KindDecision, o.DecisionID, o.EntityType, o.EntityID, o.Relation),
			SourceType: types.KindDecision,
			SourceID:   o.DecisionID,
			TargetType: o.EntityType,
			TargetID:   o.EntityID,
			Relation:   o.Relation,
			CreatedAt:  d.CreatedAt,
		}
		if _, err := insertLink(tx, mirror, true); err != nil {
			return false, err
		}
	}
	for i := range nd.Links {
		if _, err := insertLink(tx, &nd.Links[i], true); err != nil {
			return false, err
		}
	}
	return true, nil
}

// mirrorLinkID derives a stable id from the edge identity, so replaying
// the same trail reproduces the same mirror rows byte for byte.
func mirrorLinkID(st types.EntityKind, sid string, tt types.EntityKind, tid string, rel types.Relation) string {
	name := strings.Join([]string{string(st), sid, string(tt), tid, string(rel)}, "|")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// GetDecision retrieves a decision with its options, evidence,
// outcomes, and superseding decision if any.
func (s *Store) GetDecision(id string) (*types.DecisionView, error) {
	row := s.db.QueryRow(
		"SELECT "+decisionCols+" FROM decisions WHERE id = ?", id,
	)
	d, err := hydrateDecision(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting decision %s: %w", id, err)
	}

	view := &types.DecisionView{Decision: *d}
	if view.Options, err = s.decisionOptions(id); err != nil {
		return nil, err
	}
	if view.Evidence, err = s.decisionEvidence(view.Options); err != nil {
		return nil, err
	}
	if view.Outcomes, err = s.decisionOutcomes(id); err != nil {
		return nil, err
	}
	if view.SupersededBy, err = supersededBy(s.db, id); err != nil {
		return nil, err
	}
	return view, nil
}

// ListDecisions returns decision summaries newest first, optionally
// filtered by session.
func (s *Store) ListDecisions(sessionID string) ([]*types.DecisionView, error) {
	query := "SELECT id FROM decisions"
	var args []any
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning decision id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decisions: %w", err)
	}

	views := []*types.DecisionView{}
	for _, id := range ids {
		view, err := s.GetDecision(id)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// UpdateDecision applies a partial update and recomputes the derived
// search text in the same transaction. Superseded decisions are
// frozen.
func (s *Store) UpdateDecision(id string, patch *types.Patch) error {
	if patch.Empty() {
		return nil
	}
	now := time.Now().UTC()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sessionID, err := applyDecisionPatch(tx, id, patch, now)
	if err != nil {
		return err
	}
	detail := strings.Join(patch.Fields(), ",")
	if err := auditInTx(tx, types.KindDecision, id, types.AuditUpdated, sessionID, detail, formatTime(now)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing decision update: %w", err)
	}

	data, _ := json.Marshal(patch)
	s.appendTrail(types.TrailOperation{
		Version:  types.TrailVersionMin,
		TS:       now,
		Session:  sessionID,
		Op:       types.OpDecisionUpdate,
		Entity:   types.KindDecision,
		EntityID: id,
		Data:     data,
	})
	return nil
}

// applyDecisionPatch runs the dynamic UPDATE plus the search_text
// recompute inside the caller's transaction.
func applyDecisionPatch(tx queryer, id string, patch *types.Patch, now time.Time) (string, error) {
	allowed := make(map[string]bool, len(decisionPatchCols))
	for _, col := range decisionPatchCols {
		allowed[col] = true
	}

	row := tx.QueryRow(
		"SELECT "+decisionCols+" FROM decisions WHERE id = ?", id,
	)
	d, err := hydrateDecision(row.Scan)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("decision %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading decision %s: %w", id, err)
	}
	by, err := supersededBy(tx, id)
	if err != nil {
		return "", err
	}
	if by != "" {
		return "", fmt.Errorf("decision %s: %w", id, types.ErrSuperseded)
	}

	var sets []string
	var args []any
	for _, field := range patch.Fields() {
		if !allowed[field] {
			return "", types.WrapInvalid("field %q is not updatable on decision", field)
		}
		value, err := patch.Value(field)
		if err != nil {
			return "", err
		}
		str, _ := value.(string)
		switch field {
		case "question":
			if strings.TrimSpace(str) == "" {
				return "", types.WrapInvalid("decision question cannot be cleared")
			}
			d.Question = str
		case "category":
			if !types.ValidCategory(str) {
				return "", types.WrapInvalid("unknown decision category %q", str)
			}
			d.Category = str
		case "because":
			if strings.TrimSpace(str) == "" {
				return "", types.WrapInvalid("decision because cannot be cleared")
			}
			d.Because = str
		case "confidence":
			if !types.ValidConfidence(types.Confidence(str)) {
				return "", types.WrapInvalid("unknown decision confidence %q", str)
			}
			d.Confidence = types.Confidence(str)
		case "outcome_summary":
			d.OutcomeSummary = str
		case "approver":
			d.Approver = str
		case "policy_type":
			d.PolicyType = str
		case "policy_id":
			d.PolicyID = str
		case "exception_kind":
			d.ExceptionKind = str
		case "exception_reason":
			d.ExceptionReason = str
		}
		sets = append(sets, field+" = ?")
		args = append(args, str)
	}
	if (d.ExceptionKind == "") != (d.ExceptionReason == "") {
		return "", types.WrapInvalid("decision %s would have a partial exception", id)
	}
	if (d.PolicyType == "") != (d.PolicyID == "") {
		return "", types.WrapInvalid("decision %s would have a partial policy reference", id)
	}

	options, err := collectOptions(tx, id)
	if err != nil {
		return "", err
	}
	outcomes, err := collectOutcomes(tx, id)
	if err != nil {
		return "", err
	}
	sets = append(sets, "search_text = ?", "updated_at = ?")
	args = append(args, types.BuildSearchText(d, options, outcomes), formatTime(now))
	args = append(args, id)

	stmt := "UPDATE decisions SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := tx.Exec(stmt, args...); err != nil {
		return "", fmt.Errorf("updating decision %s: %w", id, err)
	}
	return d.SessionID, nil
}

// SupersedeDecision marks old as replaced by successor. The edge runs
// successor -supersedes-> old; precedent search stops surfacing old.
func (s *Store) SupersedeDecision(oldID, successorID string) error {
	if oldID == successorID {
		return types.WrapInvalid("a decision cannot supersede itself")
	}
	now := time.Now().UTC()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := requireEndpoint(tx, types.KindDecision, oldID); err != nil {
		return err
	}
	sessionID, err := requireEndpoint(tx, types.KindDecision, successorID)
	if err != nil {
		return err
	}
	by, err := supersededBy(tx, oldID)
	if err != nil {
		return err
	}
	if by != "" {
		return fmt.Errorf("decision %s already superseded by %s: %w", oldID, by, types.ErrSuperseded)
	}

	link := &types.EntityLink{
		ID:         mirrorLinkID(types.KindDecision, successorID, types.KindDecision, oldID, types.RelationSupersedes),
		SourceType: types.KindDecision,
		SourceID:   successorID,
		TargetType: types.KindDecision,
		TargetID:   oldID,
		Relation:   types.RelationSupersedes,
		CreatedAt:  now,
	}
	if _, err := insertLink(tx, link, true); err != nil {
		return err
	}
	if err := auditInTx(tx, types.KindDecision, oldID, types.AuditSuperseded, sessionID, "by "+successorID, formatTime(now)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing supersede: %w", err)
	}

	data, _ := json.Marshal(map[string]string{"by": successorID})
	s.appendTrail(types.TrailOperation{
		Version:  types.TrailVersionMin,
		TS:       now,
		Session:  sessionID,
		Op:       types.OpDecisionSupersede,
		Entity:   types.KindDecision,
		EntityID: oldID,
		Data:     data,
	})
	return nil
}

// LinkPrecedent records that a decision consciously follows an earlier
// one.
func (s *Store) LinkPrecedent(decisionID, precedentID string) error {
	if decisionID == precedentID {
		return types.WrapInvalid("a decision cannot cite itself as precedent")
	}
	now := time.Now().UTC()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sessionID, err := requireEndpoint(tx, types.KindDecision, decisionID)
	if err != nil {
		return err
	}
	if _, err := requireEndpoint(tx, types.KindDecision, precedentID); err != nil {
		return err
	}

	link := &types.EntityLink{
		ID:         mirrorLinkID(types.KindDecision, decisionID, types.KindDecision, precedentID, types.RelationFollowsPrecedent),
		SourceType: types.KindDecision,
		SourceID:   decisionID,
		TargetType: types.KindDecision,
		TargetID:   precedentID,
		Relation:   types.RelationFollowsPrecedent,
		CreatedAt:  now,
	}
	inserted, err := insertLink(tx, link, true)
	if err != nil {
		return err
	}
	if !inserted {
		return fmt.Errorf("precedent link %s -> %s: %w", decisionID, precedentID, types.ErrAlreadyExists)
	}
	if err := auditInTx(tx, types.KindDecision, decisionID, types.AuditLinked, sessionID, "follows_precedent -> "+precedentID, formatTime(now)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing precedent link: %w", err)
	}

	data, _ := json.Marshal(map[string]string{"precedent_id": precedentID})
	s.appendTrail(types.TrailOperation{
		Version:  types.TrailVersionMin,
		TS:       now,
		Session:  sessionID,
		Op:       types.OpDecisionLinkPrecedent,
		Entity:   types.KindDecision,
		EntityID: decisionID,
		Data:     data,
	})
	return nil
}

func (s *Store) decisionOptions(id string) ([]types.DecisionOption, error) {
	return collectOptions(s.db, id)
}

func collectOptions(q queryer, decisionID string) ([]types.DecisionOption, error) {
	rows, err := q.Query(
		"SELECT id, decision_id, label, summary, is_chosen, position FROM decision_options WHERE decision_id = ? ORDER BY position ASC, id ASC",
		decisionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying options for %s: %w", decisionID, err)
	}
	defer rows.Close()

	options := []types.DecisionOption{}
	for rows.Next() {
		var o types.DecisionOption
		var chosen int
		if err := rows.Scan(&o.ID, &o.DecisionID, &o.Label, &o.Summary, &chosen, &o.Position); err != nil {
			return nil, fmt.Errorf("scanning option: %w", err)
		}
		o.Chosen = chosen == 1
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating options: %w", err)
	}
	return options, nil
}

func (s *Store) decisionEvidence(options []types.DecisionOption) ([]types.OptionEvidence, error) {
	evidence := []types.OptionEvidence{}
	for i := range options {
		rows, err := s.db.Query(
			"SELECT option_id, entity_type, entity_id, stance, note FROM decision_option_evidence WHERE option_id = ? ORDER BY entity_type ASC, entity_id ASC",
			options[i].ID,
		)
		if err != nil {
			return nil, fmt.Errorf("querying evidence for %s: %w", options[i].ID, err)
		}
		for rows.Next() {
			var e types.OptionEvidence
			var entityType string
			if err := rows.Scan(&e.OptionID, &entityType, &e.EntityID, &e.Stance, &e.Note); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning evidence: %w", err)
			}
			e.EntityType = types.EntityKind(entityType)
			evidence = append(evidence, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating evidence: %w", err)
		}
	}
	return evidence, nil
}

func (s *Store) decisionOutcomes(id string) ([]types.DecisionOutcome, error) {
	return collectOutcomes(s.db, id)
}

func collectOutcomes(q queryer, decisionID string) ([]types.DecisionOutcome, error) {
	rows, err := q.Query(
		"SELECT decision_id, entity_type, entity_id, relation, summary FROM decision_outcomes WHERE decision_id = ? ORDER BY entity_type ASC, entity_id ASC, relation ASC",
		decisionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes for %s: %w", decisionID, err)
	}
	defer rows.Close()

	outcomes := []types.DecisionOutcome{}
	for rows.Next() {
		var o types.DecisionOutcome
		var entityType, relation string
		if err := rows.Scan(&o.DecisionID, &entityType, &o.EntityID, &relation, &o.Summary); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.EntityType = types.EntityKind(entityType)
		o.Relation = types.Relation(relation)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcomes: %w", err)
	}
	return outcomes, nil
}

// supersededBy returns the id of the decision that superseded id, or
// "" when id is still current.
func supersededBy(q queryer, id string) (string, error) {
	var by string
	err := q.QueryRow(
		"SELECT source_id FROM entity_links WHERE relation = ? AND target_type = ? AND target_id = ? ORDER BY created_at ASC LIMIT 1",
		string(types.RelationSupersedes), string(types.KindDecision), id,
	).Scan(&by)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("checking supersession of %s: %w", id, err)
	}
	return by, nil
}

func hydrateDecision(scan func(...any) error) (*types.Decision, error) {
	var d types.Decision
	var subjectType, confidence, createdAt, updatedAt string
	if err := scan(&d.ID, &d.SessionID, &d.Category, &subjectType, &d.SubjectID,
		&d.Question, &d.Because, &d.OutcomeSummary, &d.PolicyType, &d.PolicyID,
		&d.ExceptionKind, &d.ExceptionReason, &d.Approver, &confidence,
		&d.Metadata, &d.SearchText, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.SubjectType = types.EntityKind(subjectType)
	d.Confidence = types.Confidence(confidence)
	var err error
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
