// Precedent search: ranks past decisions against a subject entity and
// a free-text query. Candidates surface through two routes, shared
// evidence (findings linked to the subject that the decision derived
// from) and full-text matches on the decision's search text. The two
// scores blend with the decision's own confidence grade and recency
// decay.
package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// Scoring weights. Shared evidence dominates, text relevance breaks
// ties between decisions with equal evidence overlap.
const (
	sharedEvidenceWeight = 10.0
	confidenceWeight     = 2.0
	recencyDecayPerDay   = 0.2
	missingFTSRank       = 50.0
)

// ftsHitsCTE matches the query against the index; ftsHitsEmptyCTE
// stands in when no query was given, because FTS5 rejects an empty
// MATCH pattern. Both take ?3 so the argument list stays fixed.
const (
	ftsHitsCTE = `	SELECT d.id AS decision_id, bm25(decisions_fts) AS rank
	FROM decisions_fts
	JOIN decisions d ON d.rowid = decisions_fts.rowid
	WHERE decisions_fts MATCH ?3`

	ftsHitsEmptyCTE = `	SELECT NULL AS decision_id, NULL AS rank WHERE ?3 <> ?3`
)

const precedentSearchSQL = `
WITH subject_findings AS (
	SELECT el.source_id AS finding_id
	FROM entity_links el
	WHERE el.source_type = 'finding'
	  AND el.target_type = ?1
	  AND el.target_id = ?2
	  AND el.relation IN ('relates_to', 'validates', 'debunks', 'derived_from')
),
shared_evidence AS (
	SELECT el.source_id AS decision_id,
	       COUNT(DISTINCT sf.finding_id) AS shared_count
	FROM entity_links el
	JOIN subject_findings sf ON sf.finding_id = el.target_id
	WHERE el.source_type = 'decision'
	  AND el.target_type = 'finding'
	  AND el.relation = 'derived_from'
	GROUP BY el.source_id
),
fts_hits AS (
%s
)
SELECT d.id,
       d.category,
       d.subject_type,
       d.subject_id,
       d.question,
       COALESCE((SELECT label FROM decision_options WHERE decision_id = d.id AND is_chosen = 1), ''),
       d.confidence,
       COALESCE(se.shared_count, 0),
       COALESCE(se.shared_count, 0) * ?5
         + (CASE d.confidence WHEN 'high' THEN 3.0 WHEN 'medium' THEN 2.0 ELSE 1.0 END) * ?6
         - (julianday(?4) - julianday(d.created_at)) * ?7
         - COALESCE(fh.rank, ?8) AS score,
       d.created_at
FROM decisions d
LEFT JOIN shared_evidence se ON se.decision_id = d.id
LEFT JOIN fts_hits fh ON fh.decision_id = d.id
WHERE (se.decision_id IS NOT NULL OR fh.decision_id IS NOT NULL)
  AND NOT EXISTS (
	SELECT 1 FROM entity_links l
	WHERE l.relation = 'supersedes'
	  AND l.target_type = 'decision'
	  AND l.target_id = d.id
)
ORDER BY score DESC, d.id ASC
LIMIT ?9`

// SearchPrecedents ranks prior decisions relevant to the subject
// entity and query. Subject matching keys on the (type, id) pair
// through entity_links; confidence weighting uses the candidate
// decision's own declared grade. The caller supplies now so recency
// decay is reproducible. Superseded decisions never appear; their
// successors carry the history. Results are deterministic: equal
// scores order by id.
func (s *Store) SearchPrecedents(subjectType types.EntityKind, subjectID, query string, now time.Time, limit int) ([]types.PrecedentHit, error) {
	if (subjectType == "") != (subjectID == "") {
		return nil, types.WrapInvalid("precedent search needs both subject type and id, or neither")
	}
	if subjectID == "" && strings.TrimSpace(query) == "" {
		return nil, types.WrapInvalid("precedent search needs a subject or a query")
	}
	if limit <= 0 {
		limit = 5
	}

	match := ftsMatchExpr(query)
	cte := ftsHitsCTE
	if match == "" {
		cte = ftsHitsEmptyCTE
	}
	rows, err := s.db.Query(fmt.Sprintf(precedentSearchSQL, cte),
		string(subjectType), subjectID, match, formatTime(now.UTC()),
		sharedEvidenceWeight, confidenceWeight, recencyDecayPerDay, missingFTSRank,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching precedents: %w", err)
	}
	defer rows.Close()

	hits := []types.PrecedentHit{}
	for rows.Next() {
		var h types.PrecedentHit
		var subjType, confidence, createdAt string
		if err := rows.Scan(&h.DecisionID, &h.Category, &subjType, &h.SubjectID,
			&h.Question, &h.ChosenLabel, &confidence, &h.SharedCount, &h.Score,
			&createdAt); err != nil {
			return nil, fmt.Errorf("scanning precedent hit: %w", err)
		}
		h.SubjectType = types.EntityKind(subjType)
		h.Confidence = types.Confidence(confidence)
		if h.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating precedent hits: %w", err)
	}
	return hits, nil
}

// ftsMatchExpr turns free text into an FTS5 MATCH expression. Each
// token is quoted so user input can never inject FTS syntax, and
// tokens are ORed so any overlap surfaces the decision.
func ftsMatchExpr(query string) string {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(tok, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}
