package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// seedPrecedents builds a small corpus around one subject hypothesis:
// two decisions deriving from findings linked to it, one unrelated
// decision, and one decision whose only route in is text relevance.
func seedPrecedents(t *testing.T, store *Store) (subject *types.Hypothesis, onSubject1, onSubject2, textOnly, unrelated string) {
	t.Helper()
	sess, err := store.CreateSession("seed")
	require.NoError(t, err)

	subject, err = store.CreateHypothesis(sess.ID, "unbounded timeouts pin worker threads")
	require.NoError(t, err)

	fHigh, err := store.CreateFinding(sess.ID, "timeouts", "p99 spikes past 30s under load", types.ConfidenceHigh, "")
	require.NoError(t, err)
	fLow, err := store.CreateFinding(sess.ID, "timeouts", "client library default is infinite", types.ConfidenceLow, "")
	require.NoError(t, err)
	fOther, err := store.CreateFinding(sess.ID, "caching", "cache hit rate is 12%", types.ConfidenceMedium, "")
	require.NoError(t, err)

	// The subject route walks finding -> subject links.
	_, err = store.Link(types.KindFinding, fHigh.ID, types.KindHypothesis, subject.ID, types.RelationValidates)
	require.NoError(t, err)
	_, err = store.Link(types.KindFinding, fLow.ID, types.KindHypothesis, subject.ID, types.RelationRelatesTo)
	require.NoError(t, err)

	onSubject1 = mkPrecedentDecision(t, store, sess.ID,
		"Should we cap request timeouts?", "Unbounded waits pin worker threads.",
		types.ConfidenceHigh, fHigh, fLow)
	onSubject2 = mkPrecedentDecision(t, store, sess.ID,
		"Which timeout default for the client?", "Ten seconds covers p99 with margin.",
		types.ConfidenceLow, fLow)
	textOnly = mkPrecedentDecision(t, store, sess.ID,
		"Should the importer stream or batch?", "Streaming keeps timeout pressure off the batch path.",
		types.ConfidenceMedium, fOther)
	unrelated = mkPrecedentDecision(t, store, sess.ID,
		"Should we shard the cache?", "Single node saturates at peak.",
		types.ConfidenceMedium, fOther)
	return subject, onSubject1, onSubject2, textOnly, unrelated
}

// mkPrecedentDecision records a two-option decision whose chosen option
// cites the given findings.
func mkPrecedentDecision(t *testing.T, store *Store, sessionID, question, because string, conf types.Confidence, findings ...*types.Finding) string {
	t.Helper()
	opts := []types.DecisionOption{
		{ID: newID(), Label: "do nothing"},
		{ID: newID(), Label: "act", Chosen: true},
	}
	nd := types.NewDecision{
		Decision: types.Decision{
			SessionID:  sessionID,
			Category:   types.CategoryVerdict,
			Question:   question,
			Because:    because,
			Confidence: conf,
		},
		Options: opts,
	}
	for _, f := range findings {
		nd.Evidence = append(nd.Evidence, types.OptionEvidence{
			OptionID:   opts[1].ID,
			EntityType: types.KindFinding,
			EntityID:   f.ID,
			Stance:     types.StanceSupports,
		})
	}
	view, err := store.CreateDecision(nd)
	require.NoError(t, err)
	return view.Decision.ID
}

func TestSearchPrecedentsBySubject(t *testing.T) {
	store := newTestStore(t)
	subject, onSubject1, onSubject2, _, unrelated := seedPrecedents(t, store)

	hits, err := store.SearchPrecedents(types.KindHypothesis, subject.ID, "", time.Now(), 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Two shared findings and a high declared confidence beat one
	// shared finding at low confidence.
	assert.Equal(t, onSubject1, hits[0].DecisionID)
	assert.Equal(t, 2, hits[0].SharedCount)
	assert.Equal(t, types.ConfidenceHigh, hits[0].Confidence)
	assert.Equal(t, onSubject2, hits[1].DecisionID)
	assert.Equal(t, 1, hits[1].SharedCount)
	assert.Equal(t, types.ConfidenceLow, hits[1].Confidence)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	for _, h := range hits {
		assert.NotEqual(t, unrelated, h.DecisionID)
	}
}

func TestSearchPrecedentsWeighsDeclaredConfidence(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.CreateSession("conf")
	require.NoError(t, err)
	subject, err := store.CreateHypothesis(sess.ID, "index scans dominate query time")
	require.NoError(t, err)
	f, err := store.CreateFinding(sess.ID, "indexes", "composite index cuts scan to 2ms", types.ConfidenceMedium, "")
	require.NoError(t, err)
	_, err = store.Link(types.KindFinding, f.ID, types.KindHypothesis, subject.ID, types.RelationValidates)
	require.NoError(t, err)

	// Equal evidence overlap; the decision's own grade breaks the tie.
	hesitant := mkPrecedentDecision(t, store, sess.ID,
		"Add the composite index?", "Benchmarks look promising.", types.ConfidenceLow, f)
	confident := mkPrecedentDecision(t, store, sess.ID,
		"Keep the composite index?", "Production confirmed the benchmark.", types.ConfidenceHigh, f)

	hits, err := store.SearchPrecedents(types.KindHypothesis, subject.ID, "", time.Now(), 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, confident, hits[0].DecisionID)
	assert.Equal(t, hesitant, hits[1].DecisionID)
}

func TestSearchPrecedentsByQuery(t *testing.T) {
	store := newTestStore(t)
	_, _, _, textOnly, _ := seedPrecedents(t, store)

	hits, err := store.SearchPrecedents("", "", "streaming importer", time.Now(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, textOnly, hits[0].DecisionID)
	assert.Equal(t, "act", hits[0].ChosenLabel)
}

func TestSearchPrecedentsBlendsRoutes(t *testing.T) {
	store := newTestStore(t)
	subject, onSubject1, _, _, _ := seedPrecedents(t, store)

	// Evidence overlap dominates text relevance.
	hits, err := store.SearchPrecedents(types.KindHypothesis, subject.ID, "timeout", time.Now(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, onSubject1, hits[0].DecisionID)
}

func TestSearchPrecedentsDeterministic(t *testing.T) {
	store := newTestStore(t)
	subject, _, _, _, _ := seedPrecedents(t, store)

	// With the clock pinned, repeated searches reproduce scores
	// exactly, not just the ranking.
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	first, err := store.SearchPrecedents(types.KindHypothesis, subject.ID, "timeout default", now, 5)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := store.SearchPrecedents(types.KindHypothesis, subject.ID, "timeout default", now, 5)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearchPrecedentsExcludesSuperseded(t *testing.T) {
	store := newTestStore(t)
	subject, onSubject1, onSubject2, _, _ := seedPrecedents(t, store)

	require.NoError(t, store.SupersedeDecision(onSubject1, onSubject2))

	hits, err := store.SearchPrecedents(types.KindHypothesis, subject.ID, "", time.Now(), 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, onSubject2, hits[0].DecisionID)
}

func TestSearchPrecedentsLimit(t *testing.T) {
	store := newTestStore(t)
	subject, _, _, _, _ := seedPrecedents(t, store)

	hits, err := store.SearchPrecedents(types.KindHypothesis, subject.ID, "", time.Now(), 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchPrecedentsNeedsInput(t *testing.T) {
	store := newTestStore(t)
	_, err := store.SearchPrecedents("", "", "", time.Now(), 5)
	require.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = store.SearchPrecedents("", "", "\t ", time.Now(), 5)
	require.ErrorIs(t, err, types.ErrInvalidInput)

	// The subject pair comes whole or not at all.
	_, err = store.SearchPrecedents(types.KindHypothesis, "", "query", time.Now(), 5)
	require.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = store.SearchPrecedents("", "hyp-1", "query", time.Now(), 5)
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestSearchPrecedentsGoldSet(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.CreateSession("gold")
	require.NoError(t, err)
	subject, err := store.CreateHypothesis(sess.ID, "concurrent writers deadlock on page contention")
	require.NoError(t, err)

	mkFinding := func(subjectTag, claim string, conf types.Confidence, linked bool) *types.Finding {
		f, err := store.CreateFinding(sess.ID, subjectTag, claim, conf, "")
		require.NoError(t, err)
		if linked {
			_, err = store.Link(types.KindFinding, f.ID, types.KindHypothesis, subject.ID, types.RelationValidates)
			require.NoError(t, err)
		}
		return f
	}

	deadlock1 := mkFinding("deadlocks", "writer starves under page contention", types.ConfidenceHigh, true)
	deadlock2 := mkFinding("deadlocks", "retrying the whole tx clears the stall", types.ConfidenceMedium, true)
	cache1 := mkFinding("caching", "hit rate collapses on deploys", types.ConfidenceHigh, false)
	logging1 := mkFinding("logging", "debug logs double write latency", types.ConfidenceLow, false)

	relevant := map[string]bool{
		mkPrecedentDecision(t, store, sess.ID,
			"serialize writers to avoid deadlocks?", "evidence points this way",
			types.ConfidenceHigh, deadlock1, deadlock2): true,
		mkPrecedentDecision(t, store, sess.ID,
			"add busy timeout for deadlock recovery?", "evidence points this way",
			types.ConfidenceMedium, deadlock1): true,
		mkPrecedentDecision(t, store, sess.ID,
			"retry transactions on deadlock?", "evidence points this way",
			types.ConfidenceMedium, deadlock2): true,
	}
	mkPrecedentDecision(t, store, sess.ID,
		"warm the cache before deploys?", "evidence points this way", types.ConfidenceHigh, cache1)
	mkPrecedentDecision(t, store, sess.ID,
		"sample debug logs in production?", "evidence points this way", types.ConfidenceLow, logging1)

	hits, err := store.SearchPrecedents(types.KindHypothesis, subject.ID, "deadlock writers", time.Now(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	// Precision at five and mean reciprocal rank over the gold set.
	var hitCount int
	mrr := 0.0
	for i, h := range hits {
		if relevant[h.DecisionID] {
			hitCount++
			if mrr == 0 {
				mrr = 1.0 / float64(i+1)
			}
		}
	}
	precision := float64(hitCount) / float64(len(hits))
	assert.GreaterOrEqual(t, precision, 0.6, "precision@5 too low: %v", hits)
	assert.GreaterOrEqual(t, mrr, 1.0, "first hit should be relevant")

	// Text-only route, no subject to anchor on.
	mixed, err := store.SearchPrecedents("", "", "deadlock recovery retry", time.Now(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, mixed)
	hitCount = 0
	for _, h := range mixed {
		if relevant[h.DecisionID] {
			hitCount++
		}
	}
	assert.GreaterOrEqual(t, float64(hitCount)/float64(len(mixed)), 0.4)
}

func TestFTSMatchExpr(t *testing.T) {
	assert.Equal(t, "", ftsMatchExpr("  "))
	assert.Equal(t, `"timeout"`, ftsMatchExpr("timeout"))
	assert.Equal(t, `"timeout" OR "cap"`, ftsMatchExpr("timeout cap"))
	// FTS syntax in user input stays inert.
	assert.Equal(t, `"NEAR(a" OR "b)"`, ftsMatchExpr("NEAR(a b)"))
	assert.Equal(t, `"""quoted"""`, ftsMatchExpr(`"quoted"`))
}
