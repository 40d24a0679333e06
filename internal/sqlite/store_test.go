package sqlite

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// newTestStore opens a store over a temp directory with no trail
// appender attached.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.DataDir = t.TempDir()
	store, err := Open(cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenAppliesSchema(t *testing.T) {
	store := newTestStore(t)

	// Every table must exist, FTS included.
	for _, table := range []string{
		"sessions", "research_items", "findings", "hypotheses", "insights",
		"tasks", "decisions", "decision_options", "decision_option_evidence",
		"decision_outcomes", "entity_links", "audit_trail", "decisions_fts",
	} {
		var name string
		err := store.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE name = ?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.CreateSession("trace the cache regression")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, types.SessionActive, sess.Status)

	got, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Title, got.Title)

	require.NoError(t, store.Transition(types.KindSession, sess.ID, types.SessionWrappedUp))
	got, err = store.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionWrappedUp, got.Status)

	// A wrapped session cannot reactivate.
	err = store.Transition(types.KindSession, sess.ID, types.SessionActive)
	require.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestCreateSessionRejectsEmptyTitle(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateSession("  ")
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetSession("missing")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestChildRecordsRequireSession(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateFinding("no-such-session", "cache", "hit rate dropped", types.ConfidenceHigh, "")
	require.ErrorIs(t, err, types.ErrNotFound)
	_, err = store.CreateTask("no-such-session", "check the eviction policy", "")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestTaskLifecycle(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.CreateSession("s")
	require.NoError(t, err)

	task, err := store.CreateTask(sess.ID, "bisect the regression", "between v1.2 and v1.3")
	require.NoError(t, err)
	assert.Equal(t, types.TaskOpen, task.Status)

	require.NoError(t, store.Transition(types.KindTask, task.ID, types.TaskInProgress))
	require.NoError(t, store.Transition(types.KindTask, task.ID, types.TaskBlocked))
	require.NoError(t, store.Transition(types.KindTask, task.ID, types.TaskInProgress))
	require.NoError(t, store.Transition(types.KindTask, task.ID, types.TaskDone))

	err = store.Transition(types.KindTask, task.ID, types.TaskInProgress)
	require.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestUpdateEntityTriState(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.CreateSession("s")
	require.NoError(t, err)
	task, err := store.CreateTask(sess.ID, "original title", "original detail")
	require.NoError(t, err)

	// Set title, clear detail, leave status alone.
	patch, err := types.ParsePatch([]byte(`{"title":"new title","detail":null}`), []string{"title", "detail"})
	require.NoError(t, err)
	require.NoError(t, store.UpdateEntity(types.KindTask, task.ID, patch))

	got, err := store.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "new title", got.Title)
	assert.Empty(t, got.Detail)
	assert.Equal(t, types.TaskOpen, got.Status)
}

func TestUpdateEntityRejectsUnknownField(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.CreateSession("s")
	require.NoError(t, err)
	task, err := store.CreateTask(sess.ID, "t", "")
	require.NoError(t, err)

	_, err = types.ParsePatch([]byte(`{"status":"done"}`), []string{"title", "detail"})
	require.ErrorIs(t, err, types.ErrInvalidInput)

	// Even a patch parsed against the wrong whitelist is rejected at
	// the store.
	patch, err := types.ParsePatch([]byte(`{"summary":"x"}`), []string{"summary"})
	require.NoError(t, err)
	err = store.UpdateEntity(types.KindTask, task.ID, patch)
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestSearchFindings(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.CreateSession("s")
	require.NoError(t, err)

	_, err = store.CreateFinding(sess.ID, "db-pool", "connections exhaust at 100% load", types.ConfidenceHigh, "")
	require.NoError(t, err)
	_, err = store.CreateFinding(sess.ID, "caching", "pool warmup masks the symptom", types.ConfidenceLow, "")
	require.NoError(t, err)
	_, err = store.CreateFinding(sess.ID, "logging", "unrelated noise", types.ConfidenceLow, "")
	require.NoError(t, err)

	// Matches subject on one row and claim on another.
	hits, err := store.SearchFindings("pool", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// LIKE wildcards in the query are literal characters.
	hits, err = store.SearchFindings("100%", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "db-pool", hits[0].Subject)
	hits, err = store.SearchFindings("%", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = store.SearchFindings("pool", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = store.SearchFindings("   ", 0)
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestDeleteEntityCascades(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.CreateSession("s")
	require.NoError(t, err)
	f, err := store.CreateFinding(sess.ID, "cache", "claim", types.ConfidenceLow, "")
	require.NoError(t, err)
	task, err := store.CreateTask(sess.ID, "t", "")
	require.NoError(t, err)
	_, err = store.Link(types.KindFinding, f.ID, types.KindTask, task.ID, types.RelationTriggers)
	require.NoError(t, err)

	require.NoError(t, store.DeleteEntity(types.KindFinding, f.ID))

	_, err = store.GetFinding(f.ID)
	require.ErrorIs(t, err, types.ErrNotFound)
	links, err := store.LinksFor(types.KindTask, task.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestAuditRows(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.CreateSession("s")
	require.NoError(t, err)
	task, err := store.CreateTask(sess.ID, "t", "")
	require.NoError(t, err)
	require.NoError(t, store.Transition(types.KindTask, task.ID, types.TaskInProgress))

	entries, err := store.AuditFor(types.KindTask, task.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, types.AuditCreated, entries[0].Action)
	assert.Equal(t, types.AuditStatusChanged, entries[1].Action)
	assert.Equal(t, "open -> in_progress", entries[1].Detail)
}

func TestLinkDuplicateRejected(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.CreateSession("s")
	require.NoError(t, err)
	f, err := store.CreateFinding(sess.ID, "x", "y", types.ConfidenceLow, "")
	require.NoError(t, err)
	task, err := store.CreateTask(sess.ID, "t", "")
	require.NoError(t, err)

	_, err = store.Link(types.KindFinding, f.ID, types.KindTask, task.ID, types.RelationTriggers)
	require.NoError(t, err)
	_, err = store.Link(types.KindFinding, f.ID, types.KindTask, task.ID, types.RelationTriggers)
	require.ErrorIs(t, err, types.ErrAlreadyExists)
}

func TestUnlink(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.CreateSession("s")
	require.NoError(t, err)
	f, err := store.CreateFinding(sess.ID, "x", "y", types.ConfidenceLow, "")
	require.NoError(t, err)
	task, err := store.CreateTask(sess.ID, "t", "")
	require.NoError(t, err)

	_, err = store.Link(types.KindFinding, f.ID, types.KindTask, task.ID, types.RelationTriggers)
	require.NoError(t, err)
	require.NoError(t, store.Unlink(types.KindFinding, f.ID, types.KindTask, task.ID, types.RelationTriggers))

	err = store.Unlink(types.KindFinding, f.ID, types.KindTask, task.ID, types.RelationTriggers)
	require.ErrorIs(t, err, types.ErrNotFound)
}
