// Package integration exercises the full pipeline: live mutations
// through the store, trail appends, and rebuild into a fresh database.
package integration

import (
	"testing"

	"github.com/mesh-intelligence/casefile/internal/sqlite"
	"github.com/mesh-intelligence/casefile/internal/trail"
	"github.com/mesh-intelligence/casefile/pkg/types"
)

// investigation is one wired environment: a store with a trail writer
// attached, isolated in a temp directory.
type investigation struct {
	store    *sqlite.Store
	writer   *trail.Writer
	trailDir string
}

// setupInvestigation opens a store plus trail writer the way the CLI
// wires them. Each test gets its own directory.
func setupInvestigation(t *testing.T) *investigation {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.DataDir = t.TempDir()

	store, err := sqlite.Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	w, err := trail.NewWriter(cfg.TrailPath(), nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	store.SetTrail(w)
	return &investigation{store: store, writer: w, trailDir: cfg.TrailPath()}
}

// rebuildInto replays the environment's trail into a brand new store
// and returns it.
func rebuildInto(t *testing.T, env *investigation) (*sqlite.Store, types.RebuildReport) {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.DataDir = t.TempDir()

	store, err := sqlite.Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open rebuild target: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	report, err := trail.NewReplayer(store, env.trailDir, nil).Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return store, report
}

// mustSession creates a session or fails the test.
func mustSession(t *testing.T, s *sqlite.Store, title string) *types.Session {
	t.Helper()
	sess, err := s.CreateSession(title)
	if err != nil {
		t.Fatalf("CreateSession %q: %v", title, err)
	}
	return sess
}

// mustFinding creates a finding or fails the test.
func mustFinding(t *testing.T, s *sqlite.Store, sessionID, subject, claim string, conf types.Confidence) *types.Finding {
	t.Helper()
	f, err := s.CreateFinding(sessionID, subject, claim, conf, "")
	if err != nil {
		t.Fatalf("CreateFinding %q: %v", subject, err)
	}
	return f
}
