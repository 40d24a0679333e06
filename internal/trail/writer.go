// Package trail owns the append-only operation log: one JSONL file per
// session under the trail directory. The trail is the source of truth;
// the database is rebuilt from it. The writer is permissive, logging a
// warning and appending anyway when a payload looks off, because
// losing a line loses history while a odd line can still be inspected.
// The replayer is the strict end.
package trail

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// Writer appends trail operations to per-session files.
type Writer struct {
	dir string
	log *slog.Logger

	mu      sync.Mutex
	enabled bool
}

// NewWriter creates the trail directory if needed and returns an
// enabled writer.
func NewWriter(dir string, log *slog.Logger) (*Writer, error) {
	if dir == "" {
		return nil, types.WrapInvalid("trail directory is empty")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating trail dir: %w", err)
	}
	return &Writer{dir: dir, log: log, enabled: true}, nil
}

// SetEnabled turns appends on or off. Replay runs with the writer off.
func (w *Writer) SetEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = enabled
}

// Enabled reports whether appends are active.
func (w *Writer) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// Append writes one operation as a single JSON line to the session's
// trail file. A disabled writer drops the operation silently; the
// caller asked for that. Session is the only hard requirement, since
// it routes the line to a file.
func (w *Writer) Append(op types.TrailOperation) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.enabled {
		return nil
	}
	if op.Session == "" {
		return types.WrapInvalid("trail operation has no session")
	}
	w.warnOdd(op)

	line, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("encoding trail operation: %w", err)
	}
	path := filepath.Join(w.dir, sessionFileName(op.Session))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening trail file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("appending trail operation: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing trail file: %w", err)
	}
	return f.Close()
}

// warnOdd flags payloads the replayer would reject, without refusing
// the append.
func (w *Writer) warnOdd(op types.TrailOperation) {
	if !types.KnownOp(op.Op) {
		w.log.Warn("trail operation has unknown op", "op", op.Op, "id", op.EntityID)
	}
	if op.Version < types.TrailVersionMin || op.Version > types.TrailVersionMax {
		w.log.Warn("trail operation has unsupported version", "v", op.Version, "id", op.EntityID)
	}
	if op.Op == types.OpCreate && len(op.Data) == 0 {
		w.log.Warn("create operation has no payload", "entity", op.Entity, "id", op.EntityID)
	}
}

// sessionFileName maps a session id to its trail file, defanging path
// separators so a hostile id cannot escape the trail directory.
func sessionFileName(sessionID string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(sessionID)
	return safe + ".jsonl"
}
