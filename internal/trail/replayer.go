package trail

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mesh-intelligence/casefile/internal/sqlite"
	"github.com/mesh-intelligence/casefile/pkg/types"
)

// Replayer rebuilds the database from the trail directory. Unlike the
// writer it fails hard on anything it does not understand: a malformed
// line, an unknown op, or a version outside the supported range means
// the source of truth cannot be trusted, and a partial rebuild would
// hide that.
type Replayer struct {
	store *sqlite.Store
	dir   string
	log   *slog.Logger
}

// NewReplayer wires a replayer to a store. The store must have its
// trail appender detached; rebuilding must never re-log its own
// writes.
func NewReplayer(store *sqlite.Store, dir string, log *slog.Logger) *Replayer {
	if log == nil {
		log = slog.Default()
	}
	return &Replayer{store: store, dir: dir, log: log}
}

// Rebuild empties the database and replays every trail file. An empty
// or missing trail directory yields an empty database, successfully:
// no history means nothing to materialize.
func (r *Replayer) Rebuild() (types.RebuildReport, error) {
	start := time.Now()
	var report types.RebuildReport

	ops, files, err := r.readAll()
	if err != nil {
		return report, err
	}
	report.TrailFiles = files

	// Global order across sessions: timestamp, then entity id, then
	// op. The sort is stable so lines that tie keep file order.
	sort.SliceStable(ops, func(i, j int) bool {
		if !ops[i].TS.Equal(ops[j].TS) {
			return ops[i].TS.Before(ops[j].TS)
		}
		if ops[i].EntityID != ops[j].EntityID {
			return ops[i].EntityID < ops[j].EntityID
		}
		return ops[i].Op < ops[j].Op
	})

	if err := r.store.Reset(); err != nil {
		return report, err
	}
	for _, op := range ops {
		created, err := r.store.Apply(op)
		if err != nil {
			return report, err
		}
		report.OperationsReplayed++
		if created {
			report.EntitiesCreated++
		}
	}

	report.Rebuilt = true
	report.DurationMS = time.Since(start).Milliseconds()
	r.log.Info("trail replayed",
		"files", report.TrailFiles,
		"operations", report.OperationsReplayed,
		"entities", report.EntitiesCreated,
		"duration_ms", report.DurationMS)
	return report, nil
}

// readAll parses every line of every trail file, strictly.
func (r *Replayer) readAll() ([]types.TrailOperation, int, error) {
	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading trail dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".jsonl" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var ops []types.TrailOperation
	for _, name := range names {
		fileOps, err := r.readFile(filepath.Join(r.dir, name))
		if err != nil {
			return nil, 0, err
		}
		ops = append(ops, fileOps...)
	}
	return ops, len(names), nil
}

func (r *Replayer) readFile(path string) ([]types.TrailOperation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trail file %s: %w", path, err)
	}
	defer f.Close()

	var ops []types.TrailOperation
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var op types.TrailOperation
		if err := json.Unmarshal(line, &op); err != nil {
			return nil, fmt.Errorf("%s:%d: malformed trail line: %w", path, lineNo, err)
		}
		if op.Version < types.TrailVersionMin || op.Version > types.TrailVersionMax {
			return nil, fmt.Errorf("%s:%d: v%d: %w", path, lineNo, op.Version, types.ErrUnsupportedVersion)
		}
		if !types.KnownOp(op.Op) {
			return nil, fmt.Errorf("%s:%d: op %q: %w", path, lineNo, op.Op, types.ErrUnknownOperation)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trail file %s: %w", path, err)
	}
	return ops, nil
}
