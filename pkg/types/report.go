package types

import "time"

// RebuildReport summarizes a replay of the trail into a fresh database.
type RebuildReport struct {
	Rebuilt            bool          `json:"rebuilt"`
	TrailFiles         int           `json:"trail_files"`
	OperationsReplayed int           `json:"operations_replayed"`
	EntitiesCreated    int           `json:"entities_created"`
	DurationMS         int64         `json:"duration_ms"`
}

// Audit actions recorded alongside every mutation.
const (
	AuditCreated       = "created"
	AuditUpdated       = "updated"
	AuditStatusChanged = "status_changed"
	AuditLinked        = "linked"
	AuditUnlinked      = "unlinked"
	AuditSuperseded    = "superseded"
	AuditDeleted       = "deleted"
)

// AuditEntry is one row of the append-only audit table.
type AuditEntry struct {
	ID         int64      `json:"id"`
	EntityType EntityKind `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Action     string     `json:"action"`
	SessionID  string     `json:"session_id"`
	Detail     string     `json:"detail,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
