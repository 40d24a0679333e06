package types

import (
	"encoding/json"
	"time"
)

// Trail operation verbs.
const (
	OpCreate                = "create"
	OpUpdate                = "update"
	OpDelete                = "delete"
	OpTransition            = "transition"
	OpLink                  = "link"
	OpUnlink                = "unlink"
	OpDecisionCreate        = "decision_create"
	OpDecisionUpdate        = "decision_update"
	OpDecisionSupersede     = "decision_supersede"
	OpDecisionLinkPrecedent = "decision_link_precedent"
)

// Trail envelope versions this build reads and writes.
const (
	TrailVersionMin = 1
	TrailVersionMax = 2
)

// TrailOperation is one line of a session's trail file. The envelope is
// stable across versions; only the shape of Data may grow. Data is kept
// raw so the writer never re-serializes payloads and the replayer can
// apply version-specific decoding.
type TrailOperation struct {
	Version  int             `json:"v"`
	TS       time.Time       `json:"ts"`
	Session  string          `json:"ses"`
	Op       string          `json:"op"`
	Entity   EntityKind      `json:"entity"`
	EntityID string          `json:"id"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// UnmarshalJSON decodes an envelope, defaulting the version to 1 when
// the v field is absent. Early trail files predate the field.
func (t *TrailOperation) UnmarshalJSON(b []byte) error {
	type alias TrailOperation
	raw := alias{Version: 1}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = TrailOperation(raw)
	return nil
}

// knownOps maps each verb to whether it targets a decision. Both the
// writer's warn-path validation and the replayer's dispatch use it.
var knownOps = map[string]bool{
	OpCreate:                false,
	OpUpdate:                false,
	OpDelete:                false,
	OpTransition:            false,
	OpLink:                  false,
	OpUnlink:                false,
	OpDecisionCreate:        true,
	OpDecisionUpdate:        true,
	OpDecisionSupersede:     true,
	OpDecisionLinkPrecedent: true,
}

// KnownOp reports whether op is a verb this build understands.
func KnownOp(op string) bool {
	_, ok := knownOps[op]
	return ok
}

// DecisionOp reports whether op targets the decision tables.
func DecisionOp(op string) bool {
	return knownOps[op]
}
