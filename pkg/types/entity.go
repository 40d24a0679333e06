package types

import "time"

// EntityKind names a table-backed record class. The values double as the
// entity field of trail operations and the entity_type columns of the
// evidence, outcome, and link tables.
type EntityKind string

const (
	KindSession    EntityKind = "session"
	KindResearch   EntityKind = "research"
	KindFinding    EntityKind = "finding"
	KindHypothesis EntityKind = "hypothesis"
	KindInsight    EntityKind = "insight"
	KindTask       EntityKind = "task"
	KindDecision   EntityKind = "decision"
	KindEntityLink EntityKind = "entity_link"
)

// EntityKinds lists every kind in deterministic order.
var EntityKinds = []EntityKind{
	KindSession, KindResearch, KindFinding, KindHypothesis,
	KindInsight, KindTask, KindDecision, KindEntityLink,
}

// ValidKind reports whether k names a known entity kind.
func ValidKind(k EntityKind) bool {
	for _, known := range EntityKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Confidence grades how strongly the evidence supports a finding.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ValidConfidence reports whether c is one of the three grades.
func ValidConfidence(c Confidence) bool {
	return c == ConfidenceLow || c == ConfidenceMedium || c == ConfidenceHigh
}

// Weight maps the grade onto the scoring scale used by precedent search.
func (c Confidence) Weight() float64 {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// Session statuses.
const (
	SessionActive    = "active"
	SessionWrappedUp = "wrapped_up"
	SessionAbandoned = "abandoned"
)

// Research item statuses.
const (
	ResearchOpen       = "open"
	ResearchInProgress = "in_progress"
	ResearchResolved   = "resolved"
	ResearchAbandoned  = "abandoned"
)

// Hypothesis statuses.
const (
	HypothesisUnverified         = "unverified"
	HypothesisAnalyzing          = "analyzing"
	HypothesisConfirmed          = "confirmed"
	HypothesisDebunked           = "debunked"
	HypothesisPartiallyConfirmed = "partially_confirmed"
	HypothesisInconclusive       = "inconclusive"
)

// Task statuses.
const (
	TaskOpen       = "open"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
	TaskBlocked    = "blocked"
)

// transitions holds the allowed status edges per kind. Absent kinds have
// no lifecycle and reject every transition.
var transitions = map[EntityKind]map[string][]string{
	KindSession: {
		SessionActive: {SessionWrappedUp, SessionAbandoned},
	},
	KindResearch: {
		ResearchOpen:       {ResearchInProgress},
		ResearchInProgress: {ResearchResolved, ResearchAbandoned},
	},
	KindHypothesis: {
		HypothesisUnverified: {HypothesisAnalyzing},
		HypothesisAnalyzing: {
			HypothesisConfirmed, HypothesisDebunked,
			HypothesisPartiallyConfirmed, HypothesisInconclusive,
		},
	},
	KindTask: {
		TaskOpen:       {TaskInProgress},
		TaskInProgress: {TaskDone, TaskBlocked},
		TaskBlocked:    {TaskInProgress},
	},
}

// CanTransition reports whether kind allows moving from one status to
// another. Self transitions are rejected.
func CanTransition(kind EntityKind, from, to string) bool {
	for _, next := range transitions[kind][from] {
		if next == to {
			return true
		}
	}
	return false
}

// InitialStatus returns the status a freshly created record of kind
// starts in, or "" when the kind has no lifecycle.
func InitialStatus(kind EntityKind) string {
	switch kind {
	case KindSession:
		return SessionActive
	case KindResearch:
		return ResearchOpen
	case KindHypothesis:
		return HypothesisUnverified
	case KindTask:
		return TaskOpen
	}
	return ""
}

// Session is a bounded slice of work. Every other record carries the id
// of the session that produced it, and the trail is sharded per session.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResearchItem is an open question under investigation.
type ResearchItem struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Finding is an observed fact with a confidence grade. Findings carry no
// lifecycle; they are evidence, and evidence does not change state.
type Finding struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Subject    string     `json:"subject"`
	Claim      string     `json:"claim"`
	Confidence Confidence `json:"confidence"`
	Source     string     `json:"source,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Hypothesis is a proposed explanation that findings confirm or debunk.
type Hypothesis struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Statement string    `json:"statement"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Insight is a distilled conclusion. Like findings, insights have no
// lifecycle.
type Insight struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task is a unit of follow-up work.
type Task struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
