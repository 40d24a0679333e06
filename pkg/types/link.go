package types

import "time"

// Relation names a typed edge between two entities.
type Relation string

const (
	RelationBlocks           Relation = "blocks"
	RelationValidates        Relation = "validates"
	RelationDebunks          Relation = "debunks"
	RelationImplements       Relation = "implements"
	RelationRelatesTo        Relation = "relates_to"
	RelationDerivedFrom      Relation = "derived_from"
	RelationTriggers         Relation = "triggers"
	RelationSupersedes       Relation = "supersedes"
	RelationDependsOn        Relation = "depends_on"
	RelationFollowsPrecedent Relation = "follows_precedent"
	RelationOverridesPolicy  Relation = "overrides_policy"
)

// Relations lists every relation in deterministic order.
var Relations = []Relation{
	RelationBlocks, RelationValidates, RelationDebunks, RelationImplements,
	RelationRelatesTo, RelationDerivedFrom, RelationTriggers,
	RelationSupersedes, RelationDependsOn, RelationFollowsPrecedent,
	RelationOverridesPolicy,
}

// ValidRelation reports whether r names a known relation.
func ValidRelation(r Relation) bool {
	for _, known := range Relations {
		if r == known {
			return true
		}
	}
	return false
}

// relationPriority orders relations for graph tie-breaking. Lower is
// stronger. Unknown relations sort last.
var relationPriority = map[Relation]int{
	RelationBlocks:           0,
	RelationSupersedes:       1,
	RelationDependsOn:        2,
	RelationDebunks:          3,
	RelationValidates:        4,
	RelationImplements:       5,
	RelationTriggers:         6,
	RelationDerivedFrom:      7,
	RelationFollowsPrecedent: 8,
	RelationOverridesPolicy:  9,
	RelationRelatesTo:        10,
}

// Priority returns the tie-break rank of the relation.
func (r Relation) Priority() int {
	if p, ok := relationPriority[r]; ok {
		return p
	}
	return len(relationPriority)
}

// EntityLink is a directed, typed edge between two records.
type EntityLink struct {
	ID         string     `json:"id"`
	SourceType EntityKind `json:"source_type"`
	SourceID   string     `json:"source_id"`
	TargetType EntityKind `json:"target_type"`
	TargetID   string     `json:"target_id"`
	Relation   Relation   `json:"relation"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Validate checks the link's fields before it reaches the database.
func (l *EntityLink) Validate() error {
	switch {
	case l.ID == "":
		return WrapInvalid("link id is empty")
	case !ValidKind(l.SourceType):
		return WrapInvalid("unknown source type %q", l.SourceType)
	case !ValidKind(l.TargetType):
		return WrapInvalid("unknown target type %q", l.TargetType)
	case l.SourceID == "" || l.TargetID == "":
		return WrapInvalid("link endpoints must be set")
	case !ValidRelation(l.Relation):
		return WrapInvalid("unknown relation %q", l.Relation)
	}
	return nil
}
