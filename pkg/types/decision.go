package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Decision categories.
const (
	CategoryVerdict      = "verdict"
	CategoryArchitecture = "architecture"
	CategoryPlanning     = "planning"
	CategoryException    = "exception"
	CategoryCompletion   = "completion"
)

// ValidCategory reports whether c names a known decision category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryVerdict, CategoryArchitecture, CategoryPlanning,
		CategoryException, CategoryCompletion:
		return true
	}
	return false
}

// Exception kinds attached to a decision when it deviates from an
// established rule.
const (
	ExceptionPolicyOverride   = "policy_override"
	ExceptionPrecedentBreak   = "precedent_break"
	ExceptionConstraintWaiver = "constraint_waiver"
)

// Decision is a recorded choice: the question that was asked, the
// options weighed, the one picked, and why. Subject names the entity
// the decision is about; precedent search keys candidate matching on
// that pair. Confidence grades the decider's own certainty, not the
// cited evidence. SearchText is a derived column maintained by the
// store; callers leave it empty.
type Decision struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"session_id"`
	Category        string     `json:"category"`
	SubjectType     EntityKind `json:"subject_type,omitempty"`
	SubjectID       string     `json:"subject_id,omitempty"`
	Question        string     `json:"question"`
	Because         string     `json:"because"`
	OutcomeSummary  string     `json:"outcome_summary,omitempty"`
	PolicyType      string     `json:"policy_type,omitempty"`
	PolicyID        string     `json:"policy_id,omitempty"`
	ExceptionKind   string     `json:"exception_kind,omitempty"`
	ExceptionReason string     `json:"exception_reason,omitempty"`
	Approver        string     `json:"approver,omitempty"`
	Confidence      Confidence `json:"confidence"`
	Metadata        string     `json:"metadata,omitempty"`
	SearchText      string     `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DecisionOption is one candidate answer. Exactly one option per
// decision has Chosen set; the database enforces this with a partial
// unique index.
type DecisionOption struct {
	ID         string `json:"id"`
	DecisionID string `json:"decision_id"`
	Label      string `json:"label"`
	Summary    string `json:"summary,omitempty"`
	Chosen     bool   `json:"chosen"`
	Position   int    `json:"position"`
}

// OptionEvidence ties an option to the entity that argued for or
// against it.
type OptionEvidence struct {
	OptionID   string     `json:"option_id"`
	EntityType EntityKind `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Stance     string     `json:"stance"`
	Note       string     `json:"note,omitempty"`
}

// Evidence stances.
const (
	StanceSupports = "supports"
	StanceRefutes  = "refutes"
	StanceNeutral  = "neutral"
)

// DecisionOutcome records what the decision produced or affected.
type DecisionOutcome struct {
	DecisionID string     `json:"decision_id"`
	EntityType EntityKind `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Relation   Relation   `json:"relation"`
	Summary    string     `json:"summary,omitempty"`
}

// NewDecision is the unit of work handed to the store's composite
// create. The store writes the decision, its options, evidence,
// outcomes, and mirror links in a single transaction.
type NewDecision struct {
	Decision Decision          `json:"decision"`
	Options  []DecisionOption  `json:"options"`
	Evidence []OptionEvidence  `json:"evidence,omitempty"`
	Outcomes []DecisionOutcome `json:"outcomes,omitempty"`
	Links    []EntityLink      `json:"links,omitempty"`
}

// Validate checks the unit of work before any row is written. It
// enforces the exactly-one-chosen rule, option ownership, evidence
// referencing a declared option, and the pair fields (subject, policy,
// exception) being set together or not at all.
func (n *NewDecision) Validate() error {
	d := &n.Decision
	switch {
	case d.ID == "":
		return WrapInvalid("decision id is empty")
	case d.SessionID == "":
		return WrapInvalid("decision %s has no session", d.ID)
	case !ValidCategory(d.Category):
		return WrapInvalid("decision %s has unknown category %q", d.ID, d.Category)
	case strings.TrimSpace(d.Question) == "":
		return WrapInvalid("decision %s has no question", d.ID)
	case strings.TrimSpace(d.Because) == "":
		return WrapInvalid("decision %s has no because", d.ID)
	case !ValidConfidence(d.Confidence):
		return WrapInvalid("decision %s has unknown confidence %q", d.ID, d.Confidence)
	case len(n.Options) == 0:
		return WrapInvalid("decision %s has no options", d.ID)
	case (d.SubjectType == "") != (d.SubjectID == ""):
		return WrapInvalid("decision %s has a partial subject", d.ID)
	case d.SubjectType != "" && !ValidKind(d.SubjectType):
		return WrapInvalid("decision %s has unknown subject type %q", d.ID, d.SubjectType)
	case (d.PolicyType == "") != (d.PolicyID == ""):
		return WrapInvalid("decision %s has a partial policy reference", d.ID)
	case (d.ExceptionKind == "") != (d.ExceptionReason == ""):
		return WrapInvalid("decision %s has a partial exception", d.ID)
	}

	chosen := 0
	optionIDs := make(map[string]bool, len(n.Options))
	for i := range n.Options {
		o := &n.Options[i]
		if o.DecisionID != d.ID {
			return WrapInvalid("option %s belongs to %s, not %s", o.ID, o.DecisionID, d.ID)
		}
		if strings.TrimSpace(o.Label) == "" {
			return WrapInvalid("option %s has no label", o.ID)
		}
		if optionIDs[o.ID] {
			return WrapInvalid("duplicate option id %s", o.ID)
		}
		optionIDs[o.ID] = true
		if o.Chosen {
			chosen++
		}
	}
	if chosen != 1 {
		return WrapInvalid("decision %s has %d chosen options, want 1", d.ID, chosen)
	}

	for i := range n.Evidence {
		e := &n.Evidence[i]
		if !optionIDs[e.OptionID] {
			return WrapInvalid("evidence references unknown option %s", e.OptionID)
		}
		if !ValidKind(e.EntityType) {
			return WrapInvalid("evidence has unknown entity type %q", e.EntityType)
		}
		if e.Stance != StanceSupports && e.Stance != StanceRefutes && e.Stance != StanceNeutral {
			return WrapInvalid("evidence has unknown stance %q", e.Stance)
		}
	}
	for i := range n.Outcomes {
		o := &n.Outcomes[i]
		if o.DecisionID != d.ID {
			return WrapInvalid("outcome belongs to %s, not %s", o.DecisionID, d.ID)
		}
		if !ValidKind(o.EntityType) {
			return WrapInvalid("outcome has unknown entity type %q", o.EntityType)
		}
		if !ValidRelation(o.Relation) {
			return WrapInvalid("outcome has unknown relation %q", o.Relation)
		}
	}
	for i := range n.Links {
		if err := n.Links[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ChosenOption returns the picked option. Call after Validate.
func (n *NewDecision) ChosenOption() *DecisionOption {
	for i := range n.Options {
		if n.Options[i].Chosen {
			return &n.Options[i]
		}
	}
	return nil
}

// ChosenEvidence returns the evidence rows citing the chosen option.
// Evidence attached to rejected options argues for roads not taken and
// is excluded from the decision's derived_from mirror links.
func (n *NewDecision) ChosenEvidence() []OptionEvidence {
	chosen := n.ChosenOption()
	if chosen == nil {
		return nil
	}
	var out []OptionEvidence
	for i := range n.Evidence {
		if n.Evidence[i].OptionID == chosen.ID {
			out = append(out, n.Evidence[i])
		}
	}
	return out
}

// BuildSearchText derives the flat text the FTS index stores for a
// decision. The format is line oriented and free of JSON punctuation so
// tokenization stays stable across rebuilds.
func BuildSearchText(d *Decision, options []DecisionOption, outcomes []DecisionOutcome) string {
	var b strings.Builder
	b.WriteString(d.Question)

	sorted := make([]DecisionOption, len(options))
	copy(sorted, options)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].ID < sorted[j].ID
	})

	for i := range sorted {
		if sorted[i].Chosen {
			b.WriteString("\nchosen: ")
			b.WriteString(sorted[i].Label)
			break
		}
	}
	b.WriteString("\nbecause: ")
	b.WriteString(d.Because)

	if d.SubjectID != "" {
		fmt.Fprintf(&b, "\nsubject: %s %s", d.SubjectType, d.SubjectID)
	}
	if len(sorted) > 0 {
		b.WriteString("\noptions: ")
		for i := range sorted {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(sorted[i].Label)
			if sorted[i].Summary != "" {
				b.WriteString(": ")
				b.WriteString(sorted[i].Summary)
			}
		}
	}
	if d.OutcomeSummary != "" {
		b.WriteString("\noutcome: ")
		b.WriteString(d.OutcomeSummary)
	}
	if d.ExceptionKind != "" {
		fmt.Fprintf(&b, "\nexception: %s %s", d.ExceptionKind, d.ExceptionReason)
	}
	for i := range outcomes {
		if outcomes[i].Summary != "" {
			b.WriteString("\noutcome: ")
			b.WriteString(outcomes[i].Summary)
		}
	}
	return b.String()
}

// DecisionView is a decision hydrated with its child rows.
type DecisionView struct {
	Decision     Decision          `json:"decision"`
	Options      []DecisionOption  `json:"options"`
	Evidence     []OptionEvidence  `json:"evidence,omitempty"`
	Outcomes     []DecisionOutcome `json:"outcomes,omitempty"`
	SupersededBy string            `json:"superseded_by,omitempty"`
}

// PrecedentHit is one ranked result from precedent search. Confidence
// is the candidate decision's own declared grade.
type PrecedentHit struct {
	DecisionID  string     `json:"decision_id"`
	Category    string     `json:"category"`
	SubjectType EntityKind `json:"subject_type,omitempty"`
	SubjectID   string     `json:"subject_id,omitempty"`
	Question    string     `json:"question"`
	ChosenLabel string     `json:"chosen_label"`
	Confidence  Confidence `json:"confidence"`
	Score       float64    `json:"score"`
	SharedCount int        `json:"shared_count"`
	CreatedAt   time.Time  `json:"created_at"`
}
