package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNewDecision() NewDecision {
	return NewDecision{
		Decision: Decision{
			ID:         "dec-1",
			SessionID:  "ses-1",
			Category:   CategoryArchitecture,
			Question:   "How should retries back off?",
			Because:    "Exponential backoff bounds load under partial outage.",
			Confidence: ConfidenceHigh,
		},
		Options: []DecisionOption{
			{ID: "opt-1", DecisionID: "dec-1", Label: "fixed interval", Position: 0},
			{ID: "opt-2", DecisionID: "dec-1", Label: "exponential", Chosen: true, Position: 1},
		},
	}
}

func TestNewDecisionValidate(t *testing.T) {
	nd := validNewDecision()
	require.NoError(t, nd.Validate())
	require.NotNil(t, nd.ChosenOption())
	assert.Equal(t, "opt-2", nd.ChosenOption().ID)
}

func TestNewDecisionValidateCategory(t *testing.T) {
	nd := validNewDecision()
	nd.Decision.Category = "vibes"
	require.ErrorIs(t, nd.Validate(), ErrInvalidInput)

	for _, cat := range []string{
		CategoryVerdict, CategoryArchitecture, CategoryPlanning,
		CategoryException, CategoryCompletion,
	} {
		nd.Decision.Category = cat
		require.NoError(t, nd.Validate(), "category %s", cat)
	}
}

func TestNewDecisionValidateConfidence(t *testing.T) {
	nd := validNewDecision()
	nd.Decision.Confidence = ""
	require.ErrorIs(t, nd.Validate(), ErrInvalidInput)

	nd.Decision.Confidence = Confidence("certain")
	require.ErrorIs(t, nd.Validate(), ErrInvalidInput)
}

func TestNewDecisionValidateChosenCount(t *testing.T) {
	nd := validNewDecision()
	nd.Options[0].Chosen = true
	err := nd.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "2 chosen")

	nd = validNewDecision()
	nd.Options[1].Chosen = false
	require.ErrorIs(t, nd.Validate(), ErrInvalidInput)
}

func TestNewDecisionValidatePartialPairs(t *testing.T) {
	nd := validNewDecision()
	nd.Decision.ExceptionKind = ExceptionPolicyOverride
	require.ErrorIs(t, nd.Validate(), ErrInvalidInput)
	nd.Decision.ExceptionReason = "latency budget forced it"
	require.NoError(t, nd.Validate())

	nd = validNewDecision()
	nd.Decision.SubjectID = "fnd-1"
	require.ErrorIs(t, nd.Validate(), ErrInvalidInput)
	nd.Decision.SubjectType = KindFinding
	require.NoError(t, nd.Validate())
	nd.Decision.SubjectType = "crate"
	require.ErrorIs(t, nd.Validate(), ErrInvalidInput)

	nd = validNewDecision()
	nd.Decision.PolicyType = "coding_standard"
	require.ErrorIs(t, nd.Validate(), ErrInvalidInput)
	nd.Decision.PolicyID = "pol-1"
	require.NoError(t, nd.Validate())
}

func TestNewDecisionValidateEvidenceOption(t *testing.T) {
	nd := validNewDecision()
	nd.Evidence = []OptionEvidence{{
		OptionID:   "opt-missing",
		EntityType: KindFinding,
		EntityID:   "fnd-1",
		Stance:     StanceSupports,
	}}
	require.ErrorIs(t, nd.Validate(), ErrInvalidInput)
}

func TestChosenEvidence(t *testing.T) {
	nd := validNewDecision()
	nd.Evidence = []OptionEvidence{
		{OptionID: "opt-1", EntityType: KindFinding, EntityID: "fnd-1", Stance: StanceRefutes},
		{OptionID: "opt-2", EntityType: KindFinding, EntityID: "fnd-2", Stance: StanceSupports},
		{OptionID: "opt-2", EntityType: KindInsight, EntityID: "ins-1", Stance: StanceNeutral},
	}
	require.NoError(t, nd.Validate())

	got := nd.ChosenEvidence()
	require.Len(t, got, 2)
	assert.Equal(t, "fnd-2", got[0].EntityID)
	assert.Equal(t, "ins-1", got[1].EntityID)
}

func TestBuildSearchText(t *testing.T) {
	nd := validNewDecision()
	nd.Options[0].Summary = "simpler"
	nd.Decision.SubjectType = KindHypothesis
	nd.Decision.SubjectID = "hyp-1"
	nd.Decision.OutcomeSummary = "retry loop rewritten with jitter"
	nd.Decision.ExceptionKind = ExceptionPrecedentBreak
	nd.Decision.ExceptionReason = "prior art used fixed"
	nd.Outcomes = []DecisionOutcome{{
		DecisionID: "dec-1",
		EntityType: KindTask,
		EntityID:   "tsk-1",
		Relation:   RelationTriggers,
		Summary:    "rewrite the retry loop",
	}}

	got := BuildSearchText(&nd.Decision, nd.Options, nd.Outcomes)
	want := "How should retries back off?\n" +
		"chosen: exponential\n" +
		"because: Exponential backoff bounds load under partial outage.\n" +
		"subject: hypothesis hyp-1\n" +
		"options: fixed interval: simpler, exponential\n" +
		"outcome: retry loop rewritten with jitter\n" +
		"exception: precedent_break prior art used fixed\n" +
		"outcome: rewrite the retry loop"
	assert.Equal(t, want, got)
}

func TestBuildSearchTextOrdersByPosition(t *testing.T) {
	nd := validNewDecision()
	nd.Options[0].Position = 5
	got := BuildSearchText(&nd.Decision, nd.Options, nil)
	assert.Contains(t, got, "options: exponential, fixed interval")
}
