package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesift-sec/codesift/internal/rules"
	"github.com/codesift-sec/codesift/internal/source"
)

func hit(ruleID, unitID string, line int, severity rules.Severity, confidence float64) rules.Hit {
	return rules.Hit{
		RuleID:     ruleID,
		Category:   rules.CategoryWeakCrypto,
		Severity:   severity,
		Confidence: confidence,
		UnitID:     unitID,
		Span:       source.Span{StartLine: line, StartColumn: 1, EndLine: line, EndColumn: 10},
		Message:    "m",
	}
}

func TestAggregateCollapsesDuplicates(t *testing.T) {
	hits := []rules.Hit{
		hit("r1", "a.py", 3, rules.SeverityHigh, 0.6),
		hit("r1", "a.py", 3, rules.SeverityHigh, 0.9),
		hit("r1", "a.py", 3, rules.SeverityHigh, 0.75),
	}
	out := Aggregate(hits)
	require.Len(t, out, 1)
	assert.Equal(t, 0.9, out[0].Confidence)
}

func TestAggregateKeepsDistinctSpans(t *testing.T) {
	hits := []rules.Hit{
		hit("r1", "a.py", 3, rules.SeverityHigh, 0.9),
		hit("r1", "a.py", 7, rules.SeverityHigh, 0.9),
		hit("r2", "a.py", 3, rules.SeverityHigh, 0.9),
		hit("r1", "b.py", 3, rules.SeverityHigh, 0.9),
	}
	out := Aggregate(hits)
	assert.Len(t, out, 4)
}

func TestAggregateOrdering(t *testing.T) {
	hits := []rules.Hit{
		hit("r2", "b.py", 5, rules.SeverityLow, 0.6),
		hit("r1", "a.py", 9, rules.SeverityHigh, 0.9),
		hit("r9", "a.py", 2, rules.SeverityMedium, 0.6),
		hit("r3", "a.py", 2, rules.SeverityCritical, 0.9),
		hit("r1", "a.py", 2, rules.SeverityCritical, 0.9),
	}
	out := Aggregate(hits)
	require.Len(t, out, 5)

	// unit path first, then line, then severity rank, then rule id
	assert.Equal(t, "r1", out[0].RuleID)
	assert.Equal(t, "r3", out[1].RuleID)
	assert.Equal(t, "r9", out[2].RuleID)
	assert.Equal(t, "r1", out[3].RuleID)
	assert.Equal(t, "a.py", out[3].UnitID)
	assert.Equal(t, "r2", out[4].RuleID)
	assert.Equal(t, "b.py", out[4].UnitID)
}

func TestAggregateIsDeterministic(t *testing.T) {
	hits := []rules.Hit{
		hit("r2", "b.py", 5, rules.SeverityLow, 0.6),
		hit("r1", "a.py", 9, rules.SeverityHigh, 0.9),
		hit("r1", "a.py", 9, rules.SeverityHigh, 0.6),
		hit("r3", "c.py", 1, rules.SeverityCritical, 0.75),
	}
	first := Aggregate(hits)

	// shuffled input, identical output
	reversed := make([]rules.Hit, 0, len(hits))
	for i := len(hits) - 1; i >= 0; i-- {
		reversed = append(reversed, hits[i])
	}
	second := Aggregate(reversed)
	assert.Equal(t, first, second)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}
