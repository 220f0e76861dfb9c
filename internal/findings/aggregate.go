package findings

import (
	"sort"

	"github.com/codesift-sec/codesift/internal/rules"
	"github.com/codesift-sec/codesift/internal/source"
)

// dedupeKey is the identity of a finding for duplicate collapsing.
type dedupeKey struct {
	ruleID string
	unitID string
	span   source.Span
}

// Aggregate merges raw rule hits into the final finding list: exact
// (rule, unit, span) duplicates collapse to one keeping the highest
// confidence, and the result is stable-sorted so report ordering is
// identical across runs and worker schedules.
func Aggregate(hits []rules.Hit) []Finding {
	byKey := make(map[dedupeKey]Finding, len(hits))
	order := make([]dedupeKey, 0, len(hits))

	for _, hit := range hits {
		key := dedupeKey{ruleID: hit.RuleID, unitID: hit.UnitID, span: hit.Span}
		existing, ok := byKey[key]
		if !ok {
			order = append(order, key)
			byKey[key] = fromHit(hit)
			continue
		}
		if hit.Confidence > existing.Confidence {
			byKey[key] = fromHit(hit)
		}
	}

	out := make([]Finding, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	Sort(out)
	return out
}

// Sort stable-sorts findings by (unit path, line, column, severity
// descending, rule id).
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.UnitID != b.UnitID {
			return a.UnitID < b.UnitID
		}
		if a.Span.StartLine != b.Span.StartLine {
			return a.Span.StartLine < b.Span.StartLine
		}
		if a.Span.StartColumn != b.Span.StartColumn {
			return a.Span.StartColumn < b.Span.StartColumn
		}
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		return a.RuleID < b.RuleID
	})
}

func fromHit(hit rules.Hit) Finding {
	return Finding{
		RuleID:     hit.RuleID,
		Category:   hit.Category,
		Severity:   hit.Severity,
		Confidence: hit.Confidence,
		UnitID:     hit.UnitID,
		Span:       hit.Span,
		Message:    hit.Message,
		Suggestion: hit.Suggestion,
	}
}
