// Package findings holds the reported vulnerability model and the aggregation
// step that turns raw rule hits into a deduplicated, deterministically
// ordered report.
package findings

import (
	"github.com/codesift-sec/codesift/internal/rules"
	"github.com/codesift-sec/codesift/internal/source"
)

// Finding is one reported, deduplicated vulnerability instance. Findings are
// pure values: never mutated after creation.
type Finding struct {
	RuleID     string         `json:"rule_id"`
	Category   rules.Category `json:"category"`
	Severity   rules.Severity `json:"severity"`
	Confidence float64        `json:"confidence"`
	UnitID     string         `json:"unit_id"`
	Span       source.Span    `json:"span"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
}
