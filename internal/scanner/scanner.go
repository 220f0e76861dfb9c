// Package scanner drives the per-unit pipeline (load, parse, taint, rule
// evaluation) across a scan request and merges results deterministically.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/codesift-sec/codesift/internal/findings"
	"github.com/codesift-sec/codesift/internal/parse"
	"github.com/codesift-sec/codesift/internal/rules"
	"github.com/codesift-sec/codesift/internal/source"
	"github.com/codesift-sec/codesift/internal/taint"
)

// UnitInput is one code artifact submitted for scanning.
type UnitInput struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Request is one scan request: a set of units plus an optional rule subset.
type Request struct {
	Units   []UnitInput
	RuleIDs []string
}

// Stage names for error summary entries.
const (
	StageLoad = "load"
	StageRule = "rule"
)

// UnitError is one contained failure surfaced alongside the findings, so
// partial coverage is never silently reported as full coverage.
type UnitError struct {
	UnitID  string `json:"unit_id"`
	RuleID  string `json:"rule_id,omitempty"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// UnitWarning records a statement that degraded to opaque form in one unit.
type UnitWarning struct {
	UnitID      string            `json:"unit_id"`
	Degradation parse.Degradation `json:"degradation"`
}

// Report is the outcome of one scan: ordered findings plus the per-unit
// error summary.
type Report struct {
	RunID        string             `json:"run_id"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  time.Time          `json:"completed_at"`
	Findings     []findings.Finding `json:"findings"`
	Errors       []UnitError        `json:"errors,omitempty"`
	Degradations []UnitWarning      `json:"degradations,omitempty"`
	UnitsScanned int                `json:"units_scanned"`
	UnitsFailed  int                `json:"units_failed"`
	UnitsSkipped int                `json:"units_skipped"`
}

// Scanner schedules scan pipelines across worker goroutines. The catalog is
// read-only shared state and needs no locking.
type Scanner struct {
	catalog *rules.Catalog
	workers int
	logger  hclog.Logger
}

// New creates a Scanner with the provided catalog, worker bound, and logger.
func New(catalog *rules.Catalog, workers int, logger hclog.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		catalog: catalog,
		workers: workers,
		logger:  logger,
	}
}

// unitResult is the private per-worker output merged at the barrier.
type unitResult struct {
	hits         []rules.Hit
	errors       []UnitError
	degradations []UnitWarning
	failed       bool
	skipped      bool
}

// Scan runs the pipeline over every unit in the request. Unit-level and
// rule-level failures are contained and reported in the summary; only an
// invalid rule subset fails the call. Cancellation is cooperative: it is
// checked between units, in-flight units run to completion, and findings of
// completed units are preserved.
func (s *Scanner) Scan(ctx context.Context, request Request) (*Report, error) {
	catalog, err := s.catalog.Subset(request.RuleIDs)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("scan started", "run_id", report.RunID, "units", len(request.Units), "rules", catalog.Len(), "workers", s.workers)

	results := make([]unitResult, len(request.Units))
	guard := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i := range request.Units {
		if ctx.Err() != nil {
			for j := i; j < len(request.Units); j++ {
				results[j].skipped = true
			}
			s.logger.Warn("scan cancelled, skipping remaining units", "skipped", len(request.Units)-i)
			break
		}
		guard <- struct{}{}
		wg.Add(1)
		go func(i int, unit UnitInput) {
			defer wg.Done()
			results[i] = s.scanUnit(catalog, unit)
			<-guard
		}(i, request.Units[i])
	}
	wg.Wait()

	// barrier merge in request order: output is independent of worker
	// completion order
	var hits []rules.Hit
	for _, result := range results {
		switch {
		case result.skipped:
			report.UnitsSkipped++
		case result.failed:
			report.UnitsFailed++
		default:
			report.UnitsScanned++
		}
		hits = append(hits, result.hits...)
		report.Errors = append(report.Errors, result.errors...)
		report.Degradations = append(report.Degradations, result.degradations...)
	}
	report.Findings = findings.Aggregate(hits)
	report.CompletedAt = time.Now().UTC()

	s.logger.Info("scan completed",
		"run_id", report.RunID,
		"findings", len(report.Findings),
		"units_scanned", report.UnitsScanned,
		"units_failed", report.UnitsFailed,
		"errors", len(report.Errors),
	)
	return report, nil
}

// scanUnit runs the sequential pipeline for one unit: load, parse, taint,
// then rule evaluation. Taint analysis completes before any flow-sensitive
// rule sees the unit.
func (s *Scanner) scanUnit(catalog *rules.Catalog, input UnitInput) unitResult {
	var result unitResult

	unit, err := source.Load(input.ID, input.Language, input.Content)
	if err != nil {
		s.logger.Debug("unit failed to load", "unit", input.ID, "error", err)
		result.failed = true
		result.errors = append(result.errors, UnitError{
			UnitID:  input.ID,
			Stage:   StageLoad,
			Message: err.Error(),
		})
		return result
	}

	statements, degradations := parse.Parse(unit)
	for _, degradation := range degradations {
		result.degradations = append(result.degradations, UnitWarning{
			UnitID:      unit.ID(),
			Degradation: degradation,
		})
	}

	table := taint.Analyze(unit, statements)

	for _, stmt := range statements {
		hits, errs := catalog.Evaluate(rules.EvalContext{
			Unit:      unit,
			Statement: stmt,
			Taint:     table,
		})
		for _, hit := range hits {
			// a span outside the unit is a matcher defect, not a finding
			if !unit.Contains(hit.Span) {
				result.errors = append(result.errors, UnitError{
					UnitID:  unit.ID(),
					RuleID:  hit.RuleID,
					Stage:   StageRule,
					Message: fmt.Sprintf("discarded hit with span outside unit (lines %d-%d)", hit.Span.StartLine, hit.Span.EndLine),
				})
				continue
			}
			result.hits = append(result.hits, hit)
		}
		for _, evalErr := range errs {
			result.errors = append(result.errors, UnitError{
				UnitID:  unit.ID(),
				RuleID:  evalErr.RuleID,
				Stage:   StageRule,
				Message: evalErr.Error(),
			})
		}
	}
	return result
}
