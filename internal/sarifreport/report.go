// Package sarifreport renders a scan report into SARIF 2.1.0 for consumption
// by code-review tooling. The core engine itself only exposes structured
// findings; this is presentation.
package sarifreport

import (
	"fmt"
	"os"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/codesift-sec/codesift/internal/rules"
	"github.com/codesift-sec/codesift/internal/scanner"
)

const toolName = "codesift"
const toolURI = "https://github.com/codesift-sec/codesift"

// Build converts a scan report into a SARIF report.
func Build(report *scanner.Report, catalog *rules.Catalog) (*sarif.Report, error) {
	sarifReport, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolURI)
	for _, finding := range report.Findings {
		rule := run.AddRule(finding.RuleID).
			WithDescription(ruleDescription(catalog, finding.RuleID)).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: toSarifLevel(finding.Severity),
			})

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(finding.UnitID)).
				WithRegion(sarif.NewRegion().
					WithStartLine(finding.Span.StartLine).
					WithStartColumn(finding.Span.StartColumn).
					WithEndLine(finding.Span.EndLine).
					WithEndColumn(finding.Span.EndColumn)),
		)

		message := finding.Message
		if finding.Suggestion != "" {
			message = fmt.Sprintf("%s. Suggested fix: %s", message, finding.Suggestion)
		}
		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(message)).
			WithLevel(toSarifLevel(finding.Severity)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}
	sarifReport.AddRun(run)

	return sarifReport, nil
}

// WriteFile renders the scan report as SARIF into outputPath.
func WriteFile(outputPath string, report *scanner.Report, catalog *rules.Catalog) error {
	sarifReport, err := Build(report, catalog)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error writing SARIF report: %w", err)
	}
	defer func() { _ = file.Close() }()

	return sarifReport.PrettyWrite(file)
}

func ruleDescription(catalog *rules.Catalog, ruleID string) string {
	if catalog != nil {
		if rule, ok := catalog.Get(ruleID); ok && rule.Description != "" {
			return rule.Description
		}
	}
	return ruleID
}

func toSarifLevel(severity rules.Severity) string {
	switch severity {
	case rules.SeverityCritical, rules.SeverityHigh:
		return "error"
	case rules.SeverityMedium:
		return "warning"
	case rules.SeverityLow:
		return "note"
	}
	return "none"
}
