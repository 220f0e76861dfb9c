package sarifreport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesift-sec/codesift/internal/findings"
	"github.com/codesift-sec/codesift/internal/rules"
	"github.com/codesift-sec/codesift/internal/scanner"
	"github.com/codesift-sec/codesift/internal/source"
)

func sampleReport() *scanner.Report {
	return &scanner.Report{
		RunID: "run-1",
		Findings: []findings.Finding{
			{
				RuleID:     "hardcoded-secret-literal",
				Category:   rules.CategoryHardcodedSecret,
				Severity:   rules.SeverityCritical,
				Confidence: 0.9,
				UnitID:     "app.py",
				Span:       source.Span{StartLine: 3, StartColumn: 1, EndLine: 3, EndColumn: 30},
				Message:    `hardcoded credential assigned to "API_KEY"`,
				Suggestion: "load API_KEY from the environment",
			},
			{
				RuleID:     "unsafe-state-reset",
				Category:   rules.CategoryUnsafeMutation,
				Severity:   rules.SeverityMedium,
				Confidence: 0.9,
				UnitID:     "admin.py",
				Span:       source.Span{StartLine: 10, StartColumn: 1, EndLine: 10, EndColumn: 35},
				Message:    `unscoped destructive statement "DROP" reaches cursor.execute()`,
			},
		},
		UnitsScanned: 2,
	}
}

func TestBuild(t *testing.T) {
	report, err := Build(sampleReport(), rules.Default())
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)

	run := report.Runs[0]
	assert.Equal(t, toolName, run.Tool.Driver.Name)
	require.Len(t, run.Results, 2)

	first := run.Results[0]
	require.NotNil(t, first.RuleID)
	assert.Equal(t, "hardcoded-secret-literal", *first.RuleID)
	require.NotNil(t, first.Level)
	assert.Equal(t, "error", *first.Level)
	require.Len(t, first.Locations, 1)
	region := first.Locations[0].PhysicalLocation.Region
	require.NotNil(t, region)
	assert.Equal(t, 3, *region.StartLine)

	// the suggestion rides along in the result message
	require.NotNil(t, first.Message.Text)
	assert.Contains(t, *first.Message.Text, "load API_KEY from the environment")

	second := run.Results[1]
	require.NotNil(t, second.Level)
	assert.Equal(t, "warning", *second.Level)
}

func TestBuildUsesCatalogDescriptions(t *testing.T) {
	report, err := Build(sampleReport(), rules.Default())
	require.NoError(t, err)

	run := report.Runs[0]
	require.NotEmpty(t, run.Tool.Driver.Rules)
	descriptor := run.Tool.Driver.Rules[0]
	require.NotNil(t, descriptor.ShortDescription)
	assert.NotEmpty(t, *descriptor.ShortDescription.Text)
}

func TestSeverityLevels(t *testing.T) {
	var tests = []struct {
		severity rules.Severity
		want     string
	}{
		{rules.SeverityCritical, "error"},
		{rules.SeverityHigh, "error"},
		{rules.SeverityMedium, "warning"},
		{rules.SeverityLow, "note"},
		{rules.Severity("bogus"), "none"},
	}
	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			if got := toSarifLevel(tt.severity); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.sarif")
	require.NoError(t, WriteFile(path, sampleReport(), rules.Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"2.1.0"`)
	assert.Contains(t, string(data), "hardcoded-secret-literal")
	assert.Contains(t, string(data), "app.py")
}
