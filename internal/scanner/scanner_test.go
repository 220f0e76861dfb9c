package scanner

import (
	"context"
	"fmt"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesift-sec/codesift/internal/rules"
	"github.com/codesift-sec/codesift/internal/source"
)

func newTestScanner(t *testing.T, workers int) *Scanner {
	t.Helper()
	return New(rules.Default(), workers, hclog.NewNullLogger())
}

func TestScanGoldenFindings(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		ruleID   string
		category rules.Category
		line     int
	}{
		{
			name:     "hardcoded secret",
			content:  "import os\n\nAPI_KEY = \"sk-live-abc123def456\"\n",
			ruleID:   "hardcoded-secret-literal",
			category: rules.CategoryHardcodedSecret,
			line:     3,
		},
		{
			name: "sql injection",
			content: "def get_user(username):\n" +
				"    query = \"SELECT * FROM users WHERE name = '\" + username + \"'\"\n" +
				"    cursor.execute(query)\n",
			ruleID:   "sql-string-interpolation",
			category: rules.CategorySQLInjection,
			line:     3,
		},
		{
			name:     "weak crypto",
			content:  "digest = hashlib.md5(password)\n",
			ruleID:   "weak-hash-algorithm",
			category: rules.CategoryWeakCrypto,
			line:     1,
		},
		{
			name:     "auth bypass",
			content:  "if user_id == 1 or role == \"admin\":\n    grant_admin()\n",
			ruleID:   "hardcoded-auth-check",
			category: rules.CategoryAuthBypass,
			line:     1,
		},
		{
			name:     "sensitive logging",
			content:  "password = \"hunter2-super-secret\"\nlogger.info(\"login\", password)\n",
			ruleID:   "sensitive-data-logging",
			category: rules.CategorySensitiveLogging,
			line:     2,
		},
		{
			name:     "unsafe mutation",
			content:  "cursor.execute(\"DROP TABLE users\")\n",
			ruleID:   "unsafe-state-reset",
			category: rules.CategoryUnsafeMutation,
			line:     1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestScanner(t, 2)
			report, err := s.Scan(context.Background(), Request{
				Units: []UnitInput{{ID: "app.py", Language: "python", Content: tc.content}},
			})
			require.NoError(t, err)

			var matched []string
			for _, finding := range report.Findings {
				matched = append(matched, finding.RuleID)
				if finding.RuleID != tc.ruleID {
					continue
				}
				assert.Equal(t, tc.category, finding.Category)
				assert.Equal(t, tc.line, finding.Span.StartLine)
				assert.Equal(t, "app.py", finding.UnitID)
				assert.NotEmpty(t, finding.Message)
			}
			// exactly one finding for the golden rule; hardcoded secret may
			// legitimately co-occur on the sensitive logging snippet
			count := 0
			for _, id := range matched {
				if id == tc.ruleID {
					count++
				}
			}
			assert.Equal(t, 1, count, "findings: %v", matched)
		})
	}
}

func TestScanSecureCorpusHasNoFindings(t *testing.T) {
	content := "import os\n" +
		"import bcrypt\n" +
		"\n" +
		"API_KEY = os.getenv(\"API_KEY\")\n" +
		"\n" +
		"def get_user(username):\n" +
		"    query = \"SELECT * FROM users WHERE name = ?\"\n" +
		"    cursor.execute(query, (username,))\n" +
		"\n" +
		"def store_password(password):\n" +
		"    hashed = bcrypt.hashpw(password, bcrypt.gensalt())\n" +
		"    db.save(hashed)\n" +
		"\n" +
		"def login(username):\n" +
		"    logger.info(\"login attempt for %s\", username)\n"

	s := newTestScanner(t, 2)
	report, err := s.Scan(context.Background(), Request{
		Units: []UnitInput{{ID: "service.py", Language: "python", Content: content}},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
	assert.Equal(t, 1, report.UnitsScanned)
	assert.Empty(t, report.Errors)
}

func TestScanIsDeterministic(t *testing.T) {
	var units []UnitInput
	for i := 0; i < 8; i++ {
		units = append(units, UnitInput{
			ID:       fmt.Sprintf("unit-%d.py", i),
			Language: "python",
			Content: fmt.Sprintf("API_KEY_%d = \"sk-live-abc%d\"\n", i, i) +
				"digest = hashlib.md5(data)\n" +
				"if user_id == 1:\n    pass\n",
		})
	}

	s := newTestScanner(t, 4)
	first, err := s.Scan(context.Background(), Request{Units: units})
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), Request{Units: units})
	require.NoError(t, err)

	require.NotEmpty(t, first.Findings)
	assert.Equal(t, first.Findings, second.Findings)
	assert.Equal(t, first.Errors, second.Errors)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestScanHasNoDuplicateFindings(t *testing.T) {
	s := newTestScanner(t, 4)
	report, err := s.Scan(context.Background(), Request{
		Units: []UnitInput{{
			ID:       "app.py",
			Language: "python",
			Content:  "SECRET_TOKEN = \"ghp_abc123\"\ndigest = hashlib.md5(data)\n",
		}},
	})
	require.NoError(t, err)

	type key struct {
		rule string
		unit string
		line int
		col  int
	}
	seen := make(map[key]bool)
	for _, finding := range report.Findings {
		k := key{finding.RuleID, finding.UnitID, finding.Span.StartLine, finding.Span.StartColumn}
		assert.False(t, seen[k], "duplicate finding %+v", k)
		seen[k] = true
	}
}

func TestScanPartialFailure(t *testing.T) {
	var units []UnitInput
	for i := 0; i < 10; i++ {
		content := "x = 1\n"
		if i == 4 {
			content = "broken \xff\xfe input"
		}
		units = append(units, UnitInput{
			ID:       fmt.Sprintf("unit-%d.py", i),
			Language: "python",
			Content:  content,
		})
	}

	s := newTestScanner(t, 3)
	report, err := s.Scan(context.Background(), Request{Units: units})
	require.NoError(t, err)

	assert.Equal(t, 9, report.UnitsScanned)
	assert.Equal(t, 1, report.UnitsFailed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "unit-4.py", report.Errors[0].UnitID)
	assert.Equal(t, StageLoad, report.Errors[0].Stage)
	assert.Contains(t, report.Errors[0].Message, "unreadable_input")
}

func TestScanEmptyUnitFails(t *testing.T) {
	s := newTestScanner(t, 1)
	report, err := s.Scan(context.Background(), Request{
		Units: []UnitInput{{ID: "empty.py", Language: "python", Content: "  \n\n"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.UnitsFailed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Message, "empty_unit")
}

func TestScanRuleIsolation(t *testing.T) {
	panicking := rules.Rule{
		ID:       "always-panics",
		Category: rules.CategoryWeakCrypto,
		Severity: rules.SeverityLow,
		Match:    func(ctx rules.EvalContext) []rules.Hit { panic("boom") },
	}
	catalog, err := rules.Default().Merge([]rules.Rule{panicking})
	require.NoError(t, err)

	s := New(catalog, 2, hclog.NewNullLogger())
	report, err := s.Scan(context.Background(), Request{
		Units: []UnitInput{{
			ID:       "app.py",
			Language: "python",
			Content:  "API_KEY = \"sk-live-abc123\"\n",
		}},
	})
	require.NoError(t, err)

	// the healthy rules still produce their findings
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "hardcoded-secret-literal", report.Findings[0].RuleID)

	// and every evaluation failure is attributed to the broken rule
	require.NotEmpty(t, report.Errors)
	for _, reportErr := range report.Errors {
		assert.Equal(t, StageRule, reportErr.Stage)
		assert.Equal(t, "always-panics", reportErr.RuleID)
	}
	assert.Equal(t, 1, report.UnitsScanned)
}

func TestScanDiscardsHitsOutsideUnit(t *testing.T) {
	outOfRange := rules.Rule{
		ID:       "bad-span",
		Category: rules.CategoryWeakCrypto,
		Severity: rules.SeverityLow,
		Match: func(ctx rules.EvalContext) []rules.Hit {
			return []rules.Hit{{
				RuleID:   "bad-span",
				Category: rules.CategoryWeakCrypto,
				Severity: rules.SeverityLow,
				UnitID:   ctx.Unit.ID(),
				Span:     source.Span{StartLine: 100, StartColumn: 1, EndLine: 120, EndColumn: 1},
				Message:  "never reportable",
			}}
		},
	}
	catalog, err := rules.Default().Merge([]rules.Rule{outOfRange})
	require.NoError(t, err)

	s := New(catalog, 1, hclog.NewNullLogger())
	report, err := s.Scan(context.Background(), Request{
		Units: []UnitInput{{
			ID:       "app.py",
			Language: "python",
			Content:  "API_KEY = \"sk-live-abc123\"\n",
		}},
	})
	require.NoError(t, err)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, "hardcoded-secret-literal", report.Findings[0].RuleID)

	require.NotEmpty(t, report.Errors)
	assert.Equal(t, StageRule, report.Errors[0].Stage)
	assert.Equal(t, "bad-span", report.Errors[0].RuleID)
	assert.Contains(t, report.Errors[0].Message, "span outside unit")
}

func TestScanRuleSubset(t *testing.T) {
	s := newTestScanner(t, 2)
	content := "API_KEY = \"sk-live-abc123\"\ndigest = hashlib.md5(data)\n"

	report, err := s.Scan(context.Background(), Request{
		Units:   []UnitInput{{ID: "app.py", Language: "python", Content: content}},
		RuleIDs: []string{"weak-hash-algorithm"},
	})
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "weak-hash-algorithm", report.Findings[0].RuleID)
}

func TestScanUnknownRuleSubsetFails(t *testing.T) {
	s := newTestScanner(t, 2)
	_, err := s.Scan(context.Background(), Request{
		Units:   []UnitInput{{ID: "app.py", Language: "python", Content: "x = 1\n"}},
		RuleIDs: []string{"no-such-rule"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-rule")
}

func TestScanCancelledContextSkipsUnits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestScanner(t, 2)
	report, err := s.Scan(ctx, Request{
		Units: []UnitInput{
			{ID: "a.py", Language: "python", Content: "x = 1\n"},
			{ID: "b.py", Language: "python", Content: "y = 2\n"},
			{ID: "c.py", Language: "python", Content: "z = 3\n"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.UnitsSkipped)
	assert.Equal(t, 0, report.UnitsScanned)
	assert.Empty(t, report.Findings)
}

func TestScanSurfacesDegradations(t *testing.T) {
	s := newTestScanner(t, 1)
	report, err := s.Scan(context.Background(), Request{
		Units: []UnitInput{{
			ID:       "app.py",
			Language: "python",
			Content:  "x = @@@\nAPI_KEY = \"sk-live-abc123\"\n",
		}},
	})
	require.NoError(t, err)

	// the malformed statement degrades, the rest still produces findings
	require.Len(t, report.Degradations, 1)
	assert.Equal(t, "app.py", report.Degradations[0].UnitID)
	assert.Equal(t, 1, report.Degradations[0].Degradation.Span.StartLine)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "hardcoded-secret-literal", report.Findings[0].RuleID)
	assert.Equal(t, 1, report.UnitsScanned)
}

func TestScanWorkerFloor(t *testing.T) {
	s := New(rules.Default(), 0, hclog.NewNullLogger())
	report, err := s.Scan(context.Background(), Request{
		Units: []UnitInput{{ID: "a.py", Language: "python", Content: "x = 1\n"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.UnitsScanned)
}
