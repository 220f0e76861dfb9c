package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"
	yaml "gopkg.in/yaml.v2"

	"github.com/codesift-sec/codesift/pkg/shared/config"
	scanerrors "github.com/codesift-sec/codesift/pkg/shared/errors"
	"github.com/codesift-sec/codesift/pkg/shared/files"
	"github.com/codesift-sec/codesift/pkg/shared/httpclient"
)

// Definition is one entry of the declarative rule-definition resource: an
// ordered YAML list loaded at process start.
type Definition struct {
	ID          string `yaml:"id"`
	Category    string `yaml:"category"`
	Pattern     string `yaml:"pattern"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description"`
	FixTemplate string `yaml:"fix_template"`
}

// LoadDefinitions reads declarative rules from a local file path or an
// HTTP(S) URL and compiles them into regex-backed detectors. Any schema or
// pattern problem is a CatalogLoadError: fatal at startup, a scan never
// begins with a broken catalog.
func LoadDefinitions(sourceRef string, logger hclog.Logger, cfg *config.Config) ([]Rule, error) {
	raw, err := fetchDefinitions(sourceRef, logger, cfg)
	if err != nil {
		return nil, scanerrors.NewCatalogLoadError(sourceRef, err)
	}

	var defs []Definition
	if err := yaml.UnmarshalStrict(raw, &defs); err != nil {
		return nil, scanerrors.NewCatalogLoadError(sourceRef, fmt.Errorf("invalid YAML: %w", err))
	}

	rules := make([]Rule, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		rule, err := compileDefinition(def)
		if err != nil {
			return nil, scanerrors.NewCatalogLoadError(sourceRef, fmt.Errorf("definition %d: %w", i, err))
		}
		if seen[rule.ID] {
			return nil, scanerrors.NewCatalogLoadError(sourceRef, fmt.Errorf("duplicate rule id %q", rule.ID))
		}
		seen[rule.ID] = true
		rules = append(rules, rule)
	}

	logger.Debug("loaded declarative rules", "source", sourceRef, "count", len(rules))
	return rules, nil
}

func fetchDefinitions(sourceRef string, logger hclog.Logger, cfg *config.Config) ([]byte, error) {
	if strings.HasPrefix(sourceRef, "http://") || strings.HasPrefix(sourceRef, "https://") {
		client := httpclient.InitializeRestyClient(logger, cfg)
		resp, err := client.R().Get(sourceRef)
		if err != nil {
			return nil, fmt.Errorf("fetch rules: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch rules: unexpected status %s", resp.Status())
		}
		return resp.Body(), nil
	}

	content, err := files.ReadFileString(sourceRef)
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// compileDefinition validates one definition and builds its regex matcher.
// Declarative rules are purely structural: the pattern runs against each
// statement's raw text.
func compileDefinition(def Definition) (Rule, error) {
	if strings.TrimSpace(def.ID) == "" {
		return Rule{}, fmt.Errorf("missing id")
	}
	category, err := ParseCategory(def.Category)
	if err != nil {
		return Rule{}, err
	}
	severity, err := ParseSeverity(def.Severity)
	if err != nil {
		return Rule{}, err
	}
	if strings.TrimSpace(def.Pattern) == "" {
		return Rule{}, fmt.Errorf("rule %q: missing pattern", def.ID)
	}
	re, err := regexp.Compile(def.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: invalid pattern: %w", def.ID, err)
	}

	rule := Rule{
		ID:          def.ID,
		Category:    category,
		Severity:    severity,
		Description: def.Description,
		FixTemplate: def.FixTemplate,
	}
	rule.Match = func(ctx EvalContext) []Hit {
		match := re.FindString(ctx.Statement.Raw)
		if match == "" {
			return nil
		}
		message := rule.Description
		if message == "" {
			message = fmt.Sprintf("statement matches pattern of rule %q", rule.ID)
		}
		return []Hit{rule.hit(ctx, ConfidenceHeuristic, message,
			map[string]string{"match": match})}
	}
	return rule, nil
}
