package rules

import (
	"fmt"

	scanerrors "github.com/codesift-sec/codesift/pkg/shared/errors"
)

// Catalog is the process-wide, read-only registry of detectors. It is loaded
// once at startup and safe for concurrent use without locking.
type Catalog struct {
	rules []Rule
	index map[string]int
}

// NewCatalog builds a catalog, rejecting duplicate rule IDs.
func NewCatalog(rules ...Rule) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(rules))}
	for _, rule := range rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule with empty id")
		}
		if _, exists := c.index[rule.ID]; exists {
			return nil, fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		c.index[rule.ID] = len(c.rules)
		c.rules = append(c.rules, rule)
	}
	return c, nil
}

// Default returns the builtin catalog.
func Default() *Catalog {
	c, err := NewCatalog(Builtins()...)
	if err != nil {
		// builtin IDs are fixed at compile time
		panic(err)
	}
	return c
}

// Len returns the number of registered rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Rules returns the registered rules in registration order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Get returns the rule with the given ID.
func (c *Catalog) Get(id string) (Rule, bool) {
	i, ok := c.index[id]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

// Subset returns a catalog restricted to the given rule IDs, preserving the
// original registration order. Unknown IDs are an error.
func (c *Catalog) Subset(ids []string) (*Catalog, error) {
	if len(ids) == 0 {
		return c, nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.index[id]; !ok {
			return nil, fmt.Errorf("unknown rule id %q", id)
		}
		wanted[id] = true
	}
	var selected []Rule
	for _, rule := range c.rules {
		if wanted[rule.ID] {
			selected = append(selected, rule)
		}
	}
	return NewCatalog(selected...)
}

// Merge returns a new catalog with extra rules appended after the existing
// ones.
func (c *Catalog) Merge(extra []Rule) (*Catalog, error) {
	return NewCatalog(append(c.Rules(), extra...)...)
}

// Evaluate runs every rule against one statement. A failing rule is isolated:
// its panic is converted to a RuleEvaluationError and the remaining rules
// still evaluate.
func (c *Catalog) Evaluate(ctx EvalContext) ([]Hit, []*scanerrors.RuleEvaluationError) {
	var hits []Hit
	var errs []*scanerrors.RuleEvaluationError
	for _, rule := range c.rules {
		ruleHits, err := evaluateOne(rule, ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		hits = append(hits, ruleHits...)
	}
	return hits, errs
}

func evaluateOne(rule Rule, ctx EvalContext) (hits []Hit, evalErr *scanerrors.RuleEvaluationError) {
	defer func() {
		if r := recover(); r != nil {
			hits = nil
			evalErr = scanerrors.NewRuleEvaluationError(
				rule.ID,
				ctx.Unit.ID(),
				ctx.Statement.Span.StartLine,
				fmt.Sprintf("matcher panicked: %v", r),
			)
		}
	}()
	if rule.Match == nil {
		return nil, nil
	}
	return rule.Match(ctx), nil
}
