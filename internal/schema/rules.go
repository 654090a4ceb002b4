package schema

import "strings"

// Rule is an entity-level invariant spanning multiple fields. Check is a pure
// function of the full candidate record; Path is where a failure is attached
// (not necessarily the fields Check reads).
type Rule struct {
	Message string
	Path    []string
	Check   func(values Record) bool
}

// ValidateRules runs every rule against the candidate — no short-circuit, so
// one submission surfaces all simultaneous violations. A panicking Check
// counts as a failure at its declared path.
func ValidateRules(rules []Rule, values Record) []FieldError {
	var errs []FieldError
	for _, r := range rules {
		if !runRule(r, values) {
			errs = append(errs, ferr(CodeRuleViolation, strings.Join(r.Path, "."), r.Message))
		}
	}
	return errs
}

func runRule(r Rule, values Record) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if r.Check == nil {
		return true
	}
	return r.Check(values)
}
