package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/seo-cli/internal/model"
	"github.com/sells-group/seo-cli/internal/taskcfg"
)

// Validate checks a structured payload against a stage's rule set. Rules of
// unknown kind are vacuously satisfied so configuration drift never blocks
// progress.
func Validate(data map[string]any, rules []taskcfg.Rule) model.ValidationOutcome {
	var violations []string
	for _, rule := range rules {
		if !checkRule(rule, data) {
			violations = append(violations, describeViolation(rule))
		}
	}
	return model.ValidationOutcome{Valid: len(violations) == 0, Violations: violations}
}

func describeViolation(rule taskcfg.Rule) string {
	switch rule.Kind {
	case taskcfg.KindListLength:
		return fmt.Sprintf("%s length must be within %g-%g", rule.Field, rule.Min, rule.Max)
	case taskcfg.KindNumericRange:
		return fmt.Sprintf("%s must be between %g and %g", rule.Field, rule.Min, rule.Max)
	case taskcfg.KindMemberOf:
		return fmt.Sprintf("%s must be one of: %s", rule.Field, strings.Join(rule.Values, ", "))
	case taskcfg.KindPositive:
		return fmt.Sprintf("%s must be greater than 0", rule.Field)
	case taskcfg.KindNonEmpty:
		return fmt.Sprintf("%s must not be empty", rule.Field)
	case taskcfg.KindConsistency:
		return fmt.Sprintf("%s must be consistent with %s >= %g", rule.Field, rule.ScoreField, rule.Threshold)
	default:
		return fmt.Sprintf("validation failed: %s %s", rule.Kind, rule.Field)
	}
}

func checkRule(rule taskcfg.Rule, data map[string]any) bool {
	switch rule.Kind {
	case taskcfg.KindListLength:
		vals, ok := resolvePath(data, rule.Field)
		if !ok {
			return false
		}
		return allValues(vals, func(v any) bool {
			n, ok := lengthOf(v)
			return ok && float64(n) >= rule.Min && float64(n) <= rule.Max
		})

	case taskcfg.KindNumericRange:
		vals, ok := resolvePath(data, rule.Field)
		if !ok {
			return false
		}
		return allValues(vals, func(v any) bool {
			f, ok := asFloat(v)
			return ok && f >= rule.Min && f <= rule.Max
		})

	case taskcfg.KindMemberOf:
		vals, ok := resolvePath(data, rule.Field)
		if !ok {
			return false
		}
		return allValues(vals, func(v any) bool {
			s, ok := v.(string)
			if !ok {
				return false
			}
			for _, allowed := range rule.Values {
				if s == allowed {
					return true
				}
			}
			return false
		})

	case taskcfg.KindPositive:
		vals, ok := resolvePath(data, rule.Field)
		if !ok {
			return false
		}
		return allValues(vals, func(v any) bool {
			f, ok := asFloat(v)
			return ok && f > 0
		})

	case taskcfg.KindNonEmpty:
		vals, ok := resolvePath(data, rule.Field)
		if !ok {
			return false
		}
		return allValues(vals, func(v any) bool {
			n, ok := lengthOf(v)
			return ok && n > 0
		})

	case taskcfg.KindConsistency:
		return checkConsistency(rule, data)

	default:
		return true
	}
}

// checkConsistency verifies a boolean field equals "score meets threshold
// and no severe issues are present".
func checkConsistency(rule taskcfg.Rule, data map[string]any) bool {
	flagVals, ok := resolvePath(data, rule.Field)
	if !ok || len(flagVals) != 1 {
		return false
	}
	flag, ok := flagVals[0].(bool)
	if !ok {
		return false
	}

	score := 0.0
	if vals, ok := resolvePath(data, rule.ScoreField); ok && len(vals) == 1 {
		if f, ok := asFloat(vals[0]); ok {
			score = f
		}
	}

	severe := false
	if rule.IssuesField != "" {
		if vals, ok := resolvePath(data, rule.IssuesField); ok && len(vals) == 1 {
			if issues, ok := vals[0].([]any); ok {
				for _, issue := range issues {
					if s, ok := issue.(string); ok && strings.Contains(strings.ToLower(s), "critical") {
						severe = true
						break
					}
				}
			}
		}
	}

	return flag == (score >= rule.Threshold && !severe)
}

// resolvePath walks a dotted field path through nested objects. Stepping
// into a list fans out: the returned slice holds the resolved value from
// every element.
func resolvePath(data map[string]any, path string) ([]any, bool) {
	if path == "" {
		return nil, false
	}
	current := []any{data}
	for _, part := range strings.Split(path, ".") {
		var next []any
		for _, node := range current {
			switch t := node.(type) {
			case map[string]any:
				if v, ok := t[part]; ok {
					next = append(next, v)
				}
			case []any:
				for _, elem := range t {
					if m, ok := elem.(map[string]any); ok {
						if v, ok := m[part]; ok {
							next = append(next, v)
						}
					}
				}
			}
		}
		if len(next) == 0 {
			return nil, false
		}
		current = next
	}
	return current, true
}

func allValues(vals []any, pred func(any) bool) bool {
	for _, v := range vals {
		if !pred(v) {
			return false
		}
	}
	return len(vals) > 0
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func lengthOf(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		return len(t), true
	case []any:
		return len(t), true
	case []string:
		return len(t), true
	case map[string]any:
		return len(t), true
	default:
		return 0, false
	}
}
