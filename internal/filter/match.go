package filter

import (
	"strings"
)

// Matching rules understood by extensible match filters.
const (
	MatchingRuleCaseIgnore = "2.5.13.2"
	MatchingRuleCaseExact  = "2.5.13.5"
)

const matchingRuleDistinguishedName = "2.5.13.1"

var matchingRuleAliases = map[string]string{
	"caseignorematch":             MatchingRuleCaseIgnore,
	"caseexactmatch":              MatchingRuleCaseExact,
	"distinguishednamematch":      matchingRuleDistinguishedName,
	matchingRuleDistinguishedName: matchingRuleDistinguishedName,
	MatchingRuleCaseIgnore:        MatchingRuleCaseIgnore,
	MatchingRuleCaseExact:         MatchingRuleCaseExact,
}

// matchEquality performs case-insensitive equality matching.
// This is the default matching behavior for string attributes in LDAP.
func matchEquality(a, b string) bool {
	return strings.EqualFold(a, b)
}

// matchEqualityExact performs exact (case-sensitive) equality matching.
func matchEqualityExact(a, b string) bool {
	return a == b
}

// matchSubstring checks if a value matches a substring filter pattern.
// The pattern consists of optional initial, any (middle), and final components.
func matchSubstring(value, initial string, middle []string, final string) bool {
	valueLower := strings.ToLower(value)
	pos := 0

	if initial != "" {
		initialLower := strings.ToLower(initial)
		if !strings.HasPrefix(valueLower, initialLower) {
			return false
		}
		pos = len(initialLower)
	}

	for _, substr := range middle {
		if substr == "" {
			continue
		}
		substrLower := strings.ToLower(substr)
		idx := strings.Index(valueLower[pos:], substrLower)
		if idx < 0 {
			return false
		}
		pos += idx + len(substrLower)
	}

	if final != "" {
		if !strings.HasSuffix(valueLower[pos:], strings.ToLower(final)) {
			return false
		}
	}

	return true
}

// matchGreaterOrEqual performs case-insensitive greater-or-equal comparison.
// For string values, this uses lexicographic ordering.
func matchGreaterOrEqual(value, threshold string) bool {
	return strings.Compare(strings.ToLower(value), strings.ToLower(threshold)) >= 0
}

// matchLessOrEqual performs case-insensitive less-or-equal comparison.
// For string values, this uses lexicographic ordering.
func matchLessOrEqual(value, threshold string) bool {
	return strings.Compare(strings.ToLower(value), strings.ToLower(threshold)) <= 0
}

// matchApprox performs approximate matching.
// This implementation uses a simplified approach based on normalized comparison.
func matchApprox(a, b string) bool {
	return normalizeForApprox(a) == normalizeForApprox(b)
}

// normalizeForApprox lowercases a value and collapses runs of whitespace.
func normalizeForApprox(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// matchWithRule compares two values using the named matching rule. Unknown
// rules never match.
func matchWithRule(rule, value, assertion string) bool {
	if rule == "" {
		return matchEquality(value, assertion)
	}
	switch matchingRuleAliases[strings.ToLower(rule)] {
	case MatchingRuleCaseExact:
		return matchEqualityExact(value, assertion)
	case MatchingRuleCaseIgnore, matchingRuleDistinguishedName:
		return matchEquality(value, assertion)
	default:
		return false
	}
}
