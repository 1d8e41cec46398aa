package filter

import (
	"strings"

	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// Evaluator evaluates LDAP search filters against entries.
// Attribute values are compared as directory strings: case-insensitively,
// unless an extensible match names an exact matching rule.
type Evaluator struct{}

// NewEvaluator creates a new filter evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

var defaultEvaluator = NewEvaluator()

// Matches reports whether entry matches the filter. A nil filter matches
// every entry.
func (f *Filter) Matches(entry *ldap.Entry) bool {
	if f == nil {
		return entry != nil
	}
	return defaultEvaluator.Evaluate(f, entry)
}

// Evaluate tests whether an entry matches a filter.
// Returns true if the entry matches the filter, false otherwise.
func (e *Evaluator) Evaluate(filter *Filter, entry *ldap.Entry) bool {
	if filter == nil || entry == nil {
		return false
	}

	switch filter.Type {
	case FilterAnd:
		return e.evaluateAnd(filter, entry)
	case FilterOr:
		return e.evaluateOr(filter, entry)
	case FilterNot:
		return e.evaluateNot(filter, entry)
	case FilterEquality:
		return e.anyValue(filter.Attribute, entry, func(v string) bool {
			return matchEquality(v, filter.Value)
		})
	case FilterSubstring:
		return e.evaluateSubstring(filter.Substring, entry)
	case FilterPresent:
		return e.evaluatePresent(filter.Attribute, entry)
	case FilterGreaterOrEqual:
		return e.anyValue(filter.Attribute, entry, func(v string) bool {
			return matchGreaterOrEqual(v, filter.Value)
		})
	case FilterLessOrEqual:
		return e.anyValue(filter.Attribute, entry, func(v string) bool {
			return matchLessOrEqual(v, filter.Value)
		})
	case FilterApproxMatch:
		return e.anyValue(filter.Attribute, entry, func(v string) bool {
			return matchApprox(v, filter.Value)
		})
	case FilterExtensibleMatch:
		return e.evaluateExtensible(filter, entry)
	default:
		return false
	}
}

// evaluateAnd evaluates an AND filter.
// Returns true only if all children match.
func (e *Evaluator) evaluateAnd(filter *Filter, entry *ldap.Entry) bool {
	// Empty AND filter matches everything (vacuous truth)
	if len(filter.Children) == 0 {
		return true
	}

	for _, child := range filter.Children {
		if !e.Evaluate(child, entry) {
			return false
		}
	}
	return true
}

// evaluateOr evaluates an OR filter.
// Returns true if any child matches.
func (e *Evaluator) evaluateOr(filter *Filter, entry *ldap.Entry) bool {
	for _, child := range filter.Children {
		if e.Evaluate(child, entry) {
			return true
		}
	}
	return false
}

func (e *Evaluator) evaluateNot(filter *Filter, entry *ldap.Entry) bool {
	if filter.Child == nil {
		return false
	}
	return !e.Evaluate(filter.Child, entry)
}

// evaluateSubstring tests if an entry has an attribute matching the substring pattern.
func (e *Evaluator) evaluateSubstring(sf *SubstringFilter, entry *ldap.Entry) bool {
	if sf == nil {
		return false
	}
	return e.anyValue(sf.Attribute, entry, func(v string) bool {
		return matchSubstring(v, sf.Initial, sf.Any, sf.Final)
	})
}

// evaluatePresent tests if an entry has the specified attribute.
func (e *Evaluator) evaluatePresent(attr string, entry *ldap.Entry) bool {
	return len(entry.GetAttribute(attr)) > 0
}

// evaluateExtensible handles (attr:rule:=value) and (attr:dn:=value). With
// dnAttributes set, the AVAs of the entry DN are matched as well.
func (e *Evaluator) evaluateExtensible(filter *Filter, entry *ldap.Entry) bool {
	match := func(attrType, v string) bool {
		if filter.Attribute != "" && !strings.EqualFold(attrType, filter.Attribute) {
			return false
		}
		return matchWithRule(filter.MatchingRule, v, filter.Value)
	}

	if filter.Attribute != "" {
		for _, v := range entry.GetAttribute(filter.Attribute) {
			if match(filter.Attribute, v) {
				return true
			}
		}
	} else {
		for name, values := range entry.Attributes {
			for _, v := range values {
				if match(name, v) {
					return true
				}
			}
		}
	}

	if !filter.DNAttributes {
		return false
	}
	d := entry.DN
	for !d.IsRoot() {
		for _, ava := range d.RDN().AVAs() {
			if match(ava.Type, ava.Value) {
				return true
			}
		}
		d, _ = d.Parent()
	}
	return false
}

func (e *Evaluator) anyValue(attr string, entry *ldap.Entry, pred func(string) bool) bool {
	for _, v := range entry.GetAttribute(attr) {
		if pred(v) {
			return true
		}
	}
	return false
}
