package ldap

import "github.com/KilimcininKorOglu/obacore/internal/dn"

// Scope is the scope of a search relative to its base DN.
type Scope int

const (
	// ScopeBaseObject matches only the base entry.
	ScopeBaseObject Scope = 0
	// ScopeSingleLevel matches the immediate children of the base entry.
	ScopeSingleLevel Scope = 1
	// ScopeWholeSubtree matches the base entry and all its subordinates.
	ScopeWholeSubtree Scope = 2
	// ScopeSubordinateSubtree matches all subordinates but not the base entry.
	ScopeSubordinateSubtree Scope = 3
)

// String returns the string representation of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	case ScopeSubordinateSubtree:
		return "subordinate"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s >= ScopeBaseObject && s <= ScopeSubordinateSubtree
}

// Contains reports whether target falls within the scope rooted at base.
func (s Scope) Contains(base, target dn.DN) bool {
	switch s {
	case ScopeBaseObject:
		return target.Equal(base)
	case ScopeSingleLevel:
		return target.IsChildOf(base)
	case ScopeWholeSubtree:
		return target.IsWithin(base)
	case ScopeSubordinateSubtree:
		return target.IsDescendantOf(base)
	default:
		return false
	}
}
