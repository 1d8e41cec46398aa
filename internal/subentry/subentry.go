package subentry

import (
	"fmt"
	"strings"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// Object classes and attributes that describe subentries.
const (
	ObjectClassSubentry                  = "subentry"
	ObjectClassLDAPSubentry              = "ldapSubEntry"
	ObjectClassCollective                = "collectiveAttributeSubentry"
	ObjectClassInheritedCollective       = "inheritedCollectiveAttributeSubentry"
	ObjectClassInheritedFromDNCollective = "inheritedFromDNCollectiveAttributeSubentry"
	ObjectClassInheritedFromRDN          = "inheritedFromRDNCollectiveAttributeSubentry"

	AttrSubtreeSpecification       = "subtreeSpecification"
	AttrCollectiveConflictBehavior = "collectiveConflictBehavior"
	AttrInheritFromDNAttribute     = "inheritFromDNAttribute"
	AttrInheritFromRDNAttribute    = "inheritFromRDNAttribute"
	AttrInheritFromRDNType         = "inheritFromRDNType"
	AttrInheritFromBaseRDN         = "inheritFromBaseRDN"
	AttrInheritAttribute           = "inheritAttribute"
)

// Kind classifies a subentry.
type Kind int

const (
	KindRegular Kind = iota
	KindCollective
	KindInheritedCollective
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindCollective:
		return "collective"
	case KindInheritedCollective:
		return "inherited-collective"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ConflictBehavior tells how collective values combine with real values of
// the same attribute.
type ConflictBehavior int

const (
	RealOverridesVirtual ConflictBehavior = iota
	VirtualOverridesReal
	MergeRealAndVirtual
)

func (b ConflictBehavior) String() string {
	switch b {
	case VirtualOverridesReal:
		return "virtual-overrides-real"
	case MergeRealAndVirtual:
		return "merge-real-and-virtual"
	default:
		return "real-overrides-virtual"
	}
}

func parseConflictBehavior(s string) (ConflictBehavior, error) {
	switch strings.ToLower(s) {
	case "", "real-overrides-virtual":
		return RealOverridesVirtual, nil
	case "virtual-overrides-real":
		return VirtualOverridesReal, nil
	case "merge-real-and-virtual":
		return MergeRealAndVirtual, nil
	default:
		return 0, fmt.Errorf("unknown %s %q", AttrCollectiveConflictBehavior, s)
	}
}

// Subentry is an administrative entry together with its parsed subtree
// specification. A Subentry is immutable; a change produces a new one.
type Subentry struct {
	entry    *ldap.Entry
	spec     *Specification
	kind     Kind
	conflict ConflictBehavior

	inheritFromDNAttribute  string
	inheritFromRDNAttribute string
	inheritFromRDNType      string
	inheritFromBaseRDN      dn.DN
	inheritAttributes       []string
}

// IsSubentry reports whether e carries a subentry object class.
func IsSubentry(e *ldap.Entry) bool {
	return e != nil && (e.HasObjectClass(ObjectClassSubentry) || e.HasObjectClass(ObjectClassLDAPSubentry))
}

// New parses e as a subentry. A missing subtree specification covers the
// whole subtree of the entry's parent. Errors map to
// INVALID_ATTRIBUTE_SYNTAX.
func New(e *ldap.Entry) (*Subentry, error) {
	if !IsSubentry(e) {
		return nil, ldap.NewDirectoryError(ldap.ResultObjectClassViolation,
			fmt.Sprintf("%s is not a subentry", e.DN))
	}
	adminPoint, ok := e.DN.Parent()
	if !ok {
		return nil, ldap.NewDirectoryError(ldap.ResultUnwillingToPerform, "the root DSE cannot be a subentry")
	}

	s := &Subentry{entry: e}

	specs := e.GetAttribute(AttrSubtreeSpecification)
	switch len(specs) {
	case 0:
		s.spec = WholeSubtree(adminPoint)
	case 1:
		spec, err := ParseSpecification(adminPoint, specs[0])
		if err != nil {
			return nil, invalidSyntax(e.DN, err)
		}
		s.spec = spec
	default:
		return nil, invalidSyntax(e.DN, fmt.Errorf("%w: multiple values", ErrInvalidSpecification))
	}

	conflict, err := parseConflictBehavior(e.GetFirstAttribute(AttrCollectiveConflictBehavior))
	if err != nil {
		return nil, invalidSyntax(e.DN, err)
	}
	s.conflict = conflict

	switch {
	case e.HasObjectClass(ObjectClassInheritedCollective),
		e.HasObjectClass(ObjectClassInheritedFromDNCollective),
		e.HasObjectClass(ObjectClassInheritedFromRDN):
		s.kind = KindInheritedCollective
		if err := s.parseInheritance(); err != nil {
			return nil, invalidSyntax(e.DN, err)
		}
	case e.HasObjectClass(ObjectClassCollective):
		s.kind = KindCollective
	default:
		s.kind = KindRegular
	}
	return s, nil
}

func invalidSyntax(d dn.DN, err error) error {
	return ldap.WrapDirectoryError(ldap.ResultInvalidAttributeSyntax,
		fmt.Sprintf("subentry %s: %v", d, err), err)
}

func (s *Subentry) parseInheritance() error {
	e := s.entry
	s.inheritFromDNAttribute = strings.ToLower(e.GetFirstAttribute(AttrInheritFromDNAttribute))
	s.inheritFromRDNAttribute = strings.ToLower(e.GetFirstAttribute(AttrInheritFromRDNAttribute))
	s.inheritFromRDNType = strings.ToLower(e.GetFirstAttribute(AttrInheritFromRDNType))
	if v := e.GetFirstAttribute(AttrInheritFromBaseRDN); v != "" {
		base, err := dn.Parse(v)
		if err != nil {
			return err
		}
		s.inheritFromBaseRDN = base
	}
	for _, a := range e.GetAttribute(AttrInheritAttribute) {
		s.inheritAttributes = append(s.inheritAttributes, strings.ToLower(a))
	}

	if s.inheritFromDNAttribute == "" && s.inheritFromRDNAttribute == "" {
		return fmt.Errorf("one of %s or %s is required", AttrInheritFromDNAttribute, AttrInheritFromRDNAttribute)
	}
	if s.inheritFromRDNAttribute != "" && s.inheritFromRDNType == "" {
		return fmt.Errorf("%s requires %s", AttrInheritFromRDNAttribute, AttrInheritFromRDNType)
	}
	if len(s.inheritAttributes) == 0 {
		return fmt.Errorf("%s is required", AttrInheritAttribute)
	}
	return nil
}

// DN returns the DN of the subentry.
func (s *Subentry) DN() dn.DN { return s.entry.DN }

// Entry returns the underlying entry. It must not be modified.
func (s *Subentry) Entry() *ldap.Entry { return s.entry }

// Specification returns the subtree specification.
func (s *Subentry) Specification() *Specification { return s.spec }

// Kind returns the classification of the subentry.
func (s *Subentry) Kind() Kind { return s.kind }

// IsCollective reports whether the subentry belongs to the collective index.
func (s *Subentry) IsCollective() bool { return s.kind != KindRegular }

func (s *Subentry) ConflictBehavior() ConflictBehavior { return s.conflict }

func (s *Subentry) InheritFromDNAttribute() string  { return s.inheritFromDNAttribute }
func (s *Subentry) InheritFromRDNAttribute() string { return s.inheritFromRDNAttribute }
func (s *Subentry) InheritFromRDNType() string      { return s.inheritFromRDNType }
func (s *Subentry) InheritFromBaseRDN() dn.DN       { return s.inheritFromBaseRDN }
func (s *Subentry) InheritAttributes() []string     { return s.inheritAttributes }

// CollectiveAttributes returns the collective attributes the subentry
// supplies: attributes named "c-..." or carrying the ";collective" option.
// Inherited-collective subentries supply none of their own.
func (s *Subentry) CollectiveAttributes() []ldap.Attribute {
	if s.kind != KindCollective {
		return nil
	}
	var out []ldap.Attribute
	for _, name := range s.entry.AttributeNames() {
		if isCollectiveAttribute(name) {
			values := s.entry.GetAttribute(name)
			out = append(out, ldap.Attribute{Type: name, Values: append([]string(nil), values...)})
		}
	}
	return out
}

func isCollectiveAttribute(name string) bool {
	return strings.HasPrefix(name, "c-") || strings.Contains(name, ";collective")
}

// Applies reports whether the subentry governs e.
func (s *Subentry) Applies(e *ldap.Entry) bool {
	return s.spec.IsWithinScope(e)
}

// relocate returns the subentry moved to the entry e, with its
// specification resolved against the new administrative point.
func (s *Subentry) relocate(e *ldap.Entry) *Subentry {
	out := *s
	out.entry = e
	adminPoint, _ := e.DN.Parent()
	out.spec = s.spec.Rebase(adminPoint)
	return &out
}
