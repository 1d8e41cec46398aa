// Package dn provides immutable distinguished name values for the directory core.
package dn

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	goldap "github.com/go-ldap/ldap/v3"
)

// DN parsing errors.
var (
	ErrInvalidDN  = errors.New("invalid DN syntax")
	ErrInvalidRDN = errors.New("invalid RDN syntax")
)

// keySeparator joins normalized RDNs in index keys. It sorts before every
// printable byte, so all descendants of a key form one contiguous range.
const keySeparator = "\x00"

// AVA is a single attribute type and value pair of an RDN.
type AVA struct {
	Type  string
	Value string
}

// RDN is a relative distinguished name. Multi-valued RDNs keep their AVAs
// in the order they were given; comparisons use the sorted normalized form.
type RDN struct {
	avas []AVA
	norm string
}

// NewRDN builds an RDN from one or more AVAs.
func NewRDN(avas ...AVA) (RDN, error) {
	if len(avas) == 0 {
		return RDN{}, ErrInvalidRDN
	}
	cp := make([]AVA, len(avas))
	for i, a := range avas {
		t := strings.TrimSpace(a.Type)
		if t == "" {
			return RDN{}, ErrInvalidRDN
		}
		cp[i] = AVA{Type: t, Value: a.Value}
	}
	return RDN{avas: cp, norm: normalizeAVAs(cp)}, nil
}

// ParseRDN parses a single RDN such as "cn=bob" or "cn=bob+uid=42".
func ParseRDN(s string) (RDN, error) {
	if strings.TrimSpace(s) == "" {
		return RDN{}, ErrInvalidRDN
	}
	d, err := Parse(s)
	if err != nil {
		return RDN{}, fmt.Errorf("%w: %v", ErrInvalidRDN, err)
	}
	if len(d.rdns) != 1 {
		return RDN{}, fmt.Errorf("%w: %q has %d components", ErrInvalidRDN, s, len(d.rdns))
	}
	return d.rdns[0], nil
}

// AVAs returns a copy of the RDN's attribute value assertions.
func (r RDN) AVAs() []AVA {
	out := make([]AVA, len(r.avas))
	copy(out, r.avas)
	return out
}

// IsZero reports whether r is the zero RDN.
func (r RDN) IsZero() bool {
	return len(r.avas) == 0
}

// Equal reports whether both RDNs have the same normalized form.
func (r RDN) Equal(o RDN) bool {
	return r.norm == o.norm
}

// Normalized returns the case-folded, AVA-sorted form used for comparisons.
func (r RDN) Normalized() string {
	return r.norm
}

// String returns the RFC 4514 string form of the RDN.
func (r RDN) String() string {
	parts := make([]string, len(r.avas))
	for i, a := range r.avas {
		parts[i] = a.Type + "=" + escapeValue(a.Value)
	}
	return strings.Join(parts, "+")
}

// DN is an immutable distinguished name. RDNs are stored leaf first, the
// same order they appear in the string form. The zero value is the root DSE.
type DN struct {
	rdns []RDN
}

// Root returns the empty DN naming the root DSE.
func Root() DN {
	return DN{}
}

// Parse parses an RFC 4514 DN string. The empty string parses to the root DN.
func Parse(s string) (DN, error) {
	if strings.TrimSpace(s) == "" {
		return DN{}, nil
	}

	parsed, err := goldap.ParseDN(s)
	if err != nil {
		return DN{}, fmt.Errorf("%w: %v", ErrInvalidDN, err)
	}

	rdns := make([]RDN, 0, len(parsed.RDNs))
	for _, prdn := range parsed.RDNs {
		avas := make([]AVA, 0, len(prdn.Attributes))
		for _, attr := range prdn.Attributes {
			avas = append(avas, AVA{Type: attr.Type, Value: attr.Value})
		}
		rdn, err := NewRDN(avas...)
		if err != nil {
			return DN{}, fmt.Errorf("%w: %q", ErrInvalidDN, s)
		}
		rdns = append(rdns, rdn)
	}
	return DN{rdns: rdns}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) DN {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsRoot reports whether d is the root DSE.
func (d DN) IsRoot() bool {
	return len(d.rdns) == 0
}

// Len returns the number of RDN components.
func (d DN) Len() int {
	return len(d.rdns)
}

// RDN returns the leaf RDN, or the zero RDN for the root DSE.
func (d DN) RDN() RDN {
	if len(d.rdns) == 0 {
		return RDN{}
	}
	return d.rdns[0]
}

// Parent returns the immediate superior of d. The root DSE has no parent.
func (d DN) Parent() (DN, bool) {
	if len(d.rdns) == 0 {
		return DN{}, false
	}
	return DN{rdns: d.rdns[1:]}, true
}

// Child returns the DN formed by placing rdn directly below d.
func (d DN) Child(rdn RDN) DN {
	rdns := make([]RDN, 0, len(d.rdns)+1)
	rdns = append(rdns, rdn)
	rdns = append(rdns, d.rdns...)
	return DN{rdns: rdns}
}

// Concat appends suffix below d, treating d as relative to suffix.
// Concat of "ou=a" and "dc=example,dc=com" is "ou=a,dc=example,dc=com".
func (d DN) Concat(suffix DN) DN {
	if len(d.rdns) == 0 {
		return suffix
	}
	rdns := make([]RDN, 0, len(d.rdns)+len(suffix.rdns))
	rdns = append(rdns, d.rdns...)
	rdns = append(rdns, suffix.rdns...)
	return DN{rdns: rdns}
}

// Equal reports whether d and o name the same entry.
func (d DN) Equal(o DN) bool {
	if len(d.rdns) != len(o.rdns) {
		return false
	}
	for i := range d.rdns {
		if !d.rdns[i].Equal(o.rdns[i]) {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether d is a strict superior of o.
func (d DN) IsAncestorOf(o DN) bool {
	return len(d.rdns) < len(o.rdns) && d.isSuffixOf(o)
}

// IsDescendantOf reports whether d is a strict subordinate of o.
func (d DN) IsDescendantOf(o DN) bool {
	return o.IsAncestorOf(d)
}

// IsWithin reports whether d equals base or is subordinate to it.
func (d DN) IsWithin(base DN) bool {
	return len(base.rdns) <= len(d.rdns) && base.isSuffixOf(d)
}

// IsChildOf reports whether d sits exactly one level below o.
func (d DN) IsChildOf(o DN) bool {
	return len(d.rdns) == len(o.rdns)+1 && o.isSuffixOf(d)
}

func (d DN) isSuffixOf(o DN) bool {
	off := len(o.rdns) - len(d.rdns)
	for i := range d.rdns {
		if !d.rdns[i].Equal(o.rdns[off+i]) {
			return false
		}
	}
	return true
}

// Rebase replaces the oldBase suffix of d with newBase. It returns false when
// d is not within oldBase.
func (d DN) Rebase(oldBase, newBase DN) (DN, bool) {
	if !d.IsWithin(oldBase) {
		return DN{}, false
	}
	keep := len(d.rdns) - len(oldBase.rdns)
	rdns := make([]RDN, 0, keep+len(newBase.rdns))
	rdns = append(rdns, d.rdns[:keep]...)
	rdns = append(rdns, newBase.rdns...)
	return DN{rdns: rdns}, true
}

// RelativeTo returns the part of d below base, so that
// d.RelativeTo(base).Concat(base) equals d.
func (d DN) RelativeTo(base DN) (DN, bool) {
	if !d.IsWithin(base) {
		return DN{}, false
	}
	keep := len(d.rdns) - len(base.rdns)
	return DN{rdns: d.rdns[:keep:keep]}, true
}

// String returns the RFC 4514 string form of d.
func (d DN) String() string {
	parts := make([]string, len(d.rdns))
	for i, r := range d.rdns {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Normalized returns the case-folded string form used for equality.
func (d DN) Normalized() string {
	parts := make([]string, len(d.rdns))
	for i, r := range d.rdns {
		parts[i] = r.norm
	}
	return strings.Join(parts, ",")
}

// Key returns an ordering key for d. Keys are root first, so the key of every
// subordinate of d starts with d.Key() followed by the separator.
func (d DN) Key() string {
	var b strings.Builder
	for i := len(d.rdns) - 1; i >= 0; i-- {
		if i != len(d.rdns)-1 {
			b.WriteString(keySeparator)
		}
		b.WriteString(d.rdns[i].norm)
	}
	return b.String()
}

// SubtreeContainsKey reports whether key belongs to an entry at or below the
// DN whose key is baseKey.
func SubtreeContainsKey(baseKey, key string) bool {
	if baseKey == "" {
		return true
	}
	if !strings.HasPrefix(key, baseKey) {
		return false
	}
	return len(key) == len(baseKey) || strings.HasPrefix(key[len(baseKey):], keySeparator)
}

func normalizeAVAs(avas []AVA) string {
	parts := make([]string, len(avas))
	for i, a := range avas {
		v := strings.ReplaceAll(normalizeValue(a.Value), keySeparator, `\00`)
		parts[i] = strings.ToLower(strings.TrimSpace(a.Type)) + "=" + v
	}
	sort.Strings(parts)
	return strings.Join(parts, "+")
}

// normalizeValue lowercases and collapses insignificant whitespace.
func normalizeValue(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(v)), " ")
}

func escapeValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c == ',' || c == '+' || c == '"' || c == '\\' || c == '<' || c == '>' || c == ';' || c == '=':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == 0:
			b.WriteString(`\00`)
		case i == 0 && (c == ' ' || c == '#'):
			b.WriteByte('\\')
			b.WriteByte(c)
		case i == len(v)-1 && c == ' ':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
