package subentry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/filter"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// ErrInvalidSpecification is returned for a subtree specification that
// cannot be parsed.
var ErrInvalidSpecification = errors.New("invalid subtree specification")

// Specification is a parsed RFC 3672 subtree specification. All DNs are
// absolute: the base is resolved against the administrative point the
// subentry sits under.
//
//	{ base "ou=people", specificExclusions { chopBefore:"ou=gone" },
//	  minimum 1, maximum 3, specificationFilter item:person }
//
// The specificationFilter may also be a quoted LDAP filter string.
type Specification struct {
	adminPoint   dn.DN
	relativeBase dn.DN
	base         dn.DN
	chopBefore   []dn.DN
	chopAfter    []dn.DN
	minimum      int
	maximum      int
	refinement   *Refinement
	filter       *filter.Filter
}

// WholeSubtree returns the specification covering adminPoint and every
// entry below it.
func WholeSubtree(adminPoint dn.DN) *Specification {
	return &Specification{adminPoint: adminPoint, base: adminPoint}
}

// BaseDN returns the absolute base of the specification.
func (s *Specification) BaseDN() dn.DN { return s.base }

// Minimum returns the minimum depth below the base.
func (s *Specification) Minimum() int { return s.minimum }

// Maximum returns the maximum depth below the base; zero is unbounded.
func (s *Specification) Maximum() int { return s.maximum }

// Refinement returns the objectClass refinement, or nil.
func (s *Specification) Refinement() *Refinement { return s.refinement }

// Filter returns the LDAP filter refinement, or nil.
func (s *Specification) Filter() *filter.Filter { return s.filter }

// Rebase returns the specification resolved against a new administrative
// point. Relative names keep their value.
func (s *Specification) Rebase(adminPoint dn.DN) *Specification {
	out := *s
	out.adminPoint = adminPoint
	out.base = s.relativeBase.Concat(adminPoint)
	out.chopBefore = rebaseAll(s.chopBefore, s.base, out.base)
	out.chopAfter = rebaseAll(s.chopAfter, s.base, out.base)
	return &out
}

func rebaseAll(dns []dn.DN, from, to dn.DN) []dn.DN {
	if len(dns) == 0 {
		return nil
	}
	out := make([]dn.DN, len(dns))
	for i, d := range dns {
		out[i], _ = d.Rebase(from, to)
	}
	return out
}

// IsDNWithinScope reports whether d falls within the base, chop and depth
// limits. Refinements are not evaluated.
func (s *Specification) IsDNWithinScope(d dn.DN) bool {
	if !d.IsWithin(s.base) {
		return false
	}
	depth := d.Len() - s.base.Len()
	if depth < s.minimum || (s.maximum > 0 && depth > s.maximum) {
		return false
	}
	for _, c := range s.chopBefore {
		if d.IsWithin(c) {
			return false
		}
	}
	for _, c := range s.chopAfter {
		if d.IsDescendantOf(c) {
			return false
		}
	}
	return true
}

// IsWithinScope reports whether e is governed by the specification.
func (s *Specification) IsWithinScope(e *ldap.Entry) bool {
	if e == nil || !s.IsDNWithinScope(e.DN) {
		return false
	}
	if s.refinement != nil && !s.refinement.Matches(e) {
		return false
	}
	if s.filter != nil && !s.filter.Matches(e) {
		return false
	}
	return true
}

// String returns the specification in RFC 3672 value notation.
func (s *Specification) String() string {
	var parts []string
	if !s.relativeBase.IsRoot() {
		parts = append(parts, "base "+quote(s.relativeBase.String()))
	}
	if len(s.chopBefore) > 0 || len(s.chopAfter) > 0 {
		var chops []string
		for _, c := range s.chopBefore {
			rel, _ := c.RelativeTo(s.base)
			chops = append(chops, "chopBefore:"+quote(rel.String()))
		}
		for _, c := range s.chopAfter {
			rel, _ := c.RelativeTo(s.base)
			chops = append(chops, "chopAfter:"+quote(rel.String()))
		}
		parts = append(parts, "specificExclusions { "+strings.Join(chops, ", ")+" }")
	}
	if s.minimum > 0 {
		parts = append(parts, "minimum "+strconv.Itoa(s.minimum))
	}
	if s.maximum > 0 {
		parts = append(parts, "maximum "+strconv.Itoa(s.maximum))
	}
	switch {
	case s.refinement != nil:
		parts = append(parts, "specificationFilter "+s.refinement.String())
	case s.filter != nil:
		parts = append(parts, "specificationFilter "+quote(s.filter.String()))
	}
	if len(parts) == 0 {
		return "{ }"
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

type refinementOp int

const (
	refineItem refinementOp = iota
	refineAnd
	refineOr
	refineNot
)

// Refinement is an objectClass refinement of a subtree specification.
type Refinement struct {
	op       refinementOp
	item     string
	children []*Refinement
}

// Matches reports whether e satisfies the refinement.
func (r *Refinement) Matches(e *ldap.Entry) bool {
	switch r.op {
	case refineItem:
		return e.HasObjectClass(r.item)
	case refineAnd:
		for _, c := range r.children {
			if !c.Matches(e) {
				return false
			}
		}
		return true
	case refineOr:
		for _, c := range r.children {
			if c.Matches(e) {
				return true
			}
		}
		return false
	case refineNot:
		return !r.children[0].Matches(e)
	}
	return false
}

// String returns the refinement in RFC 3672 value notation.
func (r *Refinement) String() string {
	switch r.op {
	case refineItem:
		return "item:" + r.item
	case refineNot:
		return "not:" + r.children[0].String()
	}
	name := "and"
	if r.op == refineOr {
		name = "or"
	}
	parts := make([]string, len(r.children))
	for i, c := range r.children {
		parts[i] = c.String()
	}
	return name + ":{" + strings.Join(parts, ",") + "}"
}

// ParseSpecification parses value as the subtree specification of a
// subentry placed directly below adminPoint.
func ParseSpecification(adminPoint dn.DN, value string) (*Specification, error) {
	p := &specParser{in: value}
	spec, err := p.specification(adminPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpecification, err)
	}
	return spec, nil
}

type specParser struct {
	in  string
	pos int
}

func (p *specParser) skipSpace() {
	for p.pos < len(p.in) && (p.in[p.pos] == ' ' || p.in[p.pos] == '\t' || p.in[p.pos] == '\n' || p.in[p.pos] == '\r') {
		p.pos++
	}
}

func (p *specParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.in) {
		return 0
	}
	return p.in[p.pos]
}

func (p *specParser) expect(c byte) error {
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '.' || c == ';'
}

func (p *specParser) word() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.in) && isWordByte(p.in[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return "", fmt.Errorf("expected an identifier at offset %d", start)
	}
	return p.in[start:p.pos], nil
}

func (p *specParser) quoted() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}
	var b strings.Builder
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		p.pos++
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		if p.pos < len(p.in) && p.in[p.pos] == '"' {
			b.WriteByte('"')
			p.pos++
			continue
		}
		return b.String(), nil
	}
	return "", errors.New("unterminated string")
}

func (p *specParser) integer() (int, error) {
	w, err := p.word()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(w)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number %q", w)
	}
	return n, nil
}

func (p *specParser) specification(adminPoint dn.DN) (*Specification, error) {
	spec := &Specification{adminPoint: adminPoint}
	var (
		chopBefore, chopAfter []dn.DN
		seen                  = make(map[string]bool)
	)

	if err := p.expect('{'); err != nil {
		return nil, err
	}
	for p.peek() != '}' {
		name, err := p.word()
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate component %s", name)
		}
		seen[name] = true

		switch name {
		case "base":
			s, err := p.quoted()
			if err != nil {
				return nil, err
			}
			if spec.relativeBase, err = dn.Parse(s); err != nil {
				return nil, err
			}
		case "specificExclusions":
			if chopBefore, chopAfter, err = p.exclusions(); err != nil {
				return nil, err
			}
		case "minimum":
			if spec.minimum, err = p.integer(); err != nil {
				return nil, err
			}
		case "maximum":
			if spec.maximum, err = p.integer(); err != nil {
				return nil, err
			}
		case "specificationFilter":
			if p.peek() == '"' {
				s, err := p.quoted()
				if err != nil {
					return nil, err
				}
				if spec.filter, err = filter.Parse(s); err != nil {
					return nil, err
				}
			} else if spec.refinement, err = p.refinement(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown component %s", name)
		}

		if p.peek() == ',' {
			p.pos++
			continue
		}
		if p.peek() != '}' {
			return nil, fmt.Errorf("expected ',' or '}' at offset %d", p.pos)
		}
	}
	p.pos++
	if p.peek() != 0 {
		return nil, fmt.Errorf("trailing data at offset %d", p.pos)
	}
	if spec.maximum > 0 && spec.maximum < spec.minimum {
		return nil, fmt.Errorf("maximum %d is below minimum %d", spec.maximum, spec.minimum)
	}

	spec.base = spec.relativeBase.Concat(adminPoint)
	for _, c := range chopBefore {
		spec.chopBefore = append(spec.chopBefore, c.Concat(spec.base))
	}
	for _, c := range chopAfter {
		spec.chopAfter = append(spec.chopAfter, c.Concat(spec.base))
	}
	return spec, nil
}

func (p *specParser) exclusions() (before, after []dn.DN, err error) {
	if err := p.expect('{'); err != nil {
		return nil, nil, err
	}
	for p.peek() != '}' {
		kind, err := p.word()
		if err != nil {
			return nil, nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, nil, err
		}
		s, err := p.quoted()
		if err != nil {
			return nil, nil, err
		}
		d, err := dn.Parse(s)
		if err != nil {
			return nil, nil, err
		}
		switch kind {
		case "chopBefore":
			before = append(before, d)
		case "chopAfter":
			after = append(after, d)
		default:
			return nil, nil, fmt.Errorf("unknown exclusion %s", kind)
		}
		if p.peek() == ',' {
			p.pos++
		}
	}
	p.pos++
	return before, after, nil
}

func (p *specParser) refinement() (*Refinement, error) {
	kind, err := p.word()
	if err != nil {
		return nil, err
	}
	if err := p.expect(':'); err != nil {
		return nil, err
	}

	switch kind {
	case "item":
		oc, err := p.word()
		if err != nil {
			return nil, err
		}
		return &Refinement{op: refineItem, item: oc}, nil
	case "not":
		child, err := p.refinement()
		if err != nil {
			return nil, err
		}
		return &Refinement{op: refineNot, children: []*Refinement{child}}, nil
	case "and", "or":
		r := &Refinement{op: refineAnd}
		if kind == "or" {
			r.op = refineOr
		}
		if err := p.expect('{'); err != nil {
			return nil, err
		}
		for p.peek() != '}' {
			child, err := p.refinement()
			if err != nil {
				return nil, err
			}
			r.children = append(r.children, child)
			if p.peek() == ',' {
				p.pos++
			} else if p.peek() != '}' {
				return nil, fmt.Errorf("expected ',' or '}' at offset %d", p.pos)
			}
		}
		p.pos++
		return r, nil
	default:
		return nil, fmt.Errorf("unknown refinement %s", kind)
	}
}
