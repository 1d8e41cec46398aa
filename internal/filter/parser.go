package filter

import (
	"errors"
	"fmt"
	"strings"

	ber "github.com/go-asn1-ber/asn1-ber"
	goldap "github.com/go-ldap/ldap/v3"
)

// Parser errors
var (
	ErrEmptyFilter   = errors.New("empty filter")
	ErrInvalidFilter = errors.New("invalid filter syntax")
)

// Parse parses an LDAP filter string into a Filter structure.
// Supports RFC 4515 filter syntax, including escaped values and
// extensible matches:
//   - (attr=value)     - equality
//   - (attr=*)         - presence
//   - (attr=*val*)     - substring
//   - (attr>=value)    - greater or equal
//   - (attr<=value)    - less or equal
//   - (attr~=value)    - approximate match
//   - (attr:dn:=value) - extensible match
//   - (&(f1)(f2)...)   - AND
//   - (|(f1)(f2)...)   - OR
//   - (!(filter))      - NOT
//
// A bare item without parentheses such as "uid=alice" is accepted.
func Parse(filterStr string) (*Filter, error) {
	filterStr = strings.TrimSpace(filterStr)
	if filterStr == "" || filterStr == "()" {
		return nil, ErrEmptyFilter
	}
	if !strings.HasPrefix(filterStr, "(") {
		filterStr = "(" + filterStr + ")"
	}

	packet, err := goldap.CompileFilter(filterStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return FromPacket(packet)
}

// MustParse is like Parse but panics on error.
func MustParse(filterStr string) *Filter {
	f, err := Parse(filterStr)
	if err != nil {
		panic(err)
	}
	return f
}

// FromPacket converts a BER encoded filter, as found in a search request,
// into a Filter.
func FromPacket(p *ber.Packet) (*Filter, error) {
	if p == nil {
		return nil, ErrEmptyFilter
	}

	switch p.Tag {
	case goldap.FilterAnd, goldap.FilterOr:
		children := make([]*Filter, 0, len(p.Children))
		for _, c := range p.Children {
			child, err := FromPacket(c)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if p.Tag == goldap.FilterAnd {
			return NewAndFilter(children...), nil
		}
		return NewOrFilter(children...), nil

	case goldap.FilterNot:
		if len(p.Children) != 1 {
			return nil, fmt.Errorf("%w: not filter needs one child", ErrInvalidFilter)
		}
		child, err := FromPacket(p.Children[0])
		if err != nil {
			return nil, err
		}
		return NewNotFilter(child), nil

	case goldap.FilterPresent:
		return NewPresentFilter(p.Data.String()), nil

	case goldap.FilterEqualityMatch, goldap.FilterGreaterOrEqual,
		goldap.FilterLessOrEqual, goldap.FilterApproxMatch:
		if len(p.Children) != 2 {
			return nil, fmt.Errorf("%w: malformed assertion", ErrInvalidFilter)
		}
		attr, value := p.Children[0].Data.String(), p.Children[1].Data.String()
		switch p.Tag {
		case goldap.FilterEqualityMatch:
			return NewEqualityFilter(attr, value), nil
		case goldap.FilterGreaterOrEqual:
			return NewGreaterOrEqualFilter(attr, value), nil
		case goldap.FilterLessOrEqual:
			return NewLessOrEqualFilter(attr, value), nil
		default:
			return NewApproxMatchFilter(attr, value), nil
		}

	case goldap.FilterSubstrings:
		if len(p.Children) != 2 {
			return nil, fmt.Errorf("%w: malformed substring filter", ErrInvalidFilter)
		}
		sf := &SubstringFilter{Attribute: p.Children[0].Data.String()}
		for _, part := range p.Children[1].Children {
			switch part.Tag {
			case goldap.FilterSubstringsInitial:
				sf.Initial = part.Data.String()
			case goldap.FilterSubstringsAny:
				sf.Any = append(sf.Any, part.Data.String())
			case goldap.FilterSubstringsFinal:
				sf.Final = part.Data.String()
			}
		}
		return NewSubstringFilter(sf), nil

	case goldap.FilterExtensibleMatch:
		f := &Filter{Type: FilterExtensibleMatch}
		for _, c := range p.Children {
			switch c.Tag {
			case goldap.MatchingRuleAssertionMatchingRule:
				f.MatchingRule = c.Data.String()
			case goldap.MatchingRuleAssertionType:
				f.Attribute = c.Data.String()
			case goldap.MatchingRuleAssertionMatchValue:
				f.Value = c.Data.String()
			case goldap.MatchingRuleAssertionDNAttributes:
				if v, ok := c.Value.(bool); ok {
					f.DNAttributes = v
				}
			}
		}
		return f, nil

	default:
		return nil, fmt.Errorf("%w: unknown filter tag %d", ErrInvalidFilter, p.Tag)
	}
}
