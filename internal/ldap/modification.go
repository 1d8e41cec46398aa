package ldap

import (
	"fmt"
	"strings"
)

// ModificationType represents the type of modification operation.
type ModificationType int

const (
	// ModAdd adds values to an attribute.
	ModAdd ModificationType = iota
	// ModDelete removes values from an attribute.
	ModDelete
	// ModReplace replaces all values of an attribute.
	ModReplace
)

// String returns the string representation of the modification type.
func (m ModificationType) String() string {
	switch m {
	case ModAdd:
		return "add"
	case ModDelete:
		return "delete"
	case ModReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Modification represents a single change of a modify request.
type Modification struct {
	Type      ModificationType
	Attribute string
	Values    []string
}

// NewModification creates a new Modification.
func NewModification(modType ModificationType, attr string, values ...string) Modification {
	return Modification{
		Type:      modType,
		Attribute: attr,
		Values:    values,
	}
}

// ApplyModifications returns a duplicate of e with mods applied in order.
// The original entry is never changed. Values of the entry's RDN cannot be
// removed.
func ApplyModifications(e *Entry, mods []Modification) (*Entry, error) {
	out := e.Duplicate()
	for _, mod := range mods {
		attr := strings.ToLower(mod.Attribute)
		if attr == "" {
			return nil, NewDirectoryError(ResultProtocolError, "modification without attribute type")
		}

		switch mod.Type {
		case ModAdd:
			for _, v := range mod.Values {
				if out.HasValue(attr, v) {
					return nil, NewDirectoryError(ResultAttributeOrValueExists,
						fmt.Sprintf("attribute %s already has value %q", mod.Attribute, v))
				}
				out.AddAttributeValue(attr, v)
			}

		case ModDelete:
			if len(mod.Values) == 0 {
				if !out.HasAttribute(attr) {
					return nil, NewDirectoryError(ResultNoSuchAttribute,
						fmt.Sprintf("attribute %s does not exist", mod.Attribute))
				}
				out.DeleteAttribute(attr)
				continue
			}
			for _, v := range mod.Values {
				if !out.DeleteAttributeValue(attr, v) {
					return nil, NewDirectoryError(ResultNoSuchAttribute,
						fmt.Sprintf("attribute %s has no value %q", mod.Attribute, v))
				}
			}

		case ModReplace:
			out.SetAttribute(attr, mod.Values...)

		default:
			return nil, NewDirectoryError(ResultProtocolError,
				fmt.Sprintf("unknown modification type %d", mod.Type))
		}
	}

	for _, ava := range out.DN.RDN().AVAs() {
		if !out.HasValue(ava.Type, ava.Value) {
			return nil, NewDirectoryError(ResultNotAllowedOnRDN,
				fmt.Sprintf("cannot remove RDN value %s=%s", ava.Type, ava.Value))
		}
	}
	return out, nil
}
