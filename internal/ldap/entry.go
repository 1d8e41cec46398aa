package ldap

import (
	"sort"
	"strings"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
)

// ObjectClassAttribute is the attribute holding an entry's object classes.
const ObjectClassAttribute = "objectclass"

// Entry represents an LDAP entry with multi-valued attributes.
// Attribute names are stored lowercased.
type Entry struct {
	// DN is the distinguished name of the entry.
	DN dn.DN

	// Attributes contains the entry's attribute values keyed by lowercased name.
	Attributes map[string][]string
}

// NewEntry creates a new Entry with the given DN.
func NewEntry(d dn.DN) *Entry {
	return &Entry{
		DN:         d,
		Attributes: make(map[string][]string),
	}
}

// GetAttribute returns the values for the given attribute name.
// Returns nil if the attribute does not exist.
func (e *Entry) GetAttribute(name string) []string {
	if e.Attributes == nil {
		return nil
	}
	return e.Attributes[strings.ToLower(name)]
}

// GetFirstAttribute returns the first value for the given attribute name.
func (e *Entry) GetFirstAttribute(name string) string {
	values := e.GetAttribute(name)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// HasAttribute returns true if the entry has at least one value for name.
func (e *Entry) HasAttribute(name string) bool {
	return len(e.GetAttribute(name)) > 0
}

// SetAttribute replaces the values for the given attribute name.
func (e *Entry) SetAttribute(name string, values ...string) {
	if e.Attributes == nil {
		e.Attributes = make(map[string][]string)
	}
	if len(values) == 0 {
		delete(e.Attributes, strings.ToLower(name))
		return
	}
	e.Attributes[strings.ToLower(name)] = append([]string(nil), values...)
}

// AddAttributeValue adds a value to the given attribute unless an equal
// value (case-insensitively) is already present.
func (e *Entry) AddAttributeValue(name string, value string) {
	if e.Attributes == nil {
		e.Attributes = make(map[string][]string)
	}
	name = strings.ToLower(name)
	for _, v := range e.Attributes[name] {
		if strings.EqualFold(v, value) {
			return
		}
	}
	e.Attributes[name] = append(e.Attributes[name], value)
}

// DeleteAttribute removes an attribute from the entry.
func (e *Entry) DeleteAttribute(name string) {
	if e.Attributes == nil {
		return
	}
	delete(e.Attributes, strings.ToLower(name))
}

// DeleteAttributeValue removes a specific value from an attribute.
// If the attribute has no more values after removal, the attribute is deleted.
func (e *Entry) DeleteAttributeValue(name string, value string) bool {
	if e.Attributes == nil {
		return false
	}
	name = strings.ToLower(name)
	values := e.Attributes[name]
	if len(values) == 0 {
		return false
	}

	newValues := make([]string, 0, len(values))
	removed := false
	for _, v := range values {
		if !removed && strings.EqualFold(v, value) {
			removed = true
			continue
		}
		newValues = append(newValues, v)
	}

	if len(newValues) == 0 {
		delete(e.Attributes, name)
	} else {
		e.Attributes[name] = newValues
	}
	return removed
}

// HasValue reports whether the attribute holds value, ignoring case.
func (e *Entry) HasValue(name, value string) bool {
	for _, v := range e.GetAttribute(name) {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// ObjectClasses returns the entry's object class values.
func (e *Entry) ObjectClasses() []string {
	return e.GetAttribute(ObjectClassAttribute)
}

// HasObjectClass reports whether the entry carries the given object class.
func (e *Entry) HasObjectClass(oc string) bool {
	return e.HasValue(ObjectClassAttribute, oc)
}

// Duplicate creates a deep copy of the entry.
func (e *Entry) Duplicate() *Entry {
	if e == nil {
		return nil
	}

	clone := &Entry{
		DN:         e.DN,
		Attributes: make(map[string][]string, len(e.Attributes)),
	}

	for k, v := range e.Attributes {
		values := make([]string, len(v))
		copy(values, v)
		clone.Attributes[k] = values
	}

	return clone
}

// WithDN returns a duplicate of the entry renamed to d. Attribute values are
// not touched; use Rename to keep RDN values consistent.
func (e *Entry) WithDN(d dn.DN) *Entry {
	clone := e.Duplicate()
	clone.DN = d
	return clone
}

// AttributeNames returns the entry's attribute names in sorted order.
func (e *Entry) AttributeNames() []string {
	names := make([]string, 0, len(e.Attributes))
	for name := range e.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rename returns a duplicate of the entry moved to newDN. The values of the
// new RDN are added to the entry; when deleteOldRDN is set, the values of
// the old RDN that are not part of the new RDN are removed.
func (e *Entry) Rename(newDN dn.DN, deleteOldRDN bool) *Entry {
	clone := e.WithDN(newDN)
	newRDN := newDN.RDN()
	if deleteOldRDN {
		for _, ava := range e.DN.RDN().AVAs() {
			if !rdnHasValue(newRDN, ava) {
				clone.DeleteAttributeValue(ava.Type, ava.Value)
			}
		}
	}
	for _, ava := range newRDN.AVAs() {
		clone.AddAttributeValue(ava.Type, ava.Value)
	}
	return clone
}

func rdnHasValue(r dn.RDN, ava dn.AVA) bool {
	for _, a := range r.AVAs() {
		if strings.EqualFold(a.Type, ava.Type) && strings.EqualFold(a.Value, ava.Value) {
			return true
		}
	}
	return false
}

// Attribute is a named set of values as carried in add requests.
type Attribute struct {
	Type   string
	Values []string
}

// EntryFromAttributes builds an entry from request attributes.
func EntryFromAttributes(d dn.DN, attrs []Attribute) *Entry {
	e := NewEntry(d)
	for _, a := range attrs {
		for _, v := range a.Values {
			e.AddAttributeValue(a.Type, v)
		}
	}
	return e
}
