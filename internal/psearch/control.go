package psearch

import (
	"errors"
	"fmt"
	"strings"

	ber "github.com/go-asn1-ber/asn1-ber"

	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// Control OIDs from draft-ietf-ldapext-psearch.
const (
	ControlTypePersistentSearch        = "2.16.840.1.113730.3.4.3"
	ControlTypeEntryChangeNotification = "2.16.840.1.113730.3.4.7"
)

// ErrMalformedControl is returned when a control value cannot be decoded.
var ErrMalformedControl = errors.New("psearch: malformed control value")

// ChangeType is a bit set of the change types a persistent search follows.
type ChangeType int

// Change types as encoded on the wire.
const (
	ChangeTypeAdd    ChangeType = 1
	ChangeTypeDelete ChangeType = 2
	ChangeTypeModify ChangeType = 4
	ChangeTypeModDN  ChangeType = 8

	AllChangeTypes = ChangeTypeAdd | ChangeTypeDelete | ChangeTypeModify | ChangeTypeModDN
)

// Has reports whether every type in t is part of c.
func (c ChangeType) Has(t ChangeType) bool {
	return t != 0 && c&t == t
}

func (c ChangeType) String() string {
	var parts []string
	for _, t := range []struct {
		bit  ChangeType
		name string
	}{
		{ChangeTypeAdd, "add"},
		{ChangeTypeDelete, "delete"},
		{ChangeTypeModify, "modify"},
		{ChangeTypeModDN, "moddn"},
	} {
		if c&t.bit != 0 {
			parts = append(parts, t.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// RequestControl is the persistent search request control.
//
//	PersistentSearch ::= SEQUENCE {
//	    changeTypes INTEGER,
//	    changesOnly BOOLEAN,
//	    returnECs   BOOLEAN
//	}
type RequestControl struct {
	ChangeTypes ChangeType
	ChangesOnly bool
	ReturnECs   bool
}

// Encode returns the BER encoding of the control value.
func (c RequestControl) Encode() []byte {
	seq := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "PersistentSearch")
	seq.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(c.ChangeTypes), "changeTypes"))
	seq.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, c.ChangesOnly, "changesOnly"))
	seq.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, c.ReturnECs, "returnECs"))
	return seq.Bytes()
}

// Control wraps c in a critical ldap.Control.
func (c RequestControl) Control() ldap.Control {
	return ldap.Control{OID: ControlTypePersistentSearch, Criticality: true, Value: c.Encode()}
}

// DecodeRequestControl decodes a persistent search request control value.
func DecodeRequestControl(value []byte) (RequestControl, error) {
	p, err := ber.DecodePacketErr(value)
	if err != nil {
		return RequestControl{}, fmt.Errorf("%w: %v", ErrMalformedControl, err)
	}
	if p.Tag != ber.TagSequence || len(p.Children) != 3 {
		return RequestControl{}, fmt.Errorf("%w: expected a sequence of three elements", ErrMalformedControl)
	}

	changeTypes, ok := p.Children[0].Value.(int64)
	if !ok {
		return RequestControl{}, fmt.Errorf("%w: changeTypes is not an integer", ErrMalformedControl)
	}
	changesOnly, ok := p.Children[1].Value.(bool)
	if !ok {
		return RequestControl{}, fmt.Errorf("%w: changesOnly is not a boolean", ErrMalformedControl)
	}
	returnECs, ok := p.Children[2].Value.(bool)
	if !ok {
		return RequestControl{}, fmt.Errorf("%w: returnECs is not a boolean", ErrMalformedControl)
	}

	ct := ChangeType(changeTypes)
	if ct == 0 || ct&^AllChangeTypes != 0 {
		return RequestControl{}, fmt.Errorf("%w: invalid changeTypes %d", ErrMalformedControl, changeTypes)
	}
	return RequestControl{ChangeTypes: ct, ChangesOnly: changesOnly, ReturnECs: returnECs}, nil
}

// FindRequestControl returns the persistent search control among controls.
func FindRequestControl(controls []ldap.Control) (RequestControl, bool, error) {
	c, ok := ldap.FindControl(controls, ControlTypePersistentSearch)
	if !ok {
		return RequestControl{}, false, nil
	}
	rc, err := DecodeRequestControl(c.Value)
	if err != nil {
		return RequestControl{}, true, err
	}
	return rc, true, nil
}

// EntryChangeNotification is the response control attached to each entry a
// persistent search returns.
//
//	EntryChangeNotification ::= SEQUENCE {
//	    changeType ENUMERATED { add(1), delete(2), modify(4), modDN(8) },
//	    previousDN LDAPDN OPTIONAL,
//	    changeNumber INTEGER OPTIONAL
//	}
type EntryChangeNotification struct {
	ChangeType ChangeType
	// PreviousDN is only set for modDN.
	PreviousDN   string
	ChangeNumber int64
}

// Encode returns the BER encoding of the control value.
func (n EntryChangeNotification) Encode() []byte {
	seq := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "EntryChangeNotification")
	seq.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(n.ChangeType), "changeType"))
	if n.ChangeType == ChangeTypeModDN && n.PreviousDN != "" {
		seq.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, n.PreviousDN, "previousDN"))
	}
	if n.ChangeNumber > 0 {
		seq.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, n.ChangeNumber, "changeNumber"))
	}
	return seq.Bytes()
}

// Control wraps n in a non-critical ldap.Control.
func (n EntryChangeNotification) Control() ldap.Control {
	return ldap.Control{OID: ControlTypeEntryChangeNotification, Value: n.Encode()}
}

// DecodeEntryChangeNotification decodes an entry change notification
// control value.
func DecodeEntryChangeNotification(value []byte) (EntryChangeNotification, error) {
	p, err := ber.DecodePacketErr(value)
	if err != nil {
		return EntryChangeNotification{}, fmt.Errorf("%w: %v", ErrMalformedControl, err)
	}
	if p.Tag != ber.TagSequence || len(p.Children) == 0 || len(p.Children) > 3 {
		return EntryChangeNotification{}, fmt.Errorf("%w: unexpected sequence", ErrMalformedControl)
	}

	ct, ok := p.Children[0].Value.(int64)
	if !ok {
		return EntryChangeNotification{}, fmt.Errorf("%w: changeType is not enumerated", ErrMalformedControl)
	}
	n := EntryChangeNotification{ChangeType: ChangeType(ct)}

	for _, child := range p.Children[1:] {
		switch child.Tag {
		case ber.TagOctetString:
			n.PreviousDN = child.Data.String()
		case ber.TagInteger:
			num, ok := child.Value.(int64)
			if !ok {
				return EntryChangeNotification{}, fmt.Errorf("%w: changeNumber is not an integer", ErrMalformedControl)
			}
			n.ChangeNumber = num
		default:
			return EntryChangeNotification{}, fmt.Errorf("%w: unexpected element tag %d", ErrMalformedControl, child.Tag)
		}
	}
	return n, nil
}
