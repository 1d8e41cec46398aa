package backend

import (
	"time"

	"github.com/google/uuid"

	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// Operational attribute names per RFC 4512 and RFC 4530.
const (
	AttrCreateTimestamp = "createTimestamp"
	AttrModifyTimestamp = "modifyTimestamp"
	AttrEntryDN         = "entryDN"
	AttrEntryUUID       = "entryUUID"
)

type opKind int

const (
	opAdd opKind = iota
	opModify
	opRename
)

// setOperationalAttrs stamps e for the given kind of write. Adds also
// receive a creation timestamp and a fresh entryUUID.
func setOperationalAttrs(e *ldap.Entry, kind opKind, now time.Time) {
	if kind == opAdd {
		e.SetAttribute(AttrCreateTimestamp, FormatTimestamp(now))
		e.SetAttribute(AttrEntryUUID, uuid.NewString())
	}
	e.SetAttribute(AttrModifyTimestamp, FormatTimestamp(now))
	e.SetAttribute(AttrEntryDN, e.DN.String())
}

// FormatTimestamp formats t as an LDAP GeneralizedTime string such as
// "20260218103000Z".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("20060102150405Z")
}

// ParseTimestamp parses an LDAP GeneralizedTime string. It returns the zero
// time if s is malformed.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse("20060102150405Z", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
