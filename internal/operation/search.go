package operation

import (
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/filter"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// SearchOperation is a search request.
type SearchOperation interface {
	Operation
	RawBaseDN() string
	BaseDN() dn.DN
	SetBaseDN(d dn.DN)
	Scope() ldap.Scope
	Filter() *filter.Filter
	Attributes() []string
	SizeLimit() int

	// ReturnEntry sends one result entry. It returns false once the size
	// limit is reached, setting SIZE_LIMIT_EXCEEDED.
	ReturnEntry(entry *ldap.Entry, controls []ldap.Control) (bool, error)
	EntriesSent() int

	// SkipInitialResults makes the backend return no initial entries, as
	// requested by a changes-only persistent search.
	SkipInitialResults() bool
	SetSkipInitialResults(skip bool)
}

// Search is the concrete search operation.
type Search struct {
	*Base
	rawBaseDN  string
	scope      ldap.Scope
	filter     *filter.Filter
	attributes []string
	sizeLimit  int

	baseDN      dn.DN
	entriesSent int
	skipInitial bool
}

// NewSearch creates a search operation. A size limit of zero means unlimited.
func NewSearch(h Header, rawBaseDN string, scope ldap.Scope, f *filter.Filter, attrs []string, sizeLimit int) *Search {
	return &Search{
		Base:       newBase(TypeSearch, h),
		rawBaseDN:  rawBaseDN,
		scope:      scope,
		filter:     f,
		attributes: attrs,
		sizeLimit:  sizeLimit,
	}
}

func (o *Search) RawBaseDN() string      { return o.rawBaseDN }
func (o *Search) Scope() ldap.Scope      { return o.scope }
func (o *Search) Filter() *filter.Filter { return o.filter }
func (o *Search) Attributes() []string   { return o.attributes }
func (o *Search) SizeLimit() int         { return o.sizeLimit }

func (o *Search) BaseDN() dn.DN {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.baseDN
}

func (o *Search) SetBaseDN(d dn.DN) {
	o.mu.Lock()
	o.baseDN = d
	o.mu.Unlock()
}

func (o *Search) ReturnEntry(entry *ldap.Entry, controls []ldap.Control) (bool, error) {
	o.mu.Lock()
	if o.sizeLimit > 0 && o.entriesSent >= o.sizeLimit {
		o.resultCode = ldap.ResultSizeLimitExceeded
		o.mu.Unlock()
		return false, nil
	}
	o.entriesSent++
	o.mu.Unlock()

	if o.conn == nil {
		return true, nil
	}
	if err := o.conn.SendSearchEntry(o, projectEntry(entry, o.attributes), controls); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Search) EntriesSent() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.entriesSent
}

func (o *Search) SkipInitialResults() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.skipInitial
}

func (o *Search) SetSkipInitialResults(skip bool) {
	o.mu.Lock()
	o.skipInitial = skip
	o.mu.Unlock()
}

// projectEntry keeps only the requested attributes. No attributes or "*"
// selects all user attributes.
func projectEntry(e *ldap.Entry, attrs []string) *ldap.Entry {
	if len(attrs) == 0 {
		return e
	}
	for _, a := range attrs {
		if a == "*" {
			return e
		}
	}
	out := ldap.NewEntry(e.DN)
	for _, a := range attrs {
		if values := e.GetAttribute(a); len(values) > 0 {
			out.SetAttribute(a, values...)
		}
	}
	return out
}
