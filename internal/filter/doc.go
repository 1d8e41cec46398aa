// Package filter parses LDAP search filters and evaluates them against
// entries.
//
// String filters (RFC 4515) are compiled with go-ldap and converted into a
// Filter tree; filters arriving in BER form are converted with FromPacket.
// Every RFC 4511 filter choice is supported, including extensible matches
// over DN attribute values.
//
// Matching is case-insensitive for equality, substring and ordering
// assertions, which covers the directory-string syntaxes used by the
// core's persistent searches and subentry specification filters:
//
//	f, err := filter.Parse("(&(objectClass=person)(|(uid=alice)(mail=*@example.com)))")
//	if err != nil {
//	    return err
//	}
//	if f.Matches(entry) {
//	    // deliver entry
//	}
//
// Filters may also be built directly:
//
//	f := filter.NewAndFilter(
//	    filter.NewEqualityFilter("objectClass", "person"),
//	    filter.NewNotFilter(filter.NewPresentFilter("mail")),
//	)
package filter
