// Package ldap holds the directory data model shared by every layer of the
// request-processing core: result codes, request and response controls,
// entries, modifications, search scopes and result-carrying errors.
//
// Nothing in this package touches the wire. Protocol encoding and decoding
// happen outside the core; decoded requests arrive here already split into
// these types.
//
// # Result Codes
//
// ResultCode covers RFC 4511 plus the cancel codes of RFC 3909. Operations
// start at ResultUndefined and receive a real code during processing:
//
//	op.SetResultCode(ldap.ResultNoSuchObject)
//	op.ResultCode().String() // "No Such Object"
//
// # Entries
//
// Entry stores attribute names lowercased with string values, the same
// shape the backend works with:
//
//	e := ldap.NewEntry(dn.MustParse("cn=bob,ou=people,dc=example,dc=com"))
//	e.SetAttribute("objectClass", "top", "person")
//	e.HasObjectClass("PERSON") // true
//
// Entries handed to listeners are snapshots. Code that needs a changed copy
// calls Duplicate and edits the copy.
//
// # Errors
//
// DirectoryError attaches a result code to an error so that failures deep in
// a backend or a listener surface to the client with the intended code:
//
//	return ldap.NewDirectoryError(ldap.ResultNotAllowedOnNonLeaf, "entry has children")
//
// # References
//
//   - RFC 4511: LDAP Protocol
//   - RFC 3909: LDAP Cancel Operation
package ldap
