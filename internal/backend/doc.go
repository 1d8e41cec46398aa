// Package backend provides the in-memory directory backend.
//
// # Overview
//
// Memory holds the entries of one or more naming contexts in a DN-ordered
// index and executes the backend-local operations handed to it by the
// workflow router:
//
//   - Simple bind against the userPassword attribute
//   - Add, Delete, Modify and ModifyDN with the usual tree constraints
//   - Compare and Search with scope and filter evaluation
//
// Every write replaces whole entries under the index write lock, so readers
// never observe a partially applied change. Subtree renames move every
// subordinate in the same critical section.
//
// # Creating a Backend
//
//	b := backend.NewMemory("userRoot", []dn.DN{dn.MustParse("dc=example,dc=com")},
//	    backend.WithLogger(logger),
//	    backend.WithClock(clock.New()),
//	)
//	router.RegisterBackend(dn.MustParse("dc=example,dc=com"), b)
//
// # Operational Attributes
//
// Add and Modify maintain createTimestamp, modifyTimestamp, entryUUID and
// entryDN on stored entries unless disabled with WithoutOperationalAttributes.
//
// # Password Storage
//
// userPassword values may be stored in cleartext or with one of the
// {SHA256}, {SSHA256}, {SHA512} and {SSHA512} schemes. HashPassword
// produces values in any of them.
package backend
