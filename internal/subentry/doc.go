// Package subentry maintains the administrative subentries of the directory
// and answers which of them govern a given entry.
//
// A subentry is an entry with the subentry or ldapSubEntry object class. Its
// subtreeSpecification attribute (RFC 3672) names a base relative to the
// subentry's parent, optional chop exclusions, depth limits and a
// refinement. Subentries are bucketed by the absolute base of their
// specification, in a regular and a collective index; an applicability
// query walks the target's ancestors and re-evaluates each candidate's
// specification.
//
// Writes reach the manager twice. The pre-operation Plugin validates the
// proposed change and lets registered listeners veto it; after the change
// commits, Manager.HandleChange updates the indexes.
package subentry
