// Package psearch implements persistent search: searches that stay open and
// return entries as they are added, deleted, modified or renamed.
//
// A Registry is a change.Listener. Every committed change is matched
// against the persistent searches based at or above the changed entry; a
// search receives the entry when the change type is one it follows, the
// entry is within its scope and the entry matches its filter. For modify
// and rename either image may satisfy scope and filter, so an entry moved
// into or out of a search's scope is reported exactly once.
//
// Delivery runs on the goroutine that committed the change. A failed
// delivery terminates the affected search with a final result and never
// reaches the writer.
package psearch
