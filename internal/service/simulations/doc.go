// Package simulations implements the simulation lifecycle commands under
// optimistic concurrency control.
//
// Status machine:
//   - NotStarted -> InProgress -> Completed
//
// Statuses only move forward, one step at a time; identity transitions are
// no-ops. Once a simulation leaves NotStarted its data source and start time
// are frozen. Mutating commands carry the caller's expected concurrency
// token; the repository's compare-and-swap write is the only arbiter of
// conflicts, and no locks are held between the load and the write. Stale
// business-rule validation can therefore only produce a rejection, never a
// wrong acceptance: a conflicting concurrent change always changes the token.
//
// Auditing:
//   - Every committed Update or Delete appends exactly one audit entry
//     listing only the fields that actually changed (a committed no-op
//     patch appends an entry with an empty change list).
//   - Audit persistence is best-effort: failures are logged and discarded,
//     never surfaced as command failures.
package simulations
