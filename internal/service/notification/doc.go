// Package notification implements the proximity notification lifecycle.
//
// Every marker moves through Absent -> Pending -> Active -> Absent. The
// Manager owns the only mutable dedup state (the pending guard and the active
// records) and mutates it in single critical sections, so overlapping
// evaluations of the same marker never issue two show operations. Sink calls
// always run outside the lock.
package notification
