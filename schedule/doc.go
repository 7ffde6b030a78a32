// Package schedule implements the occurrence projection core: expanding
// declarative event rules (weekly patterns and one-off dates) into concrete
// calendar occurrences over an inclusive date window.
//
// The projector is a pure function. Occurrence identity is derived from the
// (rule, date) pair rather than assigned, so re-projection always
// reproduces the same IDs and external stores can key per-occurrence data
// (role assignments, setlists, swap requests) on them without the projector
// persisting anything. Any caching belongs to consumers; see the server
// package's projection cache.
//
// The package also renders projected windows as standard iCalendar feeds
// for calendar subscriptions.
package schedule
