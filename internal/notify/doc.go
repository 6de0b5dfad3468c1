// Package notify publishes change notifications to observers.
//
// The Gate applies the publication policy: every mutation publishes a
// Change for its address unless the address carries the
// caller_is_sync_agent marker, in which case the bulk agent notifies on its
// own and the change is suppressed. Published changes are stamped with a
// logical sequence number and an event id and handed to a Sink.
//
// Bus is the in-process Sink. Observers subscribe a channel, then watch
// addresses. A change at address A reaches an observer watching B when
//   - B equals A
//   - A is an ancestor of B (a collection change invalidates its items)
//   - B is an ancestor of A and B was watched with descendants
//
// Delivery never blocks. A full observer channel drops the change and the
// drop is counted in Stats.
package notify
