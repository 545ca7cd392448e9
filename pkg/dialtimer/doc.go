// Package dialtimer implements digit collection timeouts.
//
// A channel in the dialing state has at most one timer. The first digit
// gets a longer timeout than the digits after it. Arming a channel again
// replaces its timer; there is no stacking. When a timer expires the
// collected number is handed to the expiry callback, which dials it.
//
// Timers are not kept across device disconnects: CancelDevice drops every
// timer of a device.
package dialtimer
