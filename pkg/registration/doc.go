// Package registration binds station sessions to configured devices.
//
// Each device carries a small state machine (unregistered, pending,
// registered, rejected). A Register message is checked against the global
// ACL and then the device's own rules; an accepted station gets its button
// layout, lines and negotiated protocol version before RegisterAck and
// CapabilitiesReq are sent. Rejected stations stay connected but unbound so
// they can retry.
//
// Sessions that send call messages without having registered are matched to
// a device by source address. When none matches, the station is told to
// restart; restart instructions are rate limited per address.
package registration
