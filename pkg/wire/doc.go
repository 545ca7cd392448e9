// Package wire defines the binary message format spoken by SCCP stations.
//
// All integers are little-endian. Fixed-size string fields are NUL padded
// and always keep one terminating NUL. IPv4 addresses are carried as four
// bytes in network order.
//
// # Framing
//
// Each message is framed as
//
//	len (u32) | kind (u32) | payload
//
// where len covers kind and payload. Deployed stations insert a reserved
// header version word after len that is not counted in len; Codec selects
// between the two layouts with Framing.
//
// Payloads longer than the codec's maximum message size are truncated and
// the remainder of the frame is skipped. A length prefix too small to hold
// the kind is reported per frame; one above MaxFrameLength means the stream
// is desynchronized.
//
// # Messages
//
// Every message kind with a known payload layout has a struct in this
// package implementing Message. Kinds without one decode to *Unknown so
// callers can log and discard them.
package wire
