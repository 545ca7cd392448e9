// Package call implements call control on top of the indicate engine.
//
// Manager operations start, answer, hold, resume, transfer and end calls
// for one device at a time. They run on the device's worker; the router is
// called without holding any registry lock.
//
// Starting or answering a call while another call is active first puts the
// active call on hold. When that hold fails the new operation is abandoned
// and the active call is left as it was.
package call
