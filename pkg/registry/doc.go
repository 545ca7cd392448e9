// Package registry holds the gateway's devices, lines and channels.
//
// Elements are addressed by id: devices by name, lines by name, channels by
// call id. Ordered id slices replace intrusive lists; a channel is always
// present in the global order, its line's order and its device's order, or
// in none of them.
package registry
