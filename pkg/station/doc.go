// Package station builds the per-device layout and status messages a
// station requests during and after registration: button templates, soft
// key sets, line, speed dial, forward and config status.
package station
