// Package indicate drives station displays from channel state.
//
// Engine.Indicate is the only place a channel changes call state. Each
// transition produces an ordered batch of messages for the owning station
// (tones, lamps, ringer, soft key set, prompts) and, unless the channel is
// private, a hint event for other stations watching the line.
//
// Callers serialize transitions per device. The engine never holds a
// registry lock while it talks to the media collaborator or a station.
package indicate
