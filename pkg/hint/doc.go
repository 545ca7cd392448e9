// Package hint tracks busy lamp subscriptions.
//
// A subscription watches a line from a button on another device (a speed
// dial with a hint, or the same shared line on a second station). Every
// channel transition on the watched line produces lamp, call state and call
// info updates for each subscriber. The manager only builds the messages;
// delivery goes through the OnNotification callback, which the gateway
// routes onto the subscribing device's worker.
//
// # Privacy
//
// Transitions of a private channel are not published, except on-hook,
// which always clears the remote lamp.
package hint
