// Package persistence stores per-device settings that must survive a
// gateway restart: do-not-disturb mode and call forwards.
//
// Settings are kept in a single JSON file, rewritten on every change.
package persistence
