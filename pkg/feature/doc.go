// Package feature maps station key presses to call operations.
//
// A soft key event or a stimulus names a feature together with an optional
// line instance and call reference. The Dispatcher resolves the line and
// channel the press refers to, falling back to the device's current line
// and then its first line, checks that the feature is enabled and runs it.
//
// Features that are disabled, or that have nothing to act on, show a short
// notification on the station. They are never reported as protocol errors.
package feature
